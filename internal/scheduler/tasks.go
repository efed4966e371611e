package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskApplyExternalRule re-runs the external-attribution rule for one lead.
const TaskApplyExternalRule = "referrals.apply_external_rule"

type ApplyExternalRulePayload struct {
	LeadID string `json:"leadId"`
}

func NewApplyExternalRuleTask(payload ApplyExternalRulePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskApplyExternalRule, data), nil
}

func ParseApplyExternalRulePayload(task *asynq.Task) (ApplyExternalRulePayload, error) {
	var payload ApplyExternalRulePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ApplyExternalRulePayload{}, err
	}
	return payload, nil
}
