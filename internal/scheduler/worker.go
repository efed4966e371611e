package scheduler

import (
	"context"
	"errors"
	"fmt"

	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ExternalRuleApplier is the referral operation the worker drives.
type ExternalRuleApplier interface {
	ApplyExternalRuleToLeadReferrals(ctx context.Context, leadID uuid.UUID) (service.ExternalRuleResult, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	applier ExternalRuleApplier
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, applier ExternalRuleApplier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(applier, log)
	w.server = server
	return w, nil
}

func newWorker(applier ExternalRuleApplier, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	w := &Worker{
		mux:     asynq.NewServeMux(),
		applier: applier,
		log:     log,
	}
	w.mux.HandleFunc(TaskApplyExternalRule, w.handleApplyExternalRule)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleApplyExternalRule(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseApplyExternalRulePayload(task)
	if err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("invalid lead id %q: %w", payload.LeadID, asynq.SkipRetry)
	}

	result, err := w.applier.ApplyExternalRuleToLeadReferrals(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		w.log.Warn("external rule skipped, lead no longer exists", "leadId", leadID)
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("external rule re-run completed",
		"leadId", leadID,
		"marked", len(result.MarkedExternal),
		"restored", len(result.RestoredInternal),
	)
	return nil
}
