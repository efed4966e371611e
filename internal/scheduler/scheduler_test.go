package scheduler

import (
	"context"
	"errors"
	"testing"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type applierFunc func(ctx context.Context, leadID uuid.UUID) (service.ExternalRuleResult, error)

func (f applierFunc) ApplyExternalRuleToLeadReferrals(ctx context.Context, leadID uuid.UUID) (service.ExternalRuleResult, error) {
	return f(ctx, leadID)
}

func TestApplyExternalRuleTaskCarriesLeadID(t *testing.T) {
	leadID := uuid.New()

	task, err := NewApplyExternalRuleTask(ApplyExternalRulePayload{LeadID: leadID.String()})
	require.NoError(t, err)
	assert.Equal(t, TaskApplyExternalRule, task.Type())
	assert.JSONEq(t, `{"leadId":"`+leadID.String()+`"}`, string(task.Payload()))

	payload, err := ParseApplyExternalRulePayload(task)
	require.NoError(t, err)
	assert.Equal(t, leadID.String(), payload.LeadID)
}

type fakeEnqueuer struct {
	err   error
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func optionTypes(opts []asynq.Option) []asynq.OptionType {
	out := make([]asynq.OptionType, len(opts))
	for i, o := range opts {
		out[i] = o.Type()
	}
	return out
}

func TestEnqueueUsesExpiringUniqueLock(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := &Client{client: fake, queue: "referrals"}

	require.NoError(t, c.EnqueueApplyExternalRule(context.Background(), uuid.New()))
	require.Len(t, fake.opts, 1)

	types := optionTypes(fake.opts[0])
	assert.Contains(t, types, asynq.UniqueOpt)
	assert.NotContains(t, types, asynq.TaskIDOpt, "a fixed task id would outlive archived tasks")
	for _, o := range fake.opts[0] {
		if o.Type() == asynq.UniqueOpt {
			assert.Equal(t, applyExternalRuleUniqueTTL, o.Value())
		}
		if o.Type() == asynq.QueueOpt {
			assert.Equal(t, "referrals", o.Value())
		}
	}
}

func TestEnqueueReportsDuplicate(t *testing.T) {
	fake := &fakeEnqueuer{err: asynq.ErrDuplicateTask}
	c := &Client{client: fake, queue: "default"}

	err := c.EnqueueApplyExternalRule(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAlreadyQueued)

	fake.err = errors.New("redis down")
	err = c.EnqueueApplyExternalRule(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyQueued))
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:s3cret@cache.internal:6380/3", false)
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "s3cret", opt.Password)
	assert.Equal(t, 3, opt.DB)
	assert.Nil(t, opt.TLSConfig)

	opt, err = redisClientOpt("rediss://cache.internal:6380/0", true)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)
}

func TestWorkerAppliesRuleForLead(t *testing.T) {
	leadID := uuid.New()
	var got uuid.UUID
	w := newWorker(applierFunc(func(_ context.Context, id uuid.UUID) (service.ExternalRuleResult, error) {
		got = id
		return service.ExternalRuleResult{LeadID: id, Message: domain.MsgAllConsistent}, nil
	}), logger.Discard())

	task, err := NewApplyExternalRuleTask(ApplyExternalRulePayload{LeadID: leadID.String()})
	require.NoError(t, err)

	require.NoError(t, w.mux.ProcessTask(context.Background(), task))
	assert.Equal(t, leadID, got)
}

func TestWorkerSkipsDeletedLeads(t *testing.T) {
	w := newWorker(applierFunc(func(context.Context, uuid.UUID) (service.ExternalRuleResult, error) {
		return service.ExternalRuleResult{}, apperr.NotFound(domain.MsgLeadNotFound)
	}), logger.Discard())

	task, err := NewApplyExternalRuleTask(ApplyExternalRulePayload{LeadID: uuid.NewString()})
	require.NoError(t, err)

	assert.NoError(t, w.mux.ProcessTask(context.Background(), task))
}

func TestWorkerDoesNotRetryMalformedPayload(t *testing.T) {
	w := newWorker(applierFunc(func(context.Context, uuid.UUID) (service.ExternalRuleResult, error) {
		t.Fatal("applier must not be called")
		return service.ExternalRuleResult{}, nil
	}), logger.Discard())

	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskApplyExternalRule, []byte(`{"leadId":"nope"}`)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestWorkerRetriesStorageFailures(t *testing.T) {
	boom := errors.New("connection reset")
	w := newWorker(applierFunc(func(context.Context, uuid.UUID) (service.ExternalRuleResult, error) {
		return service.ExternalRuleResult{}, boom
	}), logger.Discard())

	task, err := NewApplyExternalRuleTask(ApplyExternalRulePayload{LeadID: uuid.NewString()})
	require.NoError(t, err)

	err = w.mux.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNilClientEnqueueIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.EnqueueApplyExternalRule(context.Background(), uuid.New()))
	assert.NoError(t, c.Close())
}
