package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"finders_crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	applyExternalRuleMaxRetry = 5
	// Collapses bursts for the same lead. The lock expires on its own so a
	// later run is never blocked by an archived or still-retrying task.
	applyExternalRuleUniqueTTL = time.Minute
)

// ErrAlreadyQueued reports that a re-run for the lead was enqueued within
// the uniqueness window and this one was not added.
var ErrAlreadyQueued = errors.New("external rule re-run already queued")

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type Client struct {
	client taskEnqueuer
	queue  string
}

// ExternalRuleScheduler queues attribution re-runs after a bulk import.
type ExternalRuleScheduler interface {
	EnqueueApplyExternalRule(ctx context.Context, leadID uuid.UUID) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueApplyExternalRule queues a rule re-run for leadID. It returns
// ErrAlreadyQueued when an identical re-run was enqueued moments earlier.
func (c *Client) EnqueueApplyExternalRule(ctx context.Context, leadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewApplyExternalRuleTask(ApplyExternalRulePayload{LeadID: leadID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, applyExternalRuleOptions(c.queue)...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("lead %s: %w", leadID, ErrAlreadyQueued)
	}
	return err
}

func applyExternalRuleOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.Unique(applyExternalRuleUniqueTTL),
		asynq.MaxRetry(applyExternalRuleMaxRetry),
	}
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

// redisClientOpt turns REDIS_URL into asynq options. rediss:// URLs keep
// their TLS settings; insecure skips verification for self-signed caches.
func redisClientOpt(redisURL string, insecure bool) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	tlsConfig := parsed.TLSConfig
	switch {
	case tlsConfig != nil && insecure:
		tlsConfig = tlsConfig.Clone()
		tlsConfig.InsecureSkipVerify = true
	case tlsConfig == nil && insecure:
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: tlsConfig,
	}, nil
}

var _ ExternalRuleScheduler = (*Client)(nil)
