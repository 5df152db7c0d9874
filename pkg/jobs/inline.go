package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Inline runs jobs synchronously on the caller's goroutine.
type Inline struct {
	handler    Handler
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewInline builds a synchronous dispatcher.
func NewInline(handler Handler, cfg QueueConfig) *Inline {
	cfg = cfg.withDefaults()
	return &Inline{handler: handler, maxRetries: cfg.MaxRetries, retryDelay: cfg.RetryDelay, logger: cfg.Logger}
}

// Start is a no-op.
func (d *Inline) Start(context.Context) {}

// Stop is a no-op.
func (d *Inline) Stop() {}

// Enqueue executes the job, retrying up to the configured limit. The last
// handler error is returned.
func (d *Inline) Enqueue(ctx context.Context, job Job) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	for {
		err := d.handler(ctx, job)
		if err == nil {
			return nil
		}
		job.Attempt++
		if job.Attempt > d.maxRetries {
			d.logger.Warn("job failed", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
			return err
		}
		timer := time.NewTimer(d.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
