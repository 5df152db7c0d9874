package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const popTimeout = 2 * time.Second

type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// RedisOutbox persists jobs on a Redis list so pending side effects survive a
// restart. Exhausted jobs are moved to "<key>:dead".
type RedisOutbox struct {
	client  listClient
	key     string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRedisOutbox builds a Redis list backed dispatcher.
func NewRedisOutbox(client listClient, key string, handler Handler, cfg QueueConfig) *RedisOutbox {
	cfg = cfg.withDefaults()
	return &RedisOutbox{
		client:     client,
		key:        key,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// DeadLetterKey returns the list receiving jobs that exhausted their retries.
func (o *RedisOutbox) DeadLetterKey() string {
	return o.key + ":dead"
}

// Enqueue serialises the job onto the list head.
func (o *RedisOutbox) Enqueue(ctx context.Context, job Job) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	return o.push(ctx, o.key, job)
}

// Start launches consumers.
func (o *RedisOutbox) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}
	ctx, o.cancel = context.WithCancel(ctx)
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for ctx.Err() == nil {
				o.ProcessOne(ctx)
			}
		}()
	}
	o.logger.Info("redis outbox started", zap.String("key", o.key), zap.Int("workers", o.workers))
}

// Stop cancels consumers and waits for them to exit.
func (o *RedisOutbox) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.wg.Wait()
	o.logger.Info("redis outbox stopped", zap.String("key", o.key))
}

// ProcessOne pops and handles at most one job. It reports whether a job was
// consumed.
func (o *RedisOutbox) ProcessOne(ctx context.Context) bool {
	res, err := o.client.BRPop(ctx, popTimeout, o.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			o.logger.Warn("redis outbox pop failed", zap.Error(err))
			time.Sleep(o.retryDelay)
		}
		return false
	}
	if len(res) != 2 {
		return false
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		o.logger.Error("discarding malformed outbox entry", zap.String("raw", res[1]), zap.Error(err))
		return true
	}

	if err := o.handler(ctx, job); err != nil {
		o.handleFailure(ctx, job, err)
	}
	return true
}

func (o *RedisOutbox) handleFailure(ctx context.Context, job Job, err error) {
	job.Attempt++
	if job.Attempt > o.maxRetries {
		o.logger.Error("job failed, moving to dead letter", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
		if pushErr := o.push(ctx, o.DeadLetterKey(), job); pushErr != nil {
			o.logger.Error("failed to dead-letter job", zap.String("job_id", job.ID), zap.Error(pushErr))
		}
		return
	}

	o.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
	timer := time.NewTimer(o.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	if pushErr := o.push(context.WithoutCancel(ctx), o.key, job); pushErr != nil {
		o.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(pushErr))
	}
}

func (o *RedisOutbox) push(ctx context.Context, key string, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := o.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}
