// Package redisqueue is the production purchase-job queue backend: a
// reliable-queue built on Redis lists, grounded on the reliable-queue
// pattern from flyingrobots-go-redis-work-queue (BRPOPLPUSH into a
// processing list so a crashed worker's claimed jobs are recoverable) and
// implemented against the teacher's go-redis/v8 client.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"flashsale/internal/domain"
	"flashsale/internal/platform/logger"
	"flashsale/internal/queue"
)

const (
	pendingKey    = "purchase_queue:pending"
	processingKey = "purchase_queue:processing"
	jobDataPrefix = "purchase_queue:job:"
	statsKey      = "purchase_queue:stats"
)

// Queue is a redis-lists implementation of queue.Queue.
type Queue struct {
	client      *redis.Client
	concurrency int
	policy      queue.RetryPolicy

	mu     sync.Mutex
	closed bool
}

func New(client *redis.Client, concurrency int, policy queue.RetryPolicy) *Queue {
	return &Queue{client: client, concurrency: concurrency, policy: policy}
}

func jobDataKey(jobID string) string {
	return jobDataPrefix + jobID
}

// AddJob stores job's payload keyed by jobID and pushes the id onto the
// pending list. Storing by jobID first and pushing second makes the push
// idempotent: AddJob can be retried safely since SET overwrites in place and
// LPUSH on an already-enqueued id merely duplicates a pointer a worker will
// resolve via GetJob and skip if already terminal.
func (q *Queue) AddJob(ctx context.Context, job domain.PurchaseJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.Set(ctx, jobDataKey(job.JobID), data, 0).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	if err := q.client.LPush(ctx, pendingKey, job.JobID).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	q.client.HIncrBy(ctx, statsKey, "queued", 1)
	return nil
}

func (q *Queue) GetJob(ctx context.Context, jobID string) (domain.PurchaseJob, bool, error) {
	val, err := q.client.Get(ctx, jobDataKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PurchaseJob{}, false, nil
	}
	if err != nil {
		return domain.PurchaseJob{}, false, err
	}
	var job domain.PurchaseJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return domain.PurchaseJob{}, false, err
	}
	return job, true, nil
}

func (q *Queue) GetStats(ctx context.Context) (queue.Stats, error) {
	pending, err := q.client.LLen(ctx, pendingKey).Result()
	if err != nil {
		return queue.Stats{}, err
	}
	processing, err := q.client.LLen(ctx, processingKey).Result()
	if err != nil {
		return queue.Stats{}, err
	}
	vals, err := q.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return queue.Stats{}, err
	}
	return queue.Stats{
		Queued:     pending,
		Processing: processing,
		Completed:  parseCounter(vals["completed"]),
		Failed:     parseCounter(vals["failed"]),
	}, nil
}

func parseCounter(s string) int64 {
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}

// Process runs concurrency workers pulling from pendingKey via BRPOPLPUSH,
// which atomically moves a job id into processingKey so it is not lost if
// the worker dies mid-handler; a completed job is removed from processingKey
// only after handler returns (spec.md §5's at-least-once delivery).
func (q *Queue) Process(ctx context.Context, handler queue.Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.runWorker(ctx, handler)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *Queue) runWorker(ctx context.Context, handler queue.Handler) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := q.client.BRPopLPush(ctx, pendingKey, processingKey, 5*time.Second).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("queue: brpoplpush failed")
			time.Sleep(200 * time.Millisecond)
			continue
		}

		q.handle(ctx, jobID, handler)
	}
}

func (q *Queue) handle(ctx context.Context, jobID string, handler queue.Handler) {
	log := logger.FromContext(ctx)
	defer q.client.LRem(ctx, processingKey, 1, jobID)

	job, ok, err := q.GetJob(ctx, jobID)
	if err != nil || !ok {
		log.Error().Err(err).Str("job_id", jobID).Msg("queue: job data missing")
		return
	}
	if job.Terminal() {
		return
	}

	err = handler(ctx, job)
	if err == nil {
		job.Status = domain.JobStatusCompleted
		if data, marshalErr := json.Marshal(job); marshalErr == nil {
			q.client.Set(ctx, jobDataKey(job.JobID), data, 0)
		}
		q.client.HIncrBy(ctx, statsKey, "completed", 1)
		return
	}

	job.Status = domain.JobStatusFailed
	retryable := isRetryable(err)
	retryCount := job.RetryCount()
	if retryable && !q.policy.Exhausted(retryCount) {
		job.IncrementRetry()
		data, marshalErr := json.Marshal(job)
		if marshalErr == nil {
			q.client.Set(ctx, jobDataKey(job.JobID), data, 0)
		}
		delay := q.policy.NextDelay(retryCount)
		time.AfterFunc(delay, func() {
			q.client.LPush(context.Background(), pendingKey, job.JobID)
		})
		return
	}

	if data, marshalErr := json.Marshal(job); marshalErr == nil {
		q.client.Set(ctx, jobDataKey(job.JobID), data, 0)
	}
	q.client.HIncrBy(ctx, statsKey, "failed", 1)
}

// retryableErr is implemented by apperr.Error; kept as a narrow local
// interface so this package does not need to import apperr directly.
type retryableErr interface {
	Retryable() bool
}

func isRetryable(err error) bool {
	var r retryableErr
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
