package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"flashsale/internal/domain"
)

// StatusCache stores PurchaseJob state under two keys per job: one addressed
// by jobId (for polling by job) and one addressed by userId+productId (for
// the admission service's fast duplicate check, spec.md §4.1 step 1).
// Grounded on the teacher's RedisRepository, generalized from its ad-hoc
// reservation keys to a single JSON-encoded job record.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func userProductKey(userID, productID string) string {
	return fmt.Sprintf("active_purchase:%s:%s", userID, productID)
}

// Put writes job under its jobId key and, unless the job has failed, under
// the userId+productId key that admission consults before enqueueing. A
// failed job deletes that key so the user may retry; a completed job keeps it.
func (c *StatusCache) Put(ctx context.Context, job domain.PurchaseJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.JobID), data, c.ttl)
	if job.Terminal() && job.Status != domain.JobStatusCompleted {
		pipe.Del(ctx, userProductKey(job.UserID, job.ProductID))
	} else {
		pipe.Set(ctx, userProductKey(job.UserID, job.ProductID), job.JobID, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetByJobID returns the cached job state, or ok=false if it has expired or
// was never written (the caller should fall back to the database).
func (c *StatusCache) GetByJobID(ctx context.Context, jobID string) (domain.PurchaseJob, bool, error) {
	val, err := c.client.Get(ctx, jobKey(jobID)).Result()
	if err == redis.Nil {
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

// ActiveJobFor returns the jobId of an in-flight or confirmed purchase for
// userID+productID, if any. This is the cache hit path of invariant O1: most
// duplicate purchase attempts are rejected here, before ever reaching
// Postgres.
func (c *StatusCache) ActiveJobFor(ctx context.Context, userID, productID string) (string, bool, error) {
	val, err := c.client.Get(ctx, userProductKey(userID, productID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
