package memqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/domain"
	"flashsale/internal/queue"
)

func TestAddJobAndGetJob(t *testing.T) {
	q := New(8, queue.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})
	ctx := context.Background()

	job := domain.PurchaseJob{JobID: "job-1", UserID: "user-1", ProductID: "product-1", Status: domain.JobStatusQueued}
	require.NoError(t, q.AddJob(ctx, job))

	got, ok, err := q.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.UserID, got.UserID)
}

func TestProcessHandlesOneJob(t *testing.T) {
	q := New(8, queue.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	job := domain.PurchaseJob{JobID: "job-1", UserID: "user-1", ProductID: "product-1", Status: domain.JobStatusQueued}
	require.NoError(t, q.AddJob(ctx, job))

	handled := make(chan domain.PurchaseJob, 1)
	go q.Process(ctx, func(_ context.Context, j domain.PurchaseJob) error {
		handled <- j
		cancel()
		return nil
	})

	select {
	case j := <-handled:
		assert.Equal(t, "job-1", j.JobID)
	case <-time.After(time.Second):
		t.Fatal("job was never handled")
	}

	stats, err := q.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Completed)
}

type retryableErr struct{ msg string }

func (e retryableErr) Error() string   { return e.msg }
func (e retryableErr) Retryable() bool { return true }

func TestProcessRetriesTransientFailureUntilExhausted(t *testing.T) {
	q := New(8, queue.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	job := domain.PurchaseJob{JobID: "job-1", UserID: "user-1", ProductID: "product-1", Status: domain.JobStatusQueued}
	require.NoError(t, q.AddJob(ctx, job))

	var attempts int
	done := make(chan struct{})
	go q.Process(ctx, func(_ context.Context, j domain.PurchaseJob) error {
		attempts++
		if attempts >= 3 {
			close(done)
			return nil
		}
		return retryableErr{msg: "transient"}
	})

	select {
	case <-done:
	case <-time.After(900 * time.Millisecond):
		t.Fatalf("job was not retried enough times, attempts=%d", attempts)
	}
	assert.Equal(t, 3, attempts)
}

func TestProcessMarksJobFailedWhenNotRetryable(t *testing.T) {
	q := New(8, queue.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	job := domain.PurchaseJob{JobID: "job-1", UserID: "user-1", ProductID: "product-1", Status: domain.JobStatusQueued}
	require.NoError(t, q.AddJob(ctx, job))

	go q.Process(ctx, func(_ context.Context, j domain.PurchaseJob) error {
		defer cancel()
		return errors.New("terminal business failure")
	})

	time.Sleep(50 * time.Millisecond)
	cancel()

	stats, err := q.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
}
