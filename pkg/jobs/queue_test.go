package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueProcessesAllJobs(t *testing.T) {
	seen := make(chan string, 8)
	handler := func(ctx context.Context, job Job) error {
		seen <- job.ID
		return nil
	}
	q := NewQueue("test", handler, QueueConfig{Workers: 2, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "noop"}))
	}

	got := make([]string, 0, 3)
	deadline := time.After(5 * time.Second)
	for len(got) < 3 {
		select {
		case id := <-seen:
			got = append(got, id)
		case <-deadline:
			t.Fatalf("timed out, processed %d of 3 jobs", len(got))
		}
	}
	require.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	handler := func(ctx context.Context, job Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}
	q := NewQueue("retry", handler, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "noop"}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never succeeded")
	}
	require.EqualValues(t, 3, attempts.Load())
}

func TestQueueAbandonsJobAfterRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	handler := func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("permanent")
	}
	q := NewQueue("fail", handler, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "noop"}))
	require.Eventually(t, func() bool { return attempts.Load() == 3 }, 5*time.Second, 5*time.Millisecond)

	// One initial try plus two retries, then the job is dropped.
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 3, attempts.Load())
}

func TestQueueEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{Logger: zap.NewNop()})
	require.Error(t, q.Enqueue(Job{ID: "j1"}))
}

func TestQueueStopWaitsForInFlightJob(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})
	handler := func(ctx context.Context, job Job) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return nil
	}
	q := NewQueue("drain", handler, QueueConfig{Workers: 1, Logger: zap.NewNop()})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "noop"}))
	<-started
	q.Stop()

	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the in-flight job completed")
	}
}
