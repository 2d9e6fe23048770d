package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu    sync.Mutex
	fired []string
	jobs  []models.EmailJob
}

func (r *recorder) handle(_ context.Context, jobID string, job models.EmailJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fired = append(r.fired, jobID)
	r.jobs = append(r.jobs, job)

	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.fired)
}

func TestMemoryQueue_FireDueRunsOnlyDueJobsInOrder(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	late, err := q.Schedule(ctx, base.Add(2*time.Hour), models.EmailJob{Recipient: "late@x.com"})
	require.NoError(t, err)

	early, err := q.Schedule(ctx, base.Add(time.Hour), models.EmailJob{Recipient: "early@x.com"})
	require.NoError(t, err)

	future, err := q.Schedule(ctx, base.Add(48*time.Hour), models.EmailJob{Recipient: "future@x.com"})
	require.NoError(t, err)

	rec := &recorder{}
	fired := q.FireDue(ctx, base.Add(3*time.Hour), rec.handle)

	assert.Equal(t, 2, fired)
	assert.Equal(t, []string{early, late}, rec.fired)
	assert.Equal(t, "early@x.com", rec.jobs[0].Recipient)

	exists, err := q.Exists(ctx, future)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = q.Exists(ctx, early)
	require.NoError(t, err)
	assert.False(t, exists, "fired jobs leave the queue")
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueue_FireDueIsInclusiveOfNow(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := q.Schedule(ctx, at, models.EmailJob{})
	require.NoError(t, err)

	rec := &recorder{}
	assert.Equal(t, 0, q.FireDue(ctx, at.Add(-time.Millisecond), rec.handle))
	assert.Equal(t, 1, q.FireDue(ctx, at, rec.handle))
}

func TestMemoryQueue_CancelReportsRemovedCount(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(testLogger(), time.Second)

	jobID, err := q.Schedule(ctx, time.Now().Add(time.Hour), models.EmailJob{})
	require.NoError(t, err)

	removed, err := q.Cancel(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = q.Cancel(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "second cancel finds nothing")

	rec := &recorder{}
	assert.Equal(t, 0, q.FireDue(ctx, time.Now().Add(2*time.Hour), rec.handle))
}

func TestMemoryQueue_HandlerErrorDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	now := time.Now()

	for range 3 {
		_, err := q.Schedule(ctx, now.Add(-time.Minute), models.EmailJob{})
		require.NoError(t, err)
	}

	calls := 0
	fired := q.FireDue(ctx, now, func(context.Context, string, models.EmailJob) error {
		calls++

		return errors.New("smtp down")
	})

	assert.Equal(t, 3, fired)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, q.Len(), "failed jobs are not retried")
}

func TestMemoryQueue_NilHandlerKeepsJobs(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(testLogger(), time.Second)

	_, err := q.Schedule(ctx, time.Now().Add(-time.Minute), models.EmailJob{})
	require.NoError(t, err)

	assert.Equal(t, 0, q.FireDue(ctx, time.Now(), nil))
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueue_StartPollsUntilStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewMemoryQueue(testLogger(), 10*time.Millisecond)

	_, err := q.Schedule(ctx, time.Now().Add(-time.Second), models.EmailJob{Recipient: "a@x.com"})
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, q.Start(ctx, rec.handle))
	require.NoError(t, q.Start(ctx, rec.handle), "second start is a no-op")

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, q.Stop(ctx))
	require.NoError(t, q.Stop(ctx))
}
