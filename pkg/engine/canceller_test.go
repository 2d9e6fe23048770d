package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/mocks"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence/file"
	"github.com/dukex/mailflow/pkg/queue"
)

func seedRows(t *testing.T, store *file.Persistence, flowID string, jobIDs ...string) {
	t.Helper()

	for _, jobID := range jobIDs {
		require.NoError(t, store.ScheduledEmailRepository().Create(context.Background(), &models.ScheduledEmail{
			FlowID: flowID,
			JobID:  jobID,
			SendAt: fixedNow.Add(time.Hour),
		}))
	}
}

func TestCanceller_StaleJobsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(testLogger(), time.Second)

	liveID, err := q.Schedule(ctx, fixedNow.Add(time.Hour), models.EmailJob{FlowID: "flow-1"})
	require.NoError(t, err)

	seedRows(t, store, "flow-1", liveID, "already-fired")

	canceller := engine.NewCanceller(q, store, false, otelhelper.NoopTracer(), testLogger())

	report, err := canceller.CancelAll(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Canceled)
	assert.Equal(t, 1, report.Stale)

	count, err := store.ScheduledEmailRepository().CountByFlow(ctx, "flow-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	report, err = canceller.CancelAll(ctx, "flow-1")
	require.NoError(t, err)
	assert.Zero(t, report.Canceled, "second pass has nothing left")
}

func TestCanceller_StrictReportsMissingJobs(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(testLogger(), time.Second)

	liveID, err := q.Schedule(ctx, fixedNow.Add(time.Hour), models.EmailJob{FlowID: "flow-1"})
	require.NoError(t, err)

	seedRows(t, store, "flow-1", "gone-1", liveID)

	canceller := engine.NewCanceller(q, store, true, otelhelper.NoopTracer(), testLogger())

	report, err := canceller.CancelAll(ctx, "flow-1")
	require.Error(t, err)
	assert.True(t, engine.IsCancellationError(err))
	assert.ErrorIs(t, err, engine.ErrJobNotFound)

	// The pass went on past the missing job.
	assert.Equal(t, 1, report.Canceled)
	assert.Zero(t, q.Len())
}

func TestCanceller_QueueErrorsAreConsolidated(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	seedRows(t, store, "flow-1", "job-1", "job-2", "job-3")

	q := &mocks.MockJobQueue{}
	q.On("Cancel", mock.Anything, "job-1").Return(0, errors.New("timeout"))
	q.On("Cancel", mock.Anything, "job-2").Return(1, nil)
	q.On("Cancel", mock.Anything, "job-3").Return(0, errors.New("timeout"))

	canceller := engine.NewCanceller(q, store, false, otelhelper.NoopTracer(), testLogger())

	report, err := canceller.CancelAll(ctx, "flow-1")
	require.Error(t, err)

	var cancelErr *engine.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "flow-1", cancelErr.FlowID)
	assert.Len(t, cancelErr.Failures, 2)
	assert.Equal(t, 1, report.Canceled)

	rows, err := store.ScheduledEmailRepository().ListByFlow(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, rows, 2, "rows of failed cancels are kept for a retry")

	q.AssertExpectations(t)
}
