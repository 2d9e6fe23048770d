package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence/file"
	"github.com/dukex/mailflow/pkg/queue"
)

func TestReconciler_PrunesFiredRowsAndReportsDrift(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	flow := saveFlow(t, store)
	require.NoError(t, store.FlowRepository().UpdateStatus(ctx, flow.ID, models.FlowStatusRunning))

	liveID, err := q.Schedule(ctx, fixedNow.Add(time.Hour), models.EmailJob{FlowID: flow.ID})
	require.NoError(t, err)

	emails := store.ScheduledEmailRepository()
	require.NoError(t, emails.Create(ctx, &models.ScheduledEmail{FlowID: flow.ID, JobID: liveID, SendAt: fixedNow.Add(time.Hour)}))
	require.NoError(t, emails.Create(ctx, &models.ScheduledEmail{FlowID: flow.ID, JobID: "fired", SendAt: fixedNow.Add(-time.Hour)}))
	require.NoError(t, emails.Create(ctx, &models.ScheduledEmail{FlowID: flow.ID, JobID: "lost", SendAt: fixedNow.Add(2 * time.Hour)}))

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	reconciler := engine.NewReconciler(q, store, status, testLogger(), func() time.Time { return fixedNow })

	report, err := reconciler.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flows)
	assert.Equal(t, 1, report.Pruned)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, "lost", report.Drift[0].JobID)

	count, err := emails.CountByFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReconciler_CompletesFlowWhoseRowOutlivedItsJob(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	flow := saveFlow(t, store)
	require.NoError(t, store.FlowRepository().UpdateStatus(ctx, flow.ID, models.FlowStatusRunning))

	require.NoError(t, store.ScheduledEmailRepository().Create(ctx, &models.ScheduledEmail{
		FlowID: flow.ID, JobID: "raced", SendAt: fixedNow.Add(-10 * time.Second),
	}))

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	reconciler := engine.NewReconciler(q, store, status, testLogger(), func() time.Time { return fixedNow })

	report, err := reconciler.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Pruned, "inside the grace period")

	reconciler.WithGrace(0)

	report, err = reconciler.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pruned)

	updated, err := store.FlowRepository().GetByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusCompleted, updated.Status)
}

func TestReconciler_StartRejectsBadSchedule(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(testLogger(), time.Second)
	reconciler := engine.NewReconciler(q, store, engine.NewStatusProjector(store, nil, testLogger(), clock), testLogger(), nil)

	require.Error(t, reconciler.Start(context.Background(), "not a cron"))

	require.NoError(t, reconciler.Start(context.Background(), "@every 1h"))
	reconciler.Stop()
	reconciler.Stop()
}
