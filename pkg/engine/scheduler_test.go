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
	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/mocks"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/persistence/file"
	"github.com/dukex/mailflow/pkg/queue"
)

// flakyStore fails Create for one recipient.
type flakyStore struct {
	*file.Persistence

	failRecipient string
}

func (s *flakyStore) ScheduledEmailRepository() persistence.ScheduledEmailRepository {
	return &flakyEmails{ScheduledEmailRepository: s.Persistence.ScheduledEmailRepository(), failRecipient: s.failRecipient}
}

type flakyEmails struct {
	persistence.ScheduledEmailRepository

	failRecipient string
}

func (r *flakyEmails) Create(ctx context.Context, email *models.ScheduledEmail) error {
	if email.Recipient == r.failRecipient {
		return errors.New("disk full")
	}

	return r.ScheduledEmailRepository.Create(ctx, email)
}

func threeRecipientPlan(flowID string) *engine.Plan {
	plan := &engine.Plan{ResolvedAt: fixedNow}

	for _, recipient := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		plan.Entries = append(plan.Entries, engine.PlanEntry{
			SourceNodeID: "S1",
			EmailNodeID:  "E1",
			Recipient:    recipient,
			Subject:      "Hi " + flowID,
			Body:         "<p>Hi</p>",
			SendAt:       fixedNow.Add(time.Hour),
		})
	}

	return plan
}

func saveFlow(t *testing.T, store persistence.Persistence) *models.Flow {
	t.Helper()

	flow := &models.Flow{UserID: "user-1", Name: "Flow"}
	require.NoError(t, store.FlowRepository().Save(context.Background(), flow))

	return flow
}

func TestScheduler_EnqueueFailureSkipsOnlyThatPair(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	flow := saveFlow(t, store)

	q := &mocks.MockJobQueue{}
	q.On("Schedule", mock.Anything, mock.Anything, mock.MatchedBy(func(job models.EmailJob) bool {
		return job.Recipient == "b@x.com"
	})).Return("", errors.New("queue full"))
	q.On("Schedule", mock.Anything, mock.Anything, mock.Anything).Return("job-ok", nil).Once()
	q.On("Schedule", mock.Anything, mock.Anything, mock.Anything).Return("job-ok-2", nil).Once()

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	scheduler := engine.NewScheduler(q, store, status, otelhelper.NoopTracer(), testLogger())

	report, err := scheduler.Schedule(ctx, flow.ID, "owner@x.com", threeRecipientPlan(flow.ID))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Planned)
	assert.Equal(t, 2, report.Scheduled)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, engine.AnomalyEnqueue, report.Anomalies[0].Kind)
	assert.Equal(t, "b@x.com", report.Anomalies[0].Recipient)

	count, err := store.ScheduledEmailRepository().CountByFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := store.FlowRepository().GetByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusRunning, updated.Status)
}

func TestScheduler_PersistFailureCancelsJob(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Persistence: file.NewPersistence(t.TempDir()), failRecipient: "b@x.com"}
	flow := saveFlow(t, store)

	q := queue.NewMemoryQueue(testLogger(), time.Second)
	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	scheduler := engine.NewScheduler(q, store, status, otelhelper.NoopTracer(), testLogger())

	report, err := scheduler.Schedule(ctx, flow.ID, "owner@x.com", threeRecipientPlan(flow.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scheduled)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, engine.AnomalyPersist, report.Anomalies[0].Kind)
	assert.Equal(t, 2, q.Len(), "the untracked job was canceled")
}

func TestScheduler_CompensationFailureIsDistinct(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Persistence: file.NewPersistence(t.TempDir()), failRecipient: "a@x.com"}
	flow := saveFlow(t, store)

	q := &mocks.MockJobQueue{}
	q.On("Schedule", mock.Anything, mock.Anything, mock.Anything).Return("job-1", nil)
	q.On("Cancel", mock.Anything, "job-1").Return(0, errors.New("queue unreachable"))

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	scheduler := engine.NewScheduler(q, store, status, otelhelper.NoopTracer(), testLogger())

	plan := threeRecipientPlan(flow.ID)
	plan.Entries = plan.Entries[:1]

	report, err := scheduler.Schedule(ctx, flow.ID, "owner@x.com", plan)
	require.NoError(t, err)
	assert.Zero(t, report.Scheduled)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, engine.AnomalyCompensation, report.Anomalies[0].Kind)

	var compensation *engine.CompensationError
	require.ErrorAs(t, report.Anomalies[0], &compensation)
	assert.Equal(t, "job-1", compensation.JobID)
	assert.ErrorContains(t, compensation.PersistErr, "disk full")
	assert.ErrorContains(t, compensation.CancelErr, "queue unreachable")

	updated, err := store.FlowRepository().GetByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusPending, updated.Status, "nothing scheduled, status untouched")

	q.AssertExpectations(t)
}

func TestScheduler_JobPayload(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	flow := saveFlow(t, store)

	q := &mocks.MockJobQueue{}
	q.On("Schedule", mock.Anything, fixedNow.Add(time.Hour), models.EmailJob{
		FlowID:    flow.ID,
		NodeID:    "E1",
		Sender:    "owner@x.com",
		Recipient: "a@x.com",
		Subject:   "Hi " + flow.ID,
		Body:      "<p>Hi</p>",
	}).Return("job-a", nil)

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	scheduler := engine.NewScheduler(q, store, status, otelhelper.NoopTracer(), testLogger())

	plan := threeRecipientPlan(flow.ID)
	plan.Entries = plan.Entries[:1]

	_, err := scheduler.Schedule(ctx, flow.ID, "owner@x.com", plan)
	require.NoError(t, err)

	row, err := store.ScheduledEmailRepository().GetByJobID(ctx, "job-a")
	require.NoError(t, err)
	assert.Equal(t, flow.ID, row.FlowID)
	assert.Equal(t, "E1", row.NodeID)
	assert.True(t, row.SendAt.Equal(fixedNow.Add(time.Hour)))

	q.AssertExpectations(t)
}

// firingStore runs afterCreate once a tracking row is stored, standing in for
// a queue that fires the job before the scheduling pass ends.
type firingStore struct {
	*file.Persistence

	afterCreate func(ctx context.Context)
}

func (s *firingStore) ScheduledEmailRepository() persistence.ScheduledEmailRepository {
	return &firingEmails{ScheduledEmailRepository: s.Persistence.ScheduledEmailRepository(), store: s}
}

type firingEmails struct {
	persistence.ScheduledEmailRepository

	store *firingStore
}

func (r *firingEmails) Create(ctx context.Context, email *models.ScheduledEmail) error {
	if err := r.ScheduledEmailRepository.Create(ctx, email); err != nil {
		return err
	}

	if r.store.afterCreate != nil {
		r.store.afterCreate(ctx)
	}

	return nil
}

func TestScheduler_JobFiredDuringPassCompletesFlow(t *testing.T) {
	ctx := context.Background()
	store := &firingStore{Persistence: file.NewPersistence(t.TempDir())}
	q := queue.NewMemoryQueue(testLogger(), time.Second)

	config := engine.DefaultConfig()
	config.Now = clock

	eng := engine.New(store, q, nil, nil, testLogger(), config)
	transport := mail.NewLogTransport(testLogger())
	delivery := eng.NewDeliveryHandler(transport)

	contacts := &models.LeadSource{UserID: "user-1", Name: "Leads", Contacts: []models.Contact{{Name: "A", Email: "a@x.com"}}}
	require.NoError(t, store.LeadSourceRepository().Save(ctx, contacts))

	template := &models.EmailTemplate{UserID: "user-1", Name: "Now", Subject: "Now", Body: "<p>Now</p>"}
	require.NoError(t, store.EmailTemplateRepository().Save(ctx, template))

	graph := models.Graph{
		Nodes: []*models.Node{sourceNode("S1", contacts.ID), emailNode("E1", template.ID)},
		Edges: []*models.Edge{edge("S1", "E1")},
	}

	flow := &models.Flow{UserID: "user-1", Name: "Flow", Nodes: graph.Nodes, Edges: graph.Edges}
	require.NoError(t, store.FlowRepository().Save(ctx, flow))

	store.afterCreate = func(ctx context.Context) {
		q.FireDue(ctx, fixedNow, delivery.Handle)
	}

	plan, err := eng.ValidateAndPlan(ctx, graph)
	require.NoError(t, err)

	report, err := eng.Schedule(ctx, flow, "owner@x.com", plan)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scheduled)
	assert.Zero(t, q.Len())
	assert.Len(t, transport.Sent(), 1)

	updated, err := store.FlowRepository().GetByID(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusCompleted, updated.Status)
}

func TestScheduler_MarksRunningBeforeEnqueueing(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	flow := saveFlow(t, store)

	var seen models.FlowStatus

	q := &mocks.MockJobQueue{}
	q.On("Schedule", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		current, err := store.FlowRepository().GetByID(ctx, flow.ID)
		require.NoError(t, err)

		seen = current.Status
	}).Return("job-1", nil).Once()

	status := engine.NewStatusProjector(store, nil, testLogger(), clock)
	scheduler := engine.NewScheduler(q, store, status, otelhelper.NoopTracer(), testLogger())

	plan := threeRecipientPlan(flow.ID)
	plan.Entries = plan.Entries[:1]

	_, err := scheduler.Schedule(ctx, flow.ID, "owner@x.com", plan)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusRunning, seen)

	q.AssertExpectations(t)
}
