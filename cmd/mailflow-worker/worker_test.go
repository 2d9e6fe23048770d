package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/channels/gochannel"
	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence/file"
	"github.com/dukex/mailflow/pkg/queue"
)

type workerFixture struct {
	store     *file.Persistence
	queue     *queue.MemoryQueue
	engine    *engine.Engine
	transport *mail.LogTransport
	logger    *slog.Logger
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(logger, 10*time.Millisecond)

	return &workerFixture{
		store:     store,
		queue:     q,
		engine:    engine.New(store, q, nil, nil, logger, engine.DefaultConfig()),
		transport: mail.NewLogTransport(logger),
		logger:    logger,
	}
}

// startFlow schedules an immediate email to every address.
func (f *workerFixture) startFlow(t *testing.T, emails ...string) *models.Flow {
	t.Helper()

	ctx := context.Background()

	contacts := make([]models.Contact, 0, len(emails))
	for _, email := range emails {
		contacts = append(contacts, models.Contact{Name: email, Email: email})
	}

	source := &models.LeadSource{UserID: "alice", Name: "Leads", Contacts: contacts}
	require.NoError(t, f.store.LeadSourceRepository().Save(ctx, source))

	template := &models.EmailTemplate{UserID: "alice", Name: "Hi", Subject: "Hi", Body: "<p>Hi</p>"}
	require.NoError(t, f.store.EmailTemplateRepository().Save(ctx, template))

	flow := &models.Flow{
		UserID: "alice",
		Name:   "Flow",
		Nodes: []*models.Node{
			{ID: "S1", Type: models.NodeKindLeadSource, Data: models.NodeData{LeadSourceID: source.ID}},
			{ID: "E1", Type: models.NodeKindColdEmail, Data: models.NodeData{EmailTemplateID: template.ID}},
		},
		Edges:  []*models.Edge{{Source: "S1", Target: "E1"}},
		Status: models.FlowStatusPending,
	}
	require.NoError(t, f.store.FlowRepository().Save(ctx, flow))

	plan, err := f.engine.ValidateAndPlan(ctx, flow.Graph())
	require.NoError(t, err)

	_, err = f.engine.Schedule(ctx, flow, "alice@example.com", plan)
	require.NoError(t, err)

	return flow
}

func (f *workerFixture) run(t *testing.T, bus eventbus.EventBus) {
	t.Helper()

	worker := NewWorker(
		"worker-test",
		f.queue,
		f.engine.NewDeliveryHandler(f.transport),
		f.engine.NewReconciler(f.queue),
		bus,
		"@every 1h",
		f.logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- worker.Start(ctx) }()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	})
}

func (f *workerFixture) assertCompleted(t *testing.T, flowID string, sent int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(f.transport.Sent()) == sent
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		flow, err := f.store.FlowRepository().GetByID(context.Background(), flowID)

		return err == nil && flow.Status == models.FlowStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	for _, msg := range f.transport.Sent() {
		assert.Equal(t, "alice@example.com", msg.From)
	}
}

func TestWorker_DeliversDirectly(t *testing.T) {
	f := newWorkerFixture(t)
	flow := f.startFlow(t, "a@x.com", "b@x.com")

	f.run(t, nil)

	f.assertCompleted(t, flow.ID, 2)
	assert.Zero(t, f.queue.Len())
}

func TestWorker_DeliversThroughEventBus(t *testing.T) {
	f := newWorkerFixture(t)
	flow := f.startFlow(t, "a@x.com")

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	f.run(t, bus)

	f.assertCompleted(t, flow.ID, 1)
}

func TestWorker_InvalidReconcileSchedule(t *testing.T) {
	f := newWorkerFixture(t)

	worker := NewWorker("worker-test", f.queue, f.engine.NewDeliveryHandler(f.transport),
		f.engine.NewReconciler(f.queue), nil, "not a cron spec", f.logger)

	err := worker.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reconcile schedule")
}
