package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/channels/gochannel"
	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/events"
	"github.com/dukex/mailflow/pkg/models"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_DeliversEmailDue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newBus(t)
	received := make(chan *events.EmailDue, 1)

	require.NoError(t, bus.Handle(events.EmailDueEvent, func(_ context.Context, event any) error {
		received <- event.(*events.EmailDue)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	job := models.EmailJob{FlowID: "flow-1", Recipient: "a@x.com", Subject: "Hi"}
	require.NoError(t, bus.Publish(ctx, "flow-1", events.NewEmailDue(bus.GenerateID(), "job-1", job)))

	select {
	case event := <-received:
		assert.Equal(t, "job-1", event.JobID)
		assert.Equal(t, job, event.Job)
	case <-time.After(2 * time.Second):
		t.Fatal("email.due event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newBus(t)
	received := make(chan any, 2)

	require.NoError(t, bus.Handle(events.EmailDueEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	status := events.NewFlowStatusChanged(bus.GenerateID(), "flow-1", models.FlowStatusRunning, models.FlowStatusCompleted)
	require.NoError(t, bus.Publish(ctx, "flow-1", status))
	require.NoError(t, bus.Publish(ctx, "flow-1", events.NewEmailDue(bus.GenerateID(), "job-2", models.EmailJob{})))

	select {
	case event := <-received:
		due, ok := event.(*events.EmailDue)
		require.True(t, ok, "only email.due reaches the handler")
		assert.Equal(t, "job-2", due.JobID)
	case <-time.After(2 * time.Second):
		t.Fatal("email.due event was not delivered")
	}
}
