package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/events"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/queue"
)

// Worker fires due jobs and delivers them. With an event bus the queue handler
// only publishes email.due and a bus subscriber delivers.
type Worker struct {
	id                string
	queue             queue.JobQueue
	delivery          *engine.DeliveryHandler
	reconciler        *engine.Reconciler
	eventBus          eventbus.EventBus
	reconcileSchedule string
	logger            *slog.Logger
}

func NewWorker(
	id string,
	jobQueue queue.JobQueue,
	delivery *engine.DeliveryHandler,
	reconciler *engine.Reconciler,
	eventBus eventbus.EventBus,
	reconcileSchedule string,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:                id,
		queue:             jobQueue,
		delivery:          delivery,
		reconciler:        reconciler,
		eventBus:          eventBus,
		reconcileSchedule: reconcileSchedule,
		logger:            logger,
	}
}

// Start runs until ctx is canceled, then stops the poller and the reconciler.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.start(ctx); err != nil {
		w.stop()

		return err
	}

	w.logger.InfoContext(ctx, "Worker started", "worker_id", w.id, "bus", w.eventBus != nil)

	<-ctx.Done()

	w.logger.Info("Shutting down worker")
	w.stop()

	return nil
}

func (w *Worker) start(ctx context.Context) error {
	handler := w.delivery.Handle

	if w.eventBus != nil {
		if err := w.eventBus.Handle(events.EmailDueEvent, w.handleEmailDue); err != nil {
			return fmt.Errorf("failed to register email.due handler: %w", err)
		}

		if err := w.eventBus.Subscribe(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to events: %w", err)
		}

		handler = w.publishEmailDue
	}

	if err := w.queue.Start(ctx, handler); err != nil {
		return fmt.Errorf("failed to start queue poller: %w", err)
	}

	if w.reconcileSchedule != "" {
		if err := w.reconciler.Start(ctx, w.reconcileSchedule); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) stop() {
	if err := w.queue.Stop(context.Background()); err != nil {
		w.logger.Error("Failed to stop queue poller", "error", err)
	}

	w.reconciler.Stop()
}

func (w *Worker) publishEmailDue(ctx context.Context, jobID string, job models.EmailJob) error {
	event := events.NewEmailDue(w.eventBus.GenerateID(), jobID, job)

	if err := w.eventBus.Publish(ctx, job.FlowID, event); err != nil {
		return fmt.Errorf("failed to publish email.due for job %s: %w", jobID, err)
	}

	return nil
}

// handleEmailDue never returns an error: a nack would redeliver and there is no retry policy.
func (w *Worker) handleEmailDue(ctx context.Context, event any) error {
	due, ok := event.(*events.EmailDue)
	if !ok {
		w.logger.ErrorContext(ctx, "Unexpected event payload", "type", fmt.Sprintf("%T", event))

		return nil
	}

	if err := w.delivery.Handle(ctx, due.JobID, due.Job); err != nil {
		w.logger.ErrorContext(ctx, "Delivery failed", "job_id", due.JobID, "flow_id", due.FlowID, "error", err)
	}

	return nil
}
