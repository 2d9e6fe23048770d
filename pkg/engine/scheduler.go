package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/queue"
)

// Scheduler enqueues the entries of a plan and records each job it creates.
type Scheduler struct {
	queue  queue.JobQueue
	emails persistence.ScheduledEmailRepository
	status *StatusProjector
	tracer trace.Tracer
	logger *slog.Logger
}

func NewScheduler(q queue.JobQueue, p persistence.Persistence, status *StatusProjector, tracer trace.Tracer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queue:  q,
		emails: p.ScheduledEmailRepository(),
		status: status,
		tracer: tracer,
		logger: logger.With("module", "scheduler"),
	}
}

// Schedule enqueues every plan entry for flowID, sent from sender. A failed
// entry is skipped and reported; it never aborts the rest of the plan. The flow
// is RUNNING while entries are enqueued and goes back to its previous status
// if none of them was scheduled.
func (s *Scheduler) Schedule(ctx context.Context, flowID, sender string, plan *Plan) (*ScheduleReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "engine.schedule",
		attribute.String(otelhelper.FlowIDKey, flowID),
		attribute.Int(otelhelper.PlanSizeKey, plan.Len()),
	)
	defer span.End()

	report := &ScheduleReport{FlowID: flowID, Planned: plan.Len()}

	if plan != nil {
		report.Anomalies = append(report.Anomalies, plan.Anomalies...)
	}

	if plan.Len() == 0 {
		s.logger.InfoContext(ctx, "Flow has nothing to schedule", "flow_id", flowID)

		return report, nil
	}

	previous, err := s.status.MarkRunning(ctx, flowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to update flow status: %w", err)
	}

	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			if report.Scheduled == 0 {
				s.revert(ctx, flowID, previous)
			}

			return report, err
		}

		if anomaly := s.scheduleEntry(ctx, flowID, sender, entry); anomaly != nil {
			report.Skipped++
			report.Anomalies = append(report.Anomalies, anomaly)

			continue
		}

		report.Scheduled++
	}

	span.SetAttributes(attribute.Int("mailflow.scheduled", report.Scheduled), attribute.Int("mailflow.skipped", report.Skipped))

	s.logger.InfoContext(ctx, "Flow scheduled",
		"flow_id", flowID,
		"planned", report.Planned,
		"scheduled", report.Scheduled,
		"skipped", report.Skipped)

	if report.Scheduled == 0 {
		s.revert(ctx, flowID, previous)

		return report, nil
	}

	if _, err := s.status.Refresh(ctx, flowID); err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to update flow status: %w", err)
	}

	return report, nil
}

func (s *Scheduler) revert(ctx context.Context, flowID string, previous models.FlowStatus) {
	if err := s.status.Revert(context.WithoutCancel(ctx), flowID, previous); err != nil {
		s.logger.ErrorContext(ctx, "Failed to restore flow status", "flow_id", flowID, "status", previous, "error", err)
	}
}

// scheduleEntry enqueues the job, then stores its row. If the row cannot be
// stored the job is canceled again so it never fires untracked.
func (s *Scheduler) scheduleEntry(ctx context.Context, flowID, sender string, entry PlanEntry) *SchedulingAnomaly {
	job := models.EmailJob{
		FlowID:    flowID,
		NodeID:    entry.EmailNodeID,
		Sender:    sender,
		Recipient: entry.Recipient,
		Subject:   entry.Subject,
		Body:      entry.Body,
	}

	anomaly := &SchedulingAnomaly{
		SourceNodeID: entry.SourceNodeID,
		EmailNodeID:  entry.EmailNodeID,
		Recipient:    entry.Recipient,
	}

	jobID, err := s.queue.Schedule(ctx, entry.SendAt, job)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue email",
			"flow_id", flowID, "node_id", entry.EmailNodeID, "recipient", entry.Recipient, "error", err)

		anomaly.Kind = AnomalyEnqueue
		anomaly.Err = err

		return anomaly
	}

	err = s.emails.Create(ctx, &models.ScheduledEmail{
		FlowID:    flowID,
		JobID:     jobID,
		NodeID:    entry.EmailNodeID,
		Recipient: entry.Recipient,
		SendAt:    entry.SendAt,
	})
	if err == nil {
		return nil
	}

	s.logger.ErrorContext(ctx, "Failed to record scheduled email, canceling job",
		"flow_id", flowID, "job_id", jobID, "recipient", entry.Recipient, "error", err)

	if _, cancelErr := s.queue.Cancel(ctx, jobID); cancelErr != nil {
		compensation := &CompensationError{JobID: jobID, PersistErr: err, CancelErr: cancelErr}

		s.logger.ErrorContext(ctx, "Compensation failed, job is untracked",
			"flow_id", flowID, "job_id", jobID, "error", compensation)

		anomaly.Kind = AnomalyCompensation
		anomaly.Err = compensation

		return anomaly
	}

	anomaly.Kind = AnomalyPersist
	anomaly.Err = err

	return anomaly
}
