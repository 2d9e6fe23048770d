package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence"
)

// DeliveryHandler runs when the queue fires a job. Send failures are logged
// and not retried; the job counts as done either way.
type DeliveryHandler struct {
	transport mail.Transport
	emails    persistence.ScheduledEmailRepository
	status    *StatusProjector
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewDeliveryHandler(transport mail.Transport, p persistence.Persistence, status *StatusProjector, tracer trace.Tracer, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		transport: transport,
		emails:    p.ScheduledEmailRepository(),
		status:    status,
		tracer:    tracer,
		logger:    logger.With("module", "delivery"),
	}
}

// Handle has the queue.Handler signature.
func (d *DeliveryHandler) Handle(ctx context.Context, jobID string, job models.EmailJob) error {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "engine.deliver",
		attribute.String(otelhelper.FlowIDKey, job.FlowID),
		attribute.String(otelhelper.JobIDKey, jobID),
		attribute.String(otelhelper.NodeIDKey, job.NodeID),
		attribute.String(otelhelper.RecipientKey, job.Recipient),
	)
	defer span.End()

	err := d.transport.Send(ctx, mail.Message{
		From:     job.Sender,
		To:       job.Recipient,
		Subject:  job.Subject,
		HTMLBody: job.Body,
	})
	if err != nil {
		otelhelper.SetError(span, err)
		d.logger.ErrorContext(ctx, "Failed to send email",
			"flow_id", job.FlowID, "job_id", jobID, "recipient", job.Recipient, "error", err)
	} else {
		d.logger.InfoContext(ctx, "Email sent", "flow_id", job.FlowID, "job_id", jobID, "recipient", job.Recipient)
	}

	if err := d.complete(ctx, jobID); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	status, err := d.status.Refresh(ctx, job.FlowID)
	if persistence.IsFlowNotFound(err) {
		return nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to refresh status of flow %s: %w", job.FlowID, err)
	}

	span.SetAttributes(attribute.String(otelhelper.FlowStatusKey, string(status)))

	return nil
}

func (d *DeliveryHandler) complete(ctx context.Context, jobID string) error {
	row, err := d.emails.GetByJobID(ctx, jobID)
	if persistence.IsNotFound(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}

	if err := d.emails.Delete(ctx, row.ID); err != nil && !persistence.IsNotFound(err) {
		return fmt.Errorf("failed to remove fired job %s: %w", jobID, err)
	}

	return nil
}
