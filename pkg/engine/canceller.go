package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/queue"
)

// Canceller removes every outstanding job of a flow from the queue and the store.
type Canceller struct {
	queue  queue.JobQueue
	emails persistence.ScheduledEmailRepository
	tracer trace.Tracer
	logger *slog.Logger
	// strict reports jobs that had already left the queue as failures.
	strict bool
}

func NewCanceller(q queue.JobQueue, p persistence.Persistence, strict bool, tracer trace.Tracer, logger *slog.Logger) *Canceller {
	return &Canceller{
		queue:  q,
		emails: p.ScheduledEmailRepository(),
		tracer: tracer,
		logger: logger.With("module", "canceller"),
		strict: strict,
	}
}

// CancelAll goes through every row of the flow even when some fail. A row is
// deleted once its job is canceled or known to be gone; rows whose cancel call
// failed are kept so a later pass can retry them. All failures come back in
// one *CancellationError.
func (c *Canceller) CancelAll(ctx context.Context, flowID string) (*CancelReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "engine.cancel_all",
		attribute.String(otelhelper.FlowIDKey, flowID),
	)
	defer span.End()

	report := &CancelReport{FlowID: flowID}

	rows, err := c.emails.ListByFlow(ctx, flowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to list scheduled emails: %w", err)
	}

	failures := make([]error, 0)

	for _, row := range rows {
		removed, err := c.queue.Cancel(ctx, row.JobID)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to cancel job", "flow_id", flowID, "job_id", row.JobID, "error", err)
			failures = append(failures, fmt.Errorf("job %s: %w", row.JobID, err))

			continue
		}

		if removed == 0 {
			report.Stale++

			c.logger.WarnContext(ctx, "Job already gone from queue", "flow_id", flowID, "job_id", row.JobID)

			if c.strict {
				failures = append(failures, fmt.Errorf("job %s: %w", row.JobID, ErrJobNotFound))
			}
		} else {
			report.Canceled++
		}

		if err := c.emails.Delete(ctx, row.ID); err != nil && !persistence.IsNotFound(err) {
			failures = append(failures, fmt.Errorf("row %s: %w", row.ID, err))
		}
	}

	span.SetAttributes(attribute.Int("mailflow.canceled", report.Canceled), attribute.Int("mailflow.stale", report.Stale))

	if len(failures) > 0 {
		cancelErr := &CancellationError{FlowID: flowID, Failures: failures}
		otelhelper.SetError(span, cancelErr)

		return report, cancelErr
	}

	c.logger.InfoContext(ctx, "Flow jobs canceled", "flow_id", flowID, "canceled", report.Canceled, "stale", report.Stale)

	return report, nil
}
