package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/queue"
)

// ReconcileReport summarizes one sweep.
type ReconcileReport struct {
	Flows  int                 `json:"flows"`
	Pruned int                 `json:"pruned"`
	Drift  []*ConsistencyDrift `json:"drift,omitempty"`
}

// Reconciler periodically compares the tracking rows of running flows with
// the queue. Rows whose job is gone after their send time are pruned, which
// lets flows whose last delivery raced its own row insert reach COMPLETED.
// Rows whose job vanished before their send time are reported as drift.
type Reconciler struct {
	flows  persistence.FlowRepository
	emails persistence.ScheduledEmailRepository
	queue  queue.JobQueue
	status *StatusProjector
	logger *slog.Logger
	now    func() time.Time

	// grace keeps fresh rows out of the sweep while their job may still be firing.
	grace time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewReconciler(q queue.JobQueue, p persistence.Persistence, status *StatusProjector, logger *slog.Logger, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}

	return &Reconciler{
		flows:  p.FlowRepository(),
		emails: p.ScheduledEmailRepository(),
		queue:  q,
		status: status,
		logger: logger.With("module", "reconciler"),
		now:    now,
		grace:  time.Minute,
	}
}

// WithGrace sets how long past its send time a row is left alone.
func (r *Reconciler) WithGrace(grace time.Duration) *Reconciler {
	r.grace = grace

	return r
}

// Reconcile runs one sweep over every RUNNING flow.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	flows, err := r.flows.ListByStatus(ctx, models.FlowStatusRunning)
	if err != nil {
		return report, fmt.Errorf("failed to list running flows: %w", err)
	}

	var errs []error

	for _, flow := range flows {
		report.Flows++

		if err := r.reconcileFlow(ctx, flow, report); err != nil {
			errs = append(errs, err)
		}
	}

	if report.Pruned > 0 || len(report.Drift) > 0 {
		r.logger.InfoContext(ctx, "Reconciliation finished",
			"flows", report.Flows, "pruned", report.Pruned, "drift", len(report.Drift))
	}

	return report, errors.Join(errs...)
}

func (r *Reconciler) reconcileFlow(ctx context.Context, flow *models.Flow, report *ReconcileReport) error {
	rows, err := r.emails.ListByFlow(ctx, flow.ID)
	if err != nil {
		return fmt.Errorf("flow %s: %w", flow.ID, err)
	}

	now := r.now()

	for _, row := range rows {
		exists, err := r.queue.Exists(ctx, row.JobID)
		if err != nil {
			return fmt.Errorf("flow %s: job %s: %w", flow.ID, row.JobID, err)
		}

		if exists {
			continue
		}

		if row.IsPending(now) {
			drift := &ConsistencyDrift{FlowID: flow.ID, RowID: row.ID, JobID: row.JobID, SendAt: row.SendAt}
			report.Drift = append(report.Drift, drift)

			r.logger.WarnContext(ctx, "Consistency drift detected", "flow_id", flow.ID, "job_id", row.JobID, "send_at", row.SendAt)

			continue
		}

		if row.SendAt.Add(r.grace).After(now) {
			continue
		}

		if err := r.emails.Delete(ctx, row.ID); err != nil && !persistence.IsNotFound(err) {
			return fmt.Errorf("flow %s: row %s: %w", flow.ID, row.ID, err)
		}

		report.Pruned++
	}

	if _, err := r.status.Refresh(ctx, flow.ID); err != nil && !persistence.IsFlowNotFound(err) {
		return fmt.Errorf("flow %s: %w", flow.ID, err)
	}

	return nil
}

// Start runs Reconcile on the given cron schedule until Stop.
func (r *Reconciler) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(schedule, func() {
		if _, err := r.Reconcile(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	c.Start()
	r.cron = c

	r.logger.InfoContext(ctx, "Reconciler started", "schedule", schedule)

	return nil
}

// Stop halts the cron and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return
	}

	<-r.cron.Stop().Done()
	r.cron = nil
}
