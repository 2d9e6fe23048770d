package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/events"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// Project derives a flow status from its current status and the number of
// tracking rows still outstanding.
func Project(current models.FlowStatus, outstanding int) models.FlowStatus {
	switch {
	case outstanding > 0:
		return models.FlowStatusRunning
	case current == models.FlowStatusRunning:
		return models.FlowStatusCompleted
	default:
		return current
	}
}

// FiringLag is how long after its send time a row still counts as
// outstanding. Jobs sharing a send time fire one after another; past the lag a
// row is an orphan whose job is gone.
const FiringLag = time.Minute

// StatusProjector keeps Flow.Status in step with the flow's outstanding
// scheduled emails. Writes for one flow are serialized.
type StatusProjector struct {
	flows     persistence.FlowRepository
	emails    persistence.ScheduledEmailRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	locks sync.Map
}

// NewStatusProjector creates a projector. publisher and now may be nil.
func NewStatusProjector(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger, now func() time.Time) *StatusProjector {
	if now == nil {
		now = time.Now
	}

	return &StatusProjector{
		flows:     p.FlowRepository(),
		emails:    p.ScheduledEmailRepository(),
		publisher: publisher,
		logger:    logger.With("module", "status_projector"),
		now:       now,
	}
}

func (p *StatusProjector) lock(flowID string) func() {
	mu, _ := p.locks.LoadOrStore(flowID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()

	return mu.(*sync.Mutex).Unlock
}

// Refresh recomputes and stores the status of a flow, returning the result.
func (p *StatusProjector) Refresh(ctx context.Context, flowID string) (models.FlowStatus, error) {
	defer p.lock(flowID)()

	flow, err := p.flows.GetByID(ctx, flowID)
	if err != nil {
		return "", err
	}

	outstanding, err := p.emails.CountPending(ctx, flowID, p.now().Add(-FiringLag))
	if err != nil {
		return flow.Status, err
	}

	next := Project(flow.Status, outstanding)

	return next, p.transition(ctx, flow, next)
}

// MarkRunning moves a flow to RUNNING before its jobs are enqueued and returns
// the status it had, so deliveries racing the scheduling pass see RUNNING.
func (p *StatusProjector) MarkRunning(ctx context.Context, flowID string) (models.FlowStatus, error) {
	defer p.lock(flowID)()

	flow, err := p.flows.GetByID(ctx, flowID)
	if err != nil {
		return "", err
	}

	return flow.Status, p.transition(ctx, flow, models.FlowStatusRunning)
}

// Revert restores the status returned by MarkRunning when nothing was
// scheduled. A flow that already left RUNNING is left alone.
func (p *StatusProjector) Revert(ctx context.Context, flowID string, previous models.FlowStatus) error {
	defer p.lock(flowID)()

	flow, err := p.flows.GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	if flow.Status != models.FlowStatusRunning {
		return nil
	}

	return p.transition(ctx, flow, previous)
}

// Reset puts a flow back to PENDING after its jobs were canceled.
func (p *StatusProjector) Reset(ctx context.Context, flowID string) error {
	defer p.lock(flowID)()

	flow, err := p.flows.GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	return p.transition(ctx, flow, models.FlowStatusPending)
}

// Forget drops the lock of a deleted flow.
func (p *StatusProjector) Forget(flowID string) {
	p.locks.Delete(flowID)
}

func (p *StatusProjector) transition(ctx context.Context, flow *models.Flow, next models.FlowStatus) error {
	if flow.Status == next {
		return nil
	}

	if err := p.flows.UpdateStatus(ctx, flow.ID, next); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "Flow status changed", "flow_id", flow.ID, "from", flow.Status, "to", next)

	if p.publisher != nil {
		event := events.NewFlowStatusChanged(uuid.NewString(), flow.ID, flow.Status, next)
		if err := p.publisher.Publish(ctx, flow.ID, event); err != nil {
			p.logger.WarnContext(ctx, "Failed to publish status change", "flow_id", flow.ID, "error", err)
		}
	}

	return nil
}
