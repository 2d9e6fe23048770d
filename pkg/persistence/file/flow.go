package file

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/google/uuid"
)

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	flows *collection[models.Flow]
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{flows: newCollection[models.Flow](root, "flows")}
}

func (r *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	flow, err := r.flows.get(id)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, persistence.NewFlowError("GetByID", id, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow %s: %w", id, err)
	}

	return flow, nil
}

func (r *FlowRepository) ListByOwner(_ context.Context, userID string) ([]*models.Flow, error) {
	flows, err := r.flows.list(func(f *models.Flow) bool { return f.UserID == userID })
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	sortFlows(flows)

	return flows, nil
}

func (r *FlowRepository) ListByStatus(_ context.Context, status models.FlowStatus) ([]*models.Flow, error) {
	flows, err := r.flows.list(func(f *models.Flow) bool { return f.Status == status })
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	sortFlows(flows)

	return flows, nil
}

func (r *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	if flow.Status == "" {
		flow.Status = models.FlowStatusPending
	}

	flow.UpdatedAt = now

	return r.flows.put(flow.ID, flow)
}

func (r *FlowRepository) UpdateStatus(_ context.Context, id string, status models.FlowStatus) error {
	err := r.flows.update(id, func(f *models.Flow) {
		f.Status = status
		f.UpdatedAt = time.Now().UTC()
	})
	if errors.Is(err, errRecordNotFound) {
		return persistence.NewFlowError("UpdateStatus", id, persistence.ErrFlowNotFound)
	}

	return err
}

func (r *FlowRepository) Delete(_ context.Context, id string) error {
	return r.flows.remove(id)
}

func sortFlows(flows []*models.Flow) {
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})
}
