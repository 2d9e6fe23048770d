package services

import (
	"context"
	"fmt"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// ensureUnused fails with ErrResourceInUse when a RUNNING flow of the owner has
// a node referencing the id through ref.
func ensureUnused(ctx context.Context, p persistence.Persistence, op, ownerID, id string, ref func(*models.Node) string) error {
	flows, err := p.FlowRepository().ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list flows: %w", err)
	}

	for _, flow := range flows {
		if flow.Status != models.FlowStatusRunning {
			continue
		}

		for _, node := range flow.Nodes {
			if node != nil && ref(node) == id {
				return &ServiceError{
					Op:      op,
					Code:    "resource_in_use",
					Message: fmt.Sprintf("referenced by running flow %s", flow.ID),
					Err:     ErrResourceInUse,
				}
			}
		}
	}

	return nil
}

func leadSourceRef(node *models.Node) string {
	if node.Type != models.NodeKindLeadSource {
		return ""
	}

	return node.Data.LeadSourceRef()
}

func emailTemplateRef(node *models.Node) string {
	if node.Type != models.NodeKindColdEmail {
		return ""
	}

	return node.Data.TemplateRef()
}
