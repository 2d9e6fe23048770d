package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// Validator checks a flow graph against the catalog before anything is saved
// or scheduled. It never writes.
type Validator struct {
	catalog  Catalog
	validate *validator.Validate
	// strict requires at least one lead source node and one cold email node.
	strict bool
}

func NewValidator(catalog Catalog, strict bool) *Validator {
	return &Validator{
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		strict:   strict,
	}
}

// Validate returns a *ValidationError for the first rule the graph breaks, or
// a plain error when the catalog cannot be read.
func (v *Validator) Validate(ctx context.Context, graph models.Graph) error {
	sources := graph.NodesOfKind(models.NodeKindLeadSource)
	emails := graph.NodesOfKind(models.NodeKindColdEmail)

	if v.strict {
		if len(sources) == 0 {
			return newValidationError(MsgLeadSourceRequired, "")
		}

		if len(emails) == 0 {
			return newValidationError(MsgColdEmailRequired, "")
		}
	}

	if err := v.validateStructure(graph); err != nil {
		return err
	}

	for _, node := range graph.NodesOfKind(models.NodeKindWait) {
		if node.Data.Delay.TooLong() {
			return newValidationError(MsgWaitDelayTooLong, node.ID)
		}
	}

	for _, node := range sources {
		if err := v.validateLeadSource(ctx, node); err != nil {
			return err
		}
	}

	for _, node := range emails {
		if err := v.validateColdEmail(ctx, node); err != nil {
			return err
		}
	}

	return nil
}

func (v *Validator) validateStructure(graph models.Graph) error {
	seen := make(map[string]bool, len(graph.Nodes))

	for _, node := range graph.Nodes {
		if node == nil {
			continue
		}

		if seen[node.ID] {
			return newValidationError(MsgDuplicateNodeID, node.ID)
		}

		seen[node.ID] = true
	}

	for _, edge := range graph.Edges {
		if edge == nil {
			continue
		}

		if !seen[edge.Source] || !seen[edge.Target] {
			return newValidationError(MsgDanglingEdge, edge.Source)
		}
	}

	return nil
}

func (v *Validator) validateLeadSource(ctx context.Context, node *models.Node) error {
	id := node.Data.LeadSourceRef()
	if id == "" {
		return newValidationError(MsgLeadSourceNotSelected, node.ID)
	}

	source, err := v.catalog.LeadSource(ctx, id)
	if persistence.IsLeadSourceNotFound(err) {
		return newValidationError(MsgLeadSourceNoContacts, node.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to load lead source %s: %w", id, err)
	}

	if len(source.Contacts) == 0 {
		return newValidationError(MsgLeadSourceNoContacts, node.ID)
	}

	for _, contact := range source.Contacts {
		if !v.validEmail(contact.Address()) {
			return newValidationError(MsgLeadSourceInvalidEmail, node.ID)
		}
	}

	return nil
}

func (v *Validator) validateColdEmail(ctx context.Context, node *models.Node) error {
	id := node.Data.TemplateRef()
	if id == "" {
		return newValidationError(MsgColdEmailNotSelected, node.ID)
	}

	template, err := v.catalog.EmailTemplate(ctx, id)
	if persistence.IsEmailTemplateNotFound(err) {
		return newValidationError(MsgColdEmailInvalidContent, node.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to load email template %s: %w", id, err)
	}

	if strings.TrimSpace(template.Subject) == "" || strings.TrimSpace(template.Body) == "" {
		return newValidationError(MsgColdEmailInvalidContent, node.ID)
	}

	return nil
}

func (v *Validator) validEmail(email string) bool {
	if email == "" {
		return false
	}

	return v.validate.Var(email, "email") == nil
}
