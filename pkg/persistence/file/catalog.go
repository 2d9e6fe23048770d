package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/google/uuid"
)

// LeadSourceRepository handles lead source files.
type LeadSourceRepository struct {
	sources *collection[models.LeadSource]
}

// NewLeadSourceRepository creates a new lead source repository.
func NewLeadSourceRepository(root string) *LeadSourceRepository {
	return &LeadSourceRepository{sources: newCollection[models.LeadSource](root, "lead_sources")}
}

func (r *LeadSourceRepository) GetByID(_ context.Context, id string) (*models.LeadSource, error) {
	source, err := r.sources.get(id)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, persistence.NewLeadSourceError("GetByID", id, persistence.ErrLeadSourceNotFound)
		}

		return nil, fmt.Errorf("failed to fetch lead source %s: %w", id, err)
	}

	return source, nil
}

func (r *LeadSourceRepository) ListByOwner(_ context.Context, userID string) ([]*models.LeadSource, error) {
	return r.sources.list(func(s *models.LeadSource) bool { return s.UserID == userID })
}

func (r *LeadSourceRepository) Save(_ context.Context, source *models.LeadSource) error {
	id, err := stamp(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to generate lead source ID: %w", err)
	}

	return r.sources.put(id, source)
}

func (r *LeadSourceRepository) Delete(_ context.Context, id string) error {
	return r.sources.remove(id)
}

// EmailTemplateRepository handles email template files.
type EmailTemplateRepository struct {
	templates *collection[models.EmailTemplate]
}

// NewEmailTemplateRepository creates a new email template repository.
func NewEmailTemplateRepository(root string) *EmailTemplateRepository {
	return &EmailTemplateRepository{templates: newCollection[models.EmailTemplate](root, "email_templates")}
}

func (r *EmailTemplateRepository) GetByID(_ context.Context, id string) (*models.EmailTemplate, error) {
	template, err := r.templates.get(id)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, persistence.NewEmailTemplateError("GetByID", id, persistence.ErrEmailTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to fetch email template %s: %w", id, err)
	}

	return template, nil
}

func (r *EmailTemplateRepository) ListByOwner(_ context.Context, userID string) ([]*models.EmailTemplate, error) {
	return r.templates.list(func(t *models.EmailTemplate) bool { return t.UserID == userID })
}

func (r *EmailTemplateRepository) Save(_ context.Context, template *models.EmailTemplate) error {
	id, err := stamp(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to generate email template ID: %w", err)
	}

	return r.templates.put(id, template)
}

func (r *EmailTemplateRepository) Delete(_ context.Context, id string) error {
	return r.templates.remove(id)
}

// stamp fills a missing id and the record timestamps.
func stamp(id *string, createdAt, updatedAt *time.Time) (string, error) {
	if *id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return "", err
		}

		*id = generated.String()
	}

	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now

	return *id, nil
}
