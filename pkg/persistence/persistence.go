// Package persistence provides the data storage abstraction layer for flows,
// their scheduled emails, and the lead sources and templates they reference.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/mailflow/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	FlowRepository() FlowRepository
	ScheduledEmailRepository() ScheduledEmailRepository
	LeadSourceRepository() LeadSourceRepository
	EmailTemplateRepository() EmailTemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores flows and their graphs.
type FlowRepository interface {
	// GetByID returns ErrFlowNotFound (wrapped) when no flow has the id.
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Flow, error)
	ListByStatus(ctx context.Context, status models.FlowStatus) ([]*models.Flow, error)
	// Save creates the flow, or replaces it when the id already exists.
	// It assigns the id and timestamps when missing.
	Save(ctx context.Context, flow *models.Flow) error
	UpdateStatus(ctx context.Context, id string, status models.FlowStatus) error
	Delete(ctx context.Context, id string) error
}

// ScheduledEmailRepository tracks the queue jobs created for each flow.
type ScheduledEmailRepository interface {
	Create(ctx context.Context, email *models.ScheduledEmail) error
	ListByFlow(ctx context.Context, flowID string) ([]*models.ScheduledEmail, error)
	GetByJobID(ctx context.Context, jobID string) (*models.ScheduledEmail, error)
	// CountByFlow returns the number of outstanding rows of a flow.
	CountByFlow(ctx context.Context, flowID string) (int, error)
	// CountPending returns the number of rows of a flow whose send time is after now.
	CountPending(ctx context.Context, flowID string, now time.Time) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteByFlow(ctx context.Context, flowID string) error
}

// LeadSourceRepository stores contact lists.
type LeadSourceRepository interface {
	GetByID(ctx context.Context, id string) (*models.LeadSource, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.LeadSource, error)
	Save(ctx context.Context, source *models.LeadSource) error
	Delete(ctx context.Context, id string) error
}

// EmailTemplateRepository stores email templates.
type EmailTemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.EmailTemplate, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.EmailTemplate, error)
	Save(ctx context.Context, template *models.EmailTemplate) error
	Delete(ctx context.Context, id string) error
}
