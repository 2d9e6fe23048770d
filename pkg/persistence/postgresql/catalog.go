package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/google/uuid"
)

// LeadSourceRepository handles lead source rows; contacts are stored as JSONB.
type LeadSourceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLeadSourceRepository creates a new lead source repository.
func NewLeadSourceRepository(db *sql.DB, logger *slog.Logger) *LeadSourceRepository {
	return &LeadSourceRepository{db: db, logger: logger}
}

func (r *LeadSourceRepository) GetByID(ctx context.Context, id string) (*models.LeadSource, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, contacts, created_at, updated_at
		FROM lead_sources WHERE id = $1
	`, id)

	source, err := scanLeadSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewLeadSourceError("GetByID", id, persistence.ErrLeadSourceNotFound)
		}

		return nil, fmt.Errorf("failed to scan lead source: %w", err)
	}

	return source, nil
}

func (r *LeadSourceRepository) ListByOwner(ctx context.Context, userID string) ([]*models.LeadSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, contacts, created_at, updated_at
		FROM lead_sources WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead sources: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	sources := make([]*models.LeadSource, 0)

	for rows.Next() {
		source, err := scanLeadSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead source: %w", err)
		}

		sources = append(sources, source)
	}

	return sources, rows.Err()
}

func (r *LeadSourceRepository) Save(ctx context.Context, source *models.LeadSource) error {
	err := stamp(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to generate lead source ID: %w", err)
	}

	contactsJSON, err := json.Marshal(nonNil(source.Contacts))
	if err != nil {
		return fmt.Errorf("failed to marshal contacts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lead_sources (id, user_id, name, contacts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			contacts = EXCLUDED.contacts,
			updated_at = EXCLUDED.updated_at
	`, source.ID, source.UserID, source.Name, contactsJSON, source.CreatedAt, source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save lead source: %w", err)
	}

	return nil
}

func (r *LeadSourceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM lead_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead source: %w", err)
	}

	return nil
}

func scanLeadSource(row scanner) (*models.LeadSource, error) {
	var (
		source       models.LeadSource
		contactsJSON []byte
	)

	err := row.Scan(&source.ID, &source.UserID, &source.Name, &contactsJSON, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(contactsJSON, &source.Contacts)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal contacts: %w", err)
	}

	return &source, nil
}

// EmailTemplateRepository handles email template rows.
type EmailTemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEmailTemplateRepository creates a new email template repository.
func NewEmailTemplateRepository(db *sql.DB, logger *slog.Logger) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db, logger: logger}
}

func (r *EmailTemplateRepository) GetByID(ctx context.Context, id string) (*models.EmailTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE id = $1
	`, id)

	template, err := scanEmailTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEmailTemplateError("GetByID", id, persistence.ErrEmailTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan email template: %w", err)
	}

	return template, nil
}

func (r *EmailTemplateRepository) ListByOwner(ctx context.Context, userID string) ([]*models.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query email templates: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	templates := make([]*models.EmailTemplate, 0)

	for rows.Next() {
		template, err := scanEmailTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email template: %w", err)
		}

		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func (r *EmailTemplateRepository) Save(ctx context.Context, template *models.EmailTemplate) error {
	err := stamp(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to generate email template ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, user_id, name, subject, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`, template.ID, template.UserID, template.Name, template.Subject, template.Body, template.CreatedAt, template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save email template: %w", err)
	}

	return nil
}

func (r *EmailTemplateRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete email template: %w", err)
	}

	return nil
}

func scanEmailTemplate(row scanner) (*models.EmailTemplate, error) {
	var template models.EmailTemplate

	err := row.Scan(
		&template.ID,
		&template.UserID,
		&template.Name,
		&template.Subject,
		&template.Body,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &template, nil
}

// stamp fills a missing id and the record timestamps.
func stamp(id *string, createdAt, updatedAt *time.Time) error {
	if *id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return err
		}

		*id = generated.String()
	}

	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now

	return nil
}
