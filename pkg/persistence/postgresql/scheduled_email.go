package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/google/uuid"
)

// ScheduledEmailRepository handles scheduled email rows.
type ScheduledEmailRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewScheduledEmailRepository creates a new scheduled email repository.
func NewScheduledEmailRepository(db *sql.DB, logger *slog.Logger) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{db: db, logger: logger}
}

func (r *ScheduledEmailRepository) Create(ctx context.Context, email *models.ScheduledEmail) error {
	if email.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate scheduled email ID: %w", err)
		}

		email.ID = id.String()
	}

	if email.CreatedAt.IsZero() {
		email.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_emails (id, flow_id, job_id, node_id, recipient, send_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		email.ID,
		email.FlowID,
		email.JobID,
		email.NodeID,
		email.Recipient,
		email.SendAt.UTC(),
		email.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled email: %w", err)
	}

	return nil
}

func (r *ScheduledEmailRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.ScheduledEmail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, flow_id, job_id, node_id, recipient, send_at, created_at
		FROM scheduled_emails
		WHERE flow_id = $1
		ORDER BY send_at ASC
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled emails: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	emails := make([]*models.ScheduledEmail, 0)

	for rows.Next() {
		email, err := scanScheduledEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled email: %w", err)
		}

		emails = append(emails, email)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled emails: %w", err)
	}

	return emails, nil
}

func (r *ScheduledEmailRepository) GetByJobID(ctx context.Context, jobID string) (*models.ScheduledEmail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, flow_id, job_id, node_id, recipient, send_at, created_at
		FROM scheduled_emails
		WHERE job_id = $1
	`, jobID)

	email, err := scanScheduledEmail(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewScheduledEmailError("GetByJobID", jobID, persistence.ErrScheduledEmailNotFound)
		}

		return nil, fmt.Errorf("failed to scan scheduled email: %w", err)
	}

	return email, nil
}

func (r *ScheduledEmailRepository) CountByFlow(ctx context.Context, flowID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_emails WHERE flow_id = $1`, flowID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scheduled emails: %w", err)
	}

	return count, nil
}

func (r *ScheduledEmailRepository) CountPending(ctx context.Context, flowID string, now time.Time) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_emails WHERE flow_id = $1 AND send_at > $2`, flowID, now.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending scheduled emails: %w", err)
	}

	return count, nil
}

func (r *ScheduledEmailRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled email: %w", err)
	}

	return nil
}

func (r *ScheduledEmailRepository) DeleteByFlow(ctx context.Context, flowID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_emails WHERE flow_id = $1`, flowID)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled emails: %w", err)
	}

	return nil
}

func scanScheduledEmail(row scanner) (*models.ScheduledEmail, error) {
	var email models.ScheduledEmail

	err := row.Scan(
		&email.ID,
		&email.FlowID,
		&email.JobID,
		&email.NodeID,
		&email.Recipient,
		&email.SendAt,
		&email.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &email, nil
}
