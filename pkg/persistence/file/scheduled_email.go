package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/google/uuid"
)

// ScheduledEmailRepository handles scheduled email rows stored as files.
type ScheduledEmailRepository struct {
	emails *collection[models.ScheduledEmail]
}

// NewScheduledEmailRepository creates a new scheduled email repository.
func NewScheduledEmailRepository(root string) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{emails: newCollection[models.ScheduledEmail](root, "scheduled_emails")}
}

func (r *ScheduledEmailRepository) Create(_ context.Context, email *models.ScheduledEmail) error {
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

	return r.emails.put(email.ID, email)
}

func (r *ScheduledEmailRepository) ListByFlow(_ context.Context, flowID string) ([]*models.ScheduledEmail, error) {
	emails, err := r.emails.list(func(e *models.ScheduledEmail) bool { return e.FlowID == flowID })
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled emails of flow %s: %w", flowID, err)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].SendAt.Before(emails[j].SendAt)
	})

	return emails, nil
}

func (r *ScheduledEmailRepository) GetByJobID(_ context.Context, jobID string) (*models.ScheduledEmail, error) {
	emails, err := r.emails.list(func(e *models.ScheduledEmail) bool { return e.JobID == jobID })
	if err != nil {
		return nil, fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}

	if len(emails) == 0 {
		return nil, persistence.NewScheduledEmailError("GetByJobID", jobID, persistence.ErrScheduledEmailNotFound)
	}

	return emails[0], nil
}

func (r *ScheduledEmailRepository) CountByFlow(ctx context.Context, flowID string) (int, error) {
	emails, err := r.ListByFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	return len(emails), nil
}

func (r *ScheduledEmailRepository) CountPending(ctx context.Context, flowID string, now time.Time) (int, error) {
	emails, err := r.ListByFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, email := range emails {
		if email.IsPending(now) {
			count++
		}
	}

	return count, nil
}

func (r *ScheduledEmailRepository) Delete(_ context.Context, id string) error {
	return r.emails.remove(id)
}

func (r *ScheduledEmailRepository) DeleteByFlow(_ context.Context, flowID string) error {
	return r.emails.removeWhere(
		func(e *models.ScheduledEmail) bool { return e.FlowID == flowID },
		func(e *models.ScheduledEmail) string { return e.ID },
	)
}
