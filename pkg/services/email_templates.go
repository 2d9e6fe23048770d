package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// EmailTemplateInput is the editable part of an email template.
type EmailTemplateInput struct {
	Name    string `json:"name"    validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body"    validate:"required"`
}

// EmailTemplates manages the templates cold email nodes send.
type EmailTemplates struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewEmailTemplates(p persistence.Persistence, eng *engine.Engine, validate *validator.Validate, logger *slog.Logger) *EmailTemplates {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &EmailTemplates{persistence: p, engine: eng, validate: validate, logger: logger}
}

func (s *EmailTemplates) Create(ctx context.Context, owner models.Owner, input EmailTemplateInput) (*models.EmailTemplate, error) {
	if err := s.checkInput("create_email_template", owner, input); err != nil {
		return nil, err
	}

	template := &models.EmailTemplate{
		UserID:  owner.ID,
		Name:    input.Name,
		Subject: input.Subject,
		Body:    input.Body,
	}

	if err := s.persistence.EmailTemplateRepository().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save email template: %w", err)
	}

	s.logger.InfoContext(ctx, "Email template created", "email_template_id", template.ID)

	return template, nil
}

func (s *EmailTemplates) List(ctx context.Context, owner models.Owner) ([]*models.EmailTemplate, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	return s.persistence.EmailTemplateRepository().ListByOwner(ctx, owner.ID)
}

// Update replaces the template. Emails already queued keep the content they were scheduled with.
func (s *EmailTemplates) Update(ctx context.Context, owner models.Owner, id string, input EmailTemplateInput) (*models.EmailTemplate, error) {
	if err := s.checkInput("update_email_template", owner, input); err != nil {
		return nil, err
	}

	template, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	template.Name = input.Name
	template.Subject = input.Subject
	template.Body = input.Body

	if err := s.persistence.EmailTemplateRepository().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save email template: %w", err)
	}

	s.engine.InvalidateEmailTemplate(id)

	return template, nil
}

func (s *EmailTemplates) Delete(ctx context.Context, owner models.Owner, id string) error {
	if _, err := s.get(ctx, owner, id); err != nil {
		return err
	}

	if err := ensureUnused(ctx, s.persistence, "delete_email_template", owner.ID, id, emailTemplateRef); err != nil {
		return err
	}

	if err := s.persistence.EmailTemplateRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete email template: %w", err)
	}

	s.engine.InvalidateEmailTemplate(id)

	return nil
}

func (s *EmailTemplates) get(ctx context.Context, owner models.Owner, id string) (*models.EmailTemplate, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	template, err := s.persistence.EmailTemplateRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if template.UserID != owner.ID {
		return nil, persistence.NewEmailTemplateError("GetByID", id, ErrEmailTemplateNotFound)
	}

	return template, nil
}

func (s *EmailTemplates) checkInput(op string, owner models.Owner, input EmailTemplateInput) error {
	if owner.ID == "" {
		return ErrEmptyOwnerID
	}

	if err := s.validate.Struct(input); err != nil {
		return invalidInput(op, err)
	}

	return nil
}
