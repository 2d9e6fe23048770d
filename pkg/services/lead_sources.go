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

// LeadSourceInput is the editable part of a lead source.
type LeadSourceInput struct {
	Name     string           `json:"name"     validate:"required"`
	Contacts []models.Contact `json:"contacts" validate:"required,min=1,dive"`
}

// LeadSources manages the contact lists flows send to.
type LeadSources struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewLeadSources(p persistence.Persistence, eng *engine.Engine, validate *validator.Validate, logger *slog.Logger) *LeadSources {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &LeadSources{persistence: p, engine: eng, validate: validate, logger: logger}
}

func (s *LeadSources) Create(ctx context.Context, owner models.Owner, input LeadSourceInput) (*models.LeadSource, error) {
	input.Contacts = models.NormalizeContacts(input.Contacts)

	if err := s.checkInput("create_lead_source", owner, input); err != nil {
		return nil, err
	}

	source := &models.LeadSource{
		UserID:   owner.ID,
		Name:     input.Name,
		Contacts: input.Contacts,
	}

	if err := s.persistence.LeadSourceRepository().Save(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to save lead source: %w", err)
	}

	s.logger.InfoContext(ctx, "Lead source created", "lead_source_id", source.ID, "contacts", len(source.Contacts))

	return source, nil
}

func (s *LeadSources) List(ctx context.Context, owner models.Owner) ([]*models.LeadSource, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	return s.persistence.LeadSourceRepository().ListByOwner(ctx, owner.ID)
}

func (s *LeadSources) Update(ctx context.Context, owner models.Owner, id string, input LeadSourceInput) (*models.LeadSource, error) {
	input.Contacts = models.NormalizeContacts(input.Contacts)

	if err := s.checkInput("update_lead_source", owner, input); err != nil {
		return nil, err
	}

	source, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	source.Name = input.Name
	source.Contacts = input.Contacts

	if err := s.persistence.LeadSourceRepository().Save(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to save lead source: %w", err)
	}

	s.engine.InvalidateLeadSource(id)

	return source, nil
}

// Delete removes a lead source unless a running flow still reads it.
func (s *LeadSources) Delete(ctx context.Context, owner models.Owner, id string) error {
	if _, err := s.get(ctx, owner, id); err != nil {
		return err
	}

	if err := ensureUnused(ctx, s.persistence, "delete_lead_source", owner.ID, id, leadSourceRef); err != nil {
		return err
	}

	if err := s.persistence.LeadSourceRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead source: %w", err)
	}

	s.engine.InvalidateLeadSource(id)

	return nil
}

func (s *LeadSources) get(ctx context.Context, owner models.Owner, id string) (*models.LeadSource, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	source, err := s.persistence.LeadSourceRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if source.UserID != owner.ID {
		return nil, persistence.NewLeadSourceError("GetByID", id, ErrLeadSourceNotFound)
	}

	return source, nil
}

func (s *LeadSources) checkInput(op string, owner models.Owner, input LeadSourceInput) error {
	if owner.ID == "" {
		return ErrEmptyOwnerID
	}

	if err := s.validate.Struct(input); err != nil {
		return invalidInput(op, err)
	}

	return nil
}
