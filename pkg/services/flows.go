package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// FlowInput is the editable part of a flow.
type FlowInput struct {
	Name  string         `json:"name"  validate:"required"`
	Nodes []*models.Node `json:"nodes" validate:"dive,required"`
	Edges []*models.Edge `json:"edges" validate:"dive,required"`
}

func (in FlowInput) graph() models.Graph {
	return models.Graph{Nodes: in.Nodes, Edges: in.Edges}
}

// StartResult is the outcome of an operation that scheduled a flow.
type StartResult struct {
	Flow   *models.Flow           `json:"flow"`
	Report *engine.ScheduleReport `json:"report"`
}

// Flows implements the flow operations on behalf of an owner.
type Flows struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewFlows creates a new flow service.
func NewFlows(p persistence.Persistence, eng *engine.Engine, validate *validator.Validate, logger *slog.Logger) *Flows {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Flows{
		persistence: p,
		engine:      eng,
		validate:    validate,
		logger:      logger,
	}
}

// Save persists a new PENDING flow after validating its graph.
func (s *Flows) Save(ctx context.Context, owner models.Owner, input FlowInput) (*models.Flow, error) {
	if err := s.checkInput("save", owner, input); err != nil {
		return nil, err
	}

	if err := s.engine.Validate(ctx, input.graph()); err != nil {
		return nil, err
	}

	flow := &models.Flow{
		UserID: owner.ID,
		Name:   input.Name,
		Nodes:  input.Nodes,
		Edges:  input.Edges,
		Status: models.FlowStatusPending,
	}

	if err := s.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	s.logger.InfoContext(ctx, "Flow saved", "flow_id", flow.ID, "user_id", owner.ID)

	return flow, nil
}

// SaveAndStart persists a new flow and schedules its emails.
func (s *Flows) SaveAndStart(ctx context.Context, owner models.Owner, input FlowInput) (*StartResult, error) {
	if err := s.checkInput("save_and_start", owner, input); err != nil {
		return nil, err
	}

	if err := checkSender(owner); err != nil {
		return nil, err
	}

	plan, err := s.engine.ValidateAndPlan(ctx, input.graph())
	if err != nil {
		return nil, err
	}

	flow := &models.Flow{
		UserID: owner.ID,
		Name:   input.Name,
		Nodes:  input.Nodes,
		Edges:  input.Edges,
		Status: models.FlowStatusPending,
	}

	if err := s.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return s.schedule(ctx, owner, flow, plan)
}

// Get returns a flow owned by the caller.
func (s *Flows) Get(ctx context.Context, owner models.Owner, id string) (*models.Flow, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	flow, err := s.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow.UserID != owner.ID {
		return nil, persistence.NewFlowError("GetByID", id, ErrFlowNotFound)
	}

	return flow, nil
}

// List returns every flow of the caller.
func (s *Flows) List(ctx context.Context, owner models.Owner) ([]*models.Flow, error) {
	if owner.ID == "" {
		return nil, ErrEmptyOwnerID
	}

	flows, err := s.persistence.FlowRepository().ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

// Update cancels the flow's outstanding emails and replaces its graph. The flow
// is left PENDING.
func (s *Flows) Update(ctx context.Context, owner models.Owner, id string, input FlowInput) (*models.Flow, error) {
	if err := s.checkInput("update", owner, input); err != nil {
		return nil, err
	}

	if err := s.engine.Validate(ctx, input.graph()); err != nil {
		return nil, err
	}

	flow, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if err := s.replace(ctx, flow, input); err != nil {
		return nil, err
	}

	return flow, nil
}

// UpdateAndStart replaces the flow's graph and schedules it again.
func (s *Flows) UpdateAndStart(ctx context.Context, owner models.Owner, id string, input FlowInput) (*StartResult, error) {
	if err := s.checkInput("update_and_start", owner, input); err != nil {
		return nil, err
	}

	if err := checkSender(owner); err != nil {
		return nil, err
	}

	plan, err := s.engine.ValidateAndPlan(ctx, input.graph())
	if err != nil {
		return nil, err
	}

	flow, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if err := s.replace(ctx, flow, input); err != nil {
		return nil, err
	}

	return s.schedule(ctx, owner, flow, plan)
}

// Start schedules the stored graph, replacing whatever was outstanding.
func (s *Flows) Start(ctx context.Context, owner models.Owner, id string) (*StartResult, error) {
	if err := checkSender(owner); err != nil {
		return nil, err
	}

	flow, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.engine.ValidateAndPlan(ctx, flow.Graph())
	if err != nil {
		return nil, err
	}

	if err := s.stop(ctx, flow); err != nil {
		return nil, err
	}

	return s.schedule(ctx, owner, flow, plan)
}

// Stop cancels every outstanding email and marks the flow PENDING.
func (s *Flows) Stop(ctx context.Context, owner models.Owner, id string) (*models.Flow, error) {
	flow, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if err := s.stop(ctx, flow); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Flow stopped", "flow_id", flow.ID)

	return s.persistence.FlowRepository().GetByID(ctx, flow.ID)
}

// Delete cancels outstanding emails and removes the flow with its tracking rows.
func (s *Flows) Delete(ctx context.Context, owner models.Owner, id string) error {
	flow, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}

	if _, err := s.engine.CancelAll(ctx, flow.ID); err != nil {
		return err
	}

	if err := s.persistence.ScheduledEmailRepository().DeleteByFlow(ctx, flow.ID); err != nil {
		return fmt.Errorf("failed to delete scheduled emails: %w", err)
	}

	if err := s.persistence.FlowRepository().Delete(ctx, flow.ID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	s.engine.Forget(flow.ID)
	s.logger.InfoContext(ctx, "Flow deleted", "flow_id", flow.ID)

	return nil
}

// HealthCheck reports whether the store is reachable.
func (s *Flows) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

func (s *Flows) checkInput(op string, owner models.Owner, input FlowInput) error {
	if owner.ID == "" {
		return ErrEmptyOwnerID
	}

	if err := s.validate.Struct(input); err != nil {
		return invalidInput(op, err)
	}

	return nil
}

func (s *Flows) stop(ctx context.Context, flow *models.Flow) error {
	if _, err := s.engine.CancelAll(ctx, flow.ID); err != nil {
		return err
	}

	return s.engine.Reset(ctx, flow.ID)
}

func (s *Flows) replace(ctx context.Context, flow *models.Flow, input FlowInput) error {
	if _, err := s.engine.CancelAll(ctx, flow.ID); err != nil {
		return err
	}

	flow.Name = input.Name
	flow.Nodes = input.Nodes
	flow.Edges = input.Edges
	flow.Status = models.FlowStatusPending

	if err := s.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}

	return nil
}

func (s *Flows) schedule(ctx context.Context, owner models.Owner, flow *models.Flow, plan *engine.Plan) (*StartResult, error) {
	report, err := s.engine.Schedule(ctx, flow, owner.Email, plan)
	if err != nil {
		return nil, err
	}

	current, err := s.persistence.FlowRepository().GetByID(ctx, flow.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Flow started",
		"flow_id", flow.ID,
		"scheduled", report.Scheduled,
		"skipped", report.Skipped,
		"status", current.Status)

	return &StartResult{Flow: current, Report: report}, nil
}

// checkSender rejects owners without an address; it is the From of every email.
func checkSender(owner models.Owner) error {
	if owner.ID == "" {
		return ErrEmptyOwnerID
	}

	if strings.TrimSpace(owner.Email) == "" {
		return ErrEmptyOwnerMail
	}

	return nil
}
