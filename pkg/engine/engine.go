// Package engine validates flow graphs, resolves them into timed email plans,
// and keeps the job queue, the tracking rows and the flow status in step.
package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/otelhelper"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/queue"
)

// Config tunes the engine.
type Config struct {
	// StrictValidation requires at least one lead source and one cold email node.
	StrictValidation bool
	// StrictCancellation treats jobs missing from the queue as cancel failures.
	StrictCancellation bool
	// CatalogTTL caches lead source and template lookups; zero disables the cache.
	CatalogTTL time.Duration
	// Now overrides the clock used to compute send times.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		StrictValidation: true,
		CatalogTTL:       30 * time.Second,
	}
}

// Engine is the entry point used by the flow services.
type Engine struct {
	catalog   Catalog
	validator *Validator
	resolver  *Resolver
	scheduler *Scheduler
	canceller *Canceller
	status    *StatusProjector
	store     persistence.Persistence
	now       func() time.Time
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New wires an engine over a store and a queue. publisher and tracer may be nil.
func New(p persistence.Persistence, q queue.JobQueue, publisher eventbus.EventPublisher, tracer trace.Tracer, logger *slog.Logger, config Config) *Engine {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	var catalog Catalog = NewPersistenceCatalog(p)
	if config.CatalogTTL > 0 {
		catalog = NewCachedCatalog(catalog, config.CatalogTTL)
	}

	status := NewStatusProjector(p, publisher, logger, config.Now)

	return &Engine{
		catalog:   catalog,
		validator: NewValidator(catalog, config.StrictValidation),
		resolver:  NewResolver(catalog, logger, config.Now),
		scheduler: NewScheduler(q, p, status, tracer, logger),
		canceller: NewCanceller(q, p, config.StrictCancellation, tracer, logger),
		status:    status,
		store:     p,
		now:       config.Now,
		tracer:    tracer,
		logger:    logger,
	}
}

// Catalog returns the catalog the engine reads through.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Status returns the status projector shared by scheduling and delivery.
func (e *Engine) Status() *StatusProjector {
	return e.status
}

// Validate checks a graph without planning it.
func (e *Engine) Validate(ctx context.Context, graph models.Graph) error {
	return e.validator.Validate(ctx, graph)
}

// ValidateAndPlan validates the graph and resolves its plan at the current instant.
func (e *Engine) ValidateAndPlan(ctx context.Context, graph models.Graph) (*Plan, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.validate_and_plan",
		attribute.Int("mailflow.graph.nodes", len(graph.Nodes)),
		attribute.Int("mailflow.graph.edges", len(graph.Edges)),
	)
	defer span.End()

	if err := e.validator.Validate(ctx, graph); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	plan, err := e.resolver.Resolve(ctx, graph)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.PlanSizeKey, plan.Len()))

	return plan, nil
}

// Schedule enqueues a plan for the flow, sending from the owner's address.
func (e *Engine) Schedule(ctx context.Context, flow *models.Flow, sender string, plan *Plan) (*ScheduleReport, error) {
	return e.scheduler.Schedule(ctx, flow.ID, sender, plan)
}

// CancelAll cancels every outstanding job of the flow.
func (e *Engine) CancelAll(ctx context.Context, flowID string) (*CancelReport, error) {
	return e.canceller.CancelAll(ctx, flowID)
}

// Reset marks the flow PENDING.
func (e *Engine) Reset(ctx context.Context, flowID string) error {
	return e.status.Reset(ctx, flowID)
}

// Forget releases per-flow state after the flow is deleted.
func (e *Engine) Forget(flowID string) {
	e.status.Forget(flowID)
}

// InvalidateLeadSource drops a cached lead source.
func (e *Engine) InvalidateLeadSource(id string) {
	if cached, ok := e.catalog.(*CachedCatalog); ok {
		cached.InvalidateLeadSource(id)
	}
}

// InvalidateEmailTemplate drops a cached template.
func (e *Engine) InvalidateEmailTemplate(id string) {
	if cached, ok := e.catalog.(*CachedCatalog); ok {
		cached.InvalidateEmailTemplate(id)
	}
}

// NewDeliveryHandler builds the delivery side sharing this engine's status projector.
func (e *Engine) NewDeliveryHandler(transport mail.Transport) *DeliveryHandler {
	return NewDeliveryHandler(transport, e.store, e.status, e.tracer, e.logger)
}

// NewReconciler builds a reconciler sharing this engine's status projector.
func (e *Engine) NewReconciler(q queue.JobQueue) *Reconciler {
	return NewReconciler(q, e.store, e.status, e.logger, e.now)
}
