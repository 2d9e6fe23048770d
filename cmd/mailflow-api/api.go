// Package main provides the Mailflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/eventbus"
	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/queue"
	"github.com/dukex/mailflow/pkg/services"
	"github.com/dukex/mailflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.JobQueue
	eventBus    eventbus.EventBus
	engine      *engine.Engine
	transport   mail.Transport
	validate    *validator.Validate
}

// NewAPI wires the HTTP API. eventBus and tracer may be nil.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	jobQueue queue.JobQueue,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	config engine.Config,
) *API {
	var publisher eventbus.EventPublisher
	if eventBus != nil {
		publisher = eventBus
	}

	return &API{
		logger:      logger,
		persistence: persistence,
		queue:       jobQueue,
		eventBus:    eventBus,
		engine:      engine.New(persistence, jobQueue, publisher, tracer, logger, config),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithDelivery makes the API fire due jobs itself through transport. It is
// needed when the queue lives in this process and no worker can reach it.
func (a *API) WithDelivery(transport mail.Transport) *API {
	a.transport = transport

	return a
}

// StartDelivery starts polling the queue when in-process delivery is enabled.
func (a *API) StartDelivery(ctx context.Context) error {
	if a.transport == nil {
		return nil
	}

	a.logger.InfoContext(ctx, "Delivering due emails in-process")

	return a.queue.Start(ctx, a.engine.NewDeliveryHandler(a.transport).Handle)
}

func (a *API) App() *fiber.App {
	eng := a.engine

	handlers := web.NewAPIHandlers(
		services.NewFlows(a.persistence, eng, a.validate, a.logger),
		services.NewLeadSources(a.persistence, eng, a.validate, a.logger),
		services.NewEmailTemplates(a.persistence, eng, a.validate, a.logger),
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Mailflow API")
	})

	app.Get("/health", handlers.HealthCheck)

	handlers.Register(app)

	return app
}

// Start listens on port until ctx is canceled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	if err := a.StartDelivery(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}

		if a.transport != nil {
			if err := a.queue.Stop(context.Background()); err != nil {
				a.logger.Error("Failed to stop job queue", "error", err)
			}
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
