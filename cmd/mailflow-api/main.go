package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/mailflow/pkg/cmd"
	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/log"
	"github.com/dukex/mailflow/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "mailflow-api",
		Usage:                 "Manage and schedule email flows",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Delayed job queue URL (redis://..., or memory:// to deliver in this process)",
				Value:   cmd.DefaultQueueURL,
				Sources: cli.EnvVars("QUEUE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for flow status events (gochannel, kafka); empty disables publishing",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "strict-validation",
				Usage:   "Require at least one Lead Source and one Cold Email node",
				Value:   true,
				Sources: cli.EnvVars("STRICT_VALIDATION"),
			},
			&cli.BoolFlag{
				Name:    "strict-cancellation",
				Usage:   "Report jobs already gone from the queue as cancellation failures",
				Sources: cli.EnvVars("STRICT_CANCELLATION"),
			},
			&cli.DurationFlag{
				Name:    "catalog-ttl",
				Usage:   "How long lead source and template lookups are cached (0 disables)",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("CATALOG_TTL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces with the OTLP HTTP exporter",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		}, cmd.SMTPFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("mailflow-api")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Mailflow API")

			tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "mailflow-api", command.Bool("tracing"))
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			jobQueue := cmd.NewJobQueue(ctx, logger, command.String("queue-url"), time.Second)

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"), command.Bool("tracing"))
			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			config := engine.DefaultConfig()
			config.StrictValidation = command.Bool("strict-validation")
			config.StrictCancellation = command.Bool("strict-cancellation")
			config.CatalogTTL = command.Duration("catalog-ttl")

			api := NewAPI(logger, persistence, jobQueue, eventBus, tracer, config)

			if cmd.IsInProcessQueue(command.String("queue-url")) {
				logger.WarnContext(ctx, "Memory queue is private to this process, emails are delivered by the API")
				api.WithDelivery(cmd.NewTransport(cmd.SMTPConfigFrom(command), logger))
			}

			err = api.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
