package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/mailflow/pkg/cmd"
	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/log"
	"github.com/dukex/mailflow/pkg/otelhelper"
)

func main() {
	cmd := &cli.Command{
		Name:                  "mailflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Send scheduled flow emails when they fall due",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Delayed job queue URL shared with the API (redis://...)",
				Value:   cmd.DefaultQueueURL,
				Sources: cli.EnvVars("QUEUE_URL"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often the queue is polled for due jobs",
				Value:   time.Second,
				Sources: cli.EnvVars("QUEUE_POLL_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Deliver through an event bus (gochannel, kafka); empty delivers directly",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "reconcile-schedule",
				Usage:   "Cron spec of the drift reconciliation sweep; empty disables it",
				Value:   "@every 5m",
				Sources: cli.EnvVars("RECONCILE_SCHEDULE"),
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

			if err := cmd.RequireSharedQueue(command.String("queue-url")); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("mailflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Mailflow Worker")

			tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "mailflow-worker", command.Bool("tracing"))
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

			jobQueue := cmd.NewJobQueue(ctx, logger, command.String("queue-url"), command.Duration("poll-interval"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"), command.Bool("tracing"))
			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			transport := cmd.NewTransport(cmd.SMTPConfigFrom(command), logger)

			eng := engine.New(persistence, jobQueue, eventBus, tracer, logger, engine.DefaultConfig())

			worker := NewWorker(
				workerID,
				jobQueue,
				eng.NewDeliveryHandler(transport),
				eng.NewReconciler(jobQueue),
				eventBus,
				command.String("reconcile-schedule"),
				logger,
			)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return err
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
