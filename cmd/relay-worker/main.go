package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/siteforge/relay/pkg/cmd"
	"github.com/siteforge/relay/pkg/log"
	"github.com/siteforge/relay/pkg/otelhelper"
	"github.com/siteforge/relay/pkg/queue"
	"github.com/siteforge/relay/pkg/schedule"
	"go.opentelemetry.io/otel/trace"
)

// queueOrNil keeps a nil *RedisQueue from becoming a non-nil interface.
func queueOrNil(q *queue.RedisQueue) queue.Queue {
	if q == nil {
		return nil
	}

	return q
}

func main() {
	command := &cli.Command{
		Name:                  "relay-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute site workflows",
		Flags: []cli.Flag{
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
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the durable delayed-job queue",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing action plugins",
				Value:   "",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("relay-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Relay Worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			scheduler, delayedQueue := cmd.NewDelayScheduler(ctx, logger, command.String("redis-addr"))
			if delayedQueue != nil {
				defer func() {
					err := delayedQueue.Close(ctx)
					if err != nil {
						logger.ErrorContext(ctx, "Failed to close delayed-job queue", "error", err)
					}
				}()
			}

			registry := cmd.NewRegistry(ctx, logger, command.String("plugins-path"), cmd.ActionDependencies{
				Records:    persistence.Records(),
				Sender:     cmd.NewEmailSender(logger),
				HTTPClient: &http.Client{Timeout: 30 * time.Second},
				Scheduler:  scheduler,
			})

			dispatcher := schedule.NewDispatcher(persistence.Workflows(), eventBus, logger)

			var tracer trace.Tracer

			if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
				exporterTracer, err := otelhelper.NewTracer(ctx, "relay-worker")
				if err != nil {
					logger.WarnContext(ctx, "Tracing disabled, exporter setup failed", "error", err)
				} else {
					tracer = exporterTracer
				}
			}

			worker := NewWorkerManager(
				workerID,
				persistence,
				eventBus,
				logger,
				registry,
				queueOrNil(delayedQueue),
				dispatcher,
				tracer,
			)

			err := worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
