package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siteforge/relay/pkg/eventbus"
	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/queue"
	"github.com/siteforge/relay/pkg/registry"
	"github.com/siteforge/relay/pkg/schedule"
	"github.com/siteforge/relay/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

const (
	delayedJobPollInterval = 5 * time.Second
	delayedJobBatchSize    = 50
)

// WorkerManager consumes trigger events off the bus, executes the matching
// workflows, resumes delay-parked executions from the durable queue and
// runs the cron dispatcher for scheduled workflows.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	queue       queue.Queue
	dispatcher  *schedule.Dispatcher

	repository     *workflow.Repository
	executor       *workflow.Executor
	triggerService *workflow.TriggerService
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	registry *registry.Registry,
	delayedQueue queue.Queue,
	dispatcher *schedule.Dispatcher,
	tracer trace.Tracer,
) *WorkerManager {
	workerLogger := logger.With("module", "relay-worker", "worker_id", id)

	repository := workflow.NewRepository(persistence)
	executor := workflow.NewExecutor(persistence.Executions(), registry, workerLogger).
		WithPublisher(eventBus).
		WithWorkerID(id)

	if tracer != nil {
		executor = executor.WithTracer(tracer)
	}

	return &WorkerManager{
		id:             id,
		logger:         workerLogger,
		persistence:    persistence,
		registry:       registry,
		eventBus:       eventBus,
		queue:          delayedQueue,
		dispatcher:     dispatcher,
		repository:     repository,
		executor:       executor,
		triggerService: workflow.NewTriggerService(repository, executor, workerLogger),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered)

	err := w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if w.dispatcher != nil {
		err = w.dispatcher.Start(ctx)
		if err != nil {
			return err
		}

		defer w.dispatcher.Stop(ctx)
	}

	if w.queue != nil {
		go w.pollDelayedJobs(ctx)
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

// handleWorkflowTriggered runs one trigger firing. Events carrying a
// workflow ID, as the cron dispatcher emits, execute that single workflow;
// the rest fan out to every matching workflow of the site.
func (w *WorkerManager) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowTriggered")

		return nil
	}

	logger := w.logger.With(
		"site_id", triggeredEvent.SiteID,
		"trigger_type", triggeredEvent.TriggerType,
		"event_id", triggeredEvent.ID,
	)
	logger.InfoContext(ctx, "Processing workflow triggered event")

	triggerData := triggeredEvent.TriggerData
	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	if triggeredEvent.WorkflowID != "" {
		return w.executeSingle(ctx, logger, triggeredEvent.WorkflowID, triggerData)
	}

	report, err := w.triggerService.Run(ctx, triggeredEvent.SiteID, triggeredEvent.TriggerType, triggerData)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to run trigger", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Trigger processed", "executed", report.ExecutedCount)

	return nil
}

func (w *WorkerManager) executeSingle(ctx context.Context, logger *slog.Logger, workflowID string, triggerData map[string]any) error {
	wf, err := w.repository.FetchExecutable(ctx, workflowID)
	if err != nil {
		// A deactivated or deleted workflow is not a delivery failure.
		logger.WarnContext(ctx, "Workflow not executable, dropping event",
			"workflow_id", workflowID, "error", err)

		return nil
	}

	report, err := w.executor.Execute(ctx, wf, triggerData)
	if err != nil {
		logger.ErrorContext(ctx, "Workflow execution faulted", "workflow_id", workflowID, "error", err)

		return err
	}

	logger.InfoContext(ctx, "Workflow executed",
		"workflow_id", workflowID, "execution_id", report.ExecutionID, "success", report.Success)

	return nil
}

// pollDelayedJobs claims due delayed jobs and resumes their executions at
// the step recorded in the job.
func (w *WorkerManager) pollDelayedJobs(ctx context.Context) {
	ticker := time.NewTicker(delayedJobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs, err := w.queue.DequeueDue(ctx, time.Now().UTC(), delayedJobBatchSize)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to dequeue delayed jobs", "error", err)

				continue
			}

			for _, job := range jobs {
				w.resumeJob(ctx, job)
			}
		}
	}
}

func (w *WorkerManager) resumeJob(ctx context.Context, job queue.DelayedJob) {
	logger := w.logger.With(
		"job_id", job.ID,
		"workflow_id", job.WorkflowID,
		"execution_id", job.ExecutionID,
		"step_id", job.StepID,
	)

	wf, err := w.repository.FetchExecutable(ctx, job.WorkflowID)
	if err != nil {
		logger.WarnContext(ctx, "Workflow no longer executable, dropping delayed job", "error", err)

		return
	}

	report, err := w.executor.Resume(ctx, wf, job.StepID, job.Context)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resume delayed execution", "error", err)

		return
	}

	logger.InfoContext(ctx, "Delayed execution resumed", "success", report.Success)
}
