package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/siteforge/relay/pkg/eventbus"
	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/otelhelper"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/registry"
)

// Report is the executor's summary of one run, returned to the trigger
// service and surfaced through the API. Step failures are reported here,
// not as Go errors; Execute only errors on engine faults.
type Report struct {
	Success     bool                          `json:"success"`
	WorkflowID  string                        `json:"workflow_id"`
	ExecutionID string                        `json:"execution_id"`
	Results     map[string]*models.StepResult `json:"results"`
	Error       string                        `json:"error,omitempty"`
}

// Executor runs one workflow from its trigger payload: it owns the
// execution row, the per-step audit log, context accumulation and the
// step-to-step control flow.
type Executor struct {
	executions persistence.ExecutionRepository
	registry   *registry.Registry
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger
	workerID   string
}

func NewExecutor(executions persistence.ExecutionRepository, registry *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		executions: executions,
		registry:   registry,
		logger:     logger.With("module", "workflow_executor"),
	}
}

// WithPublisher enables lifecycle event publishing.
func (e *Executor) WithPublisher(publisher eventbus.EventPublisher) *Executor {
	e.publisher = publisher

	return e
}

// WithTracer enables per-step tracing.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// WithWorkerID stamps lifecycle events with the executing worker.
func (e *Executor) WithWorkerID(workerID string) *Executor {
	e.workerID = workerID

	return e
}

// Execute runs a workflow in response to one trigger firing. The workflow
// must already be validated as executable; definition problems surface as
// errors before any execution row is written.
func (e *Executor) Execute(ctx context.Context, workflow *models.Workflow, triggerData map[string]any) (*Report, error) {
	sortSteps(workflow)

	execution := &models.WorkflowExecution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		SiteID:      workflow.SiteID,
		TriggerType: workflow.TriggerType,
		TriggerData: triggerData,
		Status:      models.ExecutionStatusRunning,
		Results:     make(map[string]*models.StepResult),
		StartedAt:   time.Now().UTC(),
	}

	err := e.executions.CreateExecution(ctx, execution)
	if err != nil {
		return nil, err
	}

	e.publishStarted(ctx, workflow, execution)

	executionCtx := models.NewExecutionContext(execution.ID, workflow, triggerData)

	var first *models.WorkflowStep
	if len(workflow.Steps) > 0 {
		first = workflow.Steps[0]
	}

	return e.run(ctx, workflow, execution, executionCtx, first)
}

// Resume continues an existing execution at the given step. Used by the
// worker when a durable delayed job comes due; the stored context carries
// everything accumulated before the delay.
func (e *Executor) Resume(ctx context.Context, workflow *models.Workflow, stepID string, executionCtx models.ExecutionContext) (*Report, error) {
	sortSteps(workflow)

	execution, err := e.executions.ExecutionByID(ctx, executionCtx.ExecutionID)
	if err != nil {
		return nil, err
	}

	if execution.Results == nil {
		execution.Results = make(map[string]*models.StepResult)
	}

	step := workflow.StepByID(stepID)
	if step == nil {
		execution.Error = "resume step not found: " + stepID

		return nil, errors.Join(e.markFailed(ctx, workflow, execution, 0), errors.New(execution.Error))
	}

	return e.run(ctx, workflow, execution, executionCtx, step)
}

func (e *Executor) run(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, executionCtx models.ExecutionContext, step *models.WorkflowStep) (*Report, error) {
	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
		"site_id", workflow.SiteID,
	)

	stepsExecuted := 0

	for step != nil {
		stepLogger := logger.With("step_id", step.ID, "action_type", step.ActionType)
		stepLogger.InfoContext(ctx, "Executing step")

		stepCtx, span := e.startStepSpan(ctx, workflow, execution, step)

		stepLog := &models.StepLog{
			ID:          uuid.New().String(),
			ExecutionID: execution.ID,
			StepID:      step.ID,
			Status:      models.StepStatusRunning,
			StartedAt:   time.Now().UTC(),
		}

		err := e.executions.CreateStepLog(stepCtx, stepLog)
		if err != nil {
			e.endStepSpan(span, err)

			return e.engineFault(ctx, workflow, execution, stepsExecuted, err)
		}

		result, fatal := e.executeStep(stepCtx, step, executionCtx, stepLogger)
		stepsExecuted++

		completedAt := time.Now().UTC()
		stepLog.CompletedAt = &completedAt
		stepLog.Output = result.Output
		stepLog.Error = result.Error

		if result.Success {
			stepLog.Status = models.StepStatusCompleted
		} else {
			stepLog.Status = models.StepStatusFailed
		}

		err = e.executions.UpdateStepLog(stepCtx, stepLog)
		if err != nil {
			e.endStepSpan(span, err)

			return e.engineFault(ctx, workflow, execution, stepsExecuted, err)
		}

		execution.Results[step.ID] = result

		if !result.Success {
			e.endStepSpan(span, errors.New(result.Error))

			if fatal || step.StopsOnError() {
				stepLogger.ErrorContext(ctx, "Step failed, halting execution", "error", result.Error)

				execution.Error = result.Error

				err = e.markFailed(ctx, workflow, execution, stepsExecuted)
				if err != nil {
					return nil, err
				}

				return e.report(execution), nil
			}

			stepLogger.WarnContext(ctx, "Step failed, continuing", "error", result.Error)

			step = e.successor(workflow, step)

			continue
		}

		e.endStepSpan(span, nil)

		executionCtx = executionCtx.WithStepOutput(step.ID, result.Output)

		// A deferred result parked the continuation on the durable queue;
		// the walk ends here and the queue re-enters at the recorded step.
		if result.Deferred {
			stepLogger.InfoContext(ctx, "Continuation deferred, ending walk")

			break
		}

		step = e.next(workflow, step, result.NextSteps, stepLogger)
	}

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt

	err := e.executions.UpdateExecution(ctx, execution)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Execution completed", "steps_executed", stepsExecuted)
	e.publishCompleted(ctx, workflow, execution, stepsExecuted)

	return e.report(execution), nil
}

// executeStep builds and runs the handler. The second return reports a
// fatal failure that halts regardless of the step's stop-on-error setting:
// an unregistered action type means the definition can never run.
func (e *Executor) executeStep(ctx context.Context, step *models.WorkflowStep, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, bool) {
	action, err := e.registry.CreateAction(step.ActionType, step.Configuration)
	if err != nil {
		return models.Failed(err.Error()), errors.Is(err, registry.ErrUnknownActionType)
	}

	result := action.Execute(ctx, executionCtx, logger)
	if result == nil {
		return models.Failed("action returned no result"), false
	}

	return result, false
}

// next picks the following step. A branching result names candidate step
// IDs; the first one that exists in the workflow wins and the rest are
// discarded. Without candidates, control falls through to the next step by
// position.
func (e *Executor) next(workflow *models.Workflow, current *models.WorkflowStep, candidates []string, logger *slog.Logger) *models.WorkflowStep {
	if len(candidates) > 0 {
		for _, id := range candidates {
			if target := workflow.StepByID(id); target != nil {
				return target
			}

			logger.Warn("Discarding unknown branch target", "step_id", id)
		}

		return nil
	}

	return e.successor(workflow, current)
}

// successor is the positional default: the step after current in position
// order.
func (e *Executor) successor(workflow *models.Workflow, current *models.WorkflowStep) *models.WorkflowStep {
	for i, step := range workflow.Steps {
		if step.ID == current.ID {
			if i+1 < len(workflow.Steps) {
				return workflow.Steps[i+1]
			}

			return nil
		}
	}

	return nil
}

// engineFault records an infrastructure failure on the execution row and
// re-raises it. Unlike step errors, the caller sees these as Go errors.
func (e *Executor) engineFault(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, stepsExecuted int, cause error) (*Report, error) {
	execution.Error = cause.Error()

	err := e.markFailed(ctx, workflow, execution, stepsExecuted)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record engine fault", "execution_id", execution.ID, "error", err)
	}

	return nil, cause
}

func (e *Executor) markFailed(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, stepsExecuted int) error {
	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &completedAt

	err := e.executions.UpdateExecution(ctx, execution)
	if err != nil {
		return err
	}

	e.publishFailed(ctx, workflow, execution, stepsExecuted)

	return nil
}

func (e *Executor) report(execution *models.WorkflowExecution) *Report {
	return &Report{
		Success:     execution.Status == models.ExecutionStatusCompleted,
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		Results:     execution.Results,
		Error:       execution.Error,
	}
}

func (e *Executor) startStepSpan(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, step *models.WorkflowStep) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}

	return otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.ActionTypeKey, string(step.ActionType)),
	)
}

func (e *Executor) endStepSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}

func (e *Executor) publishStarted(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) {
	if e.publisher == nil {
		return
	}

	event := events.ExecutionStarted{
		BaseEvent:    e.baseEvent(events.ExecutionStartedEvent, workflow),
		ExecutionID:  execution.ID,
		WorkflowName: workflow.Name,
		TriggerType:  workflow.TriggerType,
		TriggerData:  execution.TriggerData,
	}

	e.publish(ctx, workflow.ID, event)
}

func (e *Executor) publishCompleted(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, stepsExecuted int) {
	if e.publisher == nil {
		return
	}

	event := events.ExecutionCompleted{
		BaseEvent:     e.baseEvent(events.ExecutionCompletedEvent, workflow),
		ExecutionID:   execution.ID,
		DurationMs:    e.durationMs(execution),
		StepsExecuted: stepsExecuted,
	}

	e.publish(ctx, workflow.ID, event)
}

func (e *Executor) publishFailed(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, stepsExecuted int) {
	if e.publisher == nil {
		return
	}

	event := events.ExecutionFailed{
		BaseEvent:     e.baseEvent(events.ExecutionFailedEvent, workflow),
		ExecutionID:   execution.ID,
		DurationMs:    e.durationMs(execution),
		StepsExecuted: stepsExecuted,
		Error:         execution.Error,
	}

	e.publish(ctx, workflow.ID, event)
}

func (e *Executor) baseEvent(eventType events.EventType, workflow *models.Workflow) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflow.SiteID, workflow.ID)
	base.WorkerID = e.workerID

	return base
}

func (e *Executor) publish(ctx context.Context, key string, event events.Event) {
	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) durationMs(execution *models.WorkflowExecution) int64 {
	if execution.CompletedAt == nil {
		return 0
	}

	return execution.CompletedAt.Sub(execution.StartedAt).Milliseconds()
}
