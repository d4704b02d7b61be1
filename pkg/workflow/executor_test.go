package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/siteforge/relay/pkg/actions/delay"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/siteforge/relay/pkg/queue"
	"github.com/siteforge/relay/pkg/registry"
	"github.com/siteforge/relay/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutions is an in-memory ExecutionRepository.
type fakeExecutions struct {
	executions map[string]*models.WorkflowExecution
	stepLogs   []*models.StepLog

	failCreateStepLog      bool
	failCreateExecutionFor string
}

func newFakeExecutions() *fakeExecutions {
	return &fakeExecutions{executions: map[string]*models.WorkflowExecution{}}
}

func (f *fakeExecutions) CreateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	if f.failCreateExecutionFor != "" && execution.WorkflowID == f.failCreateExecutionFor {
		return errors.New("execution store unavailable")
	}

	f.executions[execution.ID] = execution

	return nil
}

func (f *fakeExecutions) UpdateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	f.executions[execution.ID] = execution

	return nil
}

func (f *fakeExecutions) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	execution, ok := f.executions[id]
	if !ok {
		return nil, errors.New("execution not found")
	}

	return execution, nil
}

func (f *fakeExecutions) ExecutionsByWorkflow(_ context.Context, _ string) ([]*models.WorkflowExecution, error) {
	return nil, nil
}

func (f *fakeExecutions) CreateStepLog(_ context.Context, stepLog *models.StepLog) error {
	if f.failCreateStepLog {
		return errors.New("step log store unavailable")
	}

	f.stepLogs = append(f.stepLogs, stepLog)

	return nil
}

func (f *fakeExecutions) UpdateStepLog(_ context.Context, stepLog *models.StepLog) error {
	for i, existing := range f.stepLogs {
		if existing.ID == stepLog.ID {
			f.stepLogs[i] = stepLog
		}
	}

	return nil
}

func (f *fakeExecutions) StepLogsByExecution(_ context.Context, executionID string) ([]*models.StepLog, error) {
	logs := []*models.StepLog{}
	for _, stepLog := range f.stepLogs {
		if stepLog.ExecutionID == executionID {
			logs = append(logs, stepLog)
		}
	}

	return logs, nil
}

// scriptedAction drives control flow from step configuration:
//
//	output     — succeed with this output
//	fail       — fail with this message
//	next_steps — succeed and request these branch targets
//	capture    — succeed with {"seen": <context value at path>}
type scriptedAction struct {
	config map[string]any
}

func (a *scriptedAction) Execute(_ context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) *models.StepResult {
	if message, ok := a.config["fail"].(string); ok {
		return models.Failed(message)
	}

	if path, ok := a.config["capture"].(string); ok {
		value, _ := template.Lookup(executionCtx.Vars, path)

		return models.Succeeded(map[string]any{"seen": value})
	}

	result := models.Succeeded(map[string]any{})
	if output, ok := a.config["output"].(map[string]any); ok {
		result.Output = output
	}

	if raw, ok := a.config["next_steps"].([]any); ok {
		for _, id := range raw {
			result.NextSteps = append(result.NextSteps, id.(string))
		}
	}

	return result
}

type scriptedFactory struct{}

func (*scriptedFactory) ID() string { return "scripted" }

func (*scriptedFactory) Create(config map[string]any) (protocol.Action, error) {
	return &scriptedAction{config: config}, nil
}

func (*scriptedFactory) Schema() map[string]any { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func testRegistry() *registry.Registry {
	r := registry.NewRegistry(testLogger())
	r.RegisterAction(&scriptedFactory{})

	return r
}

func step(id string, position int, config map[string]any) *models.WorkflowStep {
	return &models.WorkflowStep{
		ID:            id,
		Name:          id,
		ActionType:    "scripted",
		Position:      position,
		Configuration: config,
	}
}

func testWorkflow(steps ...*models.WorkflowStep) *models.Workflow {
	return &models.Workflow{
		ID:          "wf-1",
		SiteID:      "site-1",
		Name:        "Welcome flow",
		TriggerType: models.TriggerFormSubmitted,
		Active:      true,
		Steps:       steps,
	}
}

func TestExecuteLinearFlowAccumulatesContext(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(
		step("s1", 0, map[string]any{"output": map[string]any{"greeting": "hello"}}),
		step("s2", 1, map[string]any{"capture": "step_s1.greeting"}),
	)

	report, err := executor.Execute(context.Background(), wf, map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	require.True(t, report.Success)

	// the second step saw the first step's output under step_s1
	assert.Equal(t, "hello", report.Results["s2"].Output["seen"])

	execution := executions.executions[report.ExecutionID]
	require.NotNil(t, execution)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.NotNil(t, execution.CompletedAt)
	assert.Len(t, executions.stepLogs, 2)
	assert.Equal(t, models.StepStatusCompleted, executions.stepLogs[0].Status)
}

func TestExecuteStepFailureHaltsByDefault(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(
		step("s1", 0, map[string]any{"fail": "boom"}),
		step("s2", 1, map[string]any{}),
	)

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.False(t, report.Success)

	assert.Contains(t, report.Results, "s1")
	assert.NotContains(t, report.Results, "s2")

	execution := executions.executions[report.ExecutionID]
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "boom", execution.Error)
}

func TestExecuteStopOnErrorFalseContinues(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	keepGoing := false
	failing := step("s1", 0, map[string]any{"fail": "boom"})
	failing.StopOnError = &keepGoing

	wf := testWorkflow(failing, step("s2", 1, map[string]any{}))

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, report.Success)

	assert.False(t, report.Results["s1"].Success)
	assert.True(t, report.Results["s2"].Success)
	assert.Equal(t, models.ExecutionStatusCompleted, executions.executions[report.ExecutionID].Status)
}

func TestExecuteUnknownActionTypeIsAlwaysFatal(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	keepGoing := false
	unknown := step("s1", 0, map[string]any{})
	unknown.ActionType = "teleport"
	unknown.StopOnError = &keepGoing

	wf := testWorkflow(unknown, step("s2", 1, map[string]any{}))

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.False(t, report.Success)

	assert.NotContains(t, report.Results, "s2")
	assert.Contains(t, report.Results["s1"].Error, "teleport")
}

func TestExecuteBranchJumpsToFirstResolvableTarget(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(
		step("s1", 0, map[string]any{"next_steps": []any{"ghost", "s3"}}),
		step("s2", 1, map[string]any{}),
		step("s3", 2, map[string]any{}),
	)

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, report.Success)

	// s2 was skipped by the jump; the unknown target was discarded
	assert.Contains(t, report.Results, "s1")
	assert.NotContains(t, report.Results, "s2")
	assert.Contains(t, report.Results, "s3")
}

func TestExecuteBranchWithNoResolvableTargetEnds(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(
		step("s1", 0, map[string]any{"next_steps": []any{"ghost"}}),
		step("s2", 1, map[string]any{}),
	)

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.NotContains(t, report.Results, "s2")
}

func TestExecuteEmptyWorkflowCompletes(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	report, err := executor.Execute(context.Background(), testWorkflow(), nil)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Results)
}

func TestExecuteEngineFaultIsRaisedAndRecorded(t *testing.T) {
	executions := newFakeExecutions()
	executions.failCreateStepLog = true
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(step("s1", 0, map[string]any{}))

	report, err := executor.Execute(context.Background(), wf, nil)
	require.Error(t, err)
	assert.Nil(t, report)

	// the fault is still written to the execution row
	for _, execution := range executions.executions {
		assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
		assert.Contains(t, execution.Error, "step log store unavailable")
	}
}

// recordingQueue captures enqueued delayed jobs.
type recordingQueue struct {
	jobs []queue.DelayedJob
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.DelayedJob) (string, error) {
	job.ID = "job-1"
	q.jobs = append(q.jobs, job)

	return job.ID, nil
}

func (q *recordingQueue) DequeueDue(_ context.Context, _ time.Time, _ int) ([]queue.DelayedJob, error) {
	return nil, nil
}

func (q *recordingQueue) Close(_ context.Context) error { return nil }

func TestExecuteQueuedDelayEndsWalk(t *testing.T) {
	executions := newFakeExecutions()
	delayedJobs := &recordingQueue{}
	scheduler := queue.NewScheduler(delayedJobs, testLogger()).WithMaxInlineDelay(time.Millisecond)

	r := testRegistry()
	r.RegisterAction(delay.NewFactory(scheduler))

	executor := NewExecutor(executions, r, testLogger())

	wait := &models.WorkflowStep{
		ID:         "wait",
		Name:       "wait",
		ActionType: models.ActionDelay,
		Position:   0,
		Configuration: map[string]any{
			"duration":     1,
			"unit":         "hours",
			"next_step_id": "s2",
		},
	}
	wf := testWorkflow(wait, step("s2", 1, map[string]any{}))

	report, err := executor.Execute(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.Equal(t, wf.ID, report.WorkflowID)

	// the walk ends at the queued delay; s2 belongs to the queue now
	assert.Contains(t, report.Results, "wait")
	assert.NotContains(t, report.Results, "s2")
	assert.Len(t, executions.stepLogs, 1)

	require.Len(t, delayedJobs.jobs, 1)
	assert.Equal(t, "s2", delayedJobs.jobs[0].StepID)
	assert.Equal(t, report.ExecutionID, delayedJobs.jobs[0].ExecutionID)

	assert.Equal(t, models.ExecutionStatusCompleted, executions.executions[report.ExecutionID].Status)
}

func TestResumeContinuesFromStoredContext(t *testing.T) {
	executions := newFakeExecutions()
	executor := NewExecutor(executions, testRegistry(), testLogger())

	wf := testWorkflow(
		step("s1", 0, map[string]any{}),
		step("s2", 1, map[string]any{"capture": "step_s1.note"}),
	)

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: wf.ID,
		SiteID:     wf.SiteID,
		Status:     models.ExecutionStatusRunning,
	}
	require.NoError(t, executions.CreateExecution(context.Background(), execution))

	executionCtx := models.NewExecutionContext("exec-1", wf, nil)
	executionCtx = executionCtx.WithStepOutput("s1", map[string]any{"note": "before the delay"})

	report, err := executor.Resume(context.Background(), wf, "s2", executionCtx)
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.Equal(t, "before the delay", report.Results["s2"].Output["seen"])
	assert.Equal(t, models.ExecutionStatusCompleted, executions.executions["exec-1"].Status)
}
