package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkflows is an in-memory WorkflowRepository.
type fakeWorkflows struct {
	workflows []*models.Workflow
	failWith  error
}

func (f *fakeWorkflows) All(_ context.Context, siteID string) ([]*models.Workflow, error) {
	matches := []*models.Workflow{}
	for _, workflow := range f.workflows {
		if workflow.SiteID == siteID {
			matches = append(matches, workflow)
		}
	}

	return matches, nil
}

func (f *fakeWorkflows) ByID(_ context.Context, id string) (*models.Workflow, error) {
	for _, workflow := range f.workflows {
		if workflow.ID == id {
			return workflow, nil
		}
	}

	return nil, persistence.ErrWorkflowNotFound
}

func (f *fakeWorkflows) ActiveByTrigger(_ context.Context, siteID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}

	matches := []*models.Workflow{}
	for _, workflow := range f.workflows {
		if workflow.SiteID == siteID && workflow.Active && workflow.TriggerType == triggerType {
			matches = append(matches, workflow)
		}
	}

	return matches, nil
}

func (f *fakeWorkflows) AllByTrigger(_ context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}

	matches := []*models.Workflow{}
	for _, workflow := range f.workflows {
		if workflow.Active && workflow.TriggerType == triggerType {
			matches = append(matches, workflow)
		}
	}

	return matches, nil
}

func (f *fakeWorkflows) Save(_ context.Context, workflow *models.Workflow) error {
	f.workflows = append(f.workflows, workflow)

	return nil
}

func (f *fakeWorkflows) Delete(_ context.Context, _ string) error { return nil }

type fakePersistence struct {
	workflows  *fakeWorkflows
	executions *fakeExecutions
}

func (f *fakePersistence) Workflows() persistence.WorkflowRepository   { return f.workflows }
func (f *fakePersistence) Executions() persistence.ExecutionRepository { return f.executions }
func (f *fakePersistence) Records() persistence.RecordRepository       { return nil }
func (f *fakePersistence) HealthCheck(_ context.Context) error         { return nil }
func (f *fakePersistence) Close(_ context.Context) error               { return nil }

func triggerFixture() (*TriggerService, *fakeWorkflows, *fakeExecutions) {
	workflows := &fakeWorkflows{}
	executions := newFakeExecutions()
	store := &fakePersistence{workflows: workflows, executions: executions}

	repository := NewRepository(store)
	executor := NewExecutor(executions, testRegistry(), testLogger())

	return NewTriggerService(repository, executor, testLogger()), workflows, executions
}

func TestRunWithNoMatchingWorkflows(t *testing.T) {
	service, _, _ := triggerFixture()

	report, err := service.Run(context.Background(), "site-1", models.TriggerFormSubmitted, nil)
	require.NoError(t, err)
	assert.Zero(t, report.ExecutedCount)
	assert.Empty(t, report.Reports)
}

func TestRunIgnoresUnknownTriggerType(t *testing.T) {
	service, _, _ := triggerFixture()

	report, err := service.Run(context.Background(), "site-1", "comet_sighted", nil)
	require.NoError(t, err)
	assert.Zero(t, report.ExecutedCount)
}

func TestRunExecutesEveryMatch(t *testing.T) {
	service, workflows, executions := triggerFixture()

	for _, id := range []string{"wf-a", "wf-b"} {
		wf := testWorkflow(step(id+"-s1", 0, map[string]any{}))
		wf.ID = id
		workflows.workflows = append(workflows.workflows, wf)
	}

	inactive := testWorkflow(step("s1", 0, map[string]any{}))
	inactive.ID = "wf-c"
	inactive.Active = false
	workflows.workflows = append(workflows.workflows, inactive)

	otherTrigger := testWorkflow(step("s1", 0, map[string]any{}))
	otherTrigger.ID = "wf-d"
	otherTrigger.TriggerType = models.TriggerOrderPlaced
	workflows.workflows = append(workflows.workflows, otherTrigger)

	report, err := service.Run(context.Background(), "site-1", models.TriggerFormSubmitted, map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExecutedCount)
	assert.Len(t, executions.executions, 2)
}

func TestRunIsolatesWorkflowFaults(t *testing.T) {
	service, workflows, executions := triggerFixture()

	// first workflow halts on a step failure, second still runs
	failing := testWorkflow(step("f-s1", 0, map[string]any{"fail": "boom"}))
	failing.ID = "wf-fail"

	healthy := testWorkflow(step("h-s1", 0, map[string]any{}))
	healthy.ID = "wf-ok"

	workflows.workflows = append(workflows.workflows, failing, healthy)

	report, err := service.Run(context.Background(), "site-1", models.TriggerFormSubmitted, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExecutedCount)
	assert.Len(t, executions.executions, 2)

	outcomes := map[string]bool{}
	for _, run := range report.Reports {
		outcomes[run.WorkflowID] = run.Success
	}

	assert.Equal(t, map[string]bool{"wf-fail": false, "wf-ok": true}, outcomes)
}

func TestRunReportsEngineFaultedWorkflow(t *testing.T) {
	service, workflows, executions := triggerFixture()

	// the first workflow faults before its execution row exists
	faulted := testWorkflow(step("f-s1", 0, map[string]any{}))
	faulted.ID = "wf-fault"

	healthy := testWorkflow(step("h-s1", 0, map[string]any{}))
	healthy.ID = "wf-ok"

	workflows.workflows = append(workflows.workflows, faulted, healthy)
	executions.failCreateExecutionFor = "wf-fault"

	report, err := service.Run(context.Background(), "site-1", models.TriggerFormSubmitted, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExecutedCount)
	require.Len(t, report.Reports, 2)

	byWorkflow := map[string]*Report{}
	for _, run := range report.Reports {
		byWorkflow[run.WorkflowID] = run
	}

	require.Contains(t, byWorkflow, "wf-fault")
	assert.False(t, byWorkflow["wf-fault"].Success)
	assert.Contains(t, byWorkflow["wf-fault"].Error, "execution store unavailable")
	assert.True(t, byWorkflow["wf-ok"].Success)
}

func TestRunLookupFailureReturnsEmptyReport(t *testing.T) {
	service, workflows, executions := triggerFixture()
	workflows.failWith = errors.New("store offline")

	// a broken lookup must not surface to the business operation that fired
	// the trigger
	report, err := service.Run(context.Background(), "site-1", models.TriggerFormSubmitted, nil)
	require.NoError(t, err)
	assert.Zero(t, report.ExecutedCount)
	assert.Empty(t, report.Reports)
	assert.Empty(t, executions.executions)
}
