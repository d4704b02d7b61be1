package schedule

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/models"
)

type scheduledWorkflows struct {
	workflows []*models.Workflow
}

func (s *scheduledWorkflows) All(context.Context, string) ([]*models.Workflow, error) {
	return s.workflows, nil
}

func (s *scheduledWorkflows) ByID(context.Context, string) (*models.Workflow, error) {
	return nil, nil
}

func (s *scheduledWorkflows) ActiveByTrigger(context.Context, string, models.TriggerType) ([]*models.Workflow, error) {
	return nil, nil
}

func (s *scheduledWorkflows) AllByTrigger(_ context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	matches := []*models.Workflow{}
	for _, workflow := range s.workflows {
		if workflow.Active && workflow.TriggerType == triggerType {
			matches = append(matches, workflow)
		}
	}

	return matches, nil
}

func (s *scheduledWorkflows) Save(context.Context, *models.Workflow) error { return nil }
func (s *scheduledWorkflows) Delete(context.Context, string) error         { return nil }

type recordingPublisher struct {
	mu        sync.Mutex
	published []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)

	return nil
}

func (p *recordingPublisher) events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.Event{}, p.published...)
}

func scheduled(id, expr string) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		SiteID:        "site-1",
		Name:          "nightly " + id,
		TriggerType:   models.TriggerScheduled,
		TriggerConfig: map[string]any{"cron": expr},
		Active:        true,
	}
}

func TestSyncRegistersSchedules(t *testing.T) {
	repo := &scheduledWorkflows{workflows: []*models.Workflow{
		scheduled("wf-a", "0 2 * * *"),
		scheduled("wf-b", "*/5 * * * *"),
	}}

	dispatcher := NewDispatcher(repo, &recordingPublisher{}, slog.Default())

	require.NoError(t, dispatcher.Sync(context.Background()))
	assert.ElementsMatch(t, []string{"wf-a", "wf-b"}, dispatcher.WorkflowIDs())
}

func TestSyncSkipsInvalidExpressions(t *testing.T) {
	repo := &scheduledWorkflows{workflows: []*models.Workflow{
		scheduled("wf-good", "0 2 * * *"),
		scheduled("wf-bad", "not a cron"),
		scheduled("wf-empty", ""),
	}}

	dispatcher := NewDispatcher(repo, &recordingPublisher{}, slog.Default())

	require.NoError(t, dispatcher.Sync(context.Background()))
	assert.Equal(t, []string{"wf-good"}, dispatcher.WorkflowIDs())
}

func TestSyncRemovesStaleSchedules(t *testing.T) {
	repo := &scheduledWorkflows{workflows: []*models.Workflow{
		scheduled("wf-a", "0 2 * * *"),
		scheduled("wf-b", "0 3 * * *"),
	}}

	dispatcher := NewDispatcher(repo, &recordingPublisher{}, slog.Default())
	require.NoError(t, dispatcher.Sync(context.Background()))
	require.Len(t, dispatcher.WorkflowIDs(), 2)

	// wf-b deactivated between refreshes
	repo.workflows[1].Active = false

	require.NoError(t, dispatcher.Sync(context.Background()))
	assert.Equal(t, []string{"wf-a"}, dispatcher.WorkflowIDs())
}

func TestFirePublishesTriggerEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	dispatcher := NewDispatcher(&scheduledWorkflows{}, publisher, slog.Default())

	dispatcher.fire("wf-a", "site-1")

	published := publisher.events()
	require.Len(t, published, 1)

	triggered, ok := published[0].(events.WorkflowTriggered)
	require.True(t, ok)
	assert.Equal(t, models.TriggerScheduled, triggered.TriggerType)
	assert.Equal(t, "wf-a", triggered.WorkflowID)
	assert.Equal(t, "site-1", triggered.SiteID)
	assert.Equal(t, "wf-a", triggered.TriggerData["workflow_id"])
}
