// Package workflow contains the engine core: the repository the engine
// reads definitions through, the executor that runs one workflow, and the
// trigger service that fans a trigger firing out to matching workflows.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

// Repository wraps the persistence layer with the engine's read rules:
// execution only ever sees active workflows with their steps ordered by
// position.
type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(persistence persistence.Persistence) *Repository {
	return &Repository{
		persistence: persistence,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "persistence layer is unhealthy: " + err.Error(), false
	}

	return "persistence layer is healthy", true
}

// FetchAll returns every workflow of a site, including inactive ones. Used
// by the admin API, not by execution.
func (r *Repository) FetchAll(ctx context.Context, siteID string) ([]*models.Workflow, error) {
	workflows, err := r.persistence.Workflows().All(ctx, siteID)
	if err != nil {
		return nil, err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := r.persistence.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

// FetchExecutable returns a workflow only if it may run: it must exist and
// be active.
func (r *Repository) FetchExecutable(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := r.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.Active {
		return nil, fmt.Errorf("%w: %s", persistence.ErrWorkflowInactive, id)
	}

	sortSteps(workflow)

	return workflow, nil
}

// MatchTrigger returns the active workflows of a site listening on the
// given trigger type, steps ordered by position.
func (r *Repository) MatchTrigger(ctx context.Context, siteID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	workflows, err := r.persistence.Workflows().ActiveByTrigger(ctx, siteID, triggerType)
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		sortSteps(workflow)
	}

	return workflows, nil
}

func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	for _, step := range workflow.Steps {
		if step.ID == "" {
			step.ID = uuid.New().String()
		}

		step.WorkflowID = workflow.ID
	}

	err := r.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := r.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	for _, step := range workflow.Steps {
		step.WorkflowID = id
	}

	err = r.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	return r.persistence.Workflows().Delete(ctx, id)
}

func sortSteps(workflow *models.Workflow) {
	sort.SliceStable(workflow.Steps, func(i, j int) bool {
		return workflow.Steps[i].Position < workflow.Steps[j].Position
	})
}
