// Package persistence provides the data storage abstraction consumed by the
// workflow engine: workflow definitions, execution bookkeeping, and the
// generic site record store.
package persistence

import (
	"context"

	"github.com/siteforge/relay/pkg/models"
)

// Persistence bundles the per-entity repositories of one backing store.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Records() RecordRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository reads and writes workflow definitions. The engine only
// reads; writes serve the admin API.
type WorkflowRepository interface {
	All(ctx context.Context, siteID string) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)

	// ActiveByTrigger returns the active workflows of a site whose trigger
	// type matches, steps loaded and ordered by position.
	ActiveByTrigger(ctx context.Context, siteID string, triggerType models.TriggerType) ([]*models.Workflow, error)

	// AllByTrigger returns the active workflows of every site whose trigger
	// type matches. The cron dispatcher uses it to register schedules.
	AllByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)

	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository persists execution rows and their step logs.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)

	CreateStepLog(ctx context.Context, stepLog *models.StepLog) error
	UpdateStepLog(ctx context.Context, stepLog *models.StepLog) error
	StepLogsByExecution(ctx context.Context, executionID string) ([]*models.StepLog, error)
}

// RecordRepository is the generic record store plus the tag, role, task and
// notification rows workflow actions operate on.
type RecordRepository interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	UpdateRecord(ctx context.Context, record *models.Record) error
	DeleteRecord(ctx context.Context, siteID, collection, id string) error
	RecordByID(ctx context.Context, siteID, collection, id string) (*models.Record, error)

	Tags(ctx context.Context, siteID, collection, recordID string) ([]string, error)
	SetTags(ctx context.Context, siteID, collection, recordID string, tags []string) error

	RoleAssignmentExists(ctx context.Context, siteID, userID, role string) (bool, error)
	CreateRoleAssignment(ctx context.Context, assignment *models.RoleAssignment) error

	CreateTask(ctx context.Context, task *models.Task) error
	CreateNotification(ctx context.Context, notification *models.Notification) error
}
