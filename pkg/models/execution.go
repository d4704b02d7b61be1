package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
// running is the only non-terminal state.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// WorkflowExecution is one run of a workflow in response to one trigger
// firing. Created once per firing and mutated only by the executor.
type WorkflowExecution struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	SiteID      string                 `json:"site_id"`
	TriggerType TriggerType            `json:"trigger_type"`
	TriggerData map[string]any         `json:"trigger_data,omitempty"`
	Status      ExecutionStatus        `json:"status"`
	Results     map[string]*StepResult `json:"results,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// StepStatus is the lifecycle state of a single step run.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepLog is the persisted audit trail for one step of one execution:
// a row is created when the step begins and updated when it ends.
type StepLog struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepID      string         `json:"step_id"`
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
