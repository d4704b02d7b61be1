package models

// ActionType is the kind of operation a workflow step performs.
type ActionType string

const (
	ActionSendEmail        ActionType = "send_email"
	ActionSendWebhook      ActionType = "send_webhook"
	ActionCreateRecord     ActionType = "create_record"
	ActionUpdateRecord     ActionType = "update_record"
	ActionDeleteRecord     ActionType = "delete_record"
	ActionAddTag           ActionType = "add_tag"
	ActionRemoveTag        ActionType = "remove_tag"
	ActionAssignRole       ActionType = "assign_role"
	ActionDelay            ActionType = "delay"
	ActionCondition        ActionType = "condition"
	ActionLoop             ActionType = "loop"
	ActionCreateTask       ActionType = "create_task"
	ActionSendNotification ActionType = "send_notification"
)

// WorkflowStep is one ordered unit of work inside a workflow. Position
// defines the default successor; branching steps override it through
// StepResult.NextSteps.
type WorkflowStep struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	Name          string         `json:"name"          validate:"required"`
	ActionType    ActionType     `json:"action_type"   validate:"required"`
	Position      int            `json:"position"`
	Configuration map[string]any `json:"configuration"`
	StopOnError   *bool          `json:"stop_on_error,omitempty"`
}

// StopsOnError reports whether a failure of this step halts the run.
// The default, when no override is set, is to stop.
func (s *WorkflowStep) StopsOnError() bool {
	if s.StopOnError == nil {
		return true
	}

	return *s.StopOnError
}
