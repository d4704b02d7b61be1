// Package web provides the HTTP handlers of the workflow API: workflow
// management, trigger ingestion and execution inspection.
package web

import "github.com/siteforge/relay/pkg/models"

// StepRequest is one step of a workflow create or update request.
type StepRequest struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"          validate:"required,min=1"`
	ActionType    string         `json:"action_type"   validate:"required"`
	Position      int            `json:"position"`
	Configuration map[string]any `json:"configuration"`
	StopOnError   *bool          `json:"stop_on_error,omitempty"`
}

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description"`
	TriggerType   string         `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Active        bool           `json:"active"`
	Steps         []StepRequest  `json:"steps"          validate:"dive"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. All
// fields are optional to support partial updates; a nil Steps leaves the
// existing steps untouched.
type UpdateWorkflowRequest struct {
	Name          *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description   *string        `json:"description,omitempty"`
	TriggerType   *string        `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Active        *bool          `json:"active,omitempty"`
	Steps         []StepRequest  `json:"steps,omitempty"       validate:"omitempty,dive"`
}

func (r *StepRequest) toModel(position int) *models.WorkflowStep {
	pos := r.Position
	if pos == 0 {
		pos = position
	}

	return &models.WorkflowStep{
		ID:            r.ID,
		Name:          r.Name,
		ActionType:    models.ActionType(r.ActionType),
		Position:      pos,
		Configuration: r.Configuration,
		StopOnError:   r.StopOnError,
	}
}

func stepsToModels(steps []StepRequest) []*models.WorkflowStep {
	result := make([]*models.WorkflowStep, 0, len(steps))
	for i, step := range steps {
		result = append(result, step.toModel(i))
	}

	return result
}
