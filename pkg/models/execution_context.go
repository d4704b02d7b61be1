package models

import "maps"

// Context variable roots.
const (
	ContextKeyTrigger    = "trigger"
	ContextKeyWorkflow   = "workflow"
	ContextStepKeyPrefix = "step_"
)

// ExecutionContext is the accumulated variable state of one execution:
// the trigger payload plus prior step outputs, addressable by dotted paths
// during interpolation and condition evaluation. Each context is owned by
// exactly one execution and never shared or persisted directly.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	SiteID      string         `json:"site_id"`
	Vars        map[string]any `json:"vars"`
}

// NewExecutionContext seeds the context with the trigger payload and the
// workflow identity.
func NewExecutionContext(executionID string, workflow *Workflow, triggerData map[string]any) ExecutionContext {
	vars := map[string]any{
		ContextKeyTrigger: triggerData,
		ContextKeyWorkflow: map[string]any{
			"id":   workflow.ID,
			"name": workflow.Name,
		},
	}

	return ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		SiteID:      workflow.SiteID,
		Vars:        vars,
	}
}

// WithStepOutput returns a copy of the context extended with the output of
// the given step under "step_<stepID>". The receiver is left untouched so
// handlers never observe mutation by later steps.
func (c ExecutionContext) WithStepOutput(stepID string, output map[string]any) ExecutionContext {
	next := c
	next.Vars = make(map[string]any, len(c.Vars)+1)
	maps.Copy(next.Vars, c.Vars)
	next.Vars[ContextStepKeyPrefix+stepID] = output

	return next
}
