// Package models defines the core domain models for site workflow automation.
package models

import "time"

// TriggerType is the category of business event that can start a workflow.
type TriggerType string

const (
	TriggerFormSubmitted   TriggerType = "form_submitted"
	TriggerRecordCreated   TriggerType = "record_created"
	TriggerRecordUpdated   TriggerType = "record_updated"
	TriggerRecordDeleted   TriggerType = "record_deleted"
	TriggerUserSignedUp    TriggerType = "user_signed_up"
	TriggerUserLoggedIn    TriggerType = "user_logged_in"
	TriggerOrderPlaced     TriggerType = "order_placed"
	TriggerPaymentReceived TriggerType = "payment_received"
	TriggerScheduled       TriggerType = "scheduled"
	TriggerWebhook         TriggerType = "webhook"
	TriggerManual          TriggerType = "manual"
)

// KnownTriggerTypes lists every trigger type the engine accepts.
var KnownTriggerTypes = []TriggerType{
	TriggerFormSubmitted,
	TriggerRecordCreated,
	TriggerRecordUpdated,
	TriggerRecordDeleted,
	TriggerUserSignedUp,
	TriggerUserLoggedIn,
	TriggerOrderPlaced,
	TriggerPaymentReceived,
	TriggerScheduled,
	TriggerWebhook,
	TriggerManual,
}

// IsValid reports whether t is one of the known trigger types.
func (t TriggerType) IsValid() bool {
	for _, known := range KnownTriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Workflow is an automation definition owned by a site. The engine treats it
// as read-only: steps are loaded once per execution and never re-fetched.
type Workflow struct {
	ID            string          `json:"id"`
	SiteID        string          `json:"site_id"        validate:"required"`
	Name          string          `json:"name"           validate:"required,min=3"`
	Description   string          `json:"description"`
	TriggerType   TriggerType     `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Active        bool            `json:"active"`
	Steps         []*WorkflowStep `json:"steps"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// StepByID returns the step with the given ID, or nil.
func (w *Workflow) StepByID(stepID string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == stepID {
			return step
		}
	}

	return nil
}
