// Package queue provides the durable delayed-job queue collaborator and the
// inline-versus-durable dispatch policy for delay steps.
package queue

import (
	"context"
	"time"

	"github.com/siteforge/relay/pkg/models"
)

// DelayedJob carries everything needed to resume a workflow at a given step
// after a delay elapses. At-most-once delivery is the queue's concern, not
// the engine's.
type DelayedJob struct {
	ID          string                  `json:"id"`
	SiteID      string                  `json:"site_id"`
	WorkflowID  string                  `json:"workflow_id"`
	ExecutionID string                  `json:"execution_id"`
	StepID      string                  `json:"step_id"`
	StepConfig  map[string]any          `json:"step_config,omitempty"`
	Context     models.ExecutionContext `json:"context"`
	DelayMs     int64                   `json:"delay_ms"`
	ResumeAt    time.Time               `json:"resume_at"`
}

// Queue is the durable delayed-job collaborator.
type Queue interface {
	Enqueue(ctx context.Context, job DelayedJob) (string, error)

	// DequeueDue atomically claims jobs whose resume time has passed.
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]DelayedJob, error)

	Close(ctx context.Context) error
}
