// Package delay implements the delay workflow action. Short waits block the
// current execution; long waits are handed to the durable delayed-job queue
// through the scheduler.
package delay

import (
	"context"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/queue"
)

// Millisecond multipliers per configured unit. An unknown unit falls back
// to seconds.
var unitMultipliers = map[string]int64{
	"seconds": 1000,
	"minutes": 60_000,
	"hours":   3_600_000,
	"days":    86_400_000,
}

type Action struct {
	Duration       float64
	Unit           string
	NextStepID     string
	NextStepConfig map[string]any

	scheduler *queue.Scheduler
}

func NewAction(config map[string]any, scheduler *queue.Scheduler) *Action {
	duration, _ := coerceFloat(config["duration"])
	unit, _ := config["unit"].(string)
	nextStepID, _ := config["next_step_id"].(string)
	nextStepConfig, _ := config["next_step_config"].(map[string]any)

	return &Action{
		Duration:       duration,
		Unit:           unit,
		NextStepID:     nextStepID,
		NextStepConfig: nextStepConfig,
		scheduler:      scheduler,
	}
}

// Milliseconds converts the configured duration to milliseconds.
func (a *Action) Milliseconds() int64 {
	multiplier, ok := unitMultipliers[a.Unit]
	if !ok {
		multiplier = unitMultipliers["seconds"]
	}

	return int64(a.Duration * float64(multiplier))
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	delayMs := a.Milliseconds()

	var job *queue.DelayedJob
	if a.NextStepID != "" {
		job = &queue.DelayedJob{
			SiteID:      executionCtx.SiteID,
			WorkflowID:  executionCtx.WorkflowID,
			ExecutionID: executionCtx.ExecutionID,
			StepID:      a.NextStepID,
			StepConfig:  a.NextStepConfig,
			Context:     executionCtx,
		}
	}

	output, err := a.scheduler.Schedule(ctx, delayMs, job)
	if err != nil {
		return models.Failed(err.Error())
	}

	result := models.Succeeded(output)

	// Anything the scheduler did not serve inline ends the current walk:
	// for queued delays the queue owns the continuation, and the degraded
	// scheduled path has no continuation at all.
	if inline, _ := output["inline"].(bool); !inline {
		result.Deferred = true
	}

	return result
}

func coerceFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
