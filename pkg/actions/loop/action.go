// Package loop implements the loop workflow action. The handler resolves the
// iterable and records which sub-steps apply to each item; the executor does
// not re-enter the step list per item, so the output is a plan, not a
// fan-out. The result shape is stable API for callers.
package loop

import (
	"context"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/template"
)

const errNotArray = "Loop items must be an array"

type Action struct {
	Items any      // literal list or dotted context path
	Steps []string // sub-step ids applied to each item
}

func NewAction(config map[string]any) *Action {
	steps, _ := config["steps"].([]any)

	stepIDs := make([]string, 0, len(steps))
	for _, raw := range steps {
		if id, ok := raw.(string); ok {
			stepIDs = append(stepIDs, id)
		}
	}

	return &Action{
		Items: config["items"],
		Steps: stepIDs,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	resolved := a.Items

	// A string configuration is a context path to the iterable.
	if path, ok := a.Items.(string); ok {
		value, found := template.Lookup(executionCtx.Vars, path)
		if !found {
			return models.Failed(errNotArray)
		}

		resolved = value
	}

	items, ok := resolved.([]any)
	if !ok {
		return models.Failed(errNotArray)
	}

	results := make([]any, 0, len(items))
	for _, item := range items {
		results = append(results, map[string]any{
			"item":  item,
			"steps": a.Steps,
		})
	}

	logger.DebugContext(ctx, "Planned loop iterations", "item_count", len(items))

	return models.Succeeded(map[string]any{
		"item_count": len(items),
		"results":    results,
	})
}
