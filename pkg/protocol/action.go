// Package protocol defines the interfaces between the workflow engine and
// its action handlers and external collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
)

// Action is one executable workflow step handler. Execute never returns an
// error: every internal fault, collaborator failure included, is converted
// into a failed StepResult so the executor's bookkeeping stays consistent
// even when an action's external dependency is down.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult
}

// ActionFactory builds Action instances from step configuration.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string

	// Schema returns the JSON schema the step configuration is validated
	// against before Create is called.
	Schema() map[string]any
}
