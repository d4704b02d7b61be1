// Package registry holds the action factories the executor dispatches on.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
)

// ErrUnknownActionType is wrapped by CreateAction when no factory is
// registered for the requested action type. The executor treats this as a
// fatal step failure regardless of the step's stop-on-error override.
var ErrUnknownActionType = fmt.Errorf("unknown action type")

type Registry struct {
	logger          *slog.Logger
	actionFactories map[models.ActionType]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[models.ActionType]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[models.ActionType(factory.ID())] = factory
}

// CreateAction validates config against the factory schema and builds the
// handler for the given action type.
func (r *Registry) CreateAction(actionType models.ActionType, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, actionType)
	}

	err := ValidateConfig(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for action %q: %w", actionType, err)
	}

	return factory.Create(config)
}

// HasAction reports whether a factory is registered for the action type.
func (r *Registry) HasAction(actionType models.ActionType) bool {
	_, ok := r.actionFactories[actionType]

	return ok
}

// ActionTypes returns the registered action types.
func (r *Registry) ActionTypes() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}
