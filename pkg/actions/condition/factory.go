package condition

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return string(models.ActionCondition)
}

func (*Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"conditions": map[string]any{
				"type":        "array",
				"description": "Clauses evaluated against the execution context.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field":    map[string]any{"type": "string"},
						"operator": map[string]any{"type": "string"},
						"value":    map[string]any{},
					},
					"required": []string{"field", "operator"},
				},
			},
			"logic": map[string]any{
				"type": "string",
				"enum": []string{"and", "or"},
			},
			"true_steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"false_steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}
