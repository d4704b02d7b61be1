package loop

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return string(models.ActionLoop)
}

func (*Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"description": "A literal array or a dotted context path resolving to one.",
			},
			"steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"items"},
	}
}
