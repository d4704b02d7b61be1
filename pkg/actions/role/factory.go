package role

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct {
	records persistence.RecordRepository
}

func NewFactory(records persistence.RecordRepository) *Factory {
	return &Factory{records: records}
}

func (*Factory) ID() string {
	return string(models.ActionAssignRole)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.records), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{"type": "string", "minLength": 1},
			"role":    map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"user_id", "role"},
	}
}
