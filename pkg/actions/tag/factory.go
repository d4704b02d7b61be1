package tag

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct {
	id        models.ActionType
	operation Operation
	records   persistence.RecordRepository
}

func NewAddFactory(records persistence.RecordRepository) *Factory {
	return &Factory{id: models.ActionAddTag, operation: OperationAdd, records: records}
}

func NewRemoveFactory(records persistence.RecordRepository) *Factory {
	return &Factory{id: models.ActionRemoveTag, operation: OperationRemove, records: records}
}

func (f *Factory) ID() string {
	return string(f.id)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.operation, config, f.records), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"record_id":  map[string]any{"type": "string"},
			"tag":        map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"collection", "record_id", "tag"},
	}
}
