package record

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/protocol"
)

// Factory serves one of the three record operations; NewCreateFactory,
// NewUpdateFactory and NewDeleteFactory register the variants.
type Factory struct {
	id        models.ActionType
	operation Operation
	records   persistence.RecordRepository
}

func NewCreateFactory(records persistence.RecordRepository) *Factory {
	return &Factory{id: models.ActionCreateRecord, operation: OperationCreate, records: records}
}

func NewUpdateFactory(records persistence.RecordRepository) *Factory {
	return &Factory{id: models.ActionUpdateRecord, operation: OperationUpdate, records: records}
}

func NewDeleteFactory(records persistence.RecordRepository) *Factory {
	return &Factory{id: models.ActionDeleteRecord, operation: OperationDelete, records: records}
}

func (f *Factory) ID() string {
	return string(f.id)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.operation, config, f.records), nil
}

func (f *Factory) Schema() map[string]any {
	required := []string{"collection"}
	if f.operation != OperationCreate {
		required = append(required, "record_id")
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"record_id":  map[string]any{"type": "string"},
			"data":       map[string]any{"type": "object"},
		},
		"required": required,
	}
}
