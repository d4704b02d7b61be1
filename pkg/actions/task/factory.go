package task

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
	return string(models.ActionCreateTask)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.records), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
			"assignee":    map[string]any{"type": "string"},
			"due_at": map[string]any{
				"type":        "string",
				"description": "RFC 3339 timestamp, templates allowed.",
			},
		},
		"required": []string{"title"},
	}
}
