package delay

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/siteforge/relay/pkg/queue"
)

type Factory struct {
	scheduler *queue.Scheduler
}

func NewFactory(scheduler *queue.Scheduler) *Factory {
	return &Factory{scheduler: scheduler}
}

func (*Factory) ID() string {
	return string(models.ActionDelay)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.scheduler), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
			"unit": map[string]any{
				"type":        "string",
				"description": "seconds, minutes, hours or days; unknown units count as seconds.",
			},
			"next_step_id": map[string]any{
				"type":        "string",
				"description": "Step to resume with when the delay is served by the durable queue.",
			},
			"next_step_config": map[string]any{"type": "object"},
		},
		"required": []string{"duration"},
	}
}
