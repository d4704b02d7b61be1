package webhook

import (
	"net/http"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct {
	client *http.Client
}

func NewFactory(client *http.Client) *Factory {
	return &Factory{client: client}
}

func (*Factory) ID() string {
	return string(models.ActionSendWebhook)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.client), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":   "string",
				"format": "uri",
			},
			"method": map[string]any{
				"type": "string",
				"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}
}
