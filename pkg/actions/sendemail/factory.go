package sendemail

import (
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
)

type Factory struct {
	sender protocol.EmailSender
}

func NewFactory(sender protocol.EmailSender) *Factory {
	return &Factory{sender: sender}
}

func (*Factory) ID() string {
	return string(models.ActionSendEmail)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.sender), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string"},
			"recipients": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"subject":  map[string]any{"type": "string"},
			"body":     map[string]any{"type": "string"},
			"cta_text": map[string]any{"type": "string"},
			"cta_url":  map[string]any{"type": "string"},
		},
		"required": []string{"subject", "body"},
	}
}
