package sendemail

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) Send(_ context.Context, recipient string, _ protocol.EmailMessage) error {
	if f.failFor[recipient] {
		return errors.New("mailbox unavailable")
	}

	f.sent = append(f.sent, recipient)

	return nil
}

func execute(config map[string]any, sender protocol.EmailSender, vars map[string]any) *models.StepResult {
	action := NewAction(config, sender)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return action.Execute(context.Background(), models.ExecutionContext{Vars: vars}, logger)
}

func TestSendToSingleRecipientWithInterpolation(t *testing.T) {
	sender := &fakeSender{}
	vars := map[string]any{
		"trigger": map[string]any{"email": "ada@example.com", "name": "Ada"},
	}

	result := execute(map[string]any{
		"recipient": "{{trigger.email}}",
		"subject":   "Welcome {{trigger.name}}",
		"body":      "Hi {{trigger.name}}!",
	}, sender, vars)

	require.True(t, result.Success)
	assert.Equal(t, []string{"ada@example.com"}, sender.sent)
	assert.Equal(t, 1, result.Output["sent_count"])
}

func TestFanOutRequiresEveryRecipient(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"b@example.com": true}}

	result := execute(map[string]any{
		"recipients": []any{"a@example.com", "b@example.com", "c@example.com"},
		"subject":    "s",
		"body":       "b",
	}, sender, map[string]any{})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "b@example.com")

	flags := result.Output["recipients"].(map[string]any)
	assert.Equal(t, true, flags["a@example.com"])
	assert.Equal(t, false, flags["b@example.com"])
	assert.Equal(t, true, flags["c@example.com"])
	assert.Equal(t, 2, result.Output["sent_count"])
}

func TestNoRecipientsFails(t *testing.T) {
	result := execute(map[string]any{"subject": "s", "body": "b"}, &fakeSender{}, map[string]any{})
	require.False(t, result.Success)
}
