// Package sendemail implements the send_email workflow action. It fans out
// over one or more recipients through an injected protocol.EmailSender; the
// step only succeeds when every recipient is delivered.
package sendemail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/protocol"
	"github.com/siteforge/relay/pkg/template"
)

type Action struct {
	Recipients []string
	Subject    string
	Body       string
	CTAText    string
	CTAURL     string

	sender protocol.EmailSender
}

func NewAction(config map[string]any, sender protocol.EmailSender) *Action {
	recipients := []string{}

	if single, ok := config["recipient"].(string); ok && single != "" {
		recipients = append(recipients, single)
	}

	if list, ok := config["recipients"].([]any); ok {
		for _, raw := range list {
			if recipient, ok := raw.(string); ok && recipient != "" {
				recipients = append(recipients, recipient)
			}
		}
	}

	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)
	ctaText, _ := config["cta_text"].(string)
	ctaURL, _ := config["cta_url"].(string)

	return &Action{
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		CTAText:    ctaText,
		CTAURL:     ctaURL,
		sender:     sender,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepResult {
	if len(a.Recipients) == 0 {
		return models.Failed("send_email requires at least one recipient")
	}

	message := protocol.EmailMessage{
		Subject: template.Render(a.Subject, executionCtx.Vars),
		Body:    template.Render(a.Body, executionCtx.Vars),
		CTAText: template.Render(a.CTAText, executionCtx.Vars),
		CTAURL:  template.Render(a.CTAURL, executionCtx.Vars),
	}

	delivered := make(map[string]any, len(a.Recipients))
	failed := []string{}

	for _, configured := range a.Recipients {
		recipient := template.Render(configured, executionCtx.Vars)

		err := a.sender.Send(ctx, recipient, message)
		delivered[recipient] = err == nil

		if err != nil {
			logger.ErrorContext(ctx, "Email delivery failed", "recipient", recipient, "error", err)
			failed = append(failed, recipient)
		}
	}

	output := map[string]any{
		"recipients": delivered,
		"sent_count": len(a.Recipients) - len(failed),
	}

	if len(failed) > 0 {
		return &models.StepResult{
			Success: false,
			Output:  output,
			Error:   fmt.Sprintf("failed to send email to %s", strings.Join(failed, ", ")),
		}
	}

	return models.Succeeded(output)
}
