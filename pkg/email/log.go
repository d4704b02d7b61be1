package email

import (
	"context"
	"log/slog"

	"github.com/siteforge/relay/pkg/protocol"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development and as the default when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "email_log_sender")}
}

func (s *LogSender) Send(ctx context.Context, recipient string, message protocol.EmailMessage) error {
	s.logger.InfoContext(ctx, "Email (log sender, not delivered)",
		"recipient", recipient,
		"subject", message.Subject,
		"cta_url", message.CTAURL)

	return nil
}
