// Package email provides EmailSender implementations for the send_email
// action: SMTP for real delivery and a slog-backed sender for development.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/siteforge/relay/pkg/protocol"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender builds a sender for the relay at addr (host:port). Username
// may be empty for unauthenticated relays.
func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if idx := strings.IndexByte(addr, ':'); idx >= 0 {
			host = addr[:idx]
		}

		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPSender{addr: addr, from: from, auth: auth}
}

func (s *SMTPSender) Send(_ context.Context, recipient string, message protocol.EmailMessage) error {
	body := message.Body
	if message.CTAText != "" && message.CTAURL != "" {
		body += fmt.Sprintf("\r\n\r\n%s: %s", message.CTAText, message.CTAURL)
	}

	payload := strings.Join([]string{
		"From: " + s.from,
		"To: " + recipient,
		"Subject: " + message.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	err := smtp.SendMail(s.addr, s.auth, s.from, []string{recipient}, []byte(payload))
	if err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", recipient, err)
	}

	return nil
}
