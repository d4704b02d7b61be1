package protocol

import "context"

// EmailMessage is the payload handed to the email collaborator.
type EmailMessage struct {
	Subject string
	Body    string
	CTAText string
	CTAURL  string
}

// EmailSender delivers a message to a single recipient. Implementations live
// outside the engine; the send_email action fans out over recipients.
type EmailSender interface {
	Send(ctx context.Context, recipient string, message EmailMessage) error
}
