package ports

import "context"

// Message is an outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers email. Implementations may queue delivery.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
