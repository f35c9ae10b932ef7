package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/ports"
)

// LogMailer writes messages to the log instead of sending them. It is used
// when no Postmark token is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg ports.Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("email not sent: no mail provider configured")
	return nil
}
