package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects a mailer implementation from configuration. Unknown providers
// fall back to the console mailer so notifications never block startup.
func New(cfg config.MailerConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridMailer(cfg, logger)
	default:
		return NewConsoleMailer(cfg, logger)
	}
}
