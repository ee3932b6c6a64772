package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/pkg/config"
)

// ConsoleMailer writes messages to the application log instead of sending
// them. Default provider for development environments.
type ConsoleMailer struct {
	fromName  string
	fromEmail string
	logger    *zap.Logger
}

// NewConsoleMailer builds a log-only mailer.
func NewConsoleMailer(cfg config.MailerConfig, logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}
}

// Send logs the message body.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (console)",
		zap.String("from", m.fromEmail),
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}
