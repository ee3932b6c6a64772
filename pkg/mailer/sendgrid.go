package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/pkg/config"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	key    string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridMailer builds a SendGrid-backed mailer.
func NewSendGridMailer(cfg config.MailerConfig, logger *zap.Logger) *SendGridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{
		key:    cfg.APIKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send posts the message to SendGrid.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("recipient email required")
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	if msg.TextBody != "" {
		v3.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, sendGridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Warn("sendgrid rejected message",
			zap.Int("status", res.StatusCode),
			zap.String("subject", msg.Subject),
		)
		return fmt.Errorf("sendgrid responded with status %d", res.StatusCode)
	}
	return nil
}
