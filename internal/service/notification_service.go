package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/mailer"
)

// NotificationConfig holds the settings outbound emails depend on.
type NotificationConfig struct {
	// PublicBaseURL is the address the frontend is served from. Links in
	// email bodies are built against it.
	PublicBaseURL string
}

// NotificationService turns domain events into outbound emails. All sends are
// fire-and-forget from the caller's perspective: failures surface as errors so
// the owning service can log them, but never abort the triggering operation.
type NotificationService struct {
	mailer  mailer.Mailer
	logger  *zap.Logger
	baseURL string
}

// NewNotificationService builds the notification service. A nil mailer turns
// every send into a no-op, which keeps tests and stripped-down deployments
// from needing a provider.
func NewNotificationService(m mailer.Mailer, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		mailer:  m,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// SendWelcome greets a freshly registered account.
func (s *NotificationService) SendWelcome(ctx context.Context, user *models.User) error {
	if user == nil || user.Email == "" {
		return nil
	}

	var next string
	switch user.Role {
	case models.RoleStudent:
		next = "browse programs and start your first application"
	case models.RoleAgent:
		next = "add your students and track applications and commissions"
	case models.RoleUniversity:
		next = "review the applications arriving for your institution"
	default:
		next = "get started"
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour Unidoxia account is ready. Sign in at %s to %s.\n\nThe Unidoxia Team",
		user.FullName, s.signInURL(), next)

	return s.send(ctx, user.FullName, user.Email, "Welcome to Unidoxia", body)
}

// SendApplicationSubmitted confirms a wizard submission to the student.
func (s *NotificationService) SendApplicationSubmitted(ctx context.Context, email, studentName, programName, universityName string) error {
	if email == "" {
		return nil
	}

	subject := fmt.Sprintf("Application received: %s", programName)
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your application to %s at %s. The admissions team will review it and you will be notified whenever the status changes.\n\nFollow your application at %s.\n\nThe Unidoxia Team",
		studentName, programName, universityName, s.applicationsURL())

	return s.send(ctx, studentName, email, subject, body)
}

// SendStatusChanged tells the student their application moved to a new status.
// An optional note from the deciding university is included verbatim.
func (s *NotificationService) SendStatusChanged(ctx context.Context, application *models.ApplicationDetail, to models.ApplicationStatus, note string) error {
	if application == nil || application.StudentEmail == "" {
		return nil
	}

	label := statusLabel(to)
	subject := fmt.Sprintf("Application update: %s", label)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour application to %s at %s is now %s.",
		application.StudentName, application.ProgramName, application.UniversityName, label)
	if note != "" {
		fmt.Fprintf(&b, "\n\nNote from the university:\n%s", note)
	}
	fmt.Fprintf(&b, "\n\nSee the details at %s.\n\nThe Unidoxia Team", s.applicationURL(application.ID))

	return s.send(ctx, application.StudentName, application.StudentEmail, subject, b.String())
}

// SendMessageReceived pings the other half of a conversation. The preview is
// already trimmed by the message service.
func (s *NotificationService) SendMessageReceived(ctx context.Context, email, senderName, preview string) error {
	if email == "" {
		return nil
	}

	subject := fmt.Sprintf("New message from %s", senderName)
	body := fmt.Sprintf(
		"%s wrote:\n\n%s\n\nReply at %s.\n\nThe Unidoxia Team",
		senderName, preview, s.messagesURL())

	return s.send(ctx, "", email, subject, body)
}

func (s *NotificationService) send(ctx context.Context, toName, toEmail, subject, body string) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.Send(ctx, mailer.Message{
		ToName:   toName,
		ToEmail:  toEmail,
		Subject:  subject,
		TextBody: body,
	})
}

func (s *NotificationService) signInURL() string {
	return s.baseURL + "/login"
}

func (s *NotificationService) applicationsURL() string {
	return s.baseURL + "/applications"
}

func (s *NotificationService) applicationURL(id string) string {
	return fmt.Sprintf("%s/applications/%s", s.baseURL, id)
}

func (s *NotificationService) messagesURL() string {
	return s.baseURL + "/messages"
}

// statusLabel renders an application status for humans: underscores become
// spaces and only the first letter stays capitalized.
func statusLabel(status models.ApplicationStatus) string {
	text := strings.ReplaceAll(string(status), "_", " ")
	if text == "" {
		return text
	}
	text = strings.ToLower(text)
	return strings.ToUpper(text[:1]) + text[1:]
}
