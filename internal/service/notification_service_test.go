package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/mailer"
)

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newNotificationFixture() (*recordingMailer, *NotificationService) {
	m := &recordingMailer{}
	svc := NewNotificationService(m, nil, NotificationConfig{PublicBaseURL: "https://app.unidoxia.com/"})
	return m, svc
}

func TestNotificationSendWelcome(t *testing.T) {
	m, svc := newNotificationFixture()

	err := svc.SendWelcome(context.Background(), &models.User{
		Email:    "amara@example.com",
		FullName: "Amara Okafor",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "amara@example.com", msg.ToEmail)
	assert.Equal(t, "Amara Okafor", msg.ToName)
	assert.Equal(t, "Welcome to Unidoxia", msg.Subject)
	assert.Contains(t, msg.TextBody, "https://app.unidoxia.com/login")
	assert.Contains(t, msg.TextBody, "browse programs")
}

func TestNotificationSendWelcomeSkipsEmptyTargets(t *testing.T) {
	m, svc := newNotificationFixture()

	require.NoError(t, svc.SendWelcome(context.Background(), nil))
	require.NoError(t, svc.SendWelcome(context.Background(), &models.User{FullName: "No Email"}))
	assert.Empty(t, m.sent)
}

func TestNotificationSendApplicationSubmitted(t *testing.T) {
	m, svc := newNotificationFixture()

	err := svc.SendApplicationSubmitted(context.Background(),
		"amara@example.com", "Amara Okafor", "MSc Data Science", "Leiden University")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "Application received: MSc Data Science", msg.Subject)
	assert.Contains(t, msg.TextBody, "Leiden University")
	assert.Contains(t, msg.TextBody, "https://app.unidoxia.com/applications")
}

func TestNotificationSendStatusChanged(t *testing.T) {
	m, svc := newNotificationFixture()

	detail := &models.ApplicationDetail{
		Application:    models.Application{ID: "app-1"},
		StudentName:    "Amara Okafor",
		StudentEmail:   "amara@example.com",
		ProgramName:    "MSc Data Science",
		UniversityName: "Leiden University",
	}

	err := svc.SendStatusChanged(context.Background(), detail, models.ApplicationStatusOfferIssued, "Congratulations, see the attached offer letter.")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "Application update: Offer issued", msg.Subject)
	assert.Contains(t, msg.TextBody, "is now Offer issued")
	assert.Contains(t, msg.TextBody, "Note from the university:")
	assert.Contains(t, msg.TextBody, "Congratulations, see the attached offer letter.")
	assert.Contains(t, msg.TextBody, "https://app.unidoxia.com/applications/app-1")
}

func TestNotificationSendStatusChangedWithoutNote(t *testing.T) {
	m, svc := newNotificationFixture()

	detail := &models.ApplicationDetail{
		Application:  models.Application{ID: "app-2"},
		StudentName:  "Amara Okafor",
		StudentEmail: "amara@example.com",
		ProgramName:  "MSc Data Science",
	}

	require.NoError(t, svc.SendStatusChanged(context.Background(), detail, models.ApplicationStatusUnderReview, ""))
	require.Len(t, m.sent, 1)
	assert.NotContains(t, m.sent[0].TextBody, "Note from the university:")
	assert.Contains(t, m.sent[0].TextBody, "is now Under review")
}

func TestNotificationSendMessageReceived(t *testing.T) {
	m, svc := newNotificationFixture()

	err := svc.SendMessageReceived(context.Background(),
		"kemi@lagospartners.example", "Amara Okafor", "Could you confirm the transcript upload?")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	msg := m.sent[0]
	assert.Equal(t, "New message from Amara Okafor", msg.Subject)
	assert.Contains(t, msg.TextBody, "Could you confirm the transcript upload?")
	assert.Contains(t, msg.TextBody, "https://app.unidoxia.com/messages")
}

func TestNotificationPropagatesMailerError(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp down")}
	svc := NewNotificationService(m, nil, NotificationConfig{})

	err := svc.SendMessageReceived(context.Background(), "kemi@lagospartners.example", "Amara", "hello")
	assert.EqualError(t, err, "smtp down")
}

func TestNotificationNilMailerIsNoop(t *testing.T) {
	svc := NewNotificationService(nil, nil, NotificationConfig{})

	assert.NoError(t, svc.SendWelcome(context.Background(), &models.User{Email: "a@b.c", FullName: "A"}))
	assert.NoError(t, svc.SendMessageReceived(context.Background(), "a@b.c", "A", "hi"))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Documents required", statusLabel(models.ApplicationStatusDocumentsRequired))
	assert.Equal(t, "Enrolled", statusLabel(models.ApplicationStatusEnrolled))
	assert.Equal(t, "", statusLabel(models.ApplicationStatus("")))
}
