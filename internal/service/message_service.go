package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type messageRepository interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	FindConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindConversationBetween(ctx context.Context, userA, userB string, applicationID *string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	MarkRead(ctx context.Context, conversationID, readerID string, readAt time.Time) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type messageUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type messageApplicationRepository interface {
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
}

type messageNotifier interface {
	SendMessageReceived(ctx context.Context, email, senderName, preview string) error
}

// MessageService handles two-party threads between students, agents and
// university staff. Threads may hang off an application so both sides keep
// the paperwork context next to the chat.
type MessageService struct {
	repo         messageRepository
	users        messageUserRepository
	applications messageApplicationRepository
	notifier     messageNotifier
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewMessageService constructs the message service.
func NewMessageService(repo messageRepository, users messageUserRepository, applications messageApplicationRepository, notifier messageNotifier, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		repo:         repo,
		users:        users,
		applications: applications,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
	}
}

// StartConversation opens a thread with another user and sends the first
// message. An existing thread between the same pair (and application) is
// reused so the inbox never splinters into duplicates.
func (s *MessageService) StartConversation(ctx context.Context, claims *models.JWTClaims, req dto.StartConversationRequest) (*dto.ConversationResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversation payload")
	}
	if req.RecipientID == claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot start a conversation with yourself")
	}
	recipient, err := s.users.FindByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	if !recipient.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient account is inactive")
	}

	var applicationID *string
	if req.ApplicationID != "" {
		if _, err := s.applications.FindByID(ctx, req.ApplicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		id := req.ApplicationID
		applicationID = &id
	}

	conversation, err := s.repo.FindConversationBetween(ctx, claims.UserID, recipient.ID, applicationID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up conversation")
		}
		conversation = &models.Conversation{
			ApplicationID:  applicationID,
			ParticipantOne: claims.UserID,
			ParticipantTwo: recipient.ID,
		}
		if err := s.repo.CreateConversation(ctx, conversation); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conversation")
		}
	}

	message, err := s.appendMessage(ctx, claims, conversation, req.Body)
	if err != nil {
		return nil, err
	}
	return &dto.ConversationResponse{Conversation: *conversation, Messages: []models.Message{*message}}, nil
}

// ListConversations returns the caller's inbox, most recently active first.
func (s *MessageService) ListConversations(ctx context.Context, claims *models.JWTClaims) ([]models.ConversationSummary, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	summaries, err := s.repo.ListConversations(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	return summaries, nil
}

// GetMessages returns a thread. Reading as a participant marks the
// counterpart's messages read; admins reading for moderation leave the
// unread state untouched.
func (s *MessageService) GetMessages(ctx context.Context, claims *models.JWTClaims, conversationID string) (*dto.ConversationResponse, error) {
	conversation, err := s.loadConversation(ctx, claims, conversationID, true)
	if err != nil {
		return nil, err
	}
	if conversation.HasParticipant(claims.UserID) {
		if err := s.repo.MarkRead(ctx, conversation.ID, claims.UserID, time.Now().UTC()); err != nil {
			s.logger.Warn("failed to mark conversation read",
				zap.String("conversation_id", conversation.ID),
				zap.Error(err))
		}
	}
	messages, err := s.repo.ListMessages(ctx, conversation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &dto.ConversationResponse{Conversation: *conversation, Messages: messages}, nil
}

// SendMessage appends to an existing thread. Only participants may write.
func (s *MessageService) SendMessage(ctx context.Context, claims *models.JWTClaims, conversationID string, req dto.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	conversation, err := s.loadConversation(ctx, claims, conversationID, false)
	if err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, claims, conversation, req.Body)
}

// UnreadCount reports the caller's total unread messages across all threads.
func (s *MessageService) UnreadCount(ctx context.Context, claims *models.JWTClaims) (*dto.UnreadCountResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	total, err := s.repo.CountUnread(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	return &dto.UnreadCountResponse{Unread: total}, nil
}

func (s *MessageService) loadConversation(ctx context.Context, claims *models.JWTClaims, conversationID string, allowAdmin bool) (*models.Conversation, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	conversation, err := s.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	if conversation.HasParticipant(claims.UserID) {
		return conversation, nil
	}
	if allowAdmin && claims.Role == models.RoleAdmin {
		return conversation, nil
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant in this conversation")
}

func (s *MessageService) appendMessage(ctx context.Context, claims *models.JWTClaims, conversation *models.Conversation, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message body is required")
	}
	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       claims.UserID,
		Body:           body,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	s.notifyRecipient(ctx, claims, conversation, body)
	return message, nil
}

func (s *MessageService) notifyRecipient(ctx context.Context, claims *models.JWTClaims, conversation *models.Conversation, body string) {
	if s.notifier == nil {
		return
	}
	recipient, err := s.users.FindByID(ctx, conversation.OtherParticipant(claims.UserID))
	if err != nil {
		s.logger.Warn("failed to load message recipient", zap.Error(err))
		return
	}
	if err := s.notifier.SendMessageReceived(ctx, recipient.Email, claims.FullName, messagePreview(body)); err != nil {
		s.logger.Warn("failed to send message notification",
			zap.String("conversation_id", conversation.ID),
			zap.Error(err))
	}
}

func messagePreview(body string) string {
	const max = 120
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
