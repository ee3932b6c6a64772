package dto

import "github.com/Otsikow/unidoxia-sub010/internal/models"

// StartConversationRequest opens a thread with another user, optionally
// anchored to an application, and sends the first message.
type StartConversationRequest struct {
	RecipientID   string `json:"recipientId" validate:"required,uuid4"`
	ApplicationID string `json:"applicationId" validate:"omitempty,uuid4"`
	Body          string `json:"body" validate:"required,min=1,max=4000"`
}

// SendMessageRequest appends a message to an existing conversation.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// ConversationResponse wraps a conversation with its messages.
type ConversationResponse struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// UnreadCountResponse reports the caller's total unread messages.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
