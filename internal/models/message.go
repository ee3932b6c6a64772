package models

import "time"

// Conversation is a two-party thread, optionally bound to an application.
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	ApplicationID  *string   `db:"application_id" json:"application_id,omitempty"`
	ParticipantOne string    `db:"participant_one" json:"participant_one"`
	ParticipantTwo string    `db:"participant_two" json:"participant_two"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantOne == userID || c.ParticipantTwo == userID
}

// OtherParticipant returns the counterpart of the given user.
func (c Conversation) OtherParticipant(userID string) string {
	if c.ParticipantOne == userID {
		return c.ParticipantTwo
	}
	return c.ParticipantOne
}

// ConversationSummary decorates a conversation for list views.
type ConversationSummary struct {
	Conversation
	CounterpartName string     `db:"counterpart_name" json:"counterpart_name"`
	LastMessage     *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt   *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	UnreadCount     int        `db:"unread_count" json:"unread_count"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string     `db:"id" json:"id"`
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	SenderID       string     `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
