package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// MessageHandler exposes conversations and messages.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler constructs MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// StartConversation godoc
// @Summary Start conversation
// @Description Open a thread with another participant, optionally about an application
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body dto.StartConversationRequest true "Conversation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conversations [post]
func (h *MessageHandler) StartConversation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversation payload"))
		return
	}

	conversation, err := h.service.StartConversation(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, conversation)
}

// ListConversations godoc
// @Summary List conversations
// @Description List the caller's threads, most recent first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *MessageHandler) ListConversations(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversations, err := h.service.ListConversations(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conversations, nil)
}

// GetMessages godoc
// @Summary Get conversation messages
// @Description Returns the thread and marks it read for the caller
// @Tags Messages
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) GetMessages(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversation, err := h.service.GetMessages(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conversation, nil)
}

// SendMessage godoc
// @Summary Send message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param payload body dto.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conversations/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	message, err := h.service.SendMessage(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// UnreadCount godoc
// @Summary Unread message count
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, count, nil)
}
