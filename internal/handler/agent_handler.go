package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// AgentHandler exposes agent directory and self-service endpoints.
type AgentHandler struct {
	service *service.AgentService
}

// NewAgentHandler constructs AgentHandler.
func NewAgentHandler(svc *service.AgentService) *AgentHandler {
	return &AgentHandler{service: svc}
}

// List godoc
// @Summary List agents
// @Description List agent profiles with roster sizes
// @Tags Agents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Param country query string false "Country filter"
// @Param verified query bool false "Verified filter"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /agents [get]
func (h *AgentHandler) List(c *gin.Context) {
	var filter models.AgentFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.Country = c.Query("country")
	if verified := c.Query("verified"); verified != "" {
		if val, err := strconv.ParseBool(verified); err == nil {
			filter.Verified = &val
		}
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	agents, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, agents, pagination)
}

// Get godoc
// @Summary Get agent
// @Description Get one agent profile with account info
// @Tags Agents
// @Produce json
// @Param id path string true "Agent profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agents/{id} [get]
func (h *AgentHandler) Get(c *gin.Context) {
	agent, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, agent, nil)
}

// MyProfile godoc
// @Summary Get own profile
// @Description Returns the authenticated agent's profile
// @Tags Agents
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agents/me/profile [get]
func (h *AgentHandler) MyProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateMyProfile godoc
// @Summary Update own profile
// @Description Patch the authenticated agent's profile, including the referral username
// @Tags Agents
// @Accept json
// @Produce json
// @Param payload body dto.UpdateAgentProfileRequest true "Profile patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /agents/me/profile [put]
func (h *AgentHandler) UpdateMyProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateAgentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.service.UpdateByUser(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// ReferralLink godoc
// @Summary Get referral link
// @Description Returns the agent's shareable signup link
// @Tags Agents
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agents/me/referral-link [get]
func (h *AgentHandler) ReferralLink(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	link, err := h.service.ReferralLink(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}
