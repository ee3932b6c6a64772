package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// CommissionHandler exposes agent commission endpoints.
type CommissionHandler struct {
	service *service.CommissionService
}

// NewCommissionHandler constructs CommissionHandler.
func NewCommissionHandler(svc *service.CommissionService) *CommissionHandler {
	return &CommissionHandler{service: svc}
}

// List godoc
// @Summary List commissions
// @Description List commissions. Agents see only their own.
// @Tags Commissions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param agent_id query string false "Agent filter (admins only)"
// @Param status query string false "Status filter"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /commissions [get]
func (h *CommissionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.CommissionFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.AgentID = c.Query("agent_id")
	if status := c.Query("status"); status != "" {
		s := models.CommissionStatus(status)
		filter.Status = &s
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	commissions, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, commissions, pagination)
}

// Get godoc
// @Summary Get commission
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /commissions/{id} [get]
func (h *CommissionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	commission, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, commission, nil)
}

// Totals godoc
// @Summary Commission totals
// @Description Aggregated amounts per status. Agents get their own totals.
// @Tags Commissions
// @Produce json
// @Param agent_id query string false "Agent ID (admins only)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /commissions/totals [get]
func (h *CommissionHandler) Totals(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	totals, err := h.service.Totals(c.Request.Context(), claims, c.Query("agent_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, totals, nil)
}

// Approve godoc
// @Summary Approve commission
// @Description Move a pending commission to approved
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /commissions/{id}/approve [post]
func (h *CommissionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	commission, err := h.service.Approve(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, commission, nil)
}

// MarkPaid godoc
// @Summary Mark commission paid
// @Description Move an approved commission to paid
// @Tags Commissions
// @Produce json
// @Param id path string true "Commission ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /commissions/{id}/mark-paid [post]
func (h *CommissionHandler) MarkPaid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	commission, err := h.service.MarkPaid(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, commission, nil)
}
