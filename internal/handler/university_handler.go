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

// UniversityHandler exposes the partner university directory.
type UniversityHandler struct {
	service *service.UniversityService
}

// NewUniversityHandler constructs UniversityHandler.
func NewUniversityHandler(svc *service.UniversityService) *UniversityHandler {
	return &UniversityHandler{service: svc}
}

// List godoc
// @Summary List universities
// @Description List partner universities
// @Tags Universities
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Param country query string false "Country filter"
// @Param active query bool false "Active filter"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *UniversityHandler) List(c *gin.Context) {
	var filter models.UniversityFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.Country = c.Query("country")
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	universities, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, universities, pagination)
}

// Get godoc
// @Summary Get university
// @Tags Universities
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /universities/{id} [get]
func (h *UniversityHandler) Get(c *gin.Context) {
	university, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, university, nil)
}

// Me godoc
// @Summary Get own university
// @Description Returns the university bound to the staff account
// @Tags Universities
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /universities/me [get]
func (h *UniversityHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.UniversityID == nil || *claims.UniversityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university"))
		return
	}

	university, err := h.service.Get(c.Request.Context(), *claims.UniversityID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, university, nil)
}

// Create godoc
// @Summary Create university
// @Description Register a partner university
// @Tags Universities
// @Accept json
// @Produce json
// @Param payload body dto.CreateUniversityRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /universities [post]
func (h *UniversityHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	university, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, university)
}

// Update godoc
// @Summary Update university
// @Tags Universities
// @Accept json
// @Produce json
// @Param id path string true "University ID"
// @Param payload body dto.UpdateUniversityRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /universities/{id} [put]
func (h *UniversityHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	university, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, university, nil)
}

// Deactivate godoc
// @Summary Deactivate university
// @Description Hide a university and its programs from the catalog
// @Tags Universities
// @Produce json
// @Param id path string true "University ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /universities/{id} [delete]
func (h *UniversityHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
