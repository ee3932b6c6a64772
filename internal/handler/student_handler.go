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

// StudentHandler exposes the student roster and self-service profile
// endpoints. Agents are pinned to their own roster before the service runs.
type StudentHandler struct {
	students *service.StudentService
	agents   *service.AgentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, agents *service.AgentService) *StudentHandler {
	return &StudentHandler{students: students, agents: agents}
}

// List godoc
// @Summary List students
// @Description List student profiles. Agents see only their own roster.
// @Tags Students
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Param agent_id query string false "Agent filter (admins only)"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.StudentFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.AgentID = c.Query("agent_id")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	if claims.Role == models.RoleAgent {
		profile, err := h.agents.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.AgentID = profile.ID
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student
// @Description Get one student profile with account info
// @Tags Students
// @Produce json
// @Param id path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims.Role == models.RoleAgent {
		profile, err := h.agents.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if student.AgentID == nil || *student.AgentID != profile.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
			return
		}
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// MyProfile godoc
// @Summary Get own profile
// @Description Returns the authenticated student's profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/me/profile [get]
func (h *StudentHandler) MyProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.students.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateMyProfile godoc
// @Summary Update own profile
// @Description Patch the authenticated student's profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.UpdateStudentProfileRequest true "Profile patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/me/profile [put]
func (h *StudentHandler) UpdateMyProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.students.UpdateByUser(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}
