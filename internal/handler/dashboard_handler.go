package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/middleware"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error)
	Agent(ctx context.Context, actor *models.JWTClaims) (*dto.AgentDashboardResponse, bool, error)
	University(ctx context.Context, actor *models.JWTClaims) (*dto.UniversityDashboardResponse, bool, error)
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
}

// DashboardHandler serves one dashboard endpoint that dispatches on the
// caller's role.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Role dashboard
// @Description Returns the dashboard payload for the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	var (
		summary  interface{}
		cacheHit bool
		err      error
	)
	switch claims.Role {
	case models.RoleStudent:
		summary, cacheHit, err = h.service.Student(c.Request.Context(), claims)
	case models.RoleAgent:
		summary, cacheHit, err = h.service.Agent(c.Request.Context(), claims)
	case models.RoleUniversity:
		summary, cacheHit, err = h.service.University(c.Request.Context(), claims)
	case models.RoleAdmin:
		summary, cacheHit, err = h.service.Admin(c.Request.Context())
	default:
		err = appErrors.ErrForbidden
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
