package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/middleware"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// CatalogHandler exposes program discovery for applicants and catalog
// management for university staff and admins.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Search godoc
// @Summary Search programs
// @Description Full-text program search over the active catalog. Results are cached.
// @Tags Catalog
// @Produce json
// @Param q query string false "Search term"
// @Param university_id query string false "University filter"
// @Param level query string false "Education level filter"
// @Param country query string false "Country filter"
// @Param limit query int false "Max results"
// @Success 200 {object} response.Envelope
// @Router /programs/search [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var filter models.ProgramSearchFilter
	filter.Search = c.Query("q")
	filter.UniversityID = c.Query("university_id")
	filter.Level = c.Query("level")
	filter.Country = c.Query("country")
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	start := time.Now()
	results, cacheHit, err := h.service.Search(c.Request.Context(), filter)
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
	response.JSON(c, http.StatusOK, results, nil, meta)
}

// GetProgram godoc
// @Summary Get program
// @Description Get one program with university info
// @Tags Catalog
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *CatalogHandler) GetProgram(c *gin.Context) {
	program, err := h.service.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, program, nil)
}

// ListIntakes godoc
// @Summary List program intakes
// @Description List upcoming admission cycles for a program
// @Tags Catalog
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id}/intakes [get]
func (h *CatalogHandler) ListIntakes(c *gin.Context) {
	intakes, err := h.service.ListIntakes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, intakes, nil)
}

// EducationLevels godoc
// @Summary List education levels
// @Description Returns the normalized education level options with aliases
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /education-levels [get]
func (h *CatalogHandler) EducationLevels(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.EducationLevels(), nil)
}

// ListPrograms godoc
// @Summary List programs (management)
// @Description List programs including inactive ones. University staff see only their own.
// @Tags Catalog
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Param university_id query string false "University filter (admins only)"
// @Param level query string false "Education level filter"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /programs [get]
func (h *CatalogHandler) ListPrograms(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ProgramFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.UniversityID = c.Query("university_id")
	filter.Level = c.Query("level")
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	programs, pagination, err := h.service.ListPrograms(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, programs, pagination)
}

// CreateProgram godoc
// @Summary Create program
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateProgramRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /programs [post]
func (h *CatalogHandler) CreateProgram(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	program, err := h.service.CreateProgram(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, program)
}

// UpdateProgram godoc
// @Summary Update program
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.UpdateProgramRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /programs/{id} [put]
func (h *CatalogHandler) UpdateProgram(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	program, err := h.service.UpdateProgram(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, program, nil)
}

// CreateIntake godoc
// @Summary Create intake
// @Description Add an admission cycle to a program
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body dto.CreateIntakeRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /programs/{id}/intakes [post]
func (h *CatalogHandler) CreateIntake(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intake payload"))
		return
	}

	intake, err := h.service.CreateIntake(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, intake)
}
