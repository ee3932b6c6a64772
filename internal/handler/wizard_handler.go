package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// WizardHandler exposes the five-step application wizard. Every route runs
// under the student role; draft ownership is enforced by the service.
type WizardHandler struct {
	service *service.WizardService
}

// NewWizardHandler constructs WizardHandler.
func NewWizardHandler(svc *service.WizardService) *WizardHandler {
	return &WizardHandler{service: svc}
}

// CreateDraft godoc
// @Summary Start a draft
// @Description Create a new application draft, optionally pre-selecting a program
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.CreateDraftRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/drafts [post]
func (h *WizardHandler) CreateDraft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}

	draft, err := h.service.CreateDraft(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, draft)
}

// ListDrafts godoc
// @Summary List own drafts
// @Tags Wizard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications/drafts [get]
func (h *WizardHandler) ListDrafts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	drafts, err := h.service.ListDrafts(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, drafts, nil)
}

// GetDraft godoc
// @Summary Get draft
// @Description Get a draft with its step state
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/drafts/{id} [get]
func (h *WizardHandler) GetDraft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	draft, err := h.service.GetDraft(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}

// UpdatePersonalInfo godoc
// @Summary Save personal info step
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.UpdatePersonalInfoRequest true "Personal info"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/drafts/{id}/personal-info [put]
func (h *WizardHandler) UpdatePersonalInfo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdatePersonalInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid personal info payload"))
		return
	}

	draft, err := h.service.UpdatePersonalInfo(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}

// AddEducationRecord godoc
// @Summary Add education record
// @Description Append an empty education record to the draft
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/drafts/{id}/education [post]
func (h *WizardHandler) AddEducationRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.AddEducationRecord(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// UpdateEducationRecord godoc
// @Summary Update education record
// @Description Patch an education record; the level is normalized from aliases
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param recordId path string true "Record ID"
// @Param payload body dto.UpdateEducationRecordRequest true "Record patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/drafts/{id}/education/{recordId} [put]
func (h *WizardHandler) UpdateEducationRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateEducationRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid education payload"))
		return
	}

	record, err := h.service.UpdateEducationRecord(c.Request.Context(), claims, c.Param("id"), c.Param("recordId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// DeleteEducationRecord godoc
// @Summary Remove education record
// @Description Drop one education record from the draft history
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Param recordId path string true "Record ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/drafts/{id}/education/{recordId} [delete]
func (h *WizardHandler) DeleteEducationRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteEducationRecord(c.Request.Context(), claims, c.Param("id"), c.Param("recordId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// SetProgram godoc
// @Summary Save program step
// @Description Choose the program and intake the draft applies to
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.PutProgramRequest true "Program selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/drafts/{id}/program [put]
func (h *WizardHandler) SetProgram(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PutProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	draft, err := h.service.SetProgram(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}

// Advance godoc
// @Summary Advance to next step
// @Description Move the wizard cursor forward. Incomplete steps return per-field problems.
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/drafts/{id}/advance [post]
func (h *WizardHandler) Advance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	draft, problems, err := h.service.Advance(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		if len(problems) > 0 {
			response.ErrorWithMeta(c, err, map[string]interface{}{"problems": problems})
			return
		}
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}

// Retreat godoc
// @Summary Go back one step
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /applications/drafts/{id}/retreat [post]
func (h *WizardHandler) Retreat(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	draft, err := h.service.Retreat(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}

// Review godoc
// @Summary Review draft
// @Description Aggregate the full draft, program, documents and missing items for the review step
// @Tags Wizard
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/drafts/{id}/review [get]
func (h *WizardHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	review, err := h.service.Review(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, review, nil)
}

// Submit godoc
// @Summary Submit application
// @Description Turn a complete draft into a submitted application
// @Tags Wizard
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /applications/drafts/{id}/submit [post]
func (h *WizardHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submit payload"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
