package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/service"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// DocumentHandler exposes document types, uploads and signed downloads.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Types godoc
// @Summary List document types
// @Description Returns the required and optional document types
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/types [get]
func (h *DocumentHandler) Types(c *gin.Context) {
	types, err := h.service.Types(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, types, nil)
}

// Upload godoc
// @Summary Upload document
// @Description Attach a file to a draft under a document type
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Draft ID"
// @Param type_code formData string true "Document type code"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /applications/drafts/{id}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	typeCode := c.PostForm("type_code")
	if typeCode == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type_code is required"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), claims, c.Param("id"), service.DocumentUpload{
		TypeCode: typeCode,
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// ListForDraft godoc
// @Summary List draft documents
// @Description List uploads for a draft plus the required types still missing
// @Tags Documents
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/drafts/{id}/documents [get]
func (h *DocumentHandler) ListForDraft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	documents, err := h.service.ListForDraft(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, documents, nil)
}

// ListForApplication godoc
// @Summary List application documents
// @Description List the files attached to a submitted application
// @Tags Documents
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/documents [get]
func (h *DocumentHandler) ListForApplication(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	documents, err := h.service.ListForApplication(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, documents, nil)
}

// Delete godoc
// @Summary Delete document
// @Description Remove an uploaded document while its draft is still editable
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Sign download link
// @Description Returns a short-lived signed URL for one document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.service.DownloadURL(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download file
// @Description Stream a file referenced by a signed token. No session required.
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	}
	c.DataFromReader(http.StatusOK, download.SizeBytes, download.MimeType, download.File, headers)
}
