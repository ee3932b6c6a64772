package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Otsikow/unidoxia-sub010/internal/middleware"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

func newMultipartContext(path string, fields map[string]string) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		_ = writer.WriteField(key, value)
	}
	_ = writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	return c, w
}

func TestDocumentHandlerUploadRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil)

	c, w := newMultipartContext("/applications/drafts/draft-1/documents", map[string]string{"type_code": "passport"})

	handler.Upload(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandlerUploadRequiresTypeCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil)

	c, w := newMultipartContext("/applications/drafts/draft-1/documents", nil)
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil)

	c, w := newMultipartContext("/applications/drafts/draft-1/documents", map[string]string{"type_code": "passport"})
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandlerListForDraftRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(nil)

	c, w := newGinContext(http.MethodGet, "/applications/drafts/draft-1/documents", nil)
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}

	handler.ListForDraft(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
