package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/storage"
)

type documentFixture struct {
	docs     *mockWizardDocRepo
	drafts   *mockWizardDraftRepo
	students *mockWizardStudentRepo
	agents   *mockAgentRepo
	apps     *mockApplicationRepo
	audit    *mockAuditSink
	store    *storage.LocalStorage
	svc      *DocumentService
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := &documentFixture{
		docs: &mockWizardDocRepo{},
		drafts: &mockWizardDraftRepo{
			drafts: map[string]*models.ApplicationDraft{},
		},
		students: &mockWizardStudentRepo{
			byUser: map[string]*models.StudentDetail{},
			byID:   map[string]*models.StudentDetail{},
		},
		agents: &mockAgentRepo{byUser: map[string]models.AgentProfile{}},
		apps:   &mockApplicationRepo{apps: map[string]*models.ApplicationDetail{}},
		audit:  &mockAuditSink{},
		store:  store,
	}
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	f.svc = NewDocumentService(f.docs, f.drafts, f.students, f.agents, f.apps, store, signer, f.audit, zap.NewNop(), DocumentServiceConfig{
		MaxFileSize:  1 << 20,
		AllowedMIMEs: []string{"application/pdf", "image/png"},
		APIPrefix:    "/api/v1",
	})
	return f
}

func (f *documentFixture) seedStudent() *models.JWTClaims {
	detail := &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "stu-1", UserID: "user-1"},
		Email:          "amara@example.com",
		FullName:       "Amara Okafor",
	}
	f.students.byUser["user-1"] = detail
	f.students.byID["stu-1"] = detail
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, Email: "amara@example.com"}
}

func (f *documentFixture) seedDraft(submitted bool) *models.ApplicationDraft {
	draft := &models.ApplicationDraft{ID: "draft-1", StudentID: "stu-1", Submitted: submitted}
	f.drafts.drafts[draft.ID] = draft
	return draft
}

func (f *documentFixture) seedTypes() {
	f.docs.types = []models.DocumentType{
		{ID: "dt-1", Code: "passport", Label: "Passport", Required: true, Active: true, SortOrder: 1},
		{ID: "dt-2", Code: "transcript", Label: "Academic Transcript", Required: true, Multiple: true, Active: true, SortOrder: 2},
	}
}

func pdfUpload(typeCode, filename string) DocumentUpload {
	content := []byte("%PDF-1.4 tiny test payload")
	return DocumentUpload{
		TypeCode: typeCode,
		Filename: filename,
		Size:     int64(len(content)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(content),
	}
}

func TestDocumentServiceUploadStoresFile(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport-scan.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "passport", doc.TypeCode)
	assert.Equal(t, "passport-scan.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "stu-1", doc.StudentID)
	assert.Equal(t, "user-1", doc.UploadedByID)
	assert.True(t, strings.HasPrefix(doc.StoragePath, filepath.Join("drafts", "draft-1")))
	assert.True(t, strings.HasSuffix(doc.StoragePath, ".pdf"))

	file, err := f.store.Open(doc.StoragePath)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "%PDF-1.4 tiny test payload", string(data))

	require.Len(t, f.docs.files["draft-1"], 1)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionDocumentUpload, f.audit.logs[0].Action)
}

func TestDocumentServiceUploadRejectsUnknownType(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("diploma", "diploma.pdf"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadRejectsOversize(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	upload := pdfUpload("passport", "huge.pdf")
	upload.Size = 2 << 20

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", upload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadRejectsMime(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	upload := pdfUpload("passport", "archive.zip")
	upload.MimeType = "application/zip"

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", upload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedMIME.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadSniffsMime(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	content := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("fake image body")...)
	upload := DocumentUpload{
		TypeCode: "transcript",
		Filename: "transcript",
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", upload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.ContentType)
	assert.True(t, strings.HasSuffix(doc.StoragePath, ".png"))
}

func TestDocumentServiceUploadSingleSlotTaken(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()
	f.docs.counts = map[string]map[string]int{"draft-1": {"passport": 1}}

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "again.pdf"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadSubmittedDraft(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(true)
	f.seedTypes()

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "late.pdf"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftSubmitted.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceListForDraftReportsMissing(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("transcript", "transcript.pdf"))
	require.NoError(t, err)

	resp, err := f.svc.ListForDraft(context.Background(), claims, "draft-1")
	require.NoError(t, err)
	assert.Len(t, resp.Documents, 1)
	assert.Len(t, resp.Types, 2)
	require.Len(t, resp.Missing, 1)
	assert.Equal(t, "passport", resp.Missing[0].Code)
}

func TestDocumentServiceDeleteRemovesFileAndRow(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), claims, doc.ID))

	assert.Empty(t, f.docs.files["draft-1"])
	_, err = f.store.Open(doc.StoragePath)
	assert.Error(t, err)
	require.Len(t, f.audit.logs, 2)
	assert.Equal(t, models.AuditActionDocumentDelete, f.audit.logs[1].Action)
}

func TestDocumentServiceDeleteForeignStudent(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	f.students.byUser["user-2"] = &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "stu-2", UserID: "user-2"},
	}
	err = f.svc.Delete(context.Background(), studentActor("user-2"), doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, f.docs.files["draft-1"], 1)
}

func TestDocumentServiceDeleteAfterSubmitRefused(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	draft := f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	draft.Submitted = true
	err = f.svc.Delete(context.Background(), claims, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftSubmitted.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceDownloadRoundTrip(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	signed, err := f.svc.DownloadURL(context.Background(), claims, doc.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.DownloadURL, "/api/v1/files/"))
	assert.True(t, signed.URLExpires.After(time.Now()))

	token := strings.TrimPrefix(signed.DownloadURL, "/api/v1/files/")
	download, err := f.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	assert.Equal(t, "passport.pdf", download.Filename)
	assert.Equal(t, "application/pdf", download.MimeType)
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 tiny test payload", string(data))
}

func TestDocumentServiceResolveDownloadBadToken(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.ResolveDownload(context.Background(), "not-a-real-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceDownloadURLAgentScope(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()
	f.students.byID["stu-1"].AgentID = strPtr("ag-1")
	f.agents.byUser["agent-user"] = models.AgentProfile{ID: "ag-1", UserID: "agent-user"}
	f.agents.byUser["other-agent"] = models.AgentProfile{ID: "ag-2", UserID: "other-agent"}

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), agentActor("agent-user"), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), agentActor("other-agent"), doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceDownloadURLUniversityTenant(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	doc, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), universityActor("uni-1"), doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	appID := "app-1"
	f.docs.files["draft-1"][0].ApplicationID = &appID
	f.apps.apps[appID] = &models.ApplicationDetail{
		Application: models.Application{ID: appID, StudentID: "stu-1", UniversityID: "uni-1"},
	}

	_, err = f.svc.DownloadURL(context.Background(), universityActor("uni-1"), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), universityActor("uni-2"), doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceListForApplication(t *testing.T) {
	f := newDocumentFixture(t)
	claims := f.seedStudent()
	f.seedDraft(false)
	f.seedTypes()

	_, err := f.svc.Upload(context.Background(), claims, "draft-1", pdfUpload("passport", "passport.pdf"))
	require.NoError(t, err)

	appID := "app-1"
	f.docs.files["draft-1"][0].ApplicationID = &appID
	f.apps.apps[appID] = &models.ApplicationDetail{
		Application: models.Application{ID: appID, StudentID: "stu-1", UniversityID: "uni-1"},
	}

	docs, err := f.svc.ListForApplication(context.Background(), universityActor("uni-1"), appID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "passport", docs[0].TypeCode)

	f.students.byUser["user-2"] = &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "stu-2", UserID: "user-2"},
	}
	_, err = f.svc.ListForApplication(context.Background(), studentActor("user-2"), appID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
