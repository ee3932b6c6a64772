package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type documentRepository interface {
	ListTypes(ctx context.Context) ([]models.DocumentType, error)
	FindTypeByCode(ctx context.Context, code string) (*models.DocumentType, error)
	ListByDraft(ctx context.Context, draftID string) ([]models.Document, error)
	ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, document *models.Document) error
	Delete(ctx context.Context, id string) error
	CountByType(ctx context.Context, draftID string) (map[string]int, error)
}

type documentDraftRepository interface {
	FindByID(ctx context.Context, id string) (*models.ApplicationDraft, error)
}

type documentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type documentAgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
}

type documentApplicationRepository interface {
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
}

type documentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type documentFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type documentURLSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// DocumentUpload carries multipart file metadata and the content stream.
type DocumentUpload struct {
	TypeCode string
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// DocumentDownload bundles an open file handle with response metadata.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// DocumentServiceConfig caps uploads and scopes signed links.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// DocumentService manages the wizard's file slots: uploads against a draft,
// the signed download links handed to clients, and the streaming endpoint
// behind them. Files live on disk; rows carry the metadata reviewers see.
type DocumentService struct {
	repo         documentRepository
	drafts       documentDraftRepository
	students     documentStudentRepository
	agents       documentAgentRepository
	applications documentApplicationRepository
	storage      documentFileStorage
	signer       documentURLSigner
	audit        documentAuditRepository
	logger       *zap.Logger
	cfg          DocumentServiceConfig
	mimeSet      map[string]struct{}
}

// NewDocumentService constructs the document service with defaults.
func NewDocumentService(
	repo documentRepository,
	drafts documentDraftRepository,
	students documentStudentRepository,
	agents documentAgentRepository,
	applications documentApplicationRepository,
	storage documentFileStorage,
	signer documentURLSigner,
	audit documentAuditRepository,
	logger *zap.Logger,
	cfg DocumentServiceConfig,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &DocumentService{
		repo:         repo,
		drafts:       drafts,
		students:     students,
		agents:       agents,
		applications: applications,
		storage:      storage,
		signer:       signer,
		audit:        audit,
		logger:       logger,
		cfg:          cfg,
		mimeSet:      mimeSet,
	}
}

// Types returns the active document type catalog.
func (s *DocumentService) Types(ctx context.Context) ([]models.DocumentType, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return types, nil
}

// Upload stores one file against a draft slot. The draft must belong to the
// caller and must not be submitted yet; the slot's multiplicity, the MIME
// allow-list and the size cap are all enforced before anything hits disk.
func (s *DocumentService) Upload(ctx context.Context, claims *models.JWTClaims, draftID string, upload DocumentUpload) (*models.Document, error) {
	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	code := strings.ToLower(strings.TrimSpace(upload.TypeCode))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document type is required")
	}
	docType, err := s.repo.FindTypeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	if !docType.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document type %s is no longer accepted", code))
	}

	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds the %d MB limit", s.cfg.MaxFileSize/(1024*1024)))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMIME, fmt.Sprintf("file type %s is not accepted", mimeType))
	}

	if !docType.Multiple {
		counts, err := s.repo.CountByType(ctx, draft.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document slot")
		}
		if counts[code] > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already has a file, delete it before uploading a new one", docType.Label))
		}
	}

	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	storedName := s.storedFilename(draft.ID, upload.Filename, mimeType)
	path, err := s.storage.SaveStream(storedName, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist document file")
	}

	document := &models.Document{
		ID:           uuid.NewString(),
		DraftID:      draft.ID,
		StudentID:    draft.StudentID,
		TypeCode:     code,
		FileName:     originalFilename(upload.Filename, code),
		StoragePath:  path,
		ContentType:  mimeType,
		SizeBytes:    upload.Size,
		UploadedByID: claims.UserID,
	}
	if err := s.repo.Create(ctx, document); err != nil {
		if delErr := s.storage.Delete(path); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document")
	}

	s.recordDocumentAudit(ctx, claims, models.AuditActionDocumentUpload, document)
	return document, nil
}

// ListForDraft returns a draft's uploads together with the slot catalog and
// which required slots are still empty. Submitted drafts stay listable so the
// frozen review page keeps working.
func (s *DocumentService) ListForDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*dto.DraftDocumentsResponse, error) {
	draft, err := s.ownedDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}
	documents, err := s.repo.ListByDraft(ctx, draft.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}

	uploaded := make(map[string]int, len(documents))
	for _, doc := range documents {
		uploaded[doc.TypeCode]++
	}
	missing := make([]models.DocumentType, 0)
	for _, t := range types {
		if t.Required && uploaded[t.Code] == 0 {
			missing = append(missing, t)
		}
	}
	return &dto.DraftDocumentsResponse{Documents: documents, Types: types, Missing: missing}, nil
}

// ListForApplication returns the files attached to a submitted application.
// University staff see applications sent to their institution; students and
// agents see their own.
func (s *DocumentService) ListForApplication(ctx context.Context, claims *models.JWTClaims, applicationID string) ([]models.Document, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if err := s.canViewApplication(ctx, claims, detail); err != nil {
		return nil, err
	}
	documents, err := s.repo.ListByApplication(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return documents, nil
}

// Delete removes an upload. Only the owning student may delete, and only
// while the draft is still editable. The row goes first; a stray file on
// disk is logged, not surfaced.
func (s *DocumentService) Delete(ctx context.Context, claims *models.JWTClaims, docID string) error {
	document, err := s.loadDocument(ctx, docID)
	if err != nil {
		return err
	}
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return err
	}
	if document.StudentID != student.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "document belongs to another student")
	}
	draft, err := s.drafts.FindByID(ctx, document.DraftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	if draft.Submitted {
		return appErrors.Clone(appErrors.ErrDraftSubmitted, "documents cannot change after submission")
	}

	if err := s.repo.Delete(ctx, document.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.storage.Delete(document.StoragePath); err != nil {
		s.logger.Warn("failed to remove stored file",
			zap.String("document_id", document.ID),
			zap.String("path", document.StoragePath),
			zap.Error(err))
	}
	s.recordDocumentAudit(ctx, claims, models.AuditActionDocumentDelete, document)
	return nil
}

// DownloadURL signs a short-lived link for one document. Students reach their
// own files, agents those of their students, university staff the files of
// applications submitted to their institution.
func (s *DocumentService) DownloadURL(ctx context.Context, claims *models.JWTClaims, docID string) (*models.DocumentWithURL, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	document, err := s.loadDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := s.canAccessDocument(ctx, claims, document); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(document.ID, document.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &models.DocumentWithURL{
		Document:    *document,
		DownloadURL: fmt.Sprintf("%s/files/%s", base, token),
		URLExpires:  expiresAt,
	}, nil
}

// ResolveDownload verifies a signed token and opens the file behind it. The
// signature itself is the authorization: whoever holds a live token was
// allowed to mint it.
func (s *DocumentService) ResolveDownload(ctx context.Context, token string) (*DocumentDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	docID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	document, err := s.loadDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if document.StoragePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "stored file is missing")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	return &DocumentDownload{
		File:      file,
		Filename:  document.FileName,
		MimeType:  document.ContentType,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *DocumentService) studentFor(ctx context.Context, claims *models.JWTClaims) (*models.StudentDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.students.FindDetailByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

func (s *DocumentService) ownedDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*models.ApplicationDraft, error) {
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return nil, err
	}
	draft, err := s.drafts.FindByID(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	if draft.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "draft belongs to another student")
	}
	return draft, nil
}

func (s *DocumentService) mutableDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*models.ApplicationDraft, error) {
	draft, err := s.ownedDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Submitted {
		return nil, appErrors.Clone(appErrors.ErrDraftSubmitted, "documents cannot change after submission")
	}
	return draft, nil
}

func (s *DocumentService) loadDocument(ctx context.Context, docID string) (*models.Document, error) {
	document, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return document, nil
}

func (s *DocumentService) canAccessDocument(ctx context.Context, claims *models.JWTClaims, document *models.Document) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.studentFor(ctx, claims)
		if err != nil {
			return err
		}
		if document.StudentID == student.ID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "document belongs to another student")
	case models.RoleAgent:
		agent, err := s.agents.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "an agent profile is required")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
		}
		owner, err := s.students.FindByID(ctx, document.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "no access to this document")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document owner")
		}
		if owner.AgentID != nil && *owner.AgentID == agent.ID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "no access to this document")
	case models.RoleUniversity:
		if document.ApplicationID == nil {
			return appErrors.Clone(appErrors.ErrForbidden, "document has not been submitted to a university")
		}
		if claims.UniversityID == nil {
			return appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		detail, err := s.applications.FindByID(ctx, *document.ApplicationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "no access to this document")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		if detail.UniversityID == *claims.UniversityID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "application belongs to another university")
	default:
		return appErrors.ErrForbidden
	}
}

func (s *DocumentService) canViewApplication(ctx context.Context, claims *models.JWTClaims, detail *models.ApplicationDetail) error {
	switch claims.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.studentFor(ctx, claims)
		if err != nil {
			return err
		}
		if detail.StudentID == student.ID {
			return nil
		}
	case models.RoleAgent:
		agent, err := s.agents.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "an agent profile is required")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
		}
		if detail.AgentID != nil && *detail.AgentID == agent.ID {
			return nil
		}
	case models.RoleUniversity:
		if claims.UniversityID != nil && detail.UniversityID == *claims.UniversityID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "no access to this application")
}

func (s *DocumentService) detectMime(upload DocumentUpload) (string, error) {
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	return http.DetectContentType(header[:n]), nil
}

// storedFilename builds the on-disk path: one directory per draft, random
// file names so originals never collide or leak into the filesystem.
func (s *DocumentService) storedFilename(draftID, original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = extensionFor(mimeType)
	}
	return filepath.Join("drafts", draftID, uuid.NewString()+ext)
}

func originalFilename(raw, typeCode string) string {
	name := strings.TrimSpace(filepath.Base(raw))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return typeCode
	}
	return name
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}

func (s *DocumentService) recordDocumentAudit(ctx context.Context, claims *models.JWTClaims, action string, document *models.Document) {
	if s.audit == nil || claims == nil {
		return
	}
	values, _ := json.Marshal(map[string]string{"type": document.TypeCode, "file": document.FileName})
	log := &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "documents",
		ResourceID: &document.ID,
	}
	if action == models.AuditActionDocumentDelete {
		log.OldValues = values
	} else {
		log.NewValues = values
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record document audit log", zap.Error(err))
	}
}
