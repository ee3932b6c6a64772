package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// DocumentRepository manages persistence for document types and uploaded
// files.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListTypes returns the active document type catalog in display order.
func (r *DocumentRepository) ListTypes(ctx context.Context) ([]models.DocumentType, error) {
	const query = `SELECT id, code, label, description, required, multiple, active, sort_order, created_at
        FROM document_types WHERE active = TRUE ORDER BY sort_order ASC, code ASC`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

// FindTypeByCode fetches one document type.
func (r *DocumentRepository) FindTypeByCode(ctx context.Context, code string) (*models.DocumentType, error) {
	const query = `SELECT id, code, label, description, required, multiple, active, sort_order, created_at
        FROM document_types WHERE code = $1 LIMIT 1`
	var docType models.DocumentType
	if err := r.db.GetContext(ctx, &docType, query, code); err != nil {
		return nil, err
	}
	return &docType, nil
}

// CreateType inserts a document type.
func (r *DocumentRepository) CreateType(ctx context.Context, docType *models.DocumentType) error {
	if docType.ID == "" {
		docType.ID = uuid.NewString()
	}
	if docType.CreatedAt.IsZero() {
		docType.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_types (id, code, label, description, required, multiple, active, sort_order, created_at)
        VALUES (:id, :code, :label, :description, :required, :multiple, :active, :sort_order, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, docType); err != nil {
		return fmt.Errorf("create document type: %w", err)
	}
	return nil
}

const documentColumns = `id, draft_id, application_id, student_id, type_code, file_name, storage_path, content_type, size_bytes, uploaded_by_id, created_at`

// ListByDraft returns a draft's uploads, newest first.
func (r *DocumentRepository) ListByDraft(ctx context.Context, draftID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE draft_id = $1 ORDER BY created_at DESC`, documentColumns)
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, draftID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

// ListByApplication returns the files re-keyed to a submitted application,
// newest first.
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE application_id = $1 ORDER BY created_at DESC`, documentColumns)
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application documents: %w", err)
	}
	return documents, nil
}

// FindByID fetches one document.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 LIMIT 1`, documentColumns)
	var document models.Document
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		return nil, err
	}
	return &document, nil
}

// Create inserts a document row after the file is on disk.
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, draft_id, application_id, student_id, type_code, file_name, storage_path, content_type, size_bytes, uploaded_by_id, created_at)
        VALUES (:id, :draft_id, :application_id, :student_id, :type_code, :file_name, :storage_path, :content_type, :size_bytes, :uploaded_by_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, document); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// AttachToApplication re-keys every draft file to the application created at
// submit time.
func (r *DocumentRepository) AttachToApplication(ctx context.Context, draftID, applicationID string) error {
	const query = `UPDATE documents SET application_id = $1 WHERE draft_id = $2`
	if _, err := r.db.ExecContext(ctx, query, applicationID, draftID); err != nil {
		return fmt.Errorf("attach documents to application: %w", err)
	}
	return nil
}

// Delete removes a document row. The caller deletes the file afterwards.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// CountByType returns how many files each type code has on a draft.
func (r *DocumentRepository) CountByType(ctx context.Context, draftID string) (map[string]int, error) {
	const query = `SELECT type_code, COUNT(*) AS total FROM documents WHERE draft_id = $1 GROUP BY type_code`
	rows := []struct {
		TypeCode string `db:"type_code"`
		Total    int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, draftID); err != nil {
		return nil, fmt.Errorf("count documents by type: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TypeCode] = row.Total
	}
	return counts, nil
}
