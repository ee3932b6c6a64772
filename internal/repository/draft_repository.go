package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// DraftRepository manages persistence for application drafts.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository constructs a DraftRepository.
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `id, student_id, current_step, personal_info, education, program, notes,
        submitted, submitted_at, application_id, created_at, updated_at`

// ListByStudent returns the student's unsubmitted drafts, newest first. A
// student may hold several drafts at once, one per program they are exploring.
func (r *DraftRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationDraft, error) {
	query := fmt.Sprintf(`SELECT %s FROM application_drafts
        WHERE student_id = $1 AND submitted = FALSE
        ORDER BY updated_at DESC`, draftColumns)
	var drafts []models.ApplicationDraft
	if err := r.db.SelectContext(ctx, &drafts, query, studentID); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// FindByID fetches one draft.
func (r *DraftRepository) FindByID(ctx context.Context, id string) (*models.ApplicationDraft, error) {
	query := fmt.Sprintf(`SELECT %s FROM application_drafts WHERE id = $1 LIMIT 1`, draftColumns)
	var draft models.ApplicationDraft
	if err := r.db.GetContext(ctx, &draft, query, id); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Create inserts a new draft.
func (r *DraftRepository) Create(ctx context.Context, draft *models.ApplicationDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	const query = `INSERT INTO application_drafts (id, student_id, current_step, personal_info, education, program, notes, submitted, submitted_at, application_id, created_at, updated_at)
        VALUES (:id, :student_id, :current_step, :personal_info, :education, :program, :notes, :submitted, :submitted_at, :application_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// Update persists draft step data and the step cursor.
func (r *DraftRepository) Update(ctx context.Context, draft *models.ApplicationDraft) error {
	draft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE application_drafts SET current_step = :current_step, personal_info = :personal_info,
        education = :education, program = :program, notes = :notes, updated_at = :updated_at
        WHERE id = :id AND submitted = FALSE`
	result, err := r.db.NamedExecContext(ctx, query, draft)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("draft %s is submitted or missing", draft.ID)
	}
	return nil
}

// MarkSubmitted flips the draft to its terminal submitted state exactly once.
// The submitted guard in the WHERE clause makes a concurrent double submit a
// no-op for the loser.
func (r *DraftRepository) MarkSubmitted(ctx context.Context, draftID, applicationID string, submittedAt time.Time) (bool, error) {
	const query = `UPDATE application_drafts SET submitted = TRUE, submitted_at = $1, application_id = $2, updated_at = $1
        WHERE id = $3 AND submitted = FALSE`
	result, err := r.db.ExecContext(ctx, query, submittedAt, applicationID, draftID)
	if err != nil {
		return false, fmt.Errorf("mark draft submitted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark draft submitted rows: %w", err)
	}
	return rows > 0, nil
}
