package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// ApplicationRepository manages persistence for applications and their status
// history.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationDetailColumns = `a.id, a.student_id, a.agent_id, a.program_id, a.university_id, a.intake_id,
        a.intake_year, a.intake_month, a.personal_info, a.education, a.notes, a.status, a.decision_note,
        a.submitted_at, a.decided_at, a.created_at, a.updated_at,
        u.full_name AS student_name, u.email AS student_email,
        au.full_name AS agent_name,
        p.name AS program_name, p.level AS program_level,
        un.name AS university_name`

const applicationDetailJoins = `FROM applications a
        JOIN student_profiles s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id
        LEFT JOIN agent_profiles ag ON ag.id = a.agent_id
        LEFT JOIN users au ON au.id = ag.user_id
        JOIN programs p ON p.id = a.program_id
        JOIN universities un ON un.id = a.university_id`

// List returns applications matching the filter alongside the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := applicationDetailJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("a.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("a.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.IntakeYear != nil {
		conditions = append(conditions, fmt.Sprintf("a.intake_year = $%d", len(args)+1))
		args = append(args, *filter.IntakeYear)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR u.email ILIKE $%d OR p.name ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"submitted_at": "a.submitted_at",
		"updated_at":   "a.updated_at",
		"status":       "a.status",
		"student_name": "u.full_name",
		"program_name": "p.name",
	}
	if sortBy == "" {
		sortBy = "submitted_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "a.submitted_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		applicationDetailColumns, base, column, order, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID fetches one application with display fields.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1 LIMIT 1", applicationDetailColumns, applicationDetailJoins)
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsForIntake reports whether the student already applied to the program
// for the given intake year and month, ignoring withdrawn applications.
func (r *ApplicationRepository) ExistsForIntake(ctx context.Context, studentID, programID string, intakeYear, intakeMonth int) (bool, error) {
	const query = `SELECT id FROM applications
        WHERE student_id = $1 AND program_id = $2 AND intake_year = $3 AND intake_month = $4 AND status <> $5
        LIMIT 1`
	var id string
	err := r.db.GetContext(ctx, &id, query, studentID, programID, intakeYear, intakeMonth, models.ApplicationStatusWithdrawn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate application: %w", err)
	}
	return true, nil
}

// Create inserts the application and its initial status event in one
// transaction.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application, event *models.ApplicationStatusEvent) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create application: %w", err)
	}
	defer tx.Rollback()

	const insertApplication = `INSERT INTO applications (id, student_id, agent_id, program_id, university_id, intake_id, intake_year, intake_month, personal_info, education, notes, status, decision_note, submitted_at, decided_at, created_at, updated_at)
        VALUES (:id, :student_id, :agent_id, :program_id, :university_id, :intake_id, :intake_year, :intake_month, :personal_info, :education, :notes, :status, :decision_note, :submitted_at, :decided_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertApplication, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	if event != nil {
		event.ApplicationID = application.ID
		if err := insertStatusEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create application: %w", err)
	}
	return nil
}

// UpdateStatus moves an application to a new status and appends the history
// event atomically. The expected current status is part of the WHERE clause so
// concurrent transitions cannot both win. A non-empty decision note replaces
// any earlier one.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, applicationID string, from, to models.ApplicationStatus, decidedAt *time.Time, decisionNote string, event *models.ApplicationStatusEvent) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	const update = `UPDATE applications SET status = $1, decided_at = COALESCE($2, decided_at),
        decision_note = COALESCE(NULLIF($3, ''), decision_note), updated_at = $4
        WHERE id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, update, to, decidedAt, decisionNote, time.Now().UTC(), applicationID, from)
	if err != nil {
		return false, fmt.Errorf("update application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update application status rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	event.ApplicationID = applicationID
	if err := insertStatusEvent(ctx, tx, event); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit status update: %w", err)
	}
	return true, nil
}

func insertStatusEvent(ctx context.Context, tx *sqlx.Tx, event *models.ApplicationStatusEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO application_status_events (id, application_id, from_status, to_status, note, actor_id, created_at)
        VALUES (:id, :application_id, :from_status, :to_status, :note, :actor_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

// ListStatusEvents returns the status history oldest first.
func (r *ApplicationRepository) ListStatusEvents(ctx context.Context, applicationID string) ([]models.ApplicationStatusEvent, error) {
	const query = `SELECT id, application_id, from_status, to_status, note, actor_id, created_at
        FROM application_status_events WHERE application_id = $1 ORDER BY created_at ASC`
	var events []models.ApplicationStatusEvent
	if err := r.db.SelectContext(ctx, &events, query, applicationID); err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	return events, nil
}
