package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// ProgramRepository manages persistence for programs and intakes.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programDetailColumns = `p.id, p.university_id, p.name, p.level, p.discipline, p.duration_months,
        p.tuition_fee, p.currency, p.commission_rate, p.language, p.description, p.active, p.created_at, p.updated_at,
        un.name AS university_name, un.country AS university_country, un.city AS university_city`

// Search runs the catalog query: active programs at active universities only,
// name match, ordered by name ascending.
func (r *ProgramRepository) Search(ctx context.Context, filter models.ProgramSearchFilter) ([]models.ProgramDetail, error) {
	base := `FROM programs p JOIN universities un ON un.id = p.university_id`
	conditions := []string{"p.active = TRUE", "un.active = TRUE"}
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("p.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("p.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(un.country) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Country)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY p.name ASC LIMIT %d",
		programDetailColumns, base, strings.Join(conditions, " AND "), limit)

	var programs []models.ProgramDetail
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, fmt.Errorf("search programs: %w", err)
	}
	return programs, nil
}

// FindDetailByID fetches one program with university context. Used to hydrate
// deep-linked selections that are absent from the current search page.
func (r *ProgramRepository) FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM programs p JOIN universities un ON un.id = p.university_id WHERE p.id = $1 LIMIT 1`, programDetailColumns)
	var detail models.ProgramDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns programs for admin and university views.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	base := `FROM programs p JOIN universities un ON un.id = p.university_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("p.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("p.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("p.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.discipline ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":        "p.name",
		"level":       "p.level",
		"tuition_fee": "p.tuition_fee",
		"created_at":  "p.created_at",
	}
	if sortBy == "" {
		sortBy = "name"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", programDetailColumns, base, column, order, size, offset)

	var programs []models.ProgramDetail
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// Create inserts a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now
	const query = `INSERT INTO programs (id, university_id, name, level, discipline, duration_months, tuition_fee, currency, commission_rate, language, description, active, created_at, updated_at)
        VALUES (:id, :university_id, :name, :level, :discipline, :duration_months, :tuition_fee, :currency, :commission_rate, :language, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update modifies an existing program.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET name = :name, level = :level, discipline = :discipline,
        duration_months = :duration_months, tuition_fee = :tuition_fee, currency = :currency,
        commission_rate = :commission_rate, language = :language, description = :description,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// ListUpcomingIntakes returns intakes whose application deadline has not
// passed, soonest start first.
func (r *ProgramRepository) ListUpcomingIntakes(ctx context.Context, programID string, asOf time.Time) ([]models.Intake, error) {
	const query = `SELECT id, program_id, label, start_date, application_deadline, capacity, active, created_at
        FROM intakes WHERE program_id = $1 AND active = TRUE AND application_deadline >= $2
        ORDER BY start_date ASC`
	var intakes []models.Intake
	if err := r.db.SelectContext(ctx, &intakes, query, programID, asOf); err != nil {
		return nil, fmt.Errorf("list intakes: %w", err)
	}
	return intakes, nil
}

// FindIntakeByID fetches a single intake.
func (r *ProgramRepository) FindIntakeByID(ctx context.Context, id string) (*models.Intake, error) {
	const query = `SELECT id, program_id, label, start_date, application_deadline, capacity, active, created_at
        FROM intakes WHERE id = $1 LIMIT 1`
	var intake models.Intake
	if err := r.db.GetContext(ctx, &intake, query, id); err != nil {
		return nil, err
	}
	return &intake, nil
}

// CreateIntake inserts a new intake.
func (r *ProgramRepository) CreateIntake(ctx context.Context, intake *models.Intake) error {
	if intake.ID == "" {
		intake.ID = uuid.NewString()
	}
	if intake.CreatedAt.IsZero() {
		intake.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO intakes (id, program_id, label, start_date, application_deadline, capacity, active, created_at)
        VALUES (:id, :program_id, :label, :start_date, :application_deadline, :capacity, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, intake); err != nil {
		return fmt.Errorf("create intake: %w", err)
	}
	return nil
}
