package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.user_id, s.agent_id, s.first_name, s.last_name, s.phone, s.date_of_birth,
        s.nationality, s.country_of_residence, s.passport_number, s.address, s.city, s.created_at, s.updated_at,
        u.email, u.full_name, au.full_name AS agent_name`

// List returns student profiles matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM student_profiles s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN agent_profiles a ON a.id = s.agent_id
        LEFT JOIN users au ON au.id = a.user_id`
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d OR LOWER(s.nationality) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at":  "s.created_at",
		"full_name":   "u.full_name",
		"nationality": "s.nationality",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentDetailColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by profile ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN agent_profiles a ON a.id = s.agent_id
        LEFT JOIN users au ON au.id = a.user_id
        WHERE s.id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindDetailByUserID fetches the joined detail row for the profile owned by
// an account. Services acting on behalf of the logged-in student use this to
// get the account email and agent linkage in one query.
func (r *StudentRepository) FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN agent_profiles a ON a.id = s.agent_id
        LEFT JOIN users au ON au.id = a.user_id
        WHERE s.user_id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the profile owned by an account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, agent_id, first_name, last_name, phone, date_of_birth, nationality,
        country_of_residence, passport_number, address, city, created_at, updated_at
        FROM student_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user: %w", err)
	}
	return &profile, nil
}

// Create inserts a new student profile.
func (r *StudentRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO student_profiles (id, user_id, agent_id, first_name, last_name, phone, date_of_birth,
        nationality, country_of_residence, passport_number, address, city, created_at, updated_at)
        VALUES (:id, :user_id, :agent_id, :first_name, :last_name, :phone, :date_of_birth,
        :nationality, :country_of_residence, :passport_number, :address, :city, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update modifies an existing student profile.
func (r *StudentRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET agent_id = :agent_id, first_name = :first_name, last_name = :last_name,
        phone = :phone, date_of_birth = :date_of_birth, nationality = :nationality,
        country_of_residence = :country_of_residence, passport_number = :passport_number,
        address = :address, city = :city, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// CountByAgent returns the number of students managed by an agent.
func (r *StudentRepository) CountByAgent(ctx context.Context, agentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM student_profiles WHERE agent_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, agentID); err != nil {
		return 0, fmt.Errorf("count agent students: %w", err)
	}
	return count, nil
}
