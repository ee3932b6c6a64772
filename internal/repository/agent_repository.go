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

// AgentRepository manages persistence for agent profiles.
type AgentRepository struct {
	db *sqlx.DB
}

// NewAgentRepository constructs an AgentRepository.
func NewAgentRepository(db *sqlx.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

const agentDetailColumns = `a.id, a.user_id, a.username, a.company_name, a.phone, a.country, a.website,
        a.commission_rate, a.verified, a.created_at, a.updated_at, u.email, u.full_name,
        (SELECT COUNT(*) FROM student_profiles sp WHERE sp.agent_id = a.id) AS student_count`

// List returns agent profiles matching the provided filters.
func (r *AgentRepository) List(ctx context.Context, filter models.AgentFilter) ([]models.AgentDetail, int, error) {
	base := `FROM agent_profiles a JOIN users u ON u.id = a.user_id`
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(a.country) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Country)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("a.verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(a.username) LIKE $%d OR LOWER(a.company_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at":   "a.created_at",
		"username":     "a.username",
		"company_name": "a.company_name",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "a.created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, agentDetailColumns, base, column, order, size, offset)

	var agents []models.AgentDetail
	if err := r.db.SelectContext(ctx, &agents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list agents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count agents: %w", err)
	}
	return agents, total, nil
}

// FindByID fetches an agent detail by profile ID.
func (r *AgentRepository) FindByID(ctx context.Context, id string) (*models.AgentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM agent_profiles a JOIN users u ON u.id = a.user_id WHERE a.id = $1`, agentDetailColumns)
	var detail models.AgentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the profile owned by an account.
func (r *AgentRepository) FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error) {
	const query = `SELECT id, user_id, username, company_name, phone, country, website, commission_rate, verified, created_at, updated_at
        FROM agent_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.AgentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find agent by user: %w", err)
	}
	return &profile, nil
}

// FindByUsername resolves a referral handle to a profile.
func (r *AgentRepository) FindByUsername(ctx context.Context, username string) (*models.AgentProfile, error) {
	const query = `SELECT id, user_id, username, company_name, phone, country, website, commission_rate, verified, created_at, updated_at
        FROM agent_profiles WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var profile models.AgentProfile
	if err := r.db.GetContext(ctx, &profile, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find agent by username: %w", err)
	}
	return &profile, nil
}

// ExistsByUsername checks username uniqueness optionally excluding a profile.
func (r *AgentRepository) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	query := `SELECT 1 FROM agent_profiles WHERE LOWER(username) = LOWER($1)`
	args := []interface{}{username}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check username: %w", err)
	}
	return true, nil
}

// Create inserts a new agent profile.
func (r *AgentRepository) Create(ctx context.Context, profile *models.AgentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO agent_profiles (id, user_id, username, company_name, phone, country, website, commission_rate, verified, created_at, updated_at)
        VALUES (:id, :user_id, :username, :company_name, :phone, :country, :website, :commission_rate, :verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create agent profile: %w", err)
	}
	return nil
}

// Update modifies an existing agent profile.
func (r *AgentRepository) Update(ctx context.Context, profile *models.AgentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE agent_profiles SET username = :username, company_name = :company_name, phone = :phone,
        country = :country, website = :website, commission_rate = :commission_rate, verified = :verified,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update agent profile: %w", err)
	}
	return nil
}
