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

// CommissionRepository manages persistence for agent commissions.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository constructs a CommissionRepository.
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

const commissionDetailColumns = `co.id, co.agent_id, co.application_id, co.amount, co.currency, co.rate,
        co.status, co.approved_at, co.paid_at, co.created_at, co.updated_at,
        au.full_name AS agent_name,
        su.full_name AS student_name,
        p.name AS program_name,
        un.name AS university_name`

const commissionDetailJoins = `FROM commissions co
        JOIN agent_profiles ag ON ag.id = co.agent_id
        JOIN users au ON au.id = ag.user_id
        JOIN applications a ON a.id = co.application_id
        JOIN student_profiles s ON s.id = a.student_id
        JOIN users su ON su.id = s.user_id
        JOIN programs p ON p.id = a.program_id
        JOIN universities un ON un.id = a.university_id`

// List returns commissions matching the filter alongside the total count.
func (r *CommissionRepository) List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error) {
	base := commissionDetailJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.AgentID != "" {
		conditions = append(conditions, fmt.Sprintf("co.agent_id = $%d", len(args)+1))
		args = append(args, filter.AgentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("co.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at": "co.created_at",
		"amount":     "co.amount",
		"status":     "co.status",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "co.created_at"
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
		commissionDetailColumns, base, column, order, size, offset)

	var commissions []models.CommissionDetail
	if err := r.db.SelectContext(ctx, &commissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list commissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}
	return commissions, total, nil
}

// FindByID fetches one commission with display fields.
func (r *CommissionRepository) FindByID(ctx context.Context, id string) (*models.CommissionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE co.id = $1 LIMIT 1", commissionDetailColumns, commissionDetailJoins)
	var detail models.CommissionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsForApplication reports whether the application already earned a
// commission. Enrollment pays out once.
func (r *CommissionRepository) ExistsForApplication(ctx context.Context, applicationID string) (bool, error) {
	const query = `SELECT id FROM commissions WHERE application_id = $1 LIMIT 1`
	var id string
	err := r.db.GetContext(ctx, &id, query, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check commission exists: %w", err)
	}
	return true, nil
}

// Create inserts a commission.
func (r *CommissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	if commission.ID == "" {
		commission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = now
	}
	commission.UpdatedAt = now
	const query = `INSERT INTO commissions (id, agent_id, application_id, amount, currency, rate, status, approved_at, paid_at, created_at, updated_at)
        VALUES (:id, :agent_id, :application_id, :amount, :currency, :rate, :status, :approved_at, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, commission); err != nil {
		return fmt.Errorf("create commission: %w", err)
	}
	return nil
}

// UpdateStatus advances a commission along PENDING, APPROVED, PAID and stamps
// the matching timestamp.
func (r *CommissionRepository) UpdateStatus(ctx context.Context, id string, status models.CommissionStatus, at time.Time) error {
	var query string
	switch status {
	case models.CommissionStatusApproved:
		query = `UPDATE commissions SET status = $1, approved_at = $2, updated_at = $2 WHERE id = $3`
	case models.CommissionStatusPaid:
		query = `UPDATE commissions SET status = $1, paid_at = $2, updated_at = $2 WHERE id = $3`
	default:
		query = `UPDATE commissions SET status = $1, updated_at = $2 WHERE id = $3`
	}
	if _, err := r.db.ExecContext(ctx, query, status, at, id); err != nil {
		return fmt.Errorf("update commission status: %w", err)
	}
	return nil
}

// TotalsByAgent sums commission amounts per status for one agent.
func (r *CommissionRepository) TotalsByAgent(ctx context.Context, agentID string) (*models.CommissionTotals, error) {
	const query = `SELECT
        COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0) AS pending,
        COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0) AS approved,
        COALESCE(SUM(amount) FILTER (WHERE status = 'PAID'), 0) AS paid
        FROM commissions WHERE agent_id = $1`
	var totals models.CommissionTotals
	if err := r.db.GetContext(ctx, &totals, query, agentID); err != nil {
		return nil, fmt.Errorf("commission totals: %w", err)
	}
	return &totals, nil
}

// Totals sums commission amounts per status across all agents.
func (r *CommissionRepository) Totals(ctx context.Context) (*models.CommissionTotals, error) {
	const query = `SELECT
        COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0) AS pending,
        COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0) AS approved,
        COALESCE(SUM(amount) FILTER (WHERE status = 'PAID'), 0) AS paid
        FROM commissions`
	var totals models.CommissionTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("commission totals: %w", err)
	}
	return &totals, nil
}
