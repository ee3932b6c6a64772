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

// PaymentRepository manages persistence for tuition payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentDetailColumns = `pay.id, pay.application_id, pay.amount, pay.currency, pay.reference,
        pay.status, pay.recorded_by, pay.confirmed_at, pay.created_at, pay.updated_at,
        su.full_name AS student_name,
        p.name AS program_name,
        un.name AS university_name`

const paymentDetailJoins = `FROM payments pay
        JOIN applications a ON a.id = pay.application_id
        JOIN student_profiles s ON s.id = a.student_id
        JOIN users su ON su.id = s.user_id
        JOIN programs p ON p.id = a.program_id
        JOIN universities un ON un.id = a.university_id`

// List returns payments matching the filter alongside the total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	base := paymentDetailJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ApplicationID != "" {
		conditions = append(conditions, fmt.Sprintf("pay.application_id = $%d", len(args)+1))
		args = append(args, filter.ApplicationID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("a.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("pay.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at": "pay.created_at",
		"amount":     "pay.amount",
		"status":     "pay.status",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "pay.created_at"
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
		paymentDetailColumns, base, column, order, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByID fetches one payment with display fields.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE pay.id = $1 LIMIT 1", paymentDetailColumns, paymentDetailJoins)
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, application_id, amount, currency, reference, status, recorded_by, confirmed_at, created_at, updated_at)
        VALUES (:id, :application_id, :amount, :currency, :reference, :status, :recorded_by, :confirmed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdateStatus moves a payment between PENDING, CONFIRMED and REFUNDED.
// Confirmation stamps confirmed_at.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, at time.Time) error {
	var query string
	switch status {
	case models.PaymentStatusConfirmed:
		query = `UPDATE payments SET status = $1, confirmed_at = $2, updated_at = $2 WHERE id = $3`
	default:
		query = `UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`
	}
	if _, err := r.db.ExecContext(ctx, query, status, at, id); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
