package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// QueryTimer receives per-query latency observations.
type QueryTimer interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// DashboardRepository exposes read-optimised aggregate queries for the
// role-scoped dashboards. These are the heaviest queries in the system, so
// each one reports its latency to the timer.
type DashboardRepository struct {
	db    *sqlx.DB
	timer QueryTimer
}

// NewDashboardRepository instantiates the repository. The timer may be nil.
func NewDashboardRepository(db *sqlx.DB, timer QueryTimer) *DashboardRepository {
	return &DashboardRepository{db: db, timer: timer}
}

func (r *DashboardRepository) observe(label string, start time.Time) {
	if r.timer != nil {
		r.timer.ObserveDBQuery(label, time.Since(start))
	}
}

func applyDashboardScope(scope models.DashboardScope, builder *strings.Builder, args *[]interface{}) {
	if scope.UniversityID != "" {
		*args = append(*args, scope.UniversityID)
		builder.WriteString(fmt.Sprintf(" AND a.university_id = $%d", len(*args)))
	}
	if scope.AgentID != "" {
		*args = append(*args, scope.AgentID)
		builder.WriteString(fmt.Sprintf(" AND a.agent_id = $%d", len(*args)))
	}
	if scope.StudentID != "" {
		*args = append(*args, scope.StudentID)
		builder.WriteString(fmt.Sprintf(" AND a.student_id = $%d", len(*args)))
	}
}

// CountApplicationsByStatus buckets applications by status within the scope.
func (r *DashboardRepository) CountApplicationsByStatus(ctx context.Context, scope models.DashboardScope) ([]models.StatusCount, error) {
	defer r.observe("dashboard_status_counts", time.Now())
	var builder strings.Builder
	builder.WriteString("SELECT a.status, COUNT(*) AS count FROM applications a WHERE 1=1")
	var args []interface{}
	applyDashboardScope(scope, &builder, &args)
	builder.WriteString(" GROUP BY a.status ORDER BY count DESC")

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return counts, nil
}

// CountApplicationsByMonth buckets submissions per calendar month over the
// trailing window.
func (r *DashboardRepository) CountApplicationsByMonth(ctx context.Context, scope models.DashboardScope, months int) ([]models.MonthlyCount, error) {
	defer r.observe("dashboard_monthly_counts", time.Now())
	if months <= 0 {
		months = 12
	}
	var builder strings.Builder
	builder.WriteString("SELECT TO_CHAR(DATE_TRUNC('month', a.submitted_at), 'YYYY-MM') AS month, COUNT(*) AS count FROM applications a WHERE 1=1")
	args := []interface{}{}
	applyDashboardScope(scope, &builder, &args)
	args = append(args, months)
	builder.WriteString(fmt.Sprintf(" AND a.submitted_at >= DATE_TRUNC('month', CURRENT_DATE) - ($%d || ' months')::INTERVAL", len(args)))
	builder.WriteString(" GROUP BY month ORDER BY month ASC")

	var counts []models.MonthlyCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count applications by month: %w", err)
	}
	return counts, nil
}

// RecentApplications returns the newest submissions within the scope.
func (r *DashboardRepository) RecentApplications(ctx context.Context, scope models.DashboardScope, limit int) ([]models.ApplicationSummary, error) {
	defer r.observe("dashboard_recent_applications", time.Now())
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var builder strings.Builder
	builder.WriteString(`SELECT a.id, u.full_name AS student_name, p.name AS program_name, un.name AS university_name, a.status, a.submitted_at
        FROM applications a
        JOIN student_profiles s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id
        JOIN programs p ON p.id = a.program_id
        JOIN universities un ON un.id = a.university_id
        WHERE 1=1`)
	var args []interface{}
	applyDashboardScope(scope, &builder, &args)
	builder.WriteString(fmt.Sprintf(" ORDER BY a.submitted_at DESC LIMIT %d", limit))

	var summaries []models.ApplicationSummary
	if err := r.db.SelectContext(ctx, &summaries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("recent applications: %w", err)
	}
	return summaries, nil
}

// CountApplicationsByProgram ranks a university's programs by how many
// applications they received.
func (r *DashboardRepository) CountApplicationsByProgram(ctx context.Context, universityID string, limit int) ([]models.ProgramCount, error) {
	defer r.observe("dashboard_program_ranking", time.Now())
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT p.id AS program_id, p.name AS program_name, COUNT(*) AS count
        FROM applications a
        JOIN programs p ON p.id = a.program_id
        WHERE a.university_id = $1
        GROUP BY p.id, p.name
        ORDER BY count DESC, p.name ASC
        LIMIT %d`, limit)

	var counts []models.ProgramCount
	if err := r.db.SelectContext(ctx, &counts, query, universityID); err != nil {
		return nil, fmt.Errorf("count applications by program: %w", err)
	}
	return counts, nil
}

// CountStudentsByAgent counts the agent's roster.
func (r *DashboardRepository) CountStudentsByAgent(ctx context.Context, agentID string) (int, error) {
	defer r.observe("dashboard_agent_roster", time.Now())
	const query = `SELECT COUNT(*) FROM student_profiles WHERE agent_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, agentID); err != nil {
		return 0, fmt.Errorf("count students by agent: %w", err)
	}
	return total, nil
}

// CountUsersByRole counts active users per role for the admin dashboard.
func (r *DashboardRepository) CountUsersByRole(ctx context.Context) (map[models.UserRole]int, error) {
	defer r.observe("dashboard_users_by_role", time.Now())
	const query = `SELECT role, COUNT(*) AS count FROM users WHERE active = TRUE GROUP BY role`
	rows := []struct {
		Role  models.UserRole `db:"role"`
		Count int             `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	counts := make(map[models.UserRole]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// CountActiveUniversities counts universities open for applications.
func (r *DashboardRepository) CountActiveUniversities(ctx context.Context) (int, error) {
	defer r.observe("dashboard_university_count", time.Now())
	const query = `SELECT COUNT(*) FROM universities WHERE active = TRUE`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count universities: %w", err)
	}
	return total, nil
}

// CountActivePrograms counts listed programs, optionally for one university.
func (r *DashboardRepository) CountActivePrograms(ctx context.Context, universityID string) (int, error) {
	defer r.observe("dashboard_program_count", time.Now())
	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM programs WHERE active = TRUE")
	var args []interface{}
	if universityID != "" {
		args = append(args, universityID)
		builder.WriteString(fmt.Sprintf(" AND university_id = $%d", len(args)))
	}
	var total int
	if err := r.db.GetContext(ctx, &total, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}
