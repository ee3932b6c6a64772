package models

import "time"

// DashboardScope narrows dashboard aggregates to one tenant, agent or
// student. Empty fields mean platform-wide.
type DashboardScope struct {
	UniversityID string
	AgentID      string
	StudentID    string
}

// StatusCount pairs an application status with its frequency.
type StatusCount struct {
	Status ApplicationStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}

// ProgramCount pairs a program with how many applications it received.
type ProgramCount struct {
	ProgramID   string `db:"program_id" json:"program_id"`
	ProgramName string `db:"program_name" json:"program_name"`
	Count       int    `db:"count" json:"count"`
}

// MonthlyCount buckets submissions per calendar month ("2025-04").
type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

// ApplicationSummary is a compact row for dashboard recent-activity lists.
type ApplicationSummary struct {
	ID             string            `db:"id" json:"id"`
	StudentName    string            `db:"student_name" json:"student_name"`
	ProgramName    string            `db:"program_name" json:"program_name"`
	UniversityName string            `db:"university_name" json:"university_name"`
	Status         ApplicationStatus `db:"status" json:"status"`
	SubmittedAt    time.Time         `db:"submitted_at" json:"submitted_at"`
}

// CommissionTotals aggregates commission amounts by payout state.
type CommissionTotals struct {
	Pending  float64 `db:"pending" json:"pending"`
	Approved float64 `db:"approved" json:"approved"`
	Paid     float64 `db:"paid" json:"paid"`
}

// SystemMetrics is a lightweight instrumentation snapshot surfaced on the
// admin dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
