package dto

import (
	"time"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// AdminDashboardResponse aggregates marketplace-wide figures. Metrics is a
// live process snapshot and is refreshed even when the aggregates come from
// cache.
type AdminDashboardResponse struct {
	TotalStudents        int                         `json:"totalStudents"`
	TotalAgents          int                         `json:"totalAgents"`
	TotalUniversities    int                         `json:"totalUniversities"`
	TotalPrograms        int                         `json:"totalPrograms"`
	TotalApplications    int                         `json:"totalApplications"`
	ApplicationsByStatus []models.StatusCount        `json:"applicationsByStatus"`
	MonthlySubmissions   []models.MonthlyCount       `json:"monthlySubmissions"`
	RecentApplications   []models.ApplicationSummary `json:"recentApplications"`
	PendingCommissions   float64                     `json:"pendingCommissions"`
	Metrics              models.SystemMetrics        `json:"metrics"`
	GeneratedAt          time.Time                   `json:"generatedAt"`
}

// AgentDashboardResponse aggregates one agent's roster and pipeline.
type AgentDashboardResponse struct {
	StudentCount         int                         `json:"studentCount"`
	ApplicationCount     int                         `json:"applicationCount"`
	ApplicationsByStatus []models.StatusCount        `json:"applicationsByStatus"`
	RecentApplications   []models.ApplicationSummary `json:"recentApplications"`
	Commissions          models.CommissionTotals     `json:"commissions"`
	UnreadMessages       int                         `json:"unreadMessages"`
	ReferralLink         string                      `json:"referralLink"`
	GeneratedAt          time.Time                   `json:"generatedAt"`
}

// StudentDashboardResponse shows the student's own drafts and applications.
type StudentDashboardResponse struct {
	DraftCount           int                         `json:"draftCount"`
	ApplicationCount     int                         `json:"applicationCount"`
	ApplicationsByStatus []models.StatusCount        `json:"applicationsByStatus"`
	RecentApplications   []models.ApplicationSummary `json:"recentApplications"`
	UnreadMessages       int                         `json:"unreadMessages"`
	GeneratedAt          time.Time                   `json:"generatedAt"`
}

// UniversityDashboardResponse aggregates a tenant's inbound pipeline.
// AcceptanceRate is the share of extended offers that were taken up.
type UniversityDashboardResponse struct {
	ProgramCount         int                         `json:"programCount"`
	ApplicationCount     int                         `json:"applicationCount"`
	PendingReview        int                         `json:"pendingReview"`
	AcceptanceRate       float64                     `json:"acceptanceRate"`
	ApplicationsByStatus []models.StatusCount        `json:"applicationsByStatus"`
	TopPrograms          []models.ProgramCount       `json:"topPrograms"`
	MonthlySubmissions   []models.MonthlyCount       `json:"monthlySubmissions"`
	RecentApplications   []models.ApplicationSummary `json:"recentApplications"`
	GeneratedAt          time.Time                   `json:"generatedAt"`
}
