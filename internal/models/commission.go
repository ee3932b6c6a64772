package models

import "time"

// CommissionStatus tracks a commission through payout.
type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "PENDING"
	CommissionStatusApproved CommissionStatus = "APPROVED"
	CommissionStatusPaid     CommissionStatus = "PAID"
)

// Commission records the amount owed to an agent for an enrolled student.
// Created automatically when an application reaches ENROLLED: amount is the
// program's tuition fee times the program's commission rate, falling back to
// the agent's negotiated rate when the program carries none.
type Commission struct {
	ID            string           `db:"id" json:"id"`
	AgentID       string           `db:"agent_id" json:"agent_id"`
	ApplicationID string           `db:"application_id" json:"application_id"`
	Amount        float64          `db:"amount" json:"amount"`
	Currency      string           `db:"currency" json:"currency"`
	Rate          float64          `db:"rate" json:"rate"`
	Status        CommissionStatus `db:"status" json:"status"`
	ApprovedAt    *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	PaidAt        *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// CommissionDetail joins display fields for commission listings.
type CommissionDetail struct {
	Commission
	AgentName      string `db:"agent_name" json:"agent_name"`
	StudentName    string `db:"student_name" json:"student_name"`
	ProgramName    string `db:"program_name" json:"program_name"`
	UniversityName string `db:"university_name" json:"university_name"`
}

// CommissionFilter captures list criteria for commissions.
type CommissionFilter struct {
	AgentID   string
	Status    *CommissionStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
