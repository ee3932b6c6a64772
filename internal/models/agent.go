package models

import "time"

// AgentProfile holds the recruiter-facing profile for an AGENT user.
// Username is the public handle embedded in referral links.
type AgentProfile struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Username       string    `db:"username" json:"username"`
	CompanyName    string    `db:"company_name" json:"company_name"`
	Phone          string    `db:"phone" json:"phone"`
	Country        string    `db:"country" json:"country"`
	Website        string    `db:"website" json:"website"`
	CommissionRate float64   `db:"commission_rate" json:"commission_rate"`
	Verified       bool      `db:"verified" json:"verified"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AgentFilter encapsulates allowed search parameters for listing agents.
type AgentFilter struct {
	Search    string
	Country   string
	Verified  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AgentDetail joins the profile with account information and roster size.
type AgentDetail struct {
	AgentProfile
	Email        string `db:"email" json:"email"`
	FullName     string `db:"full_name" json:"full_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}
