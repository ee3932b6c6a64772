package models

import "time"

// StudentProfile holds the applicant-facing profile for a STUDENT user.
// AgentID links the student to the recruitment agent who referred or
// manages them; a nil value means the student applies independently.
type StudentProfile struct {
	ID                 string     `db:"id" json:"id"`
	UserID             string     `db:"user_id" json:"user_id"`
	AgentID            *string    `db:"agent_id" json:"agent_id,omitempty"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	Phone              string     `db:"phone" json:"phone"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Nationality        string     `db:"nationality" json:"nationality"`
	CountryOfResidence string     `db:"country_of_residence" json:"country_of_residence"`
	PassportNumber     string     `db:"passport_number" json:"passport_number"`
	Address            string     `db:"address" json:"address"`
	City               string     `db:"city" json:"city"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	AgentID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail joins the profile with account information.
type StudentDetail struct {
	StudentProfile
	Email     string  `db:"email" json:"email"`
	FullName  string  `db:"full_name" json:"full_name"`
	AgentName *string `db:"agent_name" json:"agent_name,omitempty"`
}
