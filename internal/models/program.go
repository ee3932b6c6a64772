package models

import "time"

// Program is a course of study offered by a partner university.
type Program struct {
	ID             string    `db:"id" json:"id"`
	UniversityID   string    `db:"university_id" json:"university_id"`
	Name           string    `db:"name" json:"name"`
	Level          string    `db:"level" json:"level"`
	Discipline     string    `db:"discipline" json:"discipline"`
	DurationMonths int       `db:"duration_months" json:"duration_months"`
	TuitionFee     float64   `db:"tuition_fee" json:"tuition_fee"`
	Currency       string    `db:"currency" json:"currency"`
	CommissionRate float64   `db:"commission_rate" json:"commission_rate"`
	Language       string    `db:"language" json:"language"`
	Description    string    `db:"description" json:"description"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramDetail joins a program with its university for display enrichment.
type ProgramDetail struct {
	Program
	UniversityName    string `db:"university_name" json:"university_name"`
	UniversityCountry string `db:"university_country" json:"university_country"`
	UniversityCity    string `db:"university_city" json:"university_city"`
}

// ProgramSearchFilter drives the catalog search endpoint.
type ProgramSearchFilter struct {
	Search       string
	UniversityID string
	Level        string
	Country      string
	Limit        int
}

// ProgramFilter captures admin-side listing parameters.
type ProgramFilter struct {
	Search       string
	UniversityID string
	Level        string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Intake is an admission cycle for a program: a start date plus the deadline
// by which applications must be received.
type Intake struct {
	ID                  string    `db:"id" json:"id"`
	ProgramID           string    `db:"program_id" json:"program_id"`
	Label               string    `db:"label" json:"label"`
	StartDate           time.Time `db:"start_date" json:"start_date"`
	ApplicationDeadline time.Time `db:"application_deadline" json:"application_deadline"`
	Capacity            *int      `db:"capacity" json:"capacity,omitempty"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// Year returns the intake's start year.
func (i Intake) Year() int {
	return i.StartDate.Year()
}

// Month returns the intake's start month as 1-12.
func (i Intake) Month() int {
	return int(i.StartDate.Month())
}
