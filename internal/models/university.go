package models

import "time"

// University represents a partner institution. Each university is a tenant:
// its staff accounts, programs and received applications are scoped to it.
type University struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Country     string    `db:"country" json:"country"`
	City        string    `db:"city" json:"city"`
	Website     string    `db:"website" json:"website"`
	LogoURL     string    `db:"logo_url" json:"logo_url"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UniversityFilter encapsulates allowed search parameters for listing universities.
type UniversityFilter struct {
	Search    string
	Country   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
