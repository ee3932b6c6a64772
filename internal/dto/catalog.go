package dto

import "github.com/Otsikow/unidoxia-sub010/internal/models"

// ProgramSearchResponse is one row in catalog search results.
type ProgramSearchResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Level          string  `json:"level"`
	Discipline     string  `json:"discipline"`
	DurationMonths int     `json:"durationMonths"`
	TuitionFee     float64 `json:"tuitionFee"`
	Currency       string  `json:"currency"`
	UniversityID   string  `json:"universityId"`
	UniversityName string  `json:"universityName"`
	Country        string  `json:"country"`
	City           string  `json:"city"`
}

// FromProgramDetail maps a joined catalog row into the search response shape.
func FromProgramDetail(p models.ProgramDetail) ProgramSearchResponse {
	return ProgramSearchResponse{
		ID:             p.ID,
		Name:           p.Name,
		Level:          p.Level,
		Discipline:     p.Discipline,
		DurationMonths: p.DurationMonths,
		TuitionFee:     p.TuitionFee,
		Currency:       p.Currency,
		UniversityID:   p.UniversityID,
		UniversityName: p.UniversityName,
		Country:        p.UniversityCountry,
		City:           p.UniversityCity,
	}
}

// CreateProgramRequest registers a program under a university.
type CreateProgramRequest struct {
	UniversityID   string  `json:"universityId" validate:"required,uuid4"`
	Name           string  `json:"name" validate:"required,min=2"`
	Level          string  `json:"level" validate:"required"`
	Discipline     string  `json:"discipline"`
	DurationMonths int     `json:"durationMonths" validate:"gte=0"`
	TuitionFee     float64 `json:"tuitionFee" validate:"gte=0"`
	Currency       string  `json:"currency" validate:"required,len=3"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=1"`
	Language       string  `json:"language"`
	Description    string  `json:"description"`
}

// UpdateProgramRequest patches mutable program fields.
type UpdateProgramRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Level          *string  `json:"level,omitempty"`
	Discipline     *string  `json:"discipline,omitempty"`
	DurationMonths *int     `json:"durationMonths,omitempty" validate:"omitempty,gte=0"`
	TuitionFee     *float64 `json:"tuitionFee,omitempty" validate:"omitempty,gte=0"`
	Currency       *string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	CommissionRate *float64 `json:"commissionRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Language       *string  `json:"language,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

// CreateIntakeRequest adds an admission cycle to a program.
type CreateIntakeRequest struct {
	Label               string `json:"label"`
	StartDate           string `json:"startDate" validate:"required,datetime=2006-01-02"`
	ApplicationDeadline string `json:"applicationDeadline" validate:"required,datetime=2006-01-02"`
	Capacity            *int   `json:"capacity,omitempty" validate:"omitempty,gt=0"`
}

// CreateUniversityRequest registers a partner university.
type CreateUniversityRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Country     string `json:"country" validate:"required"`
	City        string `json:"city"`
	Website     string `json:"website" validate:"omitempty,url"`
	LogoURL     string `json:"logoUrl" validate:"omitempty,url"`
	Description string `json:"description"`
}

// UpdateUniversityRequest patches mutable university fields.
type UpdateUniversityRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Country     *string `json:"country,omitempty"`
	City        *string `json:"city,omitempty"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
	LogoURL     *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
