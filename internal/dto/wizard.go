package dto

import (
	"time"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// CreateDraftRequest starts a new application draft. All fields optional;
// students may prefill personal info from their profile.
type CreateDraftRequest struct {
	PersonalInfo *models.PersonalInfo `json:"personalInfo,omitempty"`
}

// StepState reports one wizard step's completeness.
type StepState struct {
	Step     int    `json:"step"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// DraftResponse is the canonical wizard payload returned by every draft
// endpoint: the draft itself plus derived step states.
type DraftResponse struct {
	Draft models.ApplicationDraft `json:"draft"`
	Steps []StepState             `json:"steps"`
}

// UpdatePersonalInfoRequest replaces the personal info step wholesale.
type UpdatePersonalInfoRequest struct {
	FirstName          string `json:"firstName" validate:"required"`
	LastName           string `json:"lastName" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required"`
	DateOfBirth        string `json:"dateOfBirth" validate:"required"`
	Nationality        string `json:"nationality" validate:"required"`
	CountryOfResidence string `json:"countryOfResidence"`
	PassportNumber     string `json:"passportNumber"`
	Address            string `json:"address"`
	City               string `json:"city"`
}

// UpdateEducationRecordRequest patches a single field on one record. Level
// values pass through synonym normalization before storage.
type UpdateEducationRecordRequest struct {
	Field string `json:"field" validate:"required,oneof=level institution_name country start_date end_date gpa grade_scale"`
	Value string `json:"value"`
}

// PutProgramRequest sets the program selection step. When intakeId is given
// the intake's start date wins over the manual year/month.
type PutProgramRequest struct {
	ProgramID   string `json:"programId" validate:"required"`
	IntakeID    string `json:"intakeId"`
	IntakeYear  int    `json:"intakeYear"`
	IntakeMonth int    `json:"intakeMonth"`
}

// ReviewResponse aggregates everything the review step renders: the draft,
// the chosen program with university detail, and the uploaded documents.
type ReviewResponse struct {
	Draft     models.ApplicationDraft `json:"draft"`
	Program   *models.ProgramDetail   `json:"program,omitempty"`
	Intake    *models.Intake          `json:"intake,omitempty"`
	Documents []models.Document       `json:"documents"`
	Missing   []models.DocumentType   `json:"missingDocuments"`
	Steps     []StepState             `json:"steps"`
}

// SubmitRequest finalises the draft into an application.
type SubmitRequest struct {
	AgreedToTerms bool   `json:"agreedToTerms"`
	Notes         string `json:"notes"`
}

// SubmitResponse reports the created application.
type SubmitResponse struct {
	ApplicationID string                   `json:"applicationId"`
	Status        models.ApplicationStatus `json:"status"`
	SubmittedAt   time.Time                `json:"submittedAt"`
}
