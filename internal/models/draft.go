package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wizard step cursor positions. The cursor is bounded to [StepPersonalInfo,
// StepReview]; advancing past a step requires that step's data to be complete.
const (
	StepPersonalInfo = 1
	StepEducation    = 2
	StepProgram      = 3
	StepDocuments    = 4
	StepReview       = 5

	TotalSteps = 5
)

// StepName returns the wire name for a step cursor position.
func StepName(step int) string {
	switch step {
	case StepPersonalInfo:
		return "personal_info"
	case StepEducation:
		return "education"
	case StepProgram:
		return "program"
	case StepDocuments:
		return "documents"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// PersonalInfo is the first wizard step, persisted as JSONB on the draft.
type PersonalInfo struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	DateOfBirth        string `json:"date_of_birth"`
	Nationality        string `json:"nationality"`
	CountryOfResidence string `json:"country_of_residence"`
	PassportNumber     string `json:"passport_number,omitempty"`
	Address            string `json:"address"`
	City               string `json:"city"`
}

// Complete reports whether every required field is non-empty. Passport number
// is the only optional field.
func (p PersonalInfo) Complete() bool {
	required := []string{p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth,
		p.Nationality, p.CountryOfResidence, p.Address, p.City}
	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// Problems lists the required fields that are still empty, keyed by wire name.
func (p PersonalInfo) Problems() map[string]string {
	problems := make(map[string]string)
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			problems[field] = "required"
		}
	}
	check("first_name", p.FirstName)
	check("last_name", p.LastName)
	check("email", p.Email)
	check("phone", p.Phone)
	check("date_of_birth", p.DateOfBirth)
	check("nationality", p.Nationality)
	check("country_of_residence", p.CountryOfResidence)
	check("address", p.Address)
	check("city", p.City)
	return problems
}

// Value marshals personal info to JSON for persistence.
func (p PersonalInfo) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal personal info: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the struct.
func (p *PersonalInfo) Scan(value interface{}) error {
	return scanJSON(value, p, "PersonalInfo")
}

// ProgramChoice is the third wizard step: the chosen program plus intake
// timing. IntakeID is set when the student picked a listed intake; year and
// month are always populated (derived from the intake when one is chosen,
// manually entered otherwise).
type ProgramChoice struct {
	ProgramID   string `json:"program_id"`
	IntakeID    string `json:"intake_id,omitempty"`
	IntakeYear  int    `json:"intake_year"`
	IntakeMonth int    `json:"intake_month"`
}

// Complete requires a program plus a plausible intake year and month.
func (pc ProgramChoice) Complete() bool {
	return pc.ProgramID != "" && pc.IntakeYear > 0 && pc.IntakeMonth >= 1 && pc.IntakeMonth <= 12
}

// Value marshals the choice to JSON for persistence.
func (pc ProgramChoice) Value() (driver.Value, error) {
	data, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("marshal program choice: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the struct.
func (pc *ProgramChoice) Scan(value interface{}) error {
	return scanJSON(value, pc, "ProgramChoice")
}

// ApplicationDraft is a student's in-progress application. The draft survives
// sessions; the step cursor records how far the student has got. Once
// submitted the draft is frozen and ApplicationID points at the created
// application.
type ApplicationDraft struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	CurrentStep   int              `db:"current_step" json:"current_step"`
	PersonalInfo  PersonalInfo     `db:"personal_info" json:"personal_info"`
	Education     EducationHistory `db:"education" json:"education"`
	Program       ProgramChoice    `db:"program" json:"program"`
	Notes         string           `db:"notes" json:"notes"`
	Submitted     bool             `db:"submitted" json:"submitted"`
	SubmittedAt   *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	ApplicationID *string          `db:"application_id" json:"application_id,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// StepComplete reports whether the data backing a step is complete. Document
// completeness lives outside the draft row, so callers pass it in.
func (d *ApplicationDraft) StepComplete(step int, documentsComplete bool) bool {
	switch step {
	case StepPersonalInfo:
		return d.PersonalInfo.Complete()
	case StepEducation:
		return d.Education.Complete()
	case StepProgram:
		return d.Program.Complete()
	case StepDocuments:
		return documentsComplete
	case StepReview:
		return true
	default:
		return false
	}
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
