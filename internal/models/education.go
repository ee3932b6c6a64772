package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical education level tokens stored on education records.
const (
	EducationLevelHighSchool          = "high_school"
	EducationLevelCertificate         = "certificate"
	EducationLevelDiploma             = "diploma"
	EducationLevelAssociate           = "associate"
	EducationLevelBachelor            = "bachelor"
	EducationLevelPostgraduateDiploma = "postgraduate_diploma"
	EducationLevelMaster              = "master"
	EducationLevelDoctorate           = "doctorate"
)

// EducationLevelOption pairs a canonical token with its display label.
type EducationLevelOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// EducationLevels lists the canonical levels in ascending order.
func EducationLevels() []EducationLevelOption {
	return []EducationLevelOption{
		{Value: EducationLevelHighSchool, Label: "High School"},
		{Value: EducationLevelCertificate, Label: "Certificate"},
		{Value: EducationLevelDiploma, Label: "Diploma"},
		{Value: EducationLevelAssociate, Label: "Associate Degree"},
		{Value: EducationLevelBachelor, Label: "Bachelor's Degree"},
		{Value: EducationLevelPostgraduateDiploma, Label: "Postgraduate Diploma"},
		{Value: EducationLevelMaster, Label: "Master's Degree"},
		{Value: EducationLevelDoctorate, Label: "Doctorate (PhD)"},
	}
}

var educationLevelSynonyms = map[string]string{
	"secondary school":     EducationLevelHighSchool,
	"secondary education":  EducationLevelHighSchool,
	"highschool":           EducationLevelHighSchool,
	"high school diploma":  EducationLevelHighSchool,
	"a-levels":             EducationLevelHighSchool,
	"a levels":             EducationLevelHighSchool,
	"ib":                   EducationLevelHighSchool,
	"foundation":           EducationLevelCertificate,
	"foundation year":      EducationLevelCertificate,
	"advanced diploma":     EducationLevelDiploma,
	"higher diploma":       EducationLevelDiploma,
	"hnd":                  EducationLevelDiploma,
	"associates":           EducationLevelAssociate,
	"associate's":          EducationLevelAssociate,
	"associate's degree":   EducationLevelAssociate,
	"associates degree":    EducationLevelAssociate,
	"bachelors":            EducationLevelBachelor,
	"bachelor's":           EducationLevelBachelor,
	"bachelors degree":     EducationLevelBachelor,
	"bachelor degree":      EducationLevelBachelor,
	"undergraduate":        EducationLevelBachelor,
	"undergraduate degree": EducationLevelBachelor,
	"bsc":                  EducationLevelBachelor,
	"ba":                   EducationLevelBachelor,
	"beng":                 EducationLevelBachelor,
	"licence":              EducationLevelBachelor,
	"graduate diploma":     EducationLevelPostgraduateDiploma,
	"pgdip":                EducationLevelPostgraduateDiploma,
	"pgd":                  EducationLevelPostgraduateDiploma,
	"masters":              EducationLevelMaster,
	"master's":             EducationLevelMaster,
	"masters degree":       EducationLevelMaster,
	"master degree":        EducationLevelMaster,
	"postgraduate":         EducationLevelMaster,
	"postgraduate degree":  EducationLevelMaster,
	"msc":                  EducationLevelMaster,
	"ma":                   EducationLevelMaster,
	"mba":                  EducationLevelMaster,
	"meng":                 EducationLevelMaster,
	"phd":                  EducationLevelDoctorate,
	"ph.d":                 EducationLevelDoctorate,
	"ph.d.":                EducationLevelDoctorate,
	"doctoral":             EducationLevelDoctorate,
	"doctoral degree":      EducationLevelDoctorate,
	"doctorate degree":     EducationLevelDoctorate,
	"doctor of philosophy": EducationLevelDoctorate,
}

// NormalizeEducationLevel maps free-text level input to a canonical token.
// Matching runs in order: canonical token, display label, synonym table, all
// case-insensitive on the trimmed input. Unmatched input is returned verbatim
// with ok=false so callers can flag it; the raw value is still stored.
func NormalizeEducationLevel(raw string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return raw, false
	}

	for _, opt := range EducationLevels() {
		if needle == opt.Value {
			return opt.Value, true
		}
	}
	for _, opt := range EducationLevels() {
		if needle == strings.ToLower(opt.Label) {
			return opt.Value, true
		}
	}
	if token, ok := educationLevelSynonyms[needle]; ok {
		return token, true
	}
	return raw, false
}

// EducationRecord is one entry in an applicant's education history. Dates are
// kept as the client-entered strings (YYYY-MM); an empty end date means
// currently enrolled.
type EducationRecord struct {
	ID              string `json:"id"`
	Level           string `json:"level"`
	InstitutionName string `json:"institution_name"`
	Country         string `json:"country"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
	GPA             string `json:"gpa,omitempty"`
	GradeScale      string `json:"grade_scale,omitempty"`
}

// Complete reports whether the record carries every required field. End date,
// GPA and grade scale stay optional.
func (r EducationRecord) Complete() bool {
	return strings.TrimSpace(r.Level) != "" &&
		strings.TrimSpace(r.InstitutionName) != "" &&
		strings.TrimSpace(r.Country) != "" &&
		strings.TrimSpace(r.StartDate) != ""
}

// EducationHistory is the JSONB-persisted list of education records.
type EducationHistory []EducationRecord

// Complete requires at least one record and every record complete.
func (h EducationHistory) Complete() bool {
	if len(h) == 0 {
		return false
	}
	for _, record := range h {
		if !record.Complete() {
			return false
		}
	}
	return true
}

// Value marshals the history to JSON for persistence.
func (h EducationHistory) Value() (driver.Value, error) {
	if h == nil {
		h = EducationHistory{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal education history: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the history slice.
func (h *EducationHistory) Scan(value interface{}) error {
	if value == nil {
		*h = EducationHistory{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for EducationHistory", value)
	}
	if len(data) == 0 {
		*h = EducationHistory{}
		return nil
	}
	if err := json.Unmarshal(data, h); err != nil {
		return fmt.Errorf("unmarshal education history: %w", err)
	}
	return nil
}
