package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEducationLevel(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		matched bool
	}{
		{"canonical token", "bachelor", EducationLevelBachelor, true},
		{"canonical token uppercased", "BACHELOR", EducationLevelBachelor, true},
		{"display label", "Bachelor's Degree", EducationLevelBachelor, true},
		{"display label mixed case", "mAsTeR's dEgReE", EducationLevelMaster, true},
		{"synonym plural", "Bachelors", EducationLevelBachelor, true},
		{"synonym possessive", "Master's", EducationLevelMaster, true},
		{"synonym abbreviation", "MSc", EducationLevelMaster, true},
		{"synonym phd", "PhD", EducationLevelDoctorate, true},
		{"synonym with whitespace", "  doctoral degree  ", EducationLevelDoctorate, true},
		{"secondary school", "Secondary School", EducationLevelHighSchool, true},
		{"associate label", "Associate Degree", EducationLevelAssociate, true},
		{"associate possessive synonym", "Associate's Degree", EducationLevelAssociate, true},
		{"postgraduate diploma label", "Postgraduate Diploma", EducationLevelPostgraduateDiploma, true},
		{"pgdip abbreviation", "PGDip", EducationLevelPostgraduateDiploma, true},
		{"certificate token", "certificate", EducationLevelCertificate, true},
		{"unknown kept verbatim", "Vocational Training Level 3", "Vocational Training Level 3", false},
		{"empty input", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeEducationLevel(tc.input)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.matched, ok)
		})
	}
}

func TestEducationRecordComplete(t *testing.T) {
	record := EducationRecord{
		ID:              "rec-1",
		Level:           EducationLevelBachelor,
		InstitutionName: "University of Nairobi",
		Country:         "Kenya",
		StartDate:       "2019-09",
	}
	assert.True(t, record.Complete(), "end date, gpa and grade scale are optional")

	missingLevel := record
	missingLevel.Level = "  "
	assert.False(t, missingLevel.Complete())

	missingStart := record
	missingStart.StartDate = ""
	assert.False(t, missingStart.Complete())
}

func TestEducationHistoryComplete(t *testing.T) {
	assert.False(t, EducationHistory{}.Complete(), "empty history is incomplete")

	complete := EducationRecord{
		ID: "a", Level: EducationLevelMaster, InstitutionName: "KU", Country: "Kenya", StartDate: "2021-01",
	}
	incomplete := EducationRecord{ID: "b", Level: EducationLevelDiploma}

	assert.True(t, EducationHistory{complete}.Complete())
	assert.False(t, EducationHistory{complete, incomplete}.Complete())
}

func TestEducationHistoryRoundTrip(t *testing.T) {
	history := EducationHistory{{
		ID:              "rec-1",
		Level:           EducationLevelBachelor,
		InstitutionName: "Makerere University",
		Country:         "Uganda",
		StartDate:       "2017-08",
		EndDate:         "2021-06",
		GPA:             "4.2",
		GradeScale:      "5.0",
	}}

	raw, err := history.Value()
	assert.NoError(t, err)

	var decoded EducationHistory
	assert.NoError(t, decoded.Scan(raw))
	assert.Equal(t, history, decoded)

	var fromNil EducationHistory
	assert.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}
