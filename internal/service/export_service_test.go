package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/storage"
)

type exportAppsStub struct {
	rows       []models.ApplicationDetail
	lastFilter models.ApplicationFilter
}

func (s *exportAppsStub) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	s.lastFilter = filter
	return pageOfApplications(s.rows, filter.Page, filter.PageSize), len(s.rows), nil
}

func pageOfApplications(rows []models.ApplicationDetail, page, size int) []models.ApplicationDetail {
	start := (page - 1) * size
	if start >= len(rows) {
		return nil
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

type exportStudentsStub struct {
	rows       []models.StudentDetail
	lastFilter models.StudentFilter
}

func (s *exportStudentsStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	s.lastFilter = filter
	if filter.Page > 1 {
		return nil, len(s.rows), nil
	}
	return s.rows, len(s.rows), nil
}

type exportCommissionsStub struct {
	rows       []models.CommissionDetail
	lastFilter models.CommissionFilter
}

func (s *exportCommissionsStub) List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error) {
	s.lastFilter = filter
	if filter.Page > 1 {
		return nil, len(s.rows), nil
	}
	return s.rows, len(s.rows), nil
}

type exportPaymentsStub struct {
	rows       []models.PaymentDetail
	lastFilter models.PaymentFilter
}

func (s *exportPaymentsStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	s.lastFilter = filter
	if filter.Page > 1 {
		return nil, len(s.rows), nil
	}
	return s.rows, len(s.rows), nil
}

type exportProgramsStub struct {
	rows       []models.ProgramDetail
	lastFilter models.ProgramFilter
}

func (s *exportProgramsStub) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	s.lastFilter = filter
	if filter.Page > 1 {
		return nil, len(s.rows), nil
	}
	return s.rows, len(s.rows), nil
}

type exportFixture struct {
	apps     *exportAppsStub
	students *exportStudentsStub
	comms    *exportCommissionsStub
	pays     *exportPaymentsStub
	progs    *exportProgramsStub
	store    *storage.LocalStorage
	svc      *ExportService
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := &exportFixture{
		apps:     &exportAppsStub{},
		students: &exportStudentsStub{},
		comms:    &exportCommissionsStub{},
		pays:     &exportPaymentsStub{},
		progs:    &exportProgramsStub{},
		store:    store,
	}
	f.svc = NewExportService(ExportServiceParams{
		Applications: f.apps,
		Students:     f.students,
		Commissions:  f.comms,
		Payments:     f.pays,
		Programs:     f.progs,
		Storage:      store,
		Signer:       storage.NewSignedURLSigner("secret", time.Hour),
		Logger:       zap.NewNop(),
		Config:       ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour},
	})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func exportApplication(id string) models.ApplicationDetail {
	return models.ApplicationDetail{
		Application: models.Application{
			ID:           id,
			StudentID:    "stu-1",
			ProgramID:    "prog-1",
			UniversityID: "uni-1",
			IntakeYear:   2027,
			IntakeMonth:  9,
			Status:       models.ApplicationStatusSubmitted,
			SubmittedAt:  time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
		},
		StudentName:    "Amara Okafor",
		StudentEmail:   "amara@example.com",
		ProgramName:    "MSc Data Science",
		ProgramLevel:   "master",
		UniversityName: "Leiden University",
	}
}

func exportPayment(id string) models.PaymentDetail {
	confirmed := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	return models.PaymentDetail{
		Payment: models.Payment{
			ID:            id,
			ApplicationID: "app-1",
			Amount:        1500,
			Currency:      "EUR",
			Reference:     "WB-2027-001",
			Status:        models.PaymentStatusConfirmed,
			RecordedBy:    "uni-user-1",
			ConfirmedAt:   &confirmed,
			CreatedAt:     time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC),
		},
		StudentName:    "Amara Okafor",
		ProgramName:    "MSc Data Science",
		UniversityName: "Leiden University",
	}
}

func exportProgram(id string) models.ProgramDetail {
	return models.ProgramDetail{
		Program: models.Program{
			ID:             id,
			UniversityID:   "uni-1",
			Name:           "MSc Data Science",
			Level:          "master",
			Discipline:     "Computer Science",
			DurationMonths: 24,
			TuitionFee:     18500,
			Currency:       "EUR",
			CommissionRate: 12.5,
			Language:       "English",
			Active:         true,
		},
		UniversityName:    "Leiden University",
		UniversityCountry: "Netherlands",
		UniversityCity:    "Leiden",
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	f := newExportFixture(t)
	f.apps.rows = []models.ApplicationDetail{exportApplication("app-1"), exportApplication("app-2")}
	uniID := "uni-1"
	job := &models.ReportJob{
		ID:        "job-1",
		Entity:    models.ReportEntityApplications,
		Params:    models.ReportJobParams{UniversityID: &uniID, Format: models.ReportFormatCSV},
		CreatedBy: "admin-1",
	}

	result, err := f.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, result.Format)
	assert.Contains(t, result.URL, "/api/v1/reports/download/")
	assert.Equal(t, "applications-report-2026-03-01.csv", filepath.Base(result.RelativePath))
	assert.Equal(t, "uni-1", f.apps.lastFilter.UniversityID)

	payload, err := os.ReadFile(f.store.Path(result.RelativePath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Application ID")
	assert.Contains(t, lines[1], "Amara Okafor")
	assert.Contains(t, lines[1], "2027-09")

	jobID, relPath, _, err := f.svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceGeneratePDF(t *testing.T) {
	f := newExportFixture(t)
	f.progs.rows = []models.ProgramDetail{exportProgram("prog-1")}
	job := &models.ReportJob{
		ID:        "job-2",
		Entity:    models.ReportEntityPrograms,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: "admin-1",
	}

	result, err := f.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	assert.Equal(t, "programs-report-2026-03-01.pdf", filepath.Base(result.RelativePath))

	info, err := os.Stat(f.store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceExportCSVDrainsPages(t *testing.T) {
	f := newExportFixture(t)
	rows := make([]models.ApplicationDetail, 0, 150)
	for i := 0; i < 150; i++ {
		rows = append(rows, exportApplication(fmt.Sprintf("app-%d", i)))
	}
	f.apps.rows = rows

	payload, filename, err := f.svc.ExportCSV(context.Background(), models.ReportEntityApplications, models.ReportJobParams{})
	require.NoError(t, err)
	assert.Equal(t, "applications-report-2026-03-01.csv", filename)

	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	assert.Len(t, lines, 151)
}

func TestExportServiceExportCSVScopesPayments(t *testing.T) {
	f := newExportFixture(t)
	f.pays.rows = []models.PaymentDetail{exportPayment("pay-1")}
	uniID := "uni-1"

	payload, filename, err := f.svc.ExportCSV(context.Background(), models.ReportEntityPayments, models.ReportJobParams{UniversityID: &uniID})
	require.NoError(t, err)
	assert.Equal(t, "payments-report-2026-03-01.csv", filename)
	assert.Equal(t, "uni-1", f.pays.lastFilter.UniversityID)
	assert.Contains(t, string(payload), "WB-2027-001")
	assert.Contains(t, string(payload), "1500.00")
}

func TestExportServiceEmptyDatasetKeepsHeader(t *testing.T) {
	f := newExportFixture(t)

	payload, _, err := f.svc.ExportCSV(context.Background(), models.ReportEntityStudents, models.ReportJobParams{})
	require.NoError(t, err)
	assert.Equal(t, "Student ID,Full Name,Email,Phone,Nationality,Country of Residence,City,Agent,Registered At\n", string(payload))

	_, statErr := os.Stat(f.store.Path("reports"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportServiceGenerateRejectsUnknownStatus(t *testing.T) {
	f := newExportFixture(t)
	bogus := "BOGUS"
	job := &models.ReportJob{
		ID:        "job-3",
		Entity:    models.ReportEntityCommissions,
		Params:    models.ReportJobParams{Status: &bogus, Format: models.ReportFormatCSV},
		CreatedBy: "admin-1",
	}

	_, err := f.svc.Generate(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown commission status")
}
