package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/repository"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type reportFixture struct {
	repo   *reportRepoStub
	agents *mockAgentRepo
	audit  *mockAuditSink
	queue  *queueStub
	export *exportFixture
	svc    *ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := &reportFixture{
		repo:   newReportRepoStub(),
		agents: &mockAgentRepo{byUser: map[string]models.AgentProfile{}},
		audit:  &mockAuditSink{},
		queue:  &queueStub{},
		export: newExportFixture(t),
	}
	f.svc = NewReportService(f.repo, f.agents, f.audit, f.queue, f.export.svc, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return f
}

func TestReportServiceCreateJob(t *testing.T) {
	f := newReportFixture(t)

	resp, err := f.svc.CreateJob(context.Background(), adminActor(), dto.ReportRequest{
		Entity: models.ReportEntityApplications,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].ID)
	assert.Contains(t, f.repo.jobs, resp.ID)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "REPORT_REQUEST", f.audit.logs[0].Action)
	assert.Equal(t, "reports", f.audit.logs[0].Resource)
}

func TestReportServiceCreateJobScopesAgent(t *testing.T) {
	f := newReportFixture(t)
	f.agents.byUser["user-9"] = models.AgentProfile{ID: "ag-1", UserID: "user-9", Username: "lagospartners"}

	resp, err := f.svc.CreateJob(context.Background(), agentActor("user-9"), dto.ReportRequest{
		Entity: models.ReportEntityCommissions,
		Format: models.ReportFormatPDF,
	})
	require.NoError(t, err)

	job := f.repo.jobs[resp.ID]
	require.NotNil(t, job.Params.AgentID)
	assert.Equal(t, "ag-1", *job.Params.AgentID)
	assert.Nil(t, job.Params.UniversityID)
}

func TestReportServiceCreateJobScopesUniversity(t *testing.T) {
	f := newReportFixture(t)

	resp, err := f.svc.CreateJob(context.Background(), universityActor("uni-1"), dto.ReportRequest{
		Entity: models.ReportEntityPayments,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)

	job := f.repo.jobs[resp.ID]
	require.NotNil(t, job.Params.UniversityID)
	assert.Equal(t, "uni-1", *job.Params.UniversityID)

	_, err = f.svc.CreateJob(context.Background(), universityActor("uni-1"), dto.ReportRequest{
		Entity: models.ReportEntityCommissions,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobRejectsStudent(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.CreateJob(context.Background(), studentActor("user-1"), dto.ReportRequest{
		Entity: models.ReportEntityApplications,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.queue.jobs)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.CreateJob(context.Background(), adminActor(), dto.ReportRequest{
		Entity: models.ReportEntity("universe"),
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	bogus := "BOGUS"
	_, err = f.svc.CreateJob(context.Background(), adminActor(), dto.ReportRequest{
		Entity: models.ReportEntityApplications,
		Format: models.ReportFormatCSV,
		Status: &bogus,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	year := 2027
	_, err = f.svc.CreateJob(context.Background(), adminActor(), dto.ReportRequest{
		Entity:     models.ReportEntityPrograms,
		Format:     models.ReportFormatCSV,
		IntakeYear: &year,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceGetStatusOwnerOrAdmin(t *testing.T) {
	f := newReportFixture(t)
	f.repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Entity:    models.ReportEntityApplications,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "user-1",
	}

	resp, err := f.svc.GetStatus(context.Background(), agentActor("user-1"), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, resp.Status)
	assert.Equal(t, 100, resp.Progress)

	_, err = f.svc.GetStatus(context.Background(), agentActor("user-2"), "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.svc.GetStatus(context.Background(), adminActor(), "job-1")
	require.NoError(t, err)

	_, err = f.svc.GetStatus(context.Background(), adminActor(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceResolveDownload(t *testing.T) {
	f := newReportFixture(t)
	f.export.progs.rows = []models.ProgramDetail{exportProgram("prog-1")}
	job := &models.ReportJob{
		ID:        "job-dl",
		Entity:    models.ReportEntityPrograms,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "admin-1",
	}
	f.repo.jobs[job.ID] = job

	result, err := f.export.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	download, err := f.svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "programs-report-2026-03-01.csv", download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	download.File.Close()

	job.Status = models.ReportStatusProcessing
	_, err = f.svc.ResolveDownload(context.Background(), result.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.svc.ResolveDownload(context.Background(), "nonsense")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSyncExport(t *testing.T) {
	f := newReportFixture(t)
	f.export.apps.rows = []models.ApplicationDetail{exportApplication("app-1")}

	payload, filename, err := f.svc.ExportCSV(context.Background(), adminActor(), models.ReportEntityApplications)
	require.NoError(t, err)
	assert.Equal(t, "applications-report-2026-03-01.csv", filename)
	assert.Contains(t, string(payload), "Amara Okafor")

	_, _, err = f.svc.ExportCSV(context.Background(), agentActor("user-9"), models.ReportEntityPayments)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = f.svc.ExportCSV(context.Background(), adminActor(), models.ReportEntityAgents)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	f := newReportFixture(t)
	f.repo.jobs["q-1"] = &models.ReportJob{ID: "q-1", Entity: models.ReportEntityApplications, Status: models.ReportStatusQueued, CreatedBy: "admin-1"}
	f.repo.jobs["q-2"] = &models.ReportJob{ID: "q-2", Entity: models.ReportEntityStudents, Status: models.ReportStatusQueued, CreatedBy: "admin-1"}
	f.repo.jobs["f-1"] = &models.ReportJob{ID: "f-1", Entity: models.ReportEntityPrograms, Status: models.ReportStatusFinished, CreatedBy: "admin-1"}

	f.svc.RecoverPendingJobs(context.Background())
	assert.Len(t, f.queue.jobs, 2)
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	f := newReportFixture(t)
	f.export.progs.rows = []models.ProgramDetail{exportProgram("prog-1")}
	f.repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Entity:    models.ReportEntityPrograms,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "admin-1",
	}
	worker := NewReportWorker(f.repo, f.export.svc, 3, nil, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)

	job := f.repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "/reports/download/")
	require.NotNil(t, job.FinishedAt)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestReportWorkerRetriesThenFails(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Entity:    models.ReportEntityCommissions,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "admin-1",
	}
	worker := NewReportWorker(repo, exportStub{err: errors.New("render blew up")}, 2, nil, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	assert.Equal(t, 0, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ErrorMessage)
	assert.Equal(t, "render blew up", *repo.jobs["job-1"].ErrorMessage)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].FinishedAt)
}
