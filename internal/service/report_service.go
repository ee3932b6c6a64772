package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/repository"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type reportAgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
}

type reportAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// Admins export everything. University staff and agents are limited to the
// entities their tenancy or roster scopes cleanly.
var (
	universityReportEntities = map[models.ReportEntity]bool{
		models.ReportEntityApplications: true,
		models.ReportEntityPayments:     true,
		models.ReportEntityPrograms:     true,
	}
	agentReportEntities = map[models.ReportEntity]bool{
		models.ReportEntityApplications: true,
		models.ReportEntityStudents:     true,
		models.ReportEntityCommissions:  true,
		models.ReportEntityPrograms:     true,
	}
	syncExportEntities = map[models.ReportEntity]bool{
		models.ReportEntityApplications: true,
		models.ReportEntityStudents:     true,
		models.ReportEntityPrograms:     true,
		models.ReportEntityCommissions:  true,
		models.ReportEntityPayments:     true,
	}
)

// ReportService orchestrates report job lifecycle management and the
// synchronous CSV export path.
type ReportService struct {
	repo     reportJobStore
	agents   reportAgentRepository
	audit    reportAuditRepository
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, agents reportAgentRepository, audit reportAuditRepository, queue jobDispatcher, exporter *ExportService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:     repo,
		agents:   agents,
		audit:    audit,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob validates the request, pins the dataset scope to the caller's
// role, persists the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, actor *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateReportRequest(req); err != nil {
		return nil, err
	}
	params, err := s.scopeParams(ctx, actor, req.Entity, models.ReportJobParams{
		Status:     req.Status,
		IntakeYear: req.IntakeYear,
		Format:     req.Format,
	})
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Entity:    req.Entity,
		Params:    params,
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Entity)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.recordReportAudit(ctx, actor, job)
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to its creator or an admin.
func (s *ReportService) GetStatus(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ReportStatusResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if actor.Role != models.RoleAdmin && job.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to this report job")
	}
	resp := &dto.ReportStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ExportCSV builds a role-scoped dataset and renders it in a single request.
// The bytes stream straight back to the caller; nothing is persisted, so a
// failed export leaves no trace.
func (s *ReportService) ExportCSV(ctx context.Context, actor *models.JWTClaims, entity models.ReportEntity) ([]byte, string, error) {
	if actor == nil {
		return nil, "", appErrors.ErrUnauthorized
	}
	if !syncExportEntities[entity] {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export entity")
	}
	params, err := s.scopeParams(ctx, actor, entity, models.ReportJobParams{Format: models.ReportFormatCSV})
	if err != nil {
		return nil, "", err
	}
	payload, filename, err := s.exporter.ExportCSV(ctx, entity, params)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build export")
	}
	return payload, filename, nil
}

// ResolveDownload validates the signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Entity)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		jobs, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(jobs) == 0 {
			break
		}
		for _, job := range jobs {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.exporter.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exporter.Delete(relPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(jobs) < 100 {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

// scopeParams pins the dataset scope to the caller. Admins pass through
// untouched, university staff are bound to their tenant and agents to their
// own roster.
func (s *ReportService) scopeParams(ctx context.Context, actor *models.JWTClaims, entity models.ReportEntity, params models.ReportJobParams) (models.ReportJobParams, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return params, nil
	case models.RoleUniversity:
		if !universityReportEntities[entity] {
			return params, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s exports are not available to university staff", entity))
		}
		if actor.UniversityID == nil || *actor.UniversityID == "" {
			return params, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		params.UniversityID = actor.UniversityID
		params.AgentID = nil
		return params, nil
	case models.RoleAgent:
		if !agentReportEntities[entity] {
			return params, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s exports are not available to agents", entity))
		}
		agent, err := s.agents.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return params, appErrors.Clone(appErrors.ErrForbidden, "an agent profile is required")
			}
			return params, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
		}
		params.AgentID = &agent.ID
		params.UniversityID = nil
		return params, nil
	default:
		return params, appErrors.Clone(appErrors.ErrForbidden, "reports are available to agents, university staff and admins")
	}
}

func (s *ReportService) recordReportAudit(ctx context.Context, actor *models.JWTClaims, job *models.ReportJob) {
	if s.audit == nil {
		return
	}
	newValues, _ := json.Marshal(map[string]string{
		"entity": string(job.Entity),
		"format": string(job.Params.Format),
	})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     "REPORT_REQUEST",
		Resource:   "reports",
		ResourceID: &job.ID,
		NewValues:  newValues,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record report audit log", zap.Error(err))
	}
}

func validateReportRequest(req dto.ReportRequest) error {
	if !models.ValidReportEntity(req.Entity) {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report entity")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if req.Status != nil {
		if err := validateStatusFilter(req.Entity, *req.Status); err != nil {
			return err
		}
	}
	if req.IntakeYear != nil && req.Entity != models.ReportEntityApplications {
		return appErrors.Clone(appErrors.ErrValidation, "intake year filters only apply to application exports")
	}
	return nil
}

func validateStatusFilter(entity models.ReportEntity, raw string) error {
	switch entity {
	case models.ReportEntityApplications:
		if !models.ValidApplicationStatus(models.ApplicationStatus(raw)) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown application status %q", raw))
		}
	case models.ReportEntityCommissions:
		switch models.CommissionStatus(raw) {
		case models.CommissionStatusPending, models.CommissionStatusApproved, models.CommissionStatusPaid:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown commission status %q", raw))
		}
	case models.ReportEntityPayments:
		switch models.PaymentStatus(raw) {
		case models.PaymentStatusPending, models.PaymentStatusConfirmed, models.PaymentStatusRefunded:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment status %q", raw))
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status filters do not apply to %s exports", entity))
	}
	return nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to the exporter.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. Metrics may be nil.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, metrics *MetricsService, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job: it flips the row to PROCESSING, generates the
// export and records the outcome. Failed attempts below the retry limit go
// back to QUEUED so the queue can replay them.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.ObserveReportJob(string(record.Entity), string(record.Params.Format), "failed")
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.ObserveReportJob(string(record.Entity), string(record.Params.Format), "requeued")
		}
		return err
	}
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.ObserveReportJob(string(record.Entity), string(record.Params.Format), "finished")
	return nil
}
