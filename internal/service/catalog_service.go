package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/config"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type catalogRepository interface {
	Search(ctx context.Context, filter models.ProgramSearchFilter) ([]models.ProgramDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error)
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	ListUpcomingIntakes(ctx context.Context, programID string, asOf time.Time) ([]models.Intake, error)
	FindIntakeByID(ctx context.Context, id string) (*models.Intake, error)
	CreateIntake(ctx context.Context, intake *models.Intake) error
}

type catalogAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CatalogService serves the program/intake catalog: public search for the
// wizard plus the partner-side CRUD.
type CatalogService struct {
	repo      catalogRepository
	audit     catalogAuditRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    config.CatalogConfig
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo catalogRepository, audit catalogAuditRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg config.CatalogConfig) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SearchLimit <= 0 || cfg.SearchLimit > 50 {
		cfg.SearchLimit = 50
	}
	return &CatalogService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, config: cfg}
}

// Search runs the catalog query used by the wizard's program step. The
// boolean reports whether the result came from cache.
func (s *CatalogService) Search(ctx context.Context, filter models.ProgramSearchFilter) ([]dto.ProgramSearchResponse, bool, error) {
	if filter.Limit <= 0 || filter.Limit > s.config.SearchLimit {
		filter.Limit = s.config.SearchLimit
	}

	cacheKey := makeCatalogCacheKey("search", filter.Search, filter.UniversityID, filter.Level, filter.Country, strconv.Itoa(filter.Limit))
	var cached []dto.ProgramSearchResponse
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		} else if hit {
			return cached, true, nil
		}
	}

	programs, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search programs")
	}

	results := make([]dto.ProgramSearchResponse, 0, len(programs))
	for _, program := range programs {
		results = append(results, dto.FromProgramDetail(program))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, results, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache program search", zap.Error(err))
		}
	}
	return results, false, nil
}

// GetProgram hydrates one program with university context. Deep links land
// here when the selected program is absent from the current search page.
func (s *CatalogService) GetProgram(ctx context.Context, id string) (*models.ProgramDetail, error) {
	program, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// ListIntakes returns a program's upcoming intakes: application deadline not
// yet passed, soonest start first.
func (s *CatalogService) ListIntakes(ctx context.Context, programID string) ([]models.Intake, error) {
	if _, err := s.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	intakes, err := s.repo.ListUpcomingIntakes(ctx, programID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list intakes")
	}
	return intakes, nil
}

// ListPrograms serves admin and university listings with pagination.
func (s *CatalogService) ListPrograms(ctx context.Context, actor *models.JWTClaims, filter models.ProgramFilter) ([]models.ProgramDetail, *models.Pagination, error) {
	if actor != nil && actor.Role == models.RoleUniversity {
		if actor.UniversityID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		filter.UniversityID = *actor.UniversityID
	}
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return programs, pagination, nil
}

// CreateProgram registers a program. UNIVERSITY staff can only create under
// their own tenant.
func (s *CatalogService) CreateProgram(ctx context.Context, actor *models.JWTClaims, req dto.CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if err := s.checkTenant(actor, req.UniversityID); err != nil {
		return nil, err
	}

	program := &models.Program{
		UniversityID:   req.UniversityID,
		Name:           req.Name,
		Level:          normalizeProgramLevel(req.Level, s.logger),
		Discipline:     req.Discipline,
		DurationMonths: req.DurationMonths,
		TuitionFee:     req.TuitionFee,
		Currency:       strings.ToUpper(req.Currency),
		CommissionRate: req.CommissionRate,
		Language:       req.Language,
		Description:    req.Description,
		Active:         true,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}

	s.recordAudit(ctx, actor, models.AuditActionProgramCreate, program.ID)
	s.invalidateSearchCache(ctx)
	return program, nil
}

// UpdateProgram patches a program. UNIVERSITY staff can only touch programs
// of their own tenant.
func (s *CatalogService) UpdateProgram(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	detail, err := s.GetProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTenant(actor, detail.UniversityID); err != nil {
		return nil, err
	}

	program := detail.Program
	if req.Name != nil {
		program.Name = *req.Name
	}
	if req.Level != nil {
		program.Level = normalizeProgramLevel(*req.Level, s.logger)
	}
	if req.Discipline != nil {
		program.Discipline = *req.Discipline
	}
	if req.DurationMonths != nil {
		program.DurationMonths = *req.DurationMonths
	}
	if req.TuitionFee != nil {
		program.TuitionFee = *req.TuitionFee
	}
	if req.Currency != nil {
		program.Currency = strings.ToUpper(*req.Currency)
	}
	if req.CommissionRate != nil {
		program.CommissionRate = *req.CommissionRate
	}
	if req.Language != nil {
		program.Language = *req.Language
	}
	if req.Description != nil {
		program.Description = *req.Description
	}
	if req.Active != nil {
		program.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}

	s.recordAudit(ctx, actor, models.AuditActionProgramUpdate, program.ID)
	s.invalidateSearchCache(ctx)
	return &program, nil
}

// CreateIntake adds an admission cycle to a program.
func (s *CatalogService) CreateIntake(ctx context.Context, actor *models.JWTClaims, programID string, req dto.CreateIntakeRequest) (*models.Intake, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intake payload")
	}

	program, err := s.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTenant(actor, program.UniversityID); err != nil {
		return nil, err
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	deadline, err := time.Parse("2006-01-02", req.ApplicationDeadline)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applicationDeadline must be YYYY-MM-DD")
	}
	if deadline.After(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applicationDeadline must not be after startDate")
	}

	label := req.Label
	if label == "" {
		label = startDate.Format("January 2006")
	}

	intake := &models.Intake{
		ProgramID:           programID,
		Label:               label,
		StartDate:           startDate,
		ApplicationDeadline: deadline,
		Capacity:            req.Capacity,
		Active:              true,
	}
	if err := s.repo.CreateIntake(ctx, intake); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create intake")
	}

	s.recordAudit(ctx, actor, models.AuditActionIntakeCreate, intake.ID)
	return intake, nil
}

// EducationLevels exposes the canonical level vocabulary for form pickers.
func (s *CatalogService) EducationLevels() []models.EducationLevelOption {
	return models.EducationLevels()
}

func (s *CatalogService) checkTenant(actor *models.JWTClaims, universityID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleUniversity {
		return appErrors.Clone(appErrors.ErrForbidden, "only university staff or admins manage the catalog")
	}
	if actor.UniversityID == nil || *actor.UniversityID != universityID {
		return appErrors.Clone(appErrors.ErrForbidden, "program belongs to another university")
	}
	return nil
}

func (s *CatalogService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string) {
	if s.audit == nil || actor == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "programs",
		ResourceID: &resourceID,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record catalog audit log",
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *CatalogService) invalidateSearchCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

// normalizeProgramLevel maps free-text program levels onto the canonical
// education vocabulary. Unknown levels are stored verbatim and logged.
func normalizeProgramLevel(raw string, logger *zap.Logger) string {
	level, ok := models.NormalizeEducationLevel(raw)
	if !ok && logger != nil {
		logger.Warn("unknown program level kept verbatim", zap.String("level", raw))
	}
	return level
}

func makeCatalogCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("catalog")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
