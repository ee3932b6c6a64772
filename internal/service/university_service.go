package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type universityRepository interface {
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindByID(ctx context.Context, id string) (*models.University, error)
	Create(ctx context.Context, university *models.University) error
	Update(ctx context.Context, university *models.University) error
	Deactivate(ctx context.Context, id string) error
}

type universityAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UniversityService handles partner university administration.
type UniversityService struct {
	repo      universityRepository
	audit     universityAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUniversityService constructs the university service.
func NewUniversityService(repo universityRepository, audit universityAuditRepository, validate *validator.Validate, logger *zap.Logger) *UniversityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniversityService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns universities and pagination metadata.
func (s *UniversityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, *models.Pagination, error) {
	universities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
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
	return universities, pagination, nil
}

// Get returns a single university.
func (s *UniversityService) Get(ctx context.Context, id string) (*models.University, error) {
	university, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	return university, nil
}

// Create registers a partner university.
func (s *UniversityService) Create(ctx context.Context, actorID string, req dto.CreateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	now := time.Now().UTC()
	university := &models.University{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Country:     req.Country,
		City:        req.City,
		Website:     req.Website,
		LogoURL:     req.LogoURL,
		Description: req.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create university")
	}

	s.recordAudit(ctx, actorID, models.AuditActionUniversityCreate, university.ID)
	return university, nil
}

// Update patches mutable university fields.
func (s *UniversityService) Update(ctx context.Context, actorID, id string, req dto.UpdateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	university, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		university.Name = *req.Name
	}
	if req.Country != nil {
		university.Country = *req.Country
	}
	if req.City != nil {
		university.City = *req.City
	}
	if req.Website != nil {
		university.Website = *req.Website
	}
	if req.LogoURL != nil {
		university.LogoURL = *req.LogoURL
	}
	if req.Description != nil {
		university.Description = *req.Description
	}
	if req.Active != nil {
		university.Active = *req.Active
	}

	if err := s.repo.Update(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update university")
	}

	s.recordAudit(ctx, actorID, models.AuditActionUniversityUpdate, university.ID)
	return university, nil
}

// Deactivate hides the university and its catalog from search.
func (s *UniversityService) Deactivate(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate university")
	}
	s.recordAudit(ctx, actorID, models.AuditActionUniversityDeactivate, id)
	return nil
}

func (s *UniversityService) recordAudit(ctx context.Context, actorID, action, universityID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "universities",
		ResourceID: &universityID,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record university audit log",
			zap.String("action", action),
			zap.Error(err))
	}
}
