package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, at time.Time) error
}

type paymentStudentRepository interface {
	FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type paymentApplicationRepository interface {
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
}

type paymentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// paymentTransitions gates the payment lifecycle: money is confirmed once
// received and refunded only after it was confirmed.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending:   {models.PaymentStatusConfirmed},
	models.PaymentStatusConfirmed: {models.PaymentStatusRefunded},
}

// PaymentService tracks tuition money against applications. University staff
// and admins record and advance payments; students see their own.
type PaymentService struct {
	repo         paymentRepository
	students     paymentStudentRepository
	applications paymentApplicationRepository
	audit        paymentAuditRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, applications paymentApplicationRepository, audit paymentAuditRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:         repo,
		students:     students,
		applications: applications,
		audit:        audit,
		validator:    validate,
		logger:       logger,
	}
}

// Record creates a PENDING payment against an application. Only admins and
// staff of the university the application was submitted to may record.
func (s *PaymentService) Record(ctx context.Context, actor *models.JWTClaims, req dto.CreatePaymentRequest) (*models.PaymentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	application, err := s.loadApplication(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := s.staffAccess(actor, application); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ApplicationID: application.ID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Reference:     strings.TrimSpace(req.Reference),
		Status:        models.PaymentStatusPending,
		RecordedBy:    actor.UserID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	s.recordPaymentAudit(ctx, actor, models.AuditActionPaymentRecord, payment.ID, "", payment.Status)

	return &models.PaymentDetail{
		Payment:        *payment,
		StudentName:    application.StudentName,
		ProgramName:    application.ProgramName,
		UniversityName: application.UniversityName,
	}, nil
}

// List returns payments scoped to the caller: students their own, university
// staff their institution's, admins everything.
func (s *PaymentService) List(ctx context.Context, actor *models.JWTClaims, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		filter.StudentID = student.ID
		filter.UniversityID = ""
	case models.RoleUniversity:
		if actor.UniversityID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		filter.UniversityID = *actor.UniversityID
		filter.StudentID = ""
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no access to payment records")
	}

	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
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
	return payments, pagination, nil
}

// Get returns one payment for its student, the receiving university or an
// admin.
func (s *PaymentService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.PaymentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	application, err := s.loadApplication(ctx, detail.ApplicationID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
		return detail, nil
	case models.RoleStudent:
		student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		if application.StudentID == student.ID {
			return detail, nil
		}
	case models.RoleUniversity:
		if actor.UniversityID != nil && application.UniversityID == *actor.UniversityID {
			return detail, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to this payment")
}

// UpdateStatus advances a payment. Confirmation stamps the confirmed
// timestamp; refunds are only possible after confirmation.
func (s *PaymentService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdatePaymentStatusRequest) (*models.PaymentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment status payload")
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	application, err := s.loadApplication(ctx, detail.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := s.staffAccess(actor, application); err != nil {
		return nil, err
	}

	to := models.PaymentStatus(req.Status)
	if !paymentCanTransition(detail.Status, to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move a payment from %s to %s", detail.Status, to))
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, detail.ID, to, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	s.recordPaymentAudit(ctx, actor, models.AuditActionPaymentStatus, detail.ID, detail.Status, to)

	from := detail.Status
	detail.Status = to
	if to == models.PaymentStatusConfirmed && from != models.PaymentStatusConfirmed {
		detail.ConfirmedAt = &now
	}
	detail.UpdatedAt = now
	return detail, nil
}

func paymentCanTransition(from, to models.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *PaymentService) staffAccess(actor *models.JWTClaims, application *models.ApplicationDetail) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleUniversity:
		if actor.UniversityID == nil {
			return appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		if application.UniversityID == *actor.UniversityID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "application belongs to another university")
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "only the receiving university or admins manage payments")
	}
}

func (s *PaymentService) load(ctx context.Context, id string) (*models.PaymentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return detail, nil
}

func (s *PaymentService) loadApplication(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	application, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

func (s *PaymentService) recordPaymentAudit(ctx context.Context, actor *models.JWTClaims, action, paymentID string, from, to models.PaymentStatus) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "payments",
		ResourceID: &paymentID,
	}
	if from != "" {
		oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
		log.OldValues = oldValues
	}
	newValues, _ := json.Marshal(map[string]string{"status": string(to)})
	log.NewValues = newValues
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record payment audit log", zap.Error(err))
	}
}
