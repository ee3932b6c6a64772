package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/config"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	UpdateStatus(ctx context.Context, applicationID string, from, to models.ApplicationStatus, decidedAt *time.Time, decisionNote string, event *models.ApplicationStatusEvent) (bool, error)
	ListStatusEvents(ctx context.Context, applicationID string) ([]models.ApplicationStatusEvent, error)
}

type applicationStudentRepository interface {
	FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type applicationAgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
	FindByID(ctx context.Context, id string) (*models.AgentDetail, error)
}

type applicationProgramRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error)
}

type applicationCommissionRepository interface {
	ExistsForApplication(ctx context.Context, applicationID string) (bool, error)
	Create(ctx context.Context, commission *models.Commission) error
}

type applicationAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type applicationNotifier interface {
	SendStatusChanged(ctx context.Context, application *models.ApplicationDetail, to models.ApplicationStatus, note string) error
}

// ApplicationService owns the post-submission lifecycle: role-scoped queries,
// the status machine and the commission that enrollment triggers.
type ApplicationService struct {
	repo        applicationRepository
	students    applicationStudentRepository
	agents      applicationAgentRepository
	programs    applicationProgramRepository
	commissions applicationCommissionRepository
	audit       applicationAuditRepository
	notifier    applicationNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	config      config.CommissionsConfig
}

// NewApplicationService constructs the application service.
func NewApplicationService(
	repo applicationRepository,
	students applicationStudentRepository,
	agents applicationAgentRepository,
	programs applicationProgramRepository,
	commissions applicationCommissionRepository,
	audit applicationAuditRepository,
	notifier applicationNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.CommissionsConfig,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:        repo,
		students:    students,
		agents:      agents,
		programs:    programs,
		commissions: commissions,
		audit:       audit,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		config:      cfg,
	}
}

// List returns applications visible to the actor. Students see their own,
// agents their students', university staff their tenant's, admins everything.
func (s *ApplicationService) List(ctx context.Context, actor *models.JWTClaims, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, nil, err
	}
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
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
	return applications, pagination, nil
}

// Get returns one application after the same role scoping as List.
func (s *ApplicationService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ApplicationDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// History returns the status transition log, oldest first.
func (s *ApplicationService) History(ctx context.Context, actor *models.JWTClaims, id string) (*dto.StatusHistoryResponse, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return &dto.StatusHistoryResponse{ApplicationID: id, Events: events}, nil
}

// UpdateStatus moves an application along the lifecycle. Only the receiving
// university or an admin may call it; the transition table is the guard, and
// reaching ENROLLED creates the agent commission.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.ApplicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !models.ValidApplicationStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reviewAccess(actor, detail); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, detail, req.Status, req.Note)
}

// Withdraw lets the applicant pull a non-terminal application.
func (s *ApplicationService) Withdraw(ctx context.Context, actor *models.JWTClaims, id string, req dto.WithdrawRequest) (*models.ApplicationDetail, error) {
	detail, err := s.ownApplication(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	note := req.Note
	if note == "" {
		note = "withdrawn by applicant"
	}
	return s.transition(ctx, actor, detail, models.ApplicationStatusWithdrawn, note)
}

// AcceptOffer records the student's acceptance of an issued offer.
func (s *ApplicationService) AcceptOffer(ctx context.Context, actor *models.JWTClaims, id string) (*models.ApplicationDetail, error) {
	detail, err := s.ownApplication(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.ApplicationStatusOfferIssued {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no open offer to accept")
	}
	return s.transition(ctx, actor, detail, models.ApplicationStatusAccepted, "offer accepted")
}

func (s *ApplicationService) transition(ctx context.Context, actor *models.JWTClaims, detail *models.ApplicationDetail, to models.ApplicationStatus, note string) (*models.ApplicationDetail, error) {
	from := detail.Status
	if !models.CanTransition(from, to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move an application from %s to %s", from, to))
	}

	now := time.Now().UTC()
	var decidedAt *time.Time
	decisionNote := ""
	if models.IsTerminalStatus(to) {
		decidedAt = &now
		decisionNote = note
	}
	event := &models.ApplicationStatusEvent{
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		ActorID:    actor.UserID,
	}

	updated, err := s.repo.UpdateStatus(ctx, detail.ID, from, to, decidedAt, decisionNote, event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application was updated concurrently, reload and retry")
	}

	s.recordStatusAudit(ctx, actor, detail.ID, from, to)

	if to == models.ApplicationStatusEnrolled {
		s.createCommission(ctx, detail)
	}
	if s.notifier != nil {
		if err := s.notifier.SendStatusChanged(ctx, detail, to, note); err != nil {
			s.logger.Warn("failed to send status notification",
				zap.String("application_id", detail.ID),
				zap.Error(err))
		}
	}

	detail.Status = to
	detail.DecidedAt = decidedAt
	if decisionNote != "" {
		detail.DecisionNote = decisionNote
	}
	detail.UpdatedAt = now
	return detail, nil
}

// createCommission records what the agent earned from the enrollment. The
// program rate wins, then the agent's negotiated rate, then the configured
// default. Failures are logged rather than unwinding the enrollment.
func (s *ApplicationService) createCommission(ctx context.Context, detail *models.ApplicationDetail) {
	if detail.AgentID == nil {
		return
	}
	exists, err := s.commissions.ExistsForApplication(ctx, detail.ID)
	if err != nil {
		s.logger.Error("failed to check existing commission",
			zap.String("application_id", detail.ID),
			zap.Error(err))
		return
	}
	if exists {
		return
	}

	program, err := s.programs.FindDetailByID(ctx, detail.ProgramID)
	if err != nil {
		s.logger.Error("failed to load program for commission",
			zap.String("application_id", detail.ID),
			zap.String("program_id", detail.ProgramID),
			zap.Error(err))
		return
	}

	rate := program.CommissionRate
	if rate <= 0 {
		if agent, err := s.agents.FindByID(ctx, *detail.AgentID); err == nil && agent.CommissionRate > 0 {
			rate = agent.CommissionRate
		}
	}
	if rate <= 0 {
		rate = s.config.DefaultRate
	}

	commission := &models.Commission{
		AgentID:       *detail.AgentID,
		ApplicationID: detail.ID,
		Amount:        math.Round(program.TuitionFee*rate*100) / 100,
		Currency:      program.Currency,
		Rate:          rate,
		Status:        models.CommissionStatusPending,
	}
	if err := s.commissions.Create(ctx, commission); err != nil {
		s.logger.Error("failed to create commission",
			zap.String("application_id", detail.ID),
			zap.String("agent_id", *detail.AgentID),
			zap.Error(err))
		return
	}
	s.logger.Info("commission created",
		zap.String("application_id", detail.ID),
		zap.String("commission_id", commission.ID),
		zap.Float64("amount", commission.Amount))
}

func (s *ApplicationService) load(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return detail, nil
}

func (s *ApplicationService) scopeFilter(ctx context.Context, actor *models.JWTClaims, filter *models.ApplicationFilter) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
		if err != nil {
			return s.profileError(err, "student")
		}
		filter.StudentID = student.ID
		filter.AgentID = ""
		filter.UniversityID = ""
		return nil
	case models.RoleAgent:
		agent, err := s.agents.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return s.profileError(err, "agent")
		}
		filter.AgentID = agent.ID
		filter.StudentID = ""
		filter.UniversityID = ""
		return nil
	case models.RoleUniversity:
		if actor.UniversityID == nil {
			return appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
		}
		filter.UniversityID = *actor.UniversityID
		return nil
	}
	return appErrors.ErrForbidden
}

func (s *ApplicationService) canView(ctx context.Context, actor *models.JWTClaims, detail *models.ApplicationDetail) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
		if err != nil {
			return s.profileError(err, "student")
		}
		if detail.StudentID == student.ID {
			return nil
		}
	case models.RoleAgent:
		agent, err := s.agents.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return s.profileError(err, "agent")
		}
		if detail.AgentID != nil && *detail.AgentID == agent.ID {
			return nil
		}
	case models.RoleUniversity:
		if actor.UniversityID != nil && *actor.UniversityID == detail.UniversityID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "no access to this application")
}

func (s *ApplicationService) reviewAccess(actor *models.JWTClaims, detail *models.ApplicationDetail) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleUniversity && actor.UniversityID != nil && *actor.UniversityID == detail.UniversityID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the receiving university or admins update application status")
}

func (s *ApplicationService) ownApplication(ctx context.Context, actor *models.JWTClaims, id string) (*models.ApplicationDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the applicant may do this")
	}
	student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, s.profileError(err, "student")
	}
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
	}
	return detail, nil
}

func (s *ApplicationService) profileError(err error, role string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("a %s profile is required", role))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s profile", role))
}

func (s *ApplicationService) recordStatusAudit(ctx context.Context, actor *models.JWTClaims, applicationID string, from, to models.ApplicationStatus) {
	if s.audit == nil || actor == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
	newValues, _ := json.Marshal(map[string]string{"status": string(to)})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionStatusChange,
		Resource:   "applications",
		ResourceID: &applicationID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record status audit log", zap.Error(err))
	}
}
