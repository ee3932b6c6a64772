package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type commissionRepository interface {
	List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CommissionDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.CommissionStatus, at time.Time) error
	TotalsByAgent(ctx context.Context, agentID string) (*models.CommissionTotals, error)
}

type commissionAgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
}

type commissionAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CommissionService exposes the payout ledger. Agents see their own earnings;
// admins run the approve and pay steps. Creation happens automatically on
// enrollment, never through this service.
type CommissionService struct {
	repo   commissionRepository
	agents commissionAgentRepository
	audit  commissionAuditRepository
	logger *zap.Logger
}

// NewCommissionService constructs the commission service.
func NewCommissionService(repo commissionRepository, agents commissionAgentRepository, audit commissionAuditRepository, logger *zap.Logger) *CommissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionService{repo: repo, agents: agents, audit: audit, logger: logger}
}

// List returns commissions scoped to the caller: agents always get their own
// ledger regardless of the filter they send, admins see everything.
func (s *CommissionService) List(ctx context.Context, actor *models.JWTClaims, filter models.CommissionFilter) ([]models.CommissionDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleAgent:
		agent, err := s.agentFor(ctx, actor)
		if err != nil {
			return nil, nil, err
		}
		filter.AgentID = agent.ID
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only agents and admins view commissions")
	}

	commissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list commissions")
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
	return commissions, pagination, nil
}

// Get returns one commission for its agent or an admin.
func (s *CommissionService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.CommissionDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// Totals sums the caller's ledger by payout state. Admins may ask for any
// agent; agents always get their own numbers.
func (s *CommissionService) Totals(ctx context.Context, actor *models.JWTClaims, agentID string) (*models.CommissionTotals, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAgent:
		agent, err := s.agentFor(ctx, actor)
		if err != nil {
			return nil, err
		}
		agentID = agent.ID
	case models.RoleAdmin:
		if agentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "agentId is required")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only agents and admins view commission totals")
	}
	totals, err := s.repo.TotalsByAgent(ctx, agentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total commissions")
	}
	return totals, nil
}

// Approve moves a pending commission to APPROVED.
func (s *CommissionService) Approve(ctx context.Context, actor *models.JWTClaims, id string) (*models.CommissionDetail, error) {
	return s.advance(ctx, actor, id, models.CommissionStatusPending, models.CommissionStatusApproved, models.AuditActionCommissionApprove)
}

// MarkPaid moves an approved commission to PAID.
func (s *CommissionService) MarkPaid(ctx context.Context, actor *models.JWTClaims, id string) (*models.CommissionDetail, error) {
	return s.advance(ctx, actor, id, models.CommissionStatusApproved, models.CommissionStatusPaid, models.AuditActionCommissionPay)
}

func (s *CommissionService) advance(ctx context.Context, actor *models.JWTClaims, id string, from, to models.CommissionStatus, auditAction string) (*models.CommissionDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins manage commission payouts")
	}
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != from {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "commission is "+string(detail.Status)+", expected "+string(from))
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, detail.ID, to, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update commission")
	}
	s.recordCommissionAudit(ctx, actor, auditAction, detail.ID, detail.Status, to)

	detail.Status = to
	switch to {
	case models.CommissionStatusApproved:
		detail.ApprovedAt = &now
	case models.CommissionStatusPaid:
		detail.PaidAt = &now
	}
	detail.UpdatedAt = now
	return detail, nil
}

func (s *CommissionService) load(ctx context.Context, id string) (*models.CommissionDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commission")
	}
	return detail, nil
}

func (s *CommissionService) canView(ctx context.Context, actor *models.JWTClaims, detail *models.CommissionDetail) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleAgent:
		agent, err := s.agentFor(ctx, actor)
		if err != nil {
			return err
		}
		if detail.AgentID == agent.ID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "no access to this commission")
}

func (s *CommissionService) agentFor(ctx context.Context, actor *models.JWTClaims) (*models.AgentProfile, error) {
	agent, err := s.agents.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "an agent profile is required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
	}
	return agent, nil
}

func (s *CommissionService) recordCommissionAudit(ctx context.Context, actor *models.JWTClaims, action, commissionID string, from, to models.CommissionStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(from)})
	newValues, _ := json.Marshal(map[string]string{"status": string(to)})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "commissions",
		ResourceID: &commissionID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record commission audit log", zap.Error(err))
	}
}
