package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

// agentUsernamePattern limits handles to the charset accepted in referral links.
var agentUsernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

type agentRepository interface {
	List(ctx context.Context, filter models.AgentFilter) ([]models.AgentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AgentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, profile *models.AgentProfile) error
}

// AgentService handles agent profile and referral use-cases.
type AgentService struct {
	repo          agentRepository
	validator     *validator.Validate
	logger        *zap.Logger
	publicBaseURL string
}

// NewAgentService constructs the agent service. publicBaseURL is the origin
// referral links are built against, without a trailing slash.
func NewAgentService(repo agentRepository, validate *validator.Validate, logger *zap.Logger, publicBaseURL string) *AgentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		repo:          repo,
		validator:     validate,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// List returns agents and pagination metadata.
func (s *AgentService) List(ctx context.Context, filter models.AgentFilter) ([]models.AgentDetail, *models.Pagination, error) {
	agents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list agents")
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
	return agents, pagination, nil
}

// Get returns detailed agent information.
func (s *AgentService) Get(ctx context.Context, id string) (*models.AgentDetail, error) {
	agent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent")
	}
	return agent, nil
}

// GetByUser returns the profile owned by the authenticated account.
func (s *AgentService) GetByUser(ctx context.Context, userID string) (*models.AgentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agent profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
	}
	return profile, nil
}

// UpdateByUser patches the authenticated agent's own profile. Changing the
// username invalidates previously shared referral links, so the new handle
// must be free before the swap is committed.
func (s *AgentService) UpdateByUser(ctx context.Context, userID string, req dto.UpdateAgentProfileRequest) (*models.AgentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if !agentUsernamePattern.MatchString(username) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "username may contain lowercase letters, digits, dots, hyphens and underscores")
		}
		if username != profile.Username {
			taken, checkErr := s.repo.ExistsByUsername(ctx, username)
			if checkErr != nil {
				return nil, appErrors.Wrap(checkErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrUsernameTaken, fmt.Sprintf("username %s is already taken", username))
			}
			profile.Username = username
		}
	}
	if req.CompanyName != nil {
		profile.CompanyName = *req.CompanyName
	}
	if req.Phone != nil {
		profile.Phone = *req.Phone
	}
	if req.Country != nil {
		profile.Country = *req.Country
	}
	if req.Website != nil {
		profile.Website = *req.Website
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update agent profile")
	}
	return profile, nil
}

// ReferralLink builds the shareable signup URL for the agent's handle.
func (s *AgentService) ReferralLink(ctx context.Context, userID string) (*dto.ReferralLinkResponse, error) {
	profile, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	link := fmt.Sprintf("%s/signup?ref=%s", s.publicBaseURL, url.QueryEscape(profile.Username))
	return &dto.ReferralLinkResponse{Username: profile.Username, ReferralLink: link}, nil
}
