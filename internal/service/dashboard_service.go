package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type dashboardRepository interface {
	CountApplicationsByStatus(ctx context.Context, scope models.DashboardScope) ([]models.StatusCount, error)
	CountApplicationsByMonth(ctx context.Context, scope models.DashboardScope, months int) ([]models.MonthlyCount, error)
	RecentApplications(ctx context.Context, scope models.DashboardScope, limit int) ([]models.ApplicationSummary, error)
	CountApplicationsByProgram(ctx context.Context, universityID string, limit int) ([]models.ProgramCount, error)
	CountStudentsByAgent(ctx context.Context, agentID string) (int, error)
	CountUsersByRole(ctx context.Context) (map[models.UserRole]int, error)
	CountActiveUniversities(ctx context.Context) (int, error)
	CountActivePrograms(ctx context.Context, universityID string) (int, error)
}

type dashboardStudentRepository interface {
	FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type dashboardAgentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.AgentProfile, error)
}

type dashboardDraftRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationDraft, error)
}

type dashboardMessageRepository interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

type dashboardCommissionRepository interface {
	TotalsByAgent(ctx context.Context, agentID string) (*models.CommissionTotals, error)
	Totals(ctx context.Context) (*models.CommissionTotals, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	RecentLimit      int
	MonthsWindow     int
	TopProgramsLimit int
	PublicBaseURL    string
}

// DashboardService composes the role-scoped dashboard payloads. The aggregate
// queries behind each payload are independent, so they run concurrently and
// the response is assembled only after every one has finished.
type DashboardService struct {
	repo        dashboardRepository
	students    dashboardStudentRepository
	agents      dashboardAgentRepository
	drafts      dashboardDraftRepository
	messages    dashboardMessageRepository
	commissions dashboardCommissionRepository
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo        dashboardRepository
	Students    dashboardStudentRepository
	Agents      dashboardAgentRepository
	Drafts      dashboardDraftRepository
	Messages    dashboardMessageRepository
	Commissions dashboardCommissionRepository
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.MonthsWindow <= 0 {
		cfg.MonthsWindow = 12
	}
	if cfg.TopProgramsLimit <= 0 {
		cfg.TopProgramsLimit = 5
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:        params.Repo,
		students:    params.Students,
		agents:      params.Agents,
		drafts:      params.Drafts,
		messages:    params.Messages,
		commissions: params.Commissions,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Student returns the student's own pipeline snapshot and reports cache
// utilisation.
func (s *DashboardService) Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	student, err := s.students.FindDetailByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	cacheKey := fmt.Sprintf("dash:student:%s", student.ID)
	var cached dto.StudentDashboardResponse
	if hit := s.readCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	scope := models.DashboardScope{StudentID: student.ID}
	var (
		statusCounts []models.StatusCount
		recent       []models.ApplicationSummary
		drafts       []models.ApplicationDraft
		unread       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		statusCounts, err = s.repo.CountApplicationsByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentApplications(gctx, scope, s.cfg.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		drafts, err = s.drafts.ListByStudent(gctx, student.ID)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.messages.CountUnread(gctx, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
	}

	summary := &dto.StudentDashboardResponse{
		DraftCount:           len(drafts),
		ApplicationCount:     sumStatusCounts(statusCounts),
		ApplicationsByStatus: statusCounts,
		RecentApplications:   recent,
		UnreadMessages:       unread,
		GeneratedAt:          s.now().UTC(),
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Agent returns the agent's roster and commission snapshot.
func (s *DashboardService) Agent(ctx context.Context, actor *models.JWTClaims) (*dto.AgentDashboardResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	agent, err := s.agents.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrForbidden, "an agent profile is required")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent profile")
	}

	cacheKey := fmt.Sprintf("dash:agent:%s", agent.ID)
	var cached dto.AgentDashboardResponse
	if hit := s.readCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	scope := models.DashboardScope{AgentID: agent.ID}
	var (
		statusCounts []models.StatusCount
		recent       []models.ApplicationSummary
		studentCount int
		totals       *models.CommissionTotals
		unread       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		statusCounts, err = s.repo.CountApplicationsByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentApplications(gctx, scope, s.cfg.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		studentCount, err = s.repo.CountStudentsByAgent(gctx, agent.ID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.commissions.TotalsByAgent(gctx, agent.ID)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.messages.CountUnread(gctx, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
	}

	summary := &dto.AgentDashboardResponse{
		StudentCount:         studentCount,
		ApplicationCount:     sumStatusCounts(statusCounts),
		ApplicationsByStatus: statusCounts,
		RecentApplications:   recent,
		UnreadMessages:       unread,
		ReferralLink:         fmt.Sprintf("%s/signup?ref=%s", s.cfg.PublicBaseURL, url.QueryEscape(agent.Username)),
		GeneratedAt:          s.now().UTC(),
	}
	if totals != nil {
		summary.Commissions = *totals
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// University returns the tenant's inbound pipeline snapshot.
func (s *DashboardService) University(ctx context.Context, actor *models.JWTClaims) (*dto.UniversityDashboardResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if actor.UniversityID == nil {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university")
	}
	universityID := *actor.UniversityID

	cacheKey := fmt.Sprintf("dash:university:%s", universityID)
	var cached dto.UniversityDashboardResponse
	if hit := s.readCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	scope := models.DashboardScope{UniversityID: universityID}
	var (
		statusCounts []models.StatusCount
		monthly      []models.MonthlyCount
		recent       []models.ApplicationSummary
		programCount int
		topPrograms  []models.ProgramCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		statusCounts, err = s.repo.CountApplicationsByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.repo.CountApplicationsByMonth(gctx, scope, s.cfg.MonthsWindow)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentApplications(gctx, scope, s.cfg.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		programCount, err = s.repo.CountActivePrograms(gctx, universityID)
		return err
	})
	g.Go(func() error {
		var err error
		topPrograms, err = s.repo.CountApplicationsByProgram(gctx, universityID, s.cfg.TopProgramsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
	}

	summary := &dto.UniversityDashboardResponse{
		ProgramCount:         programCount,
		ApplicationCount:     sumStatusCounts(statusCounts),
		PendingReview:        statusCountFor(statusCounts, models.ApplicationStatusSubmitted) + statusCountFor(statusCounts, models.ApplicationStatusUnderReview),
		AcceptanceRate:       offerAcceptanceRate(statusCounts),
		ApplicationsByStatus: statusCounts,
		TopPrograms:          topPrograms,
		MonthlySubmissions:   monthly,
		RecentApplications:   recent,
		GeneratedAt:          s.now().UTC(),
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Admin returns platform-wide totals. The metrics snapshot is process-local
// and cheap, so it is refreshed even when the aggregates come from cache.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	const cacheKey = "dash:admin"
	var cached dto.AdminDashboardResponse
	if hit := s.readCache(ctx, cacheKey, &cached); hit {
		cached.Metrics = s.metrics.Snapshot()
		return &cached, true, nil
	}

	var (
		statusCounts    []models.StatusCount
		monthly         []models.MonthlyCount
		recent          []models.ApplicationSummary
		roleCounts      map[models.UserRole]int
		universityCount int
		programCount    int
		totals          *models.CommissionTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		statusCounts, err = s.repo.CountApplicationsByStatus(gctx, models.DashboardScope{})
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.repo.CountApplicationsByMonth(gctx, models.DashboardScope{}, s.cfg.MonthsWindow)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentApplications(gctx, models.DashboardScope{}, s.cfg.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		roleCounts, err = s.repo.CountUsersByRole(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		universityCount, err = s.repo.CountActiveUniversities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		programCount, err = s.repo.CountActivePrograms(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.commissions.Totals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compose dashboard")
	}

	summary := &dto.AdminDashboardResponse{
		TotalStudents:        roleCounts[models.RoleStudent],
		TotalAgents:          roleCounts[models.RoleAgent],
		TotalUniversities:    universityCount,
		TotalPrograms:        programCount,
		TotalApplications:    sumStatusCounts(statusCounts),
		ApplicationsByStatus: statusCounts,
		MonthlySubmissions:   monthly,
		RecentApplications:   recent,
		GeneratedAt:          s.now().UTC(),
	}
	if totals != nil {
		summary.PendingCommissions = totals.Pending
	}
	s.persistCache(ctx, cacheKey, summary)
	summary.Metrics = s.metrics.Snapshot()
	return summary, false, nil
}

func (s *DashboardService) readCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func sumStatusCounts(counts []models.StatusCount) int {
	total := 0
	for _, count := range counts {
		total += count.Count
	}
	return total
}

func statusCountFor(counts []models.StatusCount, status models.ApplicationStatus) int {
	for _, count := range counts {
		if count.Status == status {
			return count.Count
		}
	}
	return 0
}

// offerAcceptanceRate is the share of extended offers that were taken up. An
// application counts as an extended offer while it sits in OFFER_ISSUED,
// ACCEPTED or ENROLLED.
func offerAcceptanceRate(counts []models.StatusCount) float64 {
	taken := statusCountFor(counts, models.ApplicationStatusAccepted) + statusCountFor(counts, models.ApplicationStatusEnrolled)
	extended := taken + statusCountFor(counts, models.ApplicationStatusOfferIssued)
	if extended == 0 {
		return 0
	}
	return float64(taken) / float64(extended)
}
