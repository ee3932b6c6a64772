package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type fakeDashboardStats struct {
	statusCounts []models.StatusCount
	monthly      []models.MonthlyCount
	recent       []models.ApplicationSummary
	topPrograms  []models.ProgramCount
	studentCount int
	roleCounts   map[models.UserRole]int
	universities int
	programs     int
	statusErr    error
	lastScope    models.DashboardScope
}

func (f *fakeDashboardStats) CountApplicationsByStatus(ctx context.Context, scope models.DashboardScope) ([]models.StatusCount, error) {
	f.lastScope = scope
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusCounts, nil
}

func (f *fakeDashboardStats) CountApplicationsByMonth(ctx context.Context, scope models.DashboardScope, months int) ([]models.MonthlyCount, error) {
	return f.monthly, nil
}

func (f *fakeDashboardStats) RecentApplications(ctx context.Context, scope models.DashboardScope, limit int) ([]models.ApplicationSummary, error) {
	return f.recent, nil
}

func (f *fakeDashboardStats) CountApplicationsByProgram(ctx context.Context, universityID string, limit int) ([]models.ProgramCount, error) {
	return f.topPrograms, nil
}

func (f *fakeDashboardStats) CountStudentsByAgent(ctx context.Context, agentID string) (int, error) {
	return f.studentCount, nil
}

func (f *fakeDashboardStats) CountUsersByRole(ctx context.Context) (map[models.UserRole]int, error) {
	return f.roleCounts, nil
}

func (f *fakeDashboardStats) CountActiveUniversities(ctx context.Context) (int, error) {
	return f.universities, nil
}

func (f *fakeDashboardStats) CountActivePrograms(ctx context.Context, universityID string) (int, error) {
	return f.programs, nil
}

type fakeDraftLister struct {
	drafts []models.ApplicationDraft
}

func (f *fakeDraftLister) ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationDraft, error) {
	return f.drafts, nil
}

type fakeUnreadCounter struct {
	unread     int
	lastUserID string
}

func (f *fakeUnreadCounter) CountUnread(ctx context.Context, userID string) (int, error) {
	f.lastUserID = userID
	return f.unread, nil
}

type fakeCommissionTotals struct {
	byAgent     map[string]*models.CommissionTotals
	platform    *models.CommissionTotals
	lastAgentID string
}

func (f *fakeCommissionTotals) TotalsByAgent(ctx context.Context, agentID string) (*models.CommissionTotals, error) {
	f.lastAgentID = agentID
	if totals, ok := f.byAgent[agentID]; ok {
		return totals, nil
	}
	return &models.CommissionTotals{}, nil
}

func (f *fakeCommissionTotals) Totals(ctx context.Context) (*models.CommissionTotals, error) {
	if f.platform != nil {
		return f.platform, nil
	}
	return &models.CommissionTotals{}, nil
}

type dashboardFixture struct {
	stats       *fakeDashboardStats
	students    *mockWizardStudentRepo
	agents      *mockAgentRepo
	drafts      *fakeDraftLister
	messages    *fakeUnreadCounter
	commissions *fakeCommissionTotals
	store       *mockCacheStore
	metrics     *MetricsService
	svc         *DashboardService
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		stats:       &fakeDashboardStats{},
		students:    &mockWizardStudentRepo{byUser: map[string]*models.StudentDetail{}},
		agents:      &mockAgentRepo{byUser: map[string]models.AgentProfile{}},
		drafts:      &fakeDraftLister{},
		messages:    &fakeUnreadCounter{},
		commissions: &fakeCommissionTotals{},
		store:       &mockCacheStore{},
		metrics:     NewMetricsService(),
	}
	cache := NewCacheService(f.store, nil, time.Minute, zap.NewNop(), true)
	f.svc = NewDashboardService(DashboardServiceParams{
		Repo:        f.stats,
		Students:    f.students,
		Agents:      f.agents,
		Drafts:      f.drafts,
		Messages:    f.messages,
		Commissions: f.commissions,
		Cache:       cache,
		Metrics:     f.metrics,
		Logger:      zap.NewNop(),
		Config:      DashboardServiceConfig{CacheTTL: time.Minute, PublicBaseURL: "https://unidoxia.com/"},
	})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestDashboardServiceStudentComposes(t *testing.T) {
	f := newDashboardFixture()
	f.students.byUser["user-1"] = &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "stu-1", UserID: "user-1"},
	}
	f.stats.statusCounts = []models.StatusCount{
		{Status: models.ApplicationStatusSubmitted, Count: 2},
		{Status: models.ApplicationStatusOfferIssued, Count: 1},
	}
	f.stats.recent = []models.ApplicationSummary{{ID: "app-1", ProgramName: "MSc Data Science"}}
	f.drafts.drafts = []models.ApplicationDraft{{ID: "draft-1"}, {ID: "draft-2"}}
	f.messages.unread = 3

	result, cacheHit, err := f.svc.Student(context.Background(), studentActor("user-1"))
	require.NoError(t, err)

	assert.False(t, cacheHit)
	assert.Equal(t, "stu-1", f.stats.lastScope.StudentID)
	assert.Equal(t, "user-1", f.messages.lastUserID)
	assert.Equal(t, 2, result.DraftCount)
	assert.Equal(t, 3, result.ApplicationCount)
	assert.Equal(t, 3, result.UnreadMessages)
	require.Len(t, result.RecentApplications, 1)

	cachedResult, cacheHit2, err := f.svc.Student(context.Background(), studentActor("user-1"))
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, result.ApplicationCount, cachedResult.ApplicationCount)
	assert.Equal(t, result.GeneratedAt, cachedResult.GeneratedAt)
}

func TestDashboardServiceStudentRequiresProfile(t *testing.T) {
	f := newDashboardFixture()

	_, _, err := f.svc.Student(context.Background(), studentActor("user-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceAgentComposes(t *testing.T) {
	f := newDashboardFixture()
	f.agents.byUser["agent-user"] = models.AgentProfile{ID: "ag-1", UserID: "agent-user", Username: "lagospartners"}
	f.stats.statusCounts = []models.StatusCount{{Status: models.ApplicationStatusSubmitted, Count: 4}}
	f.stats.studentCount = 6
	f.commissions.byAgent = map[string]*models.CommissionTotals{
		"ag-1": {Pending: 1800, Paid: 3600},
	}
	f.messages.unread = 2

	result, cacheHit, err := f.svc.Agent(context.Background(), agentActor("agent-user"))
	require.NoError(t, err)

	assert.False(t, cacheHit)
	assert.Equal(t, "ag-1", f.stats.lastScope.AgentID)
	assert.Equal(t, "ag-1", f.commissions.lastAgentID)
	assert.Equal(t, 6, result.StudentCount)
	assert.Equal(t, 4, result.ApplicationCount)
	assert.Equal(t, 2, result.UnreadMessages)
	assert.InDelta(t, 1800, result.Commissions.Pending, 0.001)
	assert.Equal(t, "https://unidoxia.com/signup?ref=lagospartners", result.ReferralLink)
}

func TestDashboardServiceAgentRequiresProfile(t *testing.T) {
	f := newDashboardFixture()

	_, _, err := f.svc.Agent(context.Background(), agentActor("nobody"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceUniversityComposes(t *testing.T) {
	f := newDashboardFixture()
	f.stats.statusCounts = []models.StatusCount{
		{Status: models.ApplicationStatusSubmitted, Count: 3},
		{Status: models.ApplicationStatusUnderReview, Count: 2},
		{Status: models.ApplicationStatusOfferIssued, Count: 1},
		{Status: models.ApplicationStatusAccepted, Count: 2},
		{Status: models.ApplicationStatusEnrolled, Count: 1},
		{Status: models.ApplicationStatusRejected, Count: 1},
	}
	f.stats.programs = 7
	f.stats.topPrograms = []models.ProgramCount{
		{ProgramID: "prog-1", ProgramName: "MSc Data Science", Count: 5},
		{ProgramID: "prog-2", ProgramName: "BSc Economics", Count: 3},
	}
	f.stats.monthly = []models.MonthlyCount{{Month: "2026-02", Count: 4}}

	result, cacheHit, err := f.svc.University(context.Background(), universityActor("uni-1"))
	require.NoError(t, err)

	assert.False(t, cacheHit)
	assert.Equal(t, "uni-1", f.stats.lastScope.UniversityID)
	assert.Equal(t, 10, result.ApplicationCount)
	assert.Equal(t, 5, result.PendingReview)
	assert.InDelta(t, 0.75, result.AcceptanceRate, 0.001)
	assert.Equal(t, 7, result.ProgramCount)
	require.Len(t, result.TopPrograms, 2)
	assert.Equal(t, "MSc Data Science", result.TopPrograms[0].ProgramName)
}

func TestDashboardServiceUniversityRequiresTenant(t *testing.T) {
	f := newDashboardFixture()

	actor := &models.JWTClaims{UserID: "staff-9", Role: models.RoleUniversity}
	_, _, err := f.svc.University(context.Background(), actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceAdminComposesAndCaches(t *testing.T) {
	f := newDashboardFixture()
	f.stats.statusCounts = []models.StatusCount{
		{Status: models.ApplicationStatusSubmitted, Count: 12},
		{Status: models.ApplicationStatusEnrolled, Count: 5},
	}
	f.stats.roleCounts = map[models.UserRole]int{
		models.RoleStudent: 120,
		models.RoleAgent:   8,
	}
	f.stats.universities = 5
	f.stats.programs = 40
	f.commissions.platform = &models.CommissionTotals{Pending: 5400, Paid: 9000}

	result, cacheHit, err := f.svc.Admin(context.Background())
	require.NoError(t, err)

	assert.False(t, cacheHit)
	assert.Equal(t, 120, result.TotalStudents)
	assert.Equal(t, 8, result.TotalAgents)
	assert.Equal(t, 5, result.TotalUniversities)
	assert.Equal(t, 40, result.TotalPrograms)
	assert.Equal(t, 17, result.TotalApplications)
	assert.InDelta(t, 5400, result.PendingCommissions, 0.001)
	assert.Equal(t, uint64(0), result.Metrics.RequestsTotal)

	f.metrics.ObserveHTTPRequest("GET", "/api/v1/dashboard", 200, 12*time.Millisecond)

	cachedResult, cacheHit2, err := f.svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, result.TotalApplications, cachedResult.TotalApplications)
	assert.Equal(t, uint64(1), cachedResult.Metrics.RequestsTotal)
}

func TestDashboardServiceFanOutFailure(t *testing.T) {
	f := newDashboardFixture()
	f.students.byUser["user-1"] = &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "stu-1", UserID: "user-1"},
	}
	f.stats.statusErr = errors.New("aggregate query failed")

	_, _, err := f.svc.Student(context.Background(), studentActor("user-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.store.entries)
}
