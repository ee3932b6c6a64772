package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/config"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type mockCatalogRepo struct {
	programs    map[string]models.ProgramDetail
	intakes     map[string][]models.Intake
	searchCalls int
	lastSearch  models.ProgramSearchFilter
	created     []models.Program
	updated     []models.Program
}

func (m *mockCatalogRepo) Search(ctx context.Context, filter models.ProgramSearchFilter) ([]models.ProgramDetail, error) {
	m.searchCalls++
	m.lastSearch = filter
	out := make([]models.ProgramDetail, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalogRepo) FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	out := make([]models.ProgramDetail, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockCatalogRepo) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = "generated"
	}
	m.created = append(m.created, *program)
	if m.programs == nil {
		m.programs = make(map[string]models.ProgramDetail)
	}
	m.programs[program.ID] = models.ProgramDetail{Program: *program}
	return nil
}

func (m *mockCatalogRepo) Update(ctx context.Context, program *models.Program) error {
	m.updated = append(m.updated, *program)
	m.programs[program.ID] = models.ProgramDetail{Program: *program}
	return nil
}

func (m *mockCatalogRepo) ListUpcomingIntakes(ctx context.Context, programID string, asOf time.Time) ([]models.Intake, error) {
	return m.intakes[programID], nil
}

func (m *mockCatalogRepo) FindIntakeByID(ctx context.Context, id string) (*models.Intake, error) {
	for _, list := range m.intakes {
		for _, intake := range list {
			if intake.ID == id {
				return &intake, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) CreateIntake(ctx context.Context, intake *models.Intake) error {
	if intake.ID == "" {
		intake.ID = "intake-generated"
	}
	if m.intakes == nil {
		m.intakes = make(map[string][]models.Intake)
	}
	m.intakes[intake.ProgramID] = append(m.intakes[intake.ProgramID], *intake)
	return nil
}

type mockCacheStore struct {
	entries  map[string][]byte
	deleted  []string
	getCalls int
}

func (m *mockCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	m.getCalls++
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mockCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *mockCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = make(map[string][]byte)
	return nil
}

func universityActor(universityID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleUniversity, UniversityID: &universityID}
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func newTestCatalogService(repo *mockCatalogRepo, store *mockCacheStore) *CatalogService {
	var cache *CacheService
	if store != nil {
		cache = NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	}
	cfg := config.CatalogConfig{CacheTTL: time.Minute, SearchLimit: 25}
	return NewCatalogService(repo, &mockAuditSink{}, cache, validator.New(), zap.NewNop(), cfg)
}

func TestCatalogServiceSearchCachesResults(t *testing.T) {
	repo := &mockCatalogRepo{programs: map[string]models.ProgramDetail{
		"prog-1": {Program: models.Program{ID: "prog-1", Name: "MSc Data Science", UniversityID: "uni-1"}, UniversityName: "Leiden"},
	}}
	store := &mockCacheStore{}
	svc := newTestCatalogService(repo, store)

	first, cached, err := svc.Search(context.Background(), models.ProgramSearchFilter{Search: "data"})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, first, 1)

	second, cached, err := svc.Search(context.Background(), models.ProgramSearchFilter{Search: "data"})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.searchCalls)
}

func TestCatalogServiceSearchClampsLimit(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := newTestCatalogService(repo, nil)

	_, _, err := svc.Search(context.Background(), models.ProgramSearchFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 25, repo.lastSearch.Limit)
}

func TestCatalogServiceGetProgramMissing(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogRepo{}, nil)

	_, err := svc.GetProgram(context.Background(), "nope")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCatalogServiceCreateProgramNormalizesLevel(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := newTestCatalogService(repo, nil)

	program, err := svc.CreateProgram(context.Background(), adminActor(), dto.CreateProgramRequest{
		UniversityID: "8b7e9f55-91cd-4f16-b6ab-132ce2dcb734",
		Name:         "MSc Computer Science",
		Level:        "Masters",
		TuitionFee:   15000,
		Currency:     "gbp",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EducationLevelMaster, program.Level)
	assert.Equal(t, "GBP", program.Currency)
	assert.True(t, program.Active)
}

func TestCatalogServiceCreateProgramTenantMismatch(t *testing.T) {
	svc := newTestCatalogService(&mockCatalogRepo{}, nil)

	_, err := svc.CreateProgram(context.Background(), universityActor("5f0a8e0f-58a4-4c76-9c4f-31cb1e02a1aa"), dto.CreateProgramRequest{
		UniversityID: "9d4c2c4f-7e53-4ad8-9a25-62f9f885a5ad",
		Name:         "BSc Economics",
		Level:        "bachelor",
		TuitionFee:   9000,
		Currency:     "EUR",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCatalogServiceUpdateProgramInvalidatesCache(t *testing.T) {
	repo := &mockCatalogRepo{programs: map[string]models.ProgramDetail{
		"prog-1": {Program: models.Program{ID: "prog-1", UniversityID: "uni-1", Name: "Old", Level: "bachelor", Active: true}},
	}}
	store := &mockCacheStore{}
	svc := newTestCatalogService(repo, store)

	updated, err := svc.UpdateProgram(context.Background(), universityActor("uni-1"), "prog-1", dto.UpdateProgramRequest{
		Name: strPtr("New"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Contains(t, store.deleted, "catalog:*")
}

func TestCatalogServiceCreateIntakeRejectsLateDeadline(t *testing.T) {
	repo := &mockCatalogRepo{programs: map[string]models.ProgramDetail{
		"prog-1": {Program: models.Program{ID: "prog-1", UniversityID: "uni-1"}},
	}}
	svc := newTestCatalogService(repo, nil)

	_, err := svc.CreateIntake(context.Background(), adminActor(), "prog-1", dto.CreateIntakeRequest{
		StartDate:           "2026-09-01",
		ApplicationDeadline: "2026-10-01",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCatalogServiceCreateIntakeDerivesLabel(t *testing.T) {
	repo := &mockCatalogRepo{programs: map[string]models.ProgramDetail{
		"prog-1": {Program: models.Program{ID: "prog-1", UniversityID: "uni-1"}},
	}}
	svc := newTestCatalogService(repo, nil)

	intake, err := svc.CreateIntake(context.Background(), universityActor("uni-1"), "prog-1", dto.CreateIntakeRequest{
		StartDate:           "2026-09-01",
		ApplicationDeadline: "2026-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "September 2026", intake.Label)
	assert.True(t, intake.Active)
}
