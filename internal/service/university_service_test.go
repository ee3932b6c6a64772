package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type mockUniversityRepo struct {
	universities map[string]models.University
	deactivated  []string
	listTotal    int
}

func (m *mockUniversityRepo) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	out := make([]models.University, 0, len(m.universities))
	for _, u := range m.universities {
		out = append(out, u)
	}
	return out, m.listTotal, nil
}

func (m *mockUniversityRepo) FindByID(ctx context.Context, id string) (*models.University, error) {
	if u, ok := m.universities[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUniversityRepo) Create(ctx context.Context, university *models.University) error {
	if m.universities == nil {
		m.universities = make(map[string]models.University)
	}
	m.universities[university.ID] = *university
	return nil
}

func (m *mockUniversityRepo) Update(ctx context.Context, university *models.University) error {
	m.universities[university.ID] = *university
	return nil
}

func (m *mockUniversityRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if u, ok := m.universities[id]; ok {
		u.Active = false
		m.universities[id] = u
	}
	return nil
}

type mockAuditSink struct {
	logs []models.AuditLog
}

func (m *mockAuditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func TestUniversityServiceCreate(t *testing.T) {
	repo := &mockUniversityRepo{}
	audit := &mockAuditSink{}
	svc := NewUniversityService(repo, audit, validator.New(), zap.NewNop())

	university, err := svc.Create(context.Background(), "admin-1", dto.CreateUniversityRequest{
		Name:    "University of Toronto",
		Country: "Canada",
		City:    "Toronto",
		Website: "https://utoronto.ca",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, university.ID)
	assert.True(t, university.Active)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUniversityCreate, audit.logs[0].Action)
}

func TestUniversityServiceCreateInvalid(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, &mockAuditSink{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", dto.CreateUniversityRequest{Name: "X"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUniversityServiceUpdatePatch(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]models.University{
		"uni-1": {ID: "uni-1", Name: "Old Name", Country: "Canada", Active: true},
	}}
	svc := NewUniversityService(repo, &mockAuditSink{}, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "admin-1", "uni-1", dto.UpdateUniversityRequest{
		Name: strPtr("New Name"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "Canada", updated.Country)
	assert.True(t, updated.Active)
}

func TestUniversityServiceDeactivate(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]models.University{
		"uni-1": {ID: "uni-1", Name: "Uni", Country: "Canada", Active: true},
	}}
	audit := &mockAuditSink{}
	svc := NewUniversityService(repo, audit, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "admin-1", "uni-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "uni-1")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUniversityDeactivate, audit.logs[0].Action)
}

func TestUniversityServiceDeactivateMissing(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, &mockAuditSink{}, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "admin-1", "nope")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
