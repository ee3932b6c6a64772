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

type mockStudentRepo struct {
	details    map[string]models.StudentDetail
	byUser     map[string]models.StudentProfile
	lastFilter models.StudentFilter
	listTotal  int
	updated    []models.StudentProfile
	err        error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.StudentDetail, 0, len(m.details))
	for _, d := range m.details {
		out = append(out, d)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.byUser[userID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Update(ctx context.Context, profile *models.StudentProfile) error {
	m.updated = append(m.updated, *profile)
	if m.byUser == nil {
		m.byUser = make(map[string]models.StudentProfile)
	}
	m.byUser[profile.UserID] = *profile
	return nil
}

func strPtr(s string) *string { return &s }

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentRepo{
		details: map[string]models.StudentDetail{
			"st-1": {StudentProfile: models.StudentProfile{ID: "st-1", FirstName: "Amina", LastName: "Diallo"}, Email: "amina@example.com", FullName: "Amina Diallo"},
		},
		listTotal: 41,
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{AgentID: "ag-1", Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, "ag-1", repo.lastFilter.AgentID)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestStudentServiceGetMissing(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceUpdateByUser(t *testing.T) {
	repo := &mockStudentRepo{
		byUser: map[string]models.StudentProfile{
			"user-1": {ID: "st-1", UserID: "user-1", FirstName: "Amina", LastName: "Diallo", Nationality: "Senegal"},
		},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	profile, err := svc.UpdateByUser(context.Background(), "user-1", dto.UpdateStudentProfileRequest{
		Phone:       strPtr("+221771234567"),
		DateOfBirth: strPtr("2001-04-17"),
		City:        strPtr("Dakar"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+221771234567", profile.Phone)
	assert.Equal(t, "Dakar", profile.City)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, 2001, profile.DateOfBirth.Year())
	assert.Equal(t, "Amina", profile.FirstName)
	require.Len(t, repo.updated, 1)
}

func TestStudentServiceUpdateByUserBadDate(t *testing.T) {
	repo := &mockStudentRepo{
		byUser: map[string]models.StudentProfile{
			"user-1": {ID: "st-1", UserID: "user-1"},
		},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.UpdateByUser(context.Background(), "user-1", dto.UpdateStudentProfileRequest{
		DateOfBirth: strPtr("17/04/2001"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.updated)
}

func TestStudentServiceUpdateByUserMissingProfile(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, validator.New(), zap.NewNop())

	_, err := svc.UpdateByUser(context.Background(), "ghost", dto.UpdateStudentProfileRequest{City: strPtr("Lagos")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
