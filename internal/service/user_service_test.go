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

type mockUserRepo struct {
	users       map[string]*models.User
	emailExists bool
	created     []*models.User
	updated     []*models.User
	deleted     []string
	revoked     []string
	auditLogs   []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emailExists, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = append(m.updated, user)
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockUniversityLookup struct {
	universities map[string]*models.University
}

func (m *mockUniversityLookup) FindByID(ctx context.Context, id string) (*models.University, error) {
	if uni, ok := m.universities[id]; ok {
		return uni, nil
	}
	return nil, sql.ErrNoRows
}

func newTestUserService(repo *mockUserRepo, unis *mockUniversityLookup) *UserService {
	if unis == nil {
		unis = &mockUniversityLookup{}
	}
	return NewUserService(repo, unis, validator.New(), zap.NewNop())
}

func TestUserServiceCreateUniversityAccountRequiresTenant(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestUserService(repo, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "staff@uni.example",
		Password: "password123",
		FullName: "Staff Member",
		Role:     "UNIVERSITY",
	}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestUserServiceCreateBindsTenant(t *testing.T) {
	repo := &mockUserRepo{}
	uniID := "3e0fdf5e-44ac-4b9f-9cbd-9ac0d51bd0f2"
	unis := &mockUniversityLookup{universities: map[string]*models.University{
		uniID: {ID: uniID, Name: "Leiden University"},
	}}
	svc := newTestUserService(repo, unis)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:        "Staff@Uni.Example",
		Password:     "password123",
		FullName:     "Staff Member",
		Role:         "UNIVERSITY",
		UniversityID: &uniID,
	}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "staff@uni.example", user.Email)
	require.NotNil(t, user.UniversityID)
	assert.Equal(t, uniID, *user.UniversityID)
	assert.True(t, user.Active)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{emailExists: true}
	svc := newTestUserService(repo, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Somebody",
		Role:     "ADMIN",
	}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEmailTaken.Code, appErr.Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", FullName: "Old Name", Active: true},
	}}
	svc := newTestUserService(repo, nil)

	newName := "New Name"
	inactive := false
	user, err := svc.Update(context.Background(), "u1", dto.UpdateUserRequest{FullName: &newName, Active: &inactive}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.False(t, user.Active)
	require.Len(t, repo.updated, 1)
}

func TestUserServiceDeleteMissing(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	svc := newTestUserService(repo, nil)

	err := svc.Delete(context.Background(), "ghost", "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestUserServiceDeleteRevokesSessions(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Active: true},
	}}
	svc := newTestUserService(repo, nil)

	err := svc.Delete(context.Background(), "u1", "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, repo.deleted)
	assert.Equal(t, []string{"u1"}, repo.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)
}
