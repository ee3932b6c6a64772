package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

func newApplicationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryExistsForIntake(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT id FROM applications").
		WithArgs("sp-1", "prog-1", 2026, 9, models.ApplicationStatusWithdrawn).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("app-1"))

	exists, err := repo.ExistsForIntake(context.Background(), "sp-1", "prog-1", 2026, 9)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryExistsForIntakeNoMatch(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT id FROM applications").
		WithArgs("sp-1", "prog-1", 2026, 1, models.ApplicationStatusWithdrawn).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	exists, err := repo.ExistsForIntake(context.Background(), "sp-1", "prog-1", 2026, 1)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_status_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	application := &models.Application{
		StudentID:    "sp-1",
		ProgramID:    "prog-1",
		UniversityID: "uni-1",
		IntakeYear:   2026,
		IntakeMonth:  9,
		Status:       models.ApplicationStatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
	}
	event := &models.ApplicationStatusEvent{
		FromStatus: models.ApplicationStatusSubmitted,
		ToStatus:   models.ApplicationStatusSubmitted,
		ActorID:    "u-1",
	}
	err := repo.Create(context.Background(), application, event)
	require.NoError(t, err)
	assert.NotEmpty(t, application.ID)
	assert.Equal(t, application.ID, event.ApplicationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications SET status").
		WithArgs(models.ApplicationStatusUnderReview, nil, "", sqlmock.AnyArg(), "app-1", models.ApplicationStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	event := &models.ApplicationStatusEvent{
		FromStatus: models.ApplicationStatusSubmitted,
		ToStatus:   models.ApplicationStatusUnderReview,
		ActorID:    "staff-1",
	}
	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview, nil, "", event)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusConcurrentLoser(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	event := &models.ApplicationStatusEvent{
		FromStatus: models.ApplicationStatusSubmitted,
		ToStatus:   models.ApplicationStatusUnderReview,
		ActorID:    "staff-1",
	}
	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview, nil, "", event)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
