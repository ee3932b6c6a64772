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

func newDraftMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDraftRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftRepository(db)

	mock.ExpectExec("INSERT INTO application_drafts").WillReturnResult(sqlmock.NewResult(1, 1))

	draft := &models.ApplicationDraft{StudentID: "sp-1", CurrentStep: models.StepPersonalInfo}
	err := repo.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftRepositoryUpdateRejectsSubmitted(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftRepository(db)

	mock.ExpectExec("UPDATE application_drafts SET current_step").
		WillReturnResult(sqlmock.NewResult(0, 0))

	draft := &models.ApplicationDraft{ID: "d-1", StudentID: "sp-1", CurrentStep: models.StepEducation}
	err := repo.Update(context.Background(), draft)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftRepositoryMarkSubmittedExactlyOnce(t *testing.T) {
	db, mock, cleanup := newDraftMock(t)
	defer cleanup()
	repo := NewDraftRepository(db)

	submittedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE application_drafts SET submitted").
		WithArgs(submittedAt, "app-1", "d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE application_drafts SET submitted").
		WithArgs(submittedAt, "app-2", "d-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.MarkSubmitted(context.Background(), "d-1", "app-1", submittedAt)
	require.NoError(t, err)
	assert.True(t, won)

	lost, err := repo.MarkSubmitted(context.Background(), "d-1", "app-2", submittedAt)
	require.NoError(t, err)
	assert.False(t, lost)
	assert.NoError(t, mock.ExpectationsWereMet())
}
