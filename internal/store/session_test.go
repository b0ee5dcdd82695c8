package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepoWithMock(t *testing.T) (*SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewSessionRepository(db), mock
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	repo, mock := newSessionRepoWithMock(t)
	now := time.Now().UTC()
	session := types.Session{
		Token:     "tok",
		UserID:    uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (token, user_id, created_at, expires_at)")).
		WithArgs("tok", session.UserID, session.CreatedAt, session.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE token = $1 AND expires_at > $2")).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "created_at", "expires_at"}).
			AddRow("tok", session.UserID.String(), session.CreatedAt, session.ExpiresAt))

	require.NoError(t, repo.Create(context.Background(), session))

	got, err := repo.Get(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, "tok", got.Token)
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	repo, mock := newSessionRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
		WithArgs("gone", now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "gone", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	repo, mock := newSessionRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE token = $1")).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.Delete(context.Background(), "tok"))

	removed, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, removed)
}
