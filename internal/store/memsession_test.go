package store

import (
	"context"
	"testing"
	"time"

	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	now := time.Now()

	session := types.Session{Token: "tok", UserID: uuid.New(), CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Get(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)

	_, err = repo.Get(ctx, "tok", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "tok"))
	_, err = repo.Get(ctx, "tok", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySessionRepositoryDeleteExpired(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, types.Session{Token: "short", UserID: uuid.New(), ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, types.Session{Token: "long", UserID: uuid.New(), ExpiresAt: now.Add(time.Hour)}))

	removed, err := repo.DeleteExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = repo.Get(ctx, "long", now)
	assert.NoError(t, err)
}
