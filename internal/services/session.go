package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/accountadmin/apiserver/internal/store"
	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
)

const (
	defaultSessionTTL = 24 * time.Hour
	sessionTokenBytes = 32
)

// SessionRepository stores token to user bindings.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session) error
	Get(ctx context.Context, token string, now time.Time) (types.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserLookup resolves the user bound to a session.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
}

// SessionService opens sessions and guards protected operations. Every
// Authorize call re-reads the user so a block takes effect on the next
// request.
type SessionService struct {
	sessions SessionRepository
	users    UserLookup
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(sessions SessionRepository, users UserLookup, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open binds a fresh token to userID.
func (s *SessionService) Open(ctx context.Context, userID uuid.UUID) (types.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return types.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now()
	session := types.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return types.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Authorize resolves token to the acting user. Sessions bound to a missing
// or blocked user are deleted and reported as ErrUnauthorized.
func (s *SessionService) Authorize(ctx context.Context, token string) (types.User, error) {
	if strings.TrimSpace(token) == "" {
		return types.User{}, ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, fmt.Errorf("load session: %w", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("load session user: %w", err)
	}
	if err != nil || user.IsBlocked() {
		if delErr := s.sessions.Delete(ctx, token); delErr != nil {
			return types.User{}, fmt.Errorf("invalidate session: %w", delErr)
		}
		return types.User{}, ErrUnauthorized
	}
	return user, nil
}

// Close ends the session. Closing an unknown token is not an error.
func (s *SessionService) Close(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Prune removes expired sessions and returns how many were dropped.
func (s *SessionService) Prune(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return removed, nil
}

func newSessionToken() (string, error) {
	var buf [sessionTokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
