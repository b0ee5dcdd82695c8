package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/accountadmin/apiserver/internal/metrics"
	"github.com/accountadmin/apiserver/internal/store"
	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status types.UserStatus) (int64, error)
	ConfirmUnverified(ctx context.Context, id uuid.UUID) (bool, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteByStatus(ctx context.Context, status types.UserStatus) (int64, error)
}

// Notifier receives lifecycle events after the store accepted a change.
type Notifier interface {
	Notify(ctx context.Context, event types.AccountEvent) error
}

// UserService encapsulates the account lifecycle.
type UserService struct {
	repo     UserRepository
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs the service. notifier may be nil.
func NewUserService(repo UserRepository, hasher PasswordHasher, notifier Notifier, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified account. The name is stored trimmed, the
// email exactly as given.
func (s *UserService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" || password == "" {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return types.User{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       types.StatusUnverified,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			metrics.Registrations.WithLabelValues("duplicate").Inc()
			return types.User{}, err
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	s.notify(ctx, types.EventRegistered, []uuid.UUID{user.ID}, 1)
	return user, nil
}

// Login checks credentials and stamps the login time. Unknown emails, wrong
// passwords and blocked accounts all yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same hashing effort as for a known email.
			s.hasher.Verify(s.dummy(), password)
			metrics.Logins.WithLabelValues("rejected").Inc()
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) || user.IsBlocked() {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return types.User{}, ErrInvalidCredentials
	}

	now := s.now()
	stamped, err := s.repo.RecordLogin(ctx, user.ID, now)
	if err != nil {
		return types.User{}, fmt.Errorf("record login: %w", err)
	}
	if !stamped {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return types.User{}, ErrInvalidCredentials
	}
	user.LastLoginAt = &now

	metrics.Logins.WithLabelValues("success").Inc()
	s.notify(ctx, types.EventLoggedIn, []uuid.UUID{user.ID}, 1)
	return user, nil
}

// Block moves every listed account to blocked. Unknown ids are ignored.
func (s *UserService) Block(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.setStatus(ctx, ids, types.StatusBlocked, types.EventBlocked)
}

// Unblock moves every listed account to active.
func (s *UserService) Unblock(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.setStatus(ctx, ids, types.StatusActive, types.EventUnblocked)
}

func (s *UserService) setStatus(ctx context.Context, ids []uuid.UUID, status types.UserStatus, event types.EventType) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	affected, err := s.repo.UpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("set status %s: %w", status, err)
	}
	if affected > 0 {
		metrics.StatusChanges.WithLabelValues(string(status)).Add(float64(affected))
		s.notify(ctx, event, ids, affected)
	}
	return affected, nil
}

// Delete physically removes the listed accounts.
func (s *UserService) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	affected, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	if affected > 0 {
		metrics.Deleted.WithLabelValues("selected").Add(float64(affected))
		s.notify(ctx, types.EventDeleted, ids, affected)
	}
	return affected, nil
}

// DeleteUnverified removes every unverified account, regardless of any
// selection.
func (s *UserService) DeleteUnverified(ctx context.Context) (int64, error) {
	affected, err := s.repo.DeleteByStatus(ctx, types.StatusUnverified)
	if err != nil {
		return 0, fmt.Errorf("delete unverified users: %w", err)
	}
	if affected > 0 {
		metrics.Deleted.WithLabelValues("unverified").Add(float64(affected))
		s.notify(ctx, types.EventDeleted, nil, affected)
	}
	return affected, nil
}

// Confirm activates an unverified account. Missing, active and blocked
// accounts are left untouched.
func (s *UserService) Confirm(ctx context.Context, id uuid.UUID) error {
	confirmed, err := s.repo.ConfirmUnverified(ctx, id)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	if confirmed {
		metrics.StatusChanges.WithLabelValues(string(types.StatusActive)).Inc()
		s.notify(ctx, types.EventConfirmed, []uuid.UUID{id}, 1)
	}
	return nil
}

// List returns all accounts, most recent login first.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetByID returns store.ErrNotFound when the account does not exist.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) notify(ctx context.Context, eventType types.EventType, ids []uuid.UUID, count int64) {
	if s.notifier == nil {
		return
	}
	event := types.AccountEvent{
		Type:       eventType,
		UserIDs:    ids,
		Count:      count,
		OccurredAt: s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "account event not published",
			slog.String("event_type", string(eventType)),
			slog.Any("error", err),
		)
	}
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
