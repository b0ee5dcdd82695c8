package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-process user store with the same
// semantics as UserRepository. A single mutex serializes writers, which
// gives the same all-or-nothing behavior as the postgres statements.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]types.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[uuid.UUID]types.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return types.User{}, ErrDuplicateEmail
	}
	r.users[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]types.User, error) {
	r.mu.RLock()
	users := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, cloneUser(user))
	}
	r.mu.RUnlock()

	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].LastLoginAt, users[j].LastLoginAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		default:
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
	})
	return users, nil
}

func (r *MemoryUserRepository) UpdateStatus(_ context.Context, ids []uuid.UUID, status types.UserStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, id := range dedupe(ids) {
		user, ok := r.users[id]
		if !ok {
			continue
		}
		user.Status = status
		r.users[id] = user
		affected++
	}
	return affected, nil
}

func (r *MemoryUserRepository) ConfirmUnverified(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.Status != types.StatusUnverified {
		return false, nil
	}
	user.Status = types.StatusActive
	r.users[id] = user
	return true, nil
}

func (r *MemoryUserRepository) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsBlocked() {
		return false, nil
	}
	stamp := at
	user.LastLoginAt = &stamp
	r.users[id] = user
	return true, nil
}

func (r *MemoryUserRepository) DeleteByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, id := range dedupe(ids) {
		user, ok := r.users[id]
		if !ok {
			continue
		}
		delete(r.users, id)
		delete(r.byEmail, user.Email)
		affected++
	}
	return affected, nil
}

func (r *MemoryUserRepository) DeleteByStatus(_ context.Context, status types.UserStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for id, user := range r.users {
		if user.Status != status {
			continue
		}
		delete(r.users, id)
		delete(r.byEmail, user.Email)
		affected++
	}
	return affected, nil
}

func cloneUser(user types.User) types.User {
	if user.LastLoginAt != nil {
		at := *user.LastLoginAt
		user.LastLoginAt = &at
	}
	return user
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
