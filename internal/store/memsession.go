package store

import (
	"context"
	"time"

	"github.com/accountadmin/apiserver/types"
	"github.com/patrickmn/go-cache"
)

const defaultSessionCleanup = 10 * time.Minute

// MemorySessionRepository keeps sessions in process memory. Sessions do not
// survive a restart.
type MemorySessionRepository struct {
	cache *cache.Cache
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		cache: cache.New(cache.NoExpiration, defaultSessionCleanup),
	}
}

func (r *MemorySessionRepository) Create(_ context.Context, session types.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	r.cache.Set(session.Token, session, ttl)
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, token string, now time.Time) (types.Session, error) {
	value, ok := r.cache.Get(token)
	if !ok {
		return types.Session{}, ErrNotFound
	}
	session, ok := value.(types.Session)
	if !ok || session.Expired(now) {
		return types.Session{}, ErrNotFound
	}
	return session, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, token string) error {
	r.cache.Delete(token)
	return nil
}

func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for token, item := range r.cache.Items() {
		session, ok := item.Object.(types.Session)
		if ok && !session.Expired(now) {
			continue
		}
		r.cache.Delete(token)
		removed++
	}
	return removed, nil
}
