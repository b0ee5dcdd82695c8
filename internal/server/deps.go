package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/db"
	"github.com/accountadmin/apiserver/internal/mq"
	"github.com/accountadmin/apiserver/internal/services"
	"github.com/accountadmin/apiserver/internal/store"
)

// Deps holds the backing stores and services shared by the HTTP server and
// the maintenance commands.
type Deps struct {
	DB       *sql.DB
	MQ       *mq.MQ
	Users    services.UserRepository
	Sessions services.SessionRepository

	UserService    *services.UserService
	SessionService *services.SessionService
}

// OpenDeps connects the configured stores and the optional event backend.
func OpenDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Deps, error) {
	deps := &Deps{}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		deps.DB = conn
		deps.Users = store.NewUserRepository(conn)
	case config.BackendMemory:
		deps.Users = store.NewMemoryUserRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	switch {
	case cfg.Session.Backend == config.BackendPostgres && deps.DB != nil:
		deps.Sessions = store.NewSessionRepository(deps.DB)
	case cfg.Session.Backend == config.BackendPostgres, cfg.Session.Backend == config.BackendMemory:
		// Sessions reference users, so a memory user store keeps sessions in memory too.
		deps.Sessions = store.NewMemorySessionRepository()
	default:
		_ = deps.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.MQ = queue

	var notifier services.Notifier
	if queue != nil {
		notifier = services.NewEventPublisher(queue, cfg.MQ.Channel)
	}

	deps.UserService = services.NewUserService(deps.Users, services.NewBcryptHasher(cfg.Password.Cost), notifier, logger)
	deps.SessionService = services.NewSessionService(deps.Sessions, deps.Users, cfg.Session.TTL)
	return deps, nil
}

// Close releases the event backend and the database pool.
func (d *Deps) Close() error {
	var errs []error
	if d.MQ != nil {
		errs = append(errs, d.MQ.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}
