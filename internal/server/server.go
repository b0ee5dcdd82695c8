package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/handlers"
	"github.com/accountadmin/apiserver/internal/logging"
	"github.com/accountadmin/apiserver/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	deps       *Deps
	logger     *slog.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Session.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	deps, err := OpenDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := NewRouter(deps, handlers.SessionOptions{
		Secret:       cfg.Session.Secret,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	}, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		deps:       deps,
		logger:     logger,
	}, nil
}

// NewRouter builds the routing tree on top of already opened dependencies.
func NewRouter(deps *Deps, opts handlers.SessionOptions, logger *slog.Logger) *chi.Mux {
	auth := handlers.NewAuthHandler(deps.UserService, deps.SessionService, opts, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, auth)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, deps.UserService, auth.RequireSession, logger)
	})
	return router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the backing stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.deps.Close())
}
