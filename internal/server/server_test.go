package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/handlers"
	"github.com/accountadmin/apiserver/internal/mq"
	"github.com/accountadmin/apiserver/internal/services"
	"github.com/accountadmin/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		StoreBackend: config.BackendMemory,
		Session: config.SessionConfig{
			Secret:  "test-secret",
			TTL:     time.Hour,
			Backend: config.BackendMemory,
		},
		Password: config.PasswordConfig{Cost: 4},
		MQ:       config.MQConfig{Backend: config.BackendMemory, Channel: "account-events"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresSessionSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Session.Secret = ""

	_, err := New(context.Background(), cfg, discardLogger())

	assert.EqualError(t, err, "SESSION_SECRET is required")
}

func TestOpenDepsRejectsUnknownBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "sqlite"
	_, err := OpenDeps(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)

	cfg = memoryConfig()
	cfg.Session.Backend = "redis"
	_, err = OpenDeps(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, `unknown session backend "redis"`)
}

func TestRouterServesAccountLifecycle(t *testing.T) {
	deps, err := OpenDeps(context.Background(), memoryConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan types.AccountEvent, 8)
	ready := make(chan struct{}, 1)
	go func() {
		_ = deps.MQ.Subscribe(ctx, "account-events", func(_ context.Context, msg mq.Message) error {
			if msg.Attributes["event_type"] == "probe" {
				select {
				case ready <- struct{}{}:
				default:
				}
				return nil
			}
			event, err := services.DecodeEvent(msg.Data)
			if err != nil {
				return err
			}
			events <- event
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		_, err := deps.MQ.Publish(ctx, "account-events", []byte("{}"), map[string]string{"event_type": "probe"})
		if err != nil {
			return false
		}
		select {
		case <-ready:
			return true
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, time.Second, 5*time.Millisecond)

	router := NewRouter(deps, handlers.SessionOptions{Secret: "test-secret"}, discardLogger())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	post := func(path, token string, body any) *http.Response {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(payload))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post("/auth/register", "", handlers.RegisterRequest{Name: "Alice", Email: "a@x.com", Password: "pw1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post("/auth/login", "", handlers.LoginRequest{Email: "a@x.com", Password: "pw1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var auth handlers.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))

	resp = post("/users/block", auth.Token, handlers.IDsRequest{IDs: []string{auth.User.ID.String()}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("/users/unblock", auth.Token, handlers.IDsRequest{IDs: []string{auth.User.ID.String()}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var got []types.EventType
	timeout := time.After(time.Second)
	for len(got) < 3 {
		select {
		case event := <-events:
			got = append(got, event.Type)
		case <-timeout:
			t.Fatalf("received %v", got)
		}
	}
	assert.Equal(t, []types.EventType{types.EventRegistered, types.EventLoggedIn, types.EventBlocked}, got)
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	deps, err := OpenDeps(context.Background(), memoryConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	router := NewRouter(deps, handlers.SessionOptions{Secret: "test-secret"}, discardLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
