package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/accountadmin/apiserver/internal/metrics"
	"github.com/accountadmin/apiserver/internal/services"
)

// RequireSession admits requests carrying a live session of a non-blocked
// user and puts that user into the request context. Everything else gets
// 401 with a Location pointing at the login endpoint.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionToken, err := h.sessionToken(r)
		if err != nil {
			h.unauthorized(w)
			return
		}

		user, err := h.sessionService.Authorize(r.Context(), sessionToken)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				h.unauthorized(w)
				return
			}
			h.logger.ErrorContext(r.Context(), "authorize session failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to authorize")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (h *AuthHandler) unauthorized(w http.ResponseWriter) {
	metrics.Unauthorized.Inc()
	h.clearSessionCookie(w)
	w.Header().Set("Location", loginPath)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
