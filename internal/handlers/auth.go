package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/accountadmin/apiserver/internal/services"
	"github.com/accountadmin/apiserver/internal/store"
	"github.com/accountadmin/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultCookieName = "session"
	loginPath         = "/auth/login"
)

// SessionOptions controls how session tokens travel over HTTP.
type SessionOptions struct {
	Secret       string
	CookieName   string
	SecureCookie bool
}

// AuthHandler provides registration, login and session endpoints.
type AuthHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	secret         []byte
	cookieName     string
	secureCookie   bool
	logger         *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessionService *services.SessionService, opts SessionOptions, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	cookieName := strings.TrimSpace(opts.CookieName)
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
		secret:         []byte(opts.Secret),
		cookieName:     cookieName,
		secureCookie:   opts.SecureCookie,
		logger:         logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(handler.RequireSession).Get("/me", handler.Me)
}

// Register creates an unverified account. No session is opened.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, user)
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already exists")
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "register failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create user")
	}
}

// Login verifies credentials, opens a session and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	session, err := h.sessionService.Open(r.Context(), user.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "open session failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	token, err := issueToken(session, h.secret)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "sign session token failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	h.setSessionCookie(w, token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout closes the caller's session if there is one and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionToken, err := h.sessionToken(r); err == nil {
		if err := h.sessionService.Close(r.Context(), sessionToken); err != nil {
			h.logger.ErrorContext(r.Context(), "close session failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to close session")
			return
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the session token from the request. A cookie that
// fails verification falls back to the Authorization header.
func (h *AuthHandler) sessionToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		if token, err := parseTokenID(cookie.Value, h.secret); err == nil {
			return token, nil
		}
	}
	tokenString, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	return parseTokenID(tokenString, h.secret)
}

// issueToken signs the session token into a JWT. The subject is the user
// id and the JWT id is the opaque session token.
func issueToken(session types.Session, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.Token,
		Subject:   session.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenID(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return "", errors.New("missing token id")
	}
	return claims.ID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
