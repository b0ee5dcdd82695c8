package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/accountadmin/apiserver/internal/services"
	"github.com/accountadmin/apiserver/internal/store"
	"github.com/accountadmin/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserHandler serves the account administration endpoints. Every route
// sits behind RequireSession.
type UserHandler struct {
	userService *services.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService *services.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers the administration routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewUserHandler(userService, logger)

	r.Use(requireSession)
	r.Get("/", handler.List)
	r.Post("/block", handler.Block)
	r.Post("/unblock", handler.Unblock)
	r.Post("/delete", handler.Delete)
	r.Post("/delete-unverified", handler.DeleteUnverified)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Post("/confirm", handler.Confirm)
	})
}

// IDsRequest selects accounts for a bulk operation.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// AffectedResponse reports how many accounts a bulk operation changed.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

// UserListResponse is the listing payload.
type UserListResponse struct {
	Items []types.User `json:"items"`
	Total int          `json:"total"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list users", err)
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, UserListResponse{Items: users, Total: len(users)})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, r, "failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "failed to block users", h.userService.Block)
}

func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "failed to unblock users", h.userService.Unblock)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "failed to delete users", h.userService.Delete)
}

// DeleteUnverified ignores any selection in the body.
func (h *UserHandler) DeleteUnverified(w http.ResponseWriter, r *http.Request) {
	affected, err := h.userService.DeleteUnverified(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to delete unverified users", err)
		return
	}
	writeJSON(w, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *UserHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.userService.Confirm(r.Context(), id); err != nil {
		h.internalError(w, r, "failed to confirm user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) bulk(
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	apply func(ctx context.Context, ids []uuid.UUID) (int64, error),
) {
	var req IDsRequest
	// An empty body selects nothing.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	ids, err := parseUserIDs(req.IDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	affected, err := apply(r.Context(), ids)
	if err != nil {
		h.internalError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusOK, AffectedResponse{Affected: affected})
}

func (h *UserHandler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.ErrorContext(r.Context(), message, slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, message)
}
