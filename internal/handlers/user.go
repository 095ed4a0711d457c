package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/types"
)

// UserHandler exposes account administration.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user administration routes. Every route needs a
// signed-in actor; the service decides whether that actor may proceed.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewUserHandler(userService)

	r.Use(RequireUser)
	r.Get("/", handler.ListUsers)
	r.Post("/admins", handler.CreateAdmin)
	r.Post("/password-reset", handler.ResetPassword)
	r.Route("/{userID}", func(r chi.Router) {
		r.Post("/toggle-status", handler.ToggleStatus)
		r.Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Items: users, Total: len(users)})
}

func (h *UserHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.CreateAdmin(r.Context(), actorFromContext(r.Context()),
		req.Name, req.Email, req.Password, clientOrigin(r))
	if err != nil {
		writeServiceError(w, err, "failed to create admin")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.userService.ResetPassword(r.Context(), actorFromContext(r.Context()), req.Identifier, req.NewPassword)
	if err != nil {
		writeServiceError(w, err, "failed to reset password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	user, err := h.userService.ToggleUserStatus(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if err := h.userService.DeleteUser(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Total int          `json:"total"`
}

type PasswordResetRequest struct {
	Identifier  string `json:"identifier"`
	NewPassword string `json:"new_password"`
}
