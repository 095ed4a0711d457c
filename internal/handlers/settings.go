package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/types"
)

type SettingsHandler struct {
	settingsService *services.SettingsService
}

func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// SettingsRouter registers site settings routes. Subscription and
// watermark settings are public to read; email settings carry the mailer
// key and are admin only.
func SettingsRouter(r chi.Router, settingsService *services.SettingsService) {
	handler := NewSettingsHandler(settingsService)

	r.Get("/subscription", handler.GetSubscription)
	r.Get("/watermark", handler.GetWatermark)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser, requireAdmin)
		r.Get("/email", handler.GetEmail)
		r.Put("/email", handler.UpdateEmail)
		r.Put("/subscription", handler.UpdateSubscription)
		r.Put("/watermark", handler.UpdateWatermark)
		r.Delete("/{key}", handler.Reset)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		if actor == nil || actor.Role != types.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *SettingsHandler) GetEmail(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.EmailSettings(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req types.EmailSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settingsService.UpdateEmailSettings(r.Context(), actorFromContext(r.Context()), req); err != nil {
		writeServiceError(w, err, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *SettingsHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.SubscriptionSettings(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req types.SubscriptionSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settingsService.UpdateSubscriptionSettings(r.Context(), actorFromContext(r.Context()), req); err != nil {
		writeServiceError(w, err, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *SettingsHandler) GetWatermark(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.WatermarkSettings(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateWatermark(w http.ResponseWriter, r *http.Request) {
	var req types.WatermarkSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settingsService.UpdateWatermarkSettings(r.Context(), actorFromContext(r.Context()), req); err != nil {
		writeServiceError(w, err, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

var settingsKeys = map[string]string{
	"email":        services.EmailSettingsKey,
	"subscription": services.SubscriptionSettingsKey,
	"watermark":    services.WatermarkSettingsKey,
}

// Reset restores the defaults of the document named by the last path
// segment, e.g. DELETE /settings/watermark.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	key, ok := settingsKeys[chi.URLParam(r, "key")]
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.settingsService.Reset(r.Context(), actorFromContext(r.Context()), key); err != nil {
		writeServiceError(w, err, "failed to reset settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
