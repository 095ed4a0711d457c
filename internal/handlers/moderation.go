package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// ModerationRouter registers the review queue routes.
func ModerationRouter(r chi.Router, moderationService *services.ModerationService) {
	handler := NewModerationHandler(moderationService)

	r.Use(RequireUser)
	r.Get("/queue", handler.Queue)
	r.Post("/{contentType}/{contentID}/approve", handler.Approve)
	r.Post("/{contentType}/{contentID}/reject", handler.Reject)
}

func (h *ModerationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.moderationService.Pending(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "failed to load queue")
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	err := h.moderationService.Approve(r.Context(), actorFromContext(r.Context()),
		chi.URLParam(r, "contentType"), chi.URLParam(r, "contentID"))
	if err != nil {
		writeServiceError(w, err, "failed to approve content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	err := h.moderationService.Reject(r.Context(), actorFromContext(r.Context()),
		chi.URLParam(r, "contentType"), chi.URLParam(r, "contentID"))
	if err != nil {
		writeServiceError(w, err, "failed to reject content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
