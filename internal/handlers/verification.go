package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
)

// VerificationHandler serves the code-confirmed recovery and profile
// update flows.
type VerificationHandler struct {
	verificationService *services.VerificationService
	// exposeCodes echoes generated codes back to the caller. Local
	// development only.
	exposeCodes bool
}

func NewVerificationHandler(verificationService *services.VerificationService, exposeCodes bool) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService, exposeCodes: exposeCodes}
}

// RecoveryRouter registers the anonymous password recovery routes.
func RecoveryRouter(r chi.Router, verificationService *services.VerificationService, exposeCodes bool) {
	handler := NewVerificationHandler(verificationService, exposeCodes)

	r.Post("/", handler.InitiateRecovery)
	r.Post("/complete", handler.CompleteRecovery)
}

// ProfileRouter registers the signed-in profile update routes.
func ProfileRouter(r chi.Router, verificationService *services.VerificationService, exposeCodes bool) {
	handler := NewVerificationHandler(verificationService, exposeCodes)

	r.Use(RequireUser)
	r.Post("/", handler.InitiateProfileUpdate)
	r.Post("/confirm", handler.CompleteProfileUpdate)
}

func (h *VerificationHandler) respond(w http.ResponseWriter, v services.Verification) {
	resp := VerificationResponse{
		SentTo:    v.Message.To,
		MessageID: v.MessageID,
		ExpiresAt: v.ExpiresAt,
	}
	if h.exposeCodes {
		resp.Code = v.Code
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *VerificationHandler) InitiateRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.verificationService.InitiateRecovery(r.Context(), req.Identifier)
	if err != nil {
		writeServiceError(w, err, "failed to issue recovery code")
		return
	}
	h.respond(w, v)
}

func (h *VerificationHandler) CompleteRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoveryCompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.verificationService.CompleteRecovery(r.Context(), req.Identifier, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, err, "failed to reset password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) InitiateProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.verificationService.InitiateProfileUpdate(r.Context(), actorFromContext(r.Context()), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "failed to issue verification code")
		return
	}
	h.respond(w, v)
}

func (h *VerificationHandler) CompleteProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.verificationService.CompleteProfileUpdate(r.Context(), actorFromContext(r.Context()), req.Code)
	if err != nil {
		writeServiceError(w, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type RecoveryRequest struct {
	Identifier string `json:"identifier"`
}

type RecoveryCompleteRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type ProfileUpdateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

// VerificationResponse acknowledges an issued code. Code is only set in
// development mode.
type VerificationResponse struct {
	SentTo    string    `json:"sent_to"`
	MessageID string    `json:"message_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}
