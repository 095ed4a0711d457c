package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/types"
)

type AdvertisementHandler struct {
	adService *services.AdvertisementService
}

func NewAdvertisementHandler(adService *services.AdvertisementService) *AdvertisementHandler {
	return &AdvertisementHandler{adService: adService}
}

// AdvertisementRouter registers advertisement routes. Listing and click
// tracking are public.
func AdvertisementRouter(r chi.Router, adService *services.AdvertisementService) {
	handler := NewAdvertisementHandler(adService)

	r.Get("/", handler.ListAds)
	r.With(RequireUser).Post("/", handler.CreateAd)
	r.Route("/{adID}", func(r chi.Router) {
		r.Get("/", handler.GetAd)
		r.Post("/click", handler.TrackClick)
		r.With(RequireUser).Put("/", handler.UpdateAd)
		r.With(RequireUser).Post("/toggle-status", handler.ToggleStatus)
		r.With(RequireUser).Delete("/", handler.DeleteAd)
	})
}

func (h *AdvertisementHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	status := types.AdStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ads, err := h.adService.List(r.Context(), actorFromContext(r.Context()), status)
	if err != nil {
		writeServiceError(w, err, "failed to list advertisements")
		return
	}
	writeJSON(w, http.StatusOK, AdvertisementListResponse{Items: ads, Total: len(ads)})
}

func (h *AdvertisementHandler) GetAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.adService.Get(r.Context(), chi.URLParam(r, "adID"))
	if err != nil {
		writeServiceError(w, err, "failed to fetch advertisement")
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *AdvertisementHandler) CreateAd(w http.ResponseWriter, r *http.Request) {
	var req AdvertisementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.adService.Create(r.Context(), actorFromContext(r.Context()), req.advertisement())
	if err != nil {
		writeServiceError(w, err, "failed to create advertisement")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AdvertisementHandler) UpdateAd(w http.ResponseWriter, r *http.Request) {
	var req AdvertisementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ad := req.advertisement()
	ad.ID = chi.URLParam(r, "adID")
	updated, err := h.adService.Update(r.Context(), actorFromContext(r.Context()), ad)
	if err != nil {
		writeServiceError(w, err, "failed to update advertisement")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdvertisementHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	ad, err := h.adService.ToggleStatus(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "adID"))
	if err != nil {
		writeServiceError(w, err, "failed to update advertisement")
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// TrackClick credits a click. Signed-in readers are counted by the origin
// their session started from, everybody else by the request address.
func (h *AdvertisementHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	origin := clientOrigin(r)
	if sess, ok := sessionFromContext(r.Context()); ok && sess.Origin != "" {
		origin = sess.Origin
	}

	ad, credited, err := h.adService.TrackClick(r.Context(), chi.URLParam(r, "adID"), origin)
	if err != nil {
		writeServiceError(w, err, "failed to track click")
		return
	}
	writeJSON(w, http.StatusOK, ClickResponse{Clicks: ad.Clicks, Credited: credited, TargetURL: ad.TargetURL})
}

func (h *AdvertisementHandler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	if err := h.adService.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "adID")); err != nil {
		writeServiceError(w, err, "failed to delete advertisement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AdvertisementRequest struct {
	AdvertiserName string `json:"advertiser_name"`
	ImageURL       string `json:"image_url"`
	TargetURL      string `json:"target_url"`
	Size           string `json:"size"`
	Status         string `json:"status"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

func (req AdvertisementRequest) advertisement() types.Advertisement {
	return types.Advertisement{
		AdvertiserName: req.AdvertiserName,
		ImageURL:       strings.TrimSpace(req.ImageURL),
		TargetURL:      strings.TrimSpace(req.TargetURL),
		Size:           types.AdSize(strings.TrimSpace(req.Size)),
		Status:         types.AdStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		StartDate:      strings.TrimSpace(req.StartDate),
		EndDate:        strings.TrimSpace(req.EndDate),
	}
}

type AdvertisementListResponse struct {
	Items []types.Advertisement `json:"items"`
	Total int                   `json:"total"`
}

type ClickResponse struct {
	Clicks    int64  `json:"clicks"`
	Credited  bool   `json:"credited"`
	TargetURL string `json:"target_url"`
}
