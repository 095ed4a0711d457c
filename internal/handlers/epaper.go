package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/types"
)

type EPaperHandler struct {
	epaperService *services.EPaperService
}

func NewEPaperHandler(epaperService *services.EPaperService) *EPaperHandler {
	return &EPaperHandler{epaperService: epaperService}
}

// EPaperRouter registers the e-paper archive routes.
func EPaperRouter(r chi.Router, epaperService *services.EPaperService) {
	handler := NewEPaperHandler(epaperService)

	r.Get("/dates", handler.ListDates)
	r.Get("/pages", handler.ListPages)
	r.With(RequireUser).Post("/pages", handler.UploadPage)
	r.Route("/pages/{pageID}", func(r chi.Router) {
		r.Get("/", handler.GetPage)
		r.With(RequireUser).Delete("/", handler.DeletePage)
	})
}

func (h *EPaperHandler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.epaperService.Dates(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to list editions")
		return
	}
	writeJSON(w, http.StatusOK, DatesResponse{Dates: dates})
}

// ListPages returns the pages of the edition named by ?date=YYYY-MM-DD, or
// of every edition when no date is given.
func (h *EPaperHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.epaperService.Pages(r.Context(), actorFromContext(r.Context()), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err, "failed to list pages")
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Items: pages, Total: len(pages)})
}

func (h *EPaperHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.epaperService.Page(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "pageID"))
	if err != nil {
		writeServiceError(w, err, "failed to fetch page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *EPaperHandler) UploadPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.epaperService.Upload(r.Context(), actorFromContext(r.Context()), types.EPaperPage{
		PageNumber: req.PageNumber,
		ImageURL:   req.ImageURL,
		Date:       req.Date,
	})
	if err != nil {
		writeServiceError(w, err, "failed to upload page")
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (h *EPaperHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.epaperService.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "pageID")); err != nil {
		writeServiceError(w, err, "failed to delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PageRequest struct {
	PageNumber int    `json:"page_number"`
	ImageURL   string `json:"image_url"`
	Date       string `json:"date"`
}

type PageListResponse struct {
	Items []types.EPaperPage `json:"items"`
	Total int                `json:"total"`
}

type DatesResponse struct {
	Dates []string `json:"dates"`
}
