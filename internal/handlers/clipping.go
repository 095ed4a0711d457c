package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/types"
)

type ClippingHandler struct {
	clippingService *services.ClippingService
}

func NewClippingHandler(clippingService *services.ClippingService) *ClippingHandler {
	return &ClippingHandler{clippingService: clippingService}
}

// ClippingRouter registers clipping routes. Saving a clipping works
// anonymously; listing needs a signed-in reader.
func ClippingRouter(r chi.Router, clippingService *services.ClippingService) {
	handler := NewClippingHandler(clippingService)

	r.Post("/", handler.CreateClipping)
	r.With(RequireUser).Get("/", handler.ListClippings)
	r.Route("/{clippingID}", func(r chi.Router) {
		r.Get("/", handler.GetClipping)
		r.Get("/image", handler.GetImage)
		r.With(RequireUser).Delete("/", handler.DeleteClipping)
	})
}

// CreateClipping accepts either a raw image body or a JSON document
// carrying a base64 data URL.
func (h *ClippingHandler) CreateClipping(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		contentType string
		err         error
	)
	if ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))); strings.HasPrefix(ct, "image/") {
		contentType = ct
		data, err = readFileLimited(r.Body, services.MaxClippingBytes)
	} else {
		var req ClippingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		contentType, data, err = services.DecodeDataURL(req.Image)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	clipping, err := h.clippingService.Create(r.Context(), actorFromContext(r.Context()), data, contentType)
	if err != nil {
		writeServiceError(w, err, "failed to save clipping")
		return
	}
	writeJSON(w, http.StatusCreated, newClippingResponse(clipping))
}

func (h *ClippingHandler) ListClippings(w http.ResponseWriter, r *http.Request) {
	clippings, err := h.clippingService.List(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "failed to list clippings")
		return
	}
	items := make([]ClippingResponse, 0, len(clippings))
	for _, c := range clippings {
		items = append(items, newClippingResponse(c))
	}
	writeJSON(w, http.StatusOK, ClippingListResponse{Items: items, Total: len(items)})
}

func (h *ClippingHandler) GetClipping(w http.ResponseWriter, r *http.Request) {
	clipping, _, err := h.clippingService.Open(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "clippingID"))
	if err != nil {
		writeServiceError(w, err, "failed to fetch clipping")
		return
	}
	writeJSON(w, http.StatusOK, newClippingResponse(clipping))
}

func (h *ClippingHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	clipping, data, err := h.clippingService.Open(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "clippingID"))
	if err != nil {
		writeServiceError(w, err, "failed to fetch clipping")
		return
	}
	w.Header().Set("Content-Type", clipping.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ClippingHandler) DeleteClipping(w http.ResponseWriter, r *http.Request) {
	if err := h.clippingService.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "clippingID")); err != nil {
		writeServiceError(w, err, "failed to delete clipping")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ClippingRequest struct {
	// Image is a data URL, e.g. "data:image/png;base64,iVBOR...".
	Image string `json:"image"`
}

type ClippingResponse struct {
	types.Clipping
	ImageURL string `json:"image_url"`
}

func newClippingResponse(c types.Clipping) ClippingResponse {
	return ClippingResponse{Clipping: c, ImageURL: "/clippings/" + c.ID + "/image"}
}

type ClippingListResponse struct {
	Items []ClippingResponse `json:"items"`
	Total int                `json:"total"`
}

func readFileLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("image too large")
	}
	return data, nil
}
