package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

// ArticleHandler provides HTTP handlers for articles.
type ArticleHandler struct {
	articleService *services.ArticleService
}

func NewArticleHandler(articleService *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

// ArticleRouter registers article routes. Reads are public; writes need
// a signed-in actor.
func ArticleRouter(r chi.Router, articleService *services.ArticleService) {
	handler := NewArticleHandler(articleService)

	r.Get("/", handler.ListArticles)
	r.With(RequireUser).Post("/", handler.CreateArticle)
	r.Route("/{articleID}", func(r chi.Router) {
		r.Get("/", handler.GetArticle)
		r.Post("/views", handler.IncrementView)
		r.With(RequireUser).Put("/", handler.UpdateArticle)
		r.With(RequireUser).Delete("/", handler.DeleteArticle)
	})
}

func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := store.ArticleFilter{
		Status:   types.ArticleStatus(strings.TrimSpace(q.Get("status"))),
		Category: strings.TrimSpace(q.Get("category")),
		AuthorID: strings.TrimSpace(q.Get("author_id")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, total, err := h.articleService.List(r.Context(), actorFromContext(r.Context()), filter, offset, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list articles")
		return
	}

	writeJSON(w, http.StatusOK, ArticleListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.articleService.Get(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "articleID"))
	if err != nil {
		writeServiceError(w, err, "failed to fetch article")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.articleService.Create(r.Context(), actorFromContext(r.Context()), req.article())
	if err != nil {
		writeServiceError(w, err, "failed to create article")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	article := req.article()
	article.ID = chi.URLParam(r, "articleID")
	updated, err := h.articleService.Update(r.Context(), actorFromContext(r.Context()), article)
	if err != nil {
		writeServiceError(w, err, "failed to update article")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.articleService.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "articleID")); err != nil {
		writeServiceError(w, err, "failed to delete article")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArticleHandler) IncrementView(w http.ResponseWriter, r *http.Request) {
	views, err := h.articleService.IncrementView(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		writeServiceError(w, err, "failed to count view")
		return
	}
	writeJSON(w, http.StatusOK, ViewsResponse{Views: views})
}

// ArticleRequest is the editable part of an article. Status is a request
// only; the server decides what is stored.
type ArticleRequest struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Category   string   `json:"category"`
	Author     string   `json:"author"`
	Date       string   `json:"date"`
	ImageURL   string   `json:"image_url"`
	VideoURL   string   `json:"video_url"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Status     string   `json:"status"`
	IsFeatured bool     `json:"is_featured"`
}

func (req ArticleRequest) article() types.Article {
	return types.Article{
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Category:   strings.TrimSpace(req.Category),
		Author:     req.Author,
		Date:       strings.TrimSpace(req.Date),
		ImageURL:   req.ImageURL,
		VideoURL:   req.VideoURL,
		Content:    req.Content,
		Tags:       req.Tags,
		Status:     types.ArticleStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		IsFeatured: req.IsFeatured,
	}
}

// ArticleListResponse is the paginated list response payload.
type ArticleListResponse struct {
	Items []types.Article `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

type ViewsResponse struct {
	Views int64 `json:"views"`
}
