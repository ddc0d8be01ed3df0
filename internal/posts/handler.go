package posts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/platform/httpx"
	"github.com/icarus-art/icarus/internal/shared"
)

// Handler serves the post JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
	now     func() time.Time
}

// NewHandler builds the posts handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, metrics: metrics, now: time.Now}
}

// MountRoutes registers the post API under the router, usually /api. Every
// route requires a signed-in account.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAccount)
		r.Get("/posts", h.handleList)
		r.Post("/posts", h.handleCreate)
		r.Get("/posts/bookmarks", h.handleBookmarks)
		r.Get("/posts/stats", h.handleStats)
		r.Delete("/posts/{id:[0-9]+}", h.handleDelete)
		r.Post("/posts/{id:[0-9]+}/like", h.handleLike)
		r.Post("/posts/{id:[0-9]+}/bookmark", h.handleBookmark)
	})
}

type createRequest struct {
	Content   string `json:"content"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	Category  string `json:"category"`
}

type postResponse struct {
	httpx.Envelope
	Post *View `json:"post,omitempty"`
}

type listResponse struct {
	Success     bool   `json:"success"`
	Posts       []View `json:"posts"`
	Total       int    `json:"total"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
}

type bookmarksResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Posts   []View `json:"posts"`
}

type statsResponse struct {
	Success bool   `json:"success"`
	Stats   Stats  `json:"stats"`
	Recent  []View `json:"recent_posts"`
}

type likeResponse struct {
	Success bool  `json:"success"`
	Liked   bool  `json:"liked"`
	Likes   int64 `json:"likes"`
}

type bookmarkResponse struct {
	Success    bool  `json:"success"`
	Bookmarked bool  `json:"bookmarked"`
	Bookmarks  int64 `json:"bookmarks"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	query := r.URL.Query()
	page, err := h.service.List(r.Context(), id, ListOptions{
		Category: query.Get("category"),
		Page:     queryInt(query.Get("page")),
		PerPage:  queryInt(query.Get("per_page")),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Success:     true,
		Posts:       Views(page.Posts, h.now()),
		Total:       page.Total,
		Pages:       page.Pages,
		CurrentPage: page.CurrentPage,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	post, err := h.service.Create(r.Context(), id, CreateInput{
		Content:   req.Content,
		MediaType: req.MediaType,
		MediaURL:  req.MediaURL,
		Category:  req.Category,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordPostAction("created")
	h.logger.Info("post created", slog.Int64("post_id", post.ID), slog.String("category", string(post.Category)))
	view := post.View(h.now())
	httpx.JSON(w, http.StatusCreated, postResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Post created successfully"},
		Post:     &view,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	postID, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id, postID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordPostAction("deleted")
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Post deleted successfully"})
}

func (h *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	postID, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return
	}
	state, err := h.service.ToggleLike(r.Context(), id, postID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordPostAction(actionName(state.Active, "liked", "unliked"))
	httpx.JSON(w, http.StatusOK, likeResponse{Success: true, Liked: state.Active, Likes: state.Count})
}

func (h *Handler) handleBookmark(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	postID, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, h.logger, shared.ErrNotFound)
		return
	}
	state, err := h.service.ToggleBookmark(r.Context(), id, postID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordPostAction(actionName(state.Active, "bookmarked", "unbookmarked"))
	httpx.JSON(w, http.StatusOK, bookmarkResponse{Success: true, Bookmarked: state.Active, Bookmarks: state.Count})
}

func (h *Handler) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.Bookmarked(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bookmarksResponse{Success: true, Count: len(list), Posts: Views(list, h.now())})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	stats, recent, err := h.service.Dashboard(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats, Recent: Views(recent, h.now())})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryInt treats a missing or malformed value as zero so the service
// applies its default.
func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func actionName(active bool, on, off string) string {
	if active {
		return on
	}
	return off
}
