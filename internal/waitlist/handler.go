package waitlist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/platform/httpx"
)

// Handler serves the waitlist JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
}

// NewHandler builds the waitlist handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, metrics: metrics}
}

// MountSubmit registers the public submission route.
func (h *Handler) MountSubmit(r chi.Router) {
	r.Post("/waitlist/submit", h.handleSubmit)
}

// MountAPI registers the authenticated listing under /api.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(auth.RequireAccount).Get("/waitlist", h.handleList)
}

type submitRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Source string `json:"source"`
}

type submitResponse struct {
	httpx.Envelope
	Entry *Entry `json:"entry,omitempty"`
}

type listResponse struct {
	Success bool    `json:"success"`
	Count   int     `json:"count"`
	Entries []Entry `json:"entries"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	entry, outcome, err := h.service.Join(r.Context(), JoinInput{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Source: req.Source,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordWaitlistJoin(outcome.String())
	if outcome == AlreadyListed {
		httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "You're already on the waitlist!"})
		return
	}
	h.logger.Info("waitlist joined", slog.Int64("entry_id", entry.ID), slog.String("source", entry.Source))
	httpx.JSON(w, http.StatusCreated, submitResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Successfully joined the waitlist!"},
		Entry:    entry,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAll(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Success: true, Count: len(entries), Entries: entries})
}
