// Package pages serves the server-rendered HTML pages.
package pages

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/view"
)

// Config carries branding shown on every page.
type Config struct {
	AppName      string
	Tagline      string
	DefaultTheme accounts.Theme
}

// Handler renders pages and handles the HTML sign-in form.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	accounts  *accounts.Service
	posts     *posts.Service
	sessions  accounts.SessionLifecycle
	metrics   *observability.Metrics
	cfg       Config
}

// NewHandler builds the page handler.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, accountService *accounts.Service, postService *posts.Service, sessions accounts.SessionLifecycle, metrics *observability.Metrics, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = accounts.DefaultTheme
	}
	return &Handler{
		logger:    logger,
		templates: templates,
		csrf:      csrf,
		accounts:  accountService,
		posts:     postService,
		sessions:  sessions,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// MountRoutes registers the page routes. The caller wraps them in CSRF
// verification.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/signin", h.handleSigninForm)
	r.Post("/signin", h.handleSigninSubmit)
	r.Get("/signup", h.handleSignup)
	r.Get("/waitlist", h.handleWaitlist)
	r.Get("/logout", h.handleLogout)
	r.With(auth.RequireAccountPage).Get("/dashboard", h.handleDashboard)
	r.With(auth.RequireAccountPage).Get("/bookmarks", h.handleBookmarks)
}

type dashboardData struct {
	Account accounts.View
	Stats   posts.Stats
	Recent  []posts.View
}

type bookmarksData struct {
	Posts []posts.View
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/index.html", "", nil, nil)
}

func (h *Handler) handleSigninForm(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/signin.html", "Sign in", nil, safeNext(r.URL.Query().Get("next")))
}

func (h *Handler) handleSigninSubmit(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	next := safeNext(r.PostFormValue("next"))
	acct, err := h.accounts.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.metrics.RecordSignin(false)
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("page sign-in", slog.Any("error", err))
			h.RenderError(w, r, http.StatusInternalServerError)
			return
		}
		flash := &shared.FlashMessage{Kind: "error", Message: "Invalid email or password."}
		h.render(w, r, http.StatusUnauthorized, "pages/signin.html", "Sign in", flash, next)
		return
	}
	h.metrics.RecordSignin(true)
	sess := shared.SessionFromContext(r.Context())
	if err := h.sessions.Establish(r.Context(), sess, acct.ID, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Error("establish session", slog.Int64("account_id", acct.ID), slog.Any("error", err))
		h.RenderError(w, r, http.StatusInternalServerError)
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back!"})
	if next == "" {
		next = "/dashboard"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/signup.html", "Sign up", nil, nil)
}

func (h *Handler) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/waitlist.html", "Waitlist", nil, nil)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(r.Context(), shared.SessionFromContext(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	acct, err := h.accounts.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("load dashboard account", slog.Int64("account_id", id), slog.Any("error", err))
		h.RenderError(w, r, http.StatusInternalServerError)
		return
	}
	stats, recent, err := h.posts.Dashboard(r.Context(), id)
	if err != nil {
		h.logger.Error("load dashboard posts", slog.Int64("account_id", id), slog.Any("error", err))
		h.RenderError(w, r, http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", nil, dashboardData{
		Account: acct.View(),
		Stats:   stats,
		Recent:  posts.Views(recent, time.Now()),
	})
}

func (h *Handler) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	saved, err := h.posts.Bookmarked(r.Context(), id)
	if err != nil {
		h.logger.Error("load bookmarks", slog.Int64("account_id", id), slog.Any("error", err))
		h.RenderError(w, r, http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "pages/bookmarks.html", "Bookmarks", nil, bookmarksData{Posts: posts.Views(saved, time.Now())})
}

// NotFound renders the HTML 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.RenderError(w, r, http.StatusNotFound)
}

// RenderError renders the 404 or 500 page.
func (h *Handler) RenderError(w http.ResponseWriter, r *http.Request, status int) {
	name := "pages/500.html"
	title := "Error"
	if status == http.StatusNotFound {
		name = "pages/404.html"
		title = "Not found"
	}
	h.render(w, r, status, name, title, nil, nil)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, flash *shared.FlashMessage, data any) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	csrfToken, err := h.csrf.EnsureToken(ctx, sess)
	if err != nil {
		h.logger.Warn("ensure csrf token", slog.Any("error", err))
	}
	if flash == nil && sess != nil {
		flash = sess.PopFlash()
	}
	if err := h.templates.RenderStatus(w, status, name, view.TemplateData{
		Title:       title,
		AppName:     h.cfg.AppName,
		Tagline:     h.cfg.Tagline,
		Theme:       string(h.theme(r)),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		SignedIn:    shared.IdentityFromContext(ctx).Authenticated(),
		Data:        data,
	}); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// theme picks the signed-in account's theme, falling back to the default.
func (h *Handler) theme(r *http.Request) accounts.Theme {
	identity := shared.IdentityFromContext(r.Context())
	if !identity.Authenticated() {
		return h.cfg.DefaultTheme
	}
	acct, err := h.accounts.FindByID(r.Context(), identity.AccountID)
	if err != nil {
		return h.cfg.DefaultTheme
	}
	return acct.Theme
}

// safeNext keeps only local absolute paths so the sign-in redirect cannot
// leave the site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
