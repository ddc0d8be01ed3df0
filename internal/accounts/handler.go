package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/observability"
	"github.com/icarus-art/icarus/internal/platform/httpx"
	"github.com/icarus-art/icarus/internal/shared"
)

// SessionLifecycle binds and unbinds sessions.
type SessionLifecycle interface {
	Establish(ctx context.Context, sess *shared.Session, accountID int64, ip, ua string) error
	End(ctx context.Context, sess *shared.Session)
}

// Handler serves the account JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions SessionLifecycle
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler builds the account handler.
func NewHandler(logger *slog.Logger, service *Service, sessions SessionLifecycle, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers the account API under the router, usually /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/signin", h.handleSignin)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAccount)
		r.Get("/user", h.handleCurrentUser)
		r.Put("/user/theme", h.handleUpdateTheme)
		r.Put("/user/profile", h.handleUpdateProfile)
		r.Put("/user/password", h.handleChangePassword)
		r.Delete("/user/delete", h.handleDelete)
	})
}

type accountResponse struct {
	httpx.Envelope
	User     *View  `json:"user,omitempty"`
	Theme    Theme  `json:"theme,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Theme    string `json:"theme"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

type profileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Email    *string `json:"email"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type deleteRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		h.metrics.RecordSignup("invalid")
		return
	}
	acct, err := h.service.Create(r.Context(), SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Theme:    req.Theme,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicateEmail):
			h.metrics.RecordSignup("duplicate")
		case errors.Is(err, shared.ErrValidation):
			h.metrics.RecordSignup("invalid")
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordSignup("created")
	h.establish(r, acct.ID)
	view := acct.View()
	httpx.JSON(w, http.StatusCreated, accountResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Account created successfully"},
		User:     &view,
		Redirect: "/dashboard",
	})
}

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !h.decode(w, r, &req) {
		return
	}
	acct, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordSignin(false)
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.metrics.RecordSignin(true)
	h.establish(r, acct.ID)
	view := acct.View()
	httpx.JSON(w, http.StatusOK, accountResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Signed in successfully"},
		User:     &view,
		Redirect: "/dashboard",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(r.Context(), shared.SessionFromContext(r.Context()))
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Signed out"})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	acct, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	view := acct.View()
	httpx.JSON(w, http.StatusOK, accountResponse{Envelope: httpx.Envelope{Success: true}, User: &view})
}

func (h *Handler) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req themeRequest
	if !h.decode(w, r, &req) {
		return
	}
	acct, err := h.service.UpdateTheme(r.Context(), id, req.Theme)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	view := acct.View()
	httpx.JSON(w, http.StatusOK, accountResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Theme updated"},
		User:     &view,
		Theme:    acct.Theme,
	})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	acct, err := h.service.UpdateProfile(r.Context(), id, ProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Bio:      req.Bio,
		Email:    req.Email,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	view := acct.View()
	httpx.JSON(w, http.StatusOK, accountResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Profile updated successfully"},
		User:     &view,
	})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Password updated successfully"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.RequireAuthentication(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req deleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Delete(r.Context(), id, req.Password); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Password is incorrect")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.sessions.End(r.Context(), shared.SessionFromContext(r.Context()))
	httpx.JSON(w, http.StatusOK, accountResponse{
		Envelope: httpx.Envelope{Success: true, Message: "Account deleted successfully"},
		Redirect: "/",
	})
}

// decode parses and validates the JSON body, writing the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.RespondError(w, h.logger, httpx.ValidationFailure(err))
		return false
	}
	return true
}

func (h *Handler) establish(r *http.Request, accountID int64) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.sessions.Establish(r.Context(), sess, accountID, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Error("establish session", slog.Int64("account_id", accountID), slog.Any("error", err))
	}
}
