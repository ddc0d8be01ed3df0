package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/icarus-art/icarus/internal/platform/httpx"
	"github.com/icarus-art/icarus/internal/shared"
)

// IdentityResolver reports whether an account id still names an active account.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accountID int64) (bool, error)
}

// IdentityMiddleware resolves the caller once per request and stores it in
// the context. Sessions bound to a deleted or inactive account are unbound.
func IdentityMiddleware(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.Anonymous
			sess := shared.SessionFromContext(r.Context())
			if sess != nil && sess.User() != "" {
				accountID, ok := shared.ParseSessionUser(sess.User())
				active := false
				if ok {
					var err error
					active, err = resolver.ResolveIdentity(r.Context(), accountID)
					if err != nil {
						logger.Error("resolve identity", slog.Int64("account_id", accountID), slog.Any("error", err))
						http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
						return
					}
				}
				if active {
					identity = shared.AuthenticatedAs(accountID)
				} else {
					logger.Info("session unbound from unavailable account", slog.String("user", sess.User()))
					sess.SetUser("")
				}
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAccount rejects anonymous API requests with 401.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := shared.RequireAuthentication(r.Context()); err != nil {
			httpx.RespondError(w, nil, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccountPage redirects anonymous page requests to the sign-in page.
func RequireAccountPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := shared.RequireAuthentication(r.Context()); err != nil {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "Please sign in to access this page."})
			}
			http.Redirect(w, r, "/signin?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
