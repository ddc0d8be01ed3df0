package shared

import "context"

type sessionContextKey struct{}

type identityContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity resolved for the request, or
// Anonymous when none was resolved.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}

// RequireAuthentication returns the account id bound to the request or
// ErrAuthenticationRequired. Protected handlers call it before any side effect.
func RequireAuthentication(ctx context.Context) (int64, error) {
	id := IdentityFromContext(ctx)
	if !id.Authenticated() {
		return 0, ErrAuthenticationRequired
	}
	return id.AccountID, nil
}
