package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/icarus-art/icarus/internal/shared"
)

// Service drives the session lifecycle: Anonymous -> Authenticated(id) on
// Establish, back to Anonymous on End or InvalidateAccount.
type Service struct {
	repo     Repository
	sessions *shared.SessionManager
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, logger: logger}
}

// Establish binds the session to accountID under a fresh session id and
// records the sign-in for auditing.
func (s *Service) Establish(ctx context.Context, sess *shared.Session, accountID int64, ip, ua string) error {
	if sess == nil {
		return errors.New("auth: session missing")
	}
	s.sessions.Regenerate(sess)
	sess.Delete(shared.CSRFSessionKey)
	sess.SetUser(shared.FormatSessionUser(accountID))

	now := time.Now()
	rec := SessionRecord{
		ID:        sess.ID,
		UserID:    accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessions.TTL()),
		IP:        ip,
		UserAgent: ua,
	}
	if err := s.repo.CreateSession(ctx, rec); err != nil {
		s.logger.Warn("register session", slog.Any("error", err))
	}
	return nil
}

// End destroys the session. Anonymous sessions are destroyed as well, which
// makes logout a no-op for them apart from clearing the cookie.
func (s *Service) End(ctx context.Context, sess *shared.Session) {
	if sess == nil {
		return
	}
	if sess.User() != "" {
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
			s.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	s.sessions.Destroy(sess)
}

// InvalidateAccount drops every session bound to the account.
func (s *Service) InvalidateAccount(ctx context.Context, accountID int64) error {
	if err := s.sessions.DestroyUserSessions(ctx, shared.FormatSessionUser(accountID)); err != nil {
		return err
	}
	if err := s.repo.DeleteUserSessions(ctx, accountID); err != nil {
		s.logger.Warn("remove account sessions", slog.Int64("account_id", accountID), slog.Any("error", err))
	}
	return nil
}

// PurgeExpired removes audit rows of sessions that expired before now.
// Redis expires the session keys on its own.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.PurgeExpired(ctx, now)
}
