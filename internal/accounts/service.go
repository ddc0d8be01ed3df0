package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/icarus-art/icarus/internal/shared"
)

const (
	maxNameLength      = 100
	maxPhoneLength     = 20
	maxUsernameLength  = 50
	maxBioLength       = 500
	maxPasswordBytes   = 72
	usernameBaseLength = 40
	maxUsernameTries   = 50
)

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string)
}

// SessionInvalidator ends every live session of an account.
type SessionInvalidator interface {
	InvalidateAccount(ctx context.Context, accountID int64) error
}

// Config holds account policy knobs.
type Config struct {
	DefaultTheme      Theme
	MinPasswordLength int
}

// Service implements the account store operations.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	sessions SessionInvalidator
	validate *validator.Validate
	cfg      Config
}

// NewService constructs the account service.
func NewService(repo Repository, hasher PasswordHasher, sessions SessionInvalidator, cfg Config) *Service {
	if _, ok := ParseTheme(string(cfg.DefaultTheme)); !ok {
		cfg.DefaultTheme = DefaultTheme
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 8
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// Create registers a new account. The email is the uniqueness key; the
// username is derived from it and bumped with a numeric suffix on collision.
func (s *Service) Create(ctx context.Context, input SignupInput) (*Account, error) {
	email, err := s.normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}
	theme := s.cfg.DefaultTheme
	if strings.TrimSpace(input.Theme) != "" {
		parsed, ok := ParseTheme(input.Theme)
		if !ok {
			return nil, shared.NewValidationError("theme", "Invalid theme")
		}
		theme = parsed
	}
	name := strings.TrimSpace(input.Name)
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, shared.NewValidationError("name", fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}
	phone := strings.TrimSpace(input.Phone)
	if utf8.RuneCountInString(phone) > maxPhoneLength {
		return nil, shared.NewValidationError("phone", fmt.Sprintf("Phone must be at most %d characters", maxPhoneLength))
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	base := usernameBase(email)
	for n := 0; n < maxUsernameTries; n++ {
		candidate := usernameCandidate(base, n)
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		acct, conflict, err := s.repo.Insert(ctx, NewAccount{
			Email:        email,
			PasswordHash: hash,
			Name:         name,
			Username:     candidate,
			Phone:        phone,
			Theme:        theme,
		})
		if err != nil {
			return nil, err
		}
		switch conflict {
		case NoConflict:
			return acct, nil
		case EmailConflict:
			return nil, shared.ErrDuplicateEmail
		case UsernameConflict:
			continue
		}
	}
	return nil, fmt.Errorf("accounts: no free username for %q after %d attempts", base, maxUsernameTries)
}

// FindByEmail looks an account up by email, ignoring case.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.FindByEmail(ctx, shared.NormalizeEmail(email))
}

// FindByID looks an account up by id.
func (s *Service) FindByID(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// Authenticate verifies credentials. Unknown email, inactive account and wrong
// password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.repo.FindByEmail(ctx, shared.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, acct.PasswordHash) || !acct.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return acct, nil
}

// ResolveIdentity reports whether id names an existing active account.
func (s *Service) ResolveIdentity(ctx context.Context, id int64) (bool, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return acct.IsActive, nil
}

// UpdateTheme stores a new theme preference.
func (s *Service) UpdateTheme(ctx context.Context, id int64, theme string) (*Account, error) {
	parsed, ok := ParseTheme(theme)
	if !ok {
		return nil, shared.NewValidationError("theme", "Invalid theme")
	}
	return s.repo.UpdateTheme(ctx, id, parsed)
}

// UpdateProfile changes the provided profile fields. An empty username or
// email means "keep the current one"; an empty name or bio clears it.
func (s *Service) UpdateProfile(ctx context.Context, id int64, input ProfileInput) (*Account, error) {
	var changes ProfileInput
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, shared.NewValidationError("name", fmt.Sprintf("Name must be at most %d characters", maxNameLength))
		}
		changes.Name = &name
	}
	if input.Username != nil {
		if username := strings.ToLower(strings.TrimSpace(*input.Username)); username != "" {
			if utf8.RuneCountInString(username) > maxUsernameLength || strings.ContainsAny(username, " @/") {
				return nil, shared.NewValidationError("username", "Invalid username")
			}
			changes.Username = &username
		}
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, shared.NewValidationError("bio", fmt.Sprintf("Bio must be at most %d characters", maxBioLength))
		}
		changes.Bio = &bio
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		email, err := s.normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		changes.Email = &email
	}

	acct, conflict, err := s.repo.UpdateProfile(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	switch conflict {
	case EmailConflict:
		return nil, shared.ErrDuplicateEmail
	case UsernameConflict:
		return nil, shared.ErrUsernameTaken
	}
	return acct, nil
}

// ChangePassword replaces the password after confirming the current one.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, acct.PasswordHash) {
		return shared.ErrInvalidCredentials
	}
	if err := s.checkPassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

// Delete removes the account after password confirmation and ends every
// session bound to it.
func (s *Service) Delete(ctx context.Context, id int64, password string) error {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, acct.PasswordHash) {
		return shared.ErrInvalidCredentials
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

// SetActive toggles the account; deactivation ends its sessions.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if active {
		return nil
	}
	return s.invalidate(ctx, id)
}

func (s *Service) invalidate(ctx context.Context, id int64) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.InvalidateAccount(ctx, id); err != nil {
		return fmt.Errorf("accounts: invalidate sessions: %w", err)
	}
	return nil
}

func (s *Service) normalizeEmail(raw string) (string, error) {
	email := shared.NormalizeEmail(raw)
	if email == "" {
		return "", shared.NewValidationError("email", "Email is required")
	}
	if err := s.validate.Var(email, fmt.Sprintf("email,max=%d", shared.MaxEmailLength)); err != nil {
		return "", shared.NewValidationError("email", "Invalid email address")
	}
	return email, nil
}

func (s *Service) checkPassword(password string) error {
	switch {
	case password == "":
		return shared.NewValidationError("password", "Password is required")
	case utf8.RuneCountInString(password) < s.cfg.MinPasswordLength:
		return shared.NewValidationError("password", fmt.Sprintf("Password must be at least %d characters", s.cfg.MinPasswordLength))
	case len(password) > maxPasswordBytes:
		return shared.NewValidationError("password", fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

func usernameBase(email string) string {
	var b strings.Builder
	for _, r := range localPart(email) {
		if b.Len() >= usernameBaseLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func usernameCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}
