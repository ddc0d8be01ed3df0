package waitlist

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/icarus-art/icarus/internal/shared"
)

const (
	maxNameLength   = 100
	maxRoleLength   = 50
	maxSourceLength = 50
)

// Service implements the waitlist store. It never consults accounts: the
// waitlist is its own uniqueness domain.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs the waitlist service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Join registers interest. A repeated email yields AlreadyListed with a nil
// entry and no error.
func (s *Service) Join(ctx context.Context, input JoinInput) (*Entry, JoinOutcome, error) {
	email := shared.NormalizeEmail(input.Email)
	if email == "" {
		return nil, 0, shared.NewValidationError("email", "Email is required")
	}
	if err := s.validate.Var(email, fmt.Sprintf("email,max=%d", shared.MaxEmailLength)); err != nil {
		return nil, 0, shared.NewValidationError("email", "Invalid email address")
	}
	name := strings.TrimSpace(input.Name)
	role := strings.TrimSpace(input.Role)
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = DefaultSource
	}
	switch {
	case utf8.RuneCountInString(name) > maxNameLength:
		return nil, 0, shared.NewValidationError("name", fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	case utf8.RuneCountInString(role) > maxRoleLength:
		return nil, 0, shared.NewValidationError("role", fmt.Sprintf("Role must be at most %d characters", maxRoleLength))
	case utf8.RuneCountInString(source) > maxSourceLength:
		return nil, 0, shared.NewValidationError("source", fmt.Sprintf("Source must be at most %d characters", maxSourceLength))
	}

	entry, outcome, err := s.repo.Insert(ctx, Entry{Email: email, Name: name, Role: role, Source: source})
	if err != nil {
		return nil, 0, err
	}
	if outcome == AlreadyListed {
		return nil, AlreadyListed, nil
	}
	return entry, Joined, nil
}

// ListAll returns every entry, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Entry, error) {
	return s.repo.ListAll(ctx)
}

// MarkNotified flags entries as notified and reports how many changed.
func (s *Service) MarkNotified(ctx context.Context, ids []int64) (int64, error) {
	return s.repo.MarkNotified(ctx, ids)
}
