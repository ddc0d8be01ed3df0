// Package memstore provides in-memory repositories for tests. Uniqueness
// rules mirror the PostgreSQL indexes: emails collide case-insensitively,
// usernames exactly.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/auth"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/waitlist"
)

// Accounts is an in-memory accounts.Repository.
type Accounts struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]accounts.Account
	now    func() time.Time
}

// NewAccounts creates an empty account store.
func NewAccounts() *Accounts {
	return &Accounts{rows: make(map[int64]accounts.Account), now: time.Now}
}

func (s *Accounts) conflict(id int64, email, username string) accounts.Conflict {
	for _, row := range s.rows {
		if row.ID == id {
			continue
		}
		if email != "" && strings.EqualFold(row.Email, email) {
			return accounts.EmailConflict
		}
		if username != "" && row.Username == username {
			return accounts.UsernameConflict
		}
	}
	return accounts.NoConflict
}

// Insert implements accounts.Repository.
func (s *Accounts) Insert(ctx context.Context, acct accounts.NewAccount) (*accounts.Account, accounts.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.conflict(0, acct.Email, acct.Username); c != accounts.NoConflict {
		return nil, c, nil
	}
	s.nextID++
	now := s.now()
	row := accounts.Account{
		ID:           s.nextID,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		Name:         acct.Name,
		Username:     acct.Username,
		Phone:        acct.Phone,
		Theme:        acct.Theme,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsActive:     true,
	}
	s.rows[row.ID] = row
	return &row, accounts.NoConflict, nil
}

// FindByEmail implements accounts.Repository.
func (s *Accounts) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, email) {
			out := row
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByID implements accounts.Repository.
func (s *Accounts) FindByID(ctx context.Context, id int64) (*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

// UsernameExists implements accounts.Repository.
func (s *Accounts) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// UpdateTheme implements accounts.Repository.
func (s *Accounts) UpdateTheme(ctx context.Context, id int64, theme accounts.Theme) (*accounts.Account, error) {
	return s.mutate(id, func(row *accounts.Account) { row.Theme = theme })
}

// UpdateProfile implements accounts.Repository.
func (s *Accounts) UpdateProfile(ctx context.Context, id int64, changes accounts.ProfileInput) (*accounts.Account, accounts.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, accounts.NoConflict, shared.ErrNotFound
	}
	var email, username string
	if changes.Email != nil {
		email = *changes.Email
	}
	if changes.Username != nil {
		username = *changes.Username
	}
	if c := s.conflict(id, email, username); c != accounts.NoConflict {
		return nil, c, nil
	}
	if changes.Name != nil {
		row.Name = *changes.Name
	}
	if changes.Username != nil {
		row.Username = *changes.Username
	}
	if changes.Bio != nil {
		row.Bio = *changes.Bio
	}
	if changes.Email != nil {
		row.Email = *changes.Email
	}
	row.UpdatedAt = s.now()
	s.rows[id] = row
	return &row, accounts.NoConflict, nil
}

// UpdatePassword implements accounts.Repository.
func (s *Accounts) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := s.mutate(id, func(row *accounts.Account) { row.PasswordHash = hash })
	return err
}

// SetActive implements accounts.Repository.
func (s *Accounts) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := s.mutate(id, func(row *accounts.Account) { row.IsActive = active })
	return err
}

// Delete implements accounts.Repository.
func (s *Accounts) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Count returns the number of stored accounts.
func (s *Accounts) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Accounts) mutate(id int64, fn func(*accounts.Account)) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	fn(&row)
	row.UpdatedAt = s.now()
	s.rows[id] = row
	return &row, nil
}

// Waitlist is an in-memory waitlist.Repository.
type Waitlist struct {
	mu     sync.RWMutex
	nextID int64
	rows   []waitlist.Entry
	now    func() time.Time
}

// NewWaitlist creates an empty waitlist store.
func NewWaitlist() *Waitlist {
	return &Waitlist{now: time.Now}
}

// Insert implements waitlist.Repository.
func (s *Waitlist) Insert(ctx context.Context, entry waitlist.Entry) (*waitlist.Entry, waitlist.JoinOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, entry.Email) {
			return nil, waitlist.AlreadyListed, nil
		}
	}
	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = s.now()
	entry.Notified = false
	s.rows = append(s.rows, entry)
	out := entry
	return &out, waitlist.Joined, nil
}

// ListAll implements waitlist.Repository.
func (s *Waitlist) ListAll(ctx context.Context) ([]waitlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]waitlist.Entry, len(s.rows))
	copy(out, s.rows)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// MarkNotified implements waitlist.Repository.
func (s *Waitlist) MarkNotified(ctx context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var changed int64
	for i := range s.rows {
		if _, ok := want[s.rows[i].ID]; ok && !s.rows[i].Notified {
			s.rows[i].Notified = true
			changed++
		}
	}
	return changed, nil
}

// Sessions is an in-memory auth.Repository.
type Sessions struct {
	mu   sync.Mutex
	rows map[string]auth.SessionRecord
}

// NewSessions creates an empty session audit store.
func NewSessions() *Sessions {
	return &Sessions{rows: make(map[string]auth.SessionRecord)}
}

// CreateSession implements auth.Repository.
func (s *Sessions) CreateSession(ctx context.Context, rec auth.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.ID] = rec
	return nil
}

// DeleteSession implements auth.Repository.
func (s *Sessions) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// DeleteUserSessions implements auth.Repository.
func (s *Sessions) DeleteUserSessions(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.rows {
		if rec.UserID == userID {
			delete(s.rows, id)
		}
	}
	return nil
}

// PurgeExpired implements auth.Repository.
func (s *Sessions) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, rec := range s.rows {
		if rec.ExpiresAt.Before(before) {
			delete(s.rows, id)
			purged++
		}
	}
	return purged, nil
}

// Records returns the audit rows of one account.
func (s *Sessions) Records(userID int64) []auth.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.SessionRecord
	for _, rec := range s.rows {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

var (
	_ accounts.Repository = (*Accounts)(nil)
	_ waitlist.Repository = (*Waitlist)(nil)
	_ auth.Repository     = (*Sessions)(nil)
)
