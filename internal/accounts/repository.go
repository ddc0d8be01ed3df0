package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icarus-art/icarus/internal/platform/db"
	"github.com/icarus-art/icarus/internal/shared"
)

const (
	emailIndex         = "users_email_lower_idx"
	usernameConstraint = "users_username_key"
)

// Repository defines persistence operations for accounts. Writes that touch a
// unique column report the violated domain as a Conflict instead of an error.
type Repository interface {
	Insert(ctx context.Context, acct NewAccount) (*Account, Conflict, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateTheme(ctx context.Context, id int64, theme Theme) (*Account, error)
	UpdateProfile(ctx context.Context, id int64, changes ProfileInput) (*Account, Conflict, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const accountColumns = `id, email, password_hash, COALESCE(name, ''), COALESCE(username, ''),
	COALESCE(bio, ''), COALESCE(phone, ''), theme, created_at, updated_at, is_active`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var theme string
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Username,
		&a.Bio, &a.Phone, &theme, &a.CreatedAt, &a.UpdatedAt, &a.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	a.Theme = Theme(theme)
	return &a, nil
}

func conflictFor(err error) (Conflict, bool) {
	name, ok := db.UniqueViolation(err)
	if !ok {
		return NoConflict, false
	}
	switch name {
	case emailIndex:
		return EmailConflict, true
	case usernameConstraint:
		return UsernameConflict, true
	default:
		return NoConflict, false
	}
}

// Insert stores a new account in a single statement; the unique indexes
// decide conflicts.
func (r *PGRepository) Insert(ctx context.Context, acct NewAccount) (*Account, Conflict, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, username, phone, theme, created_at, updated_at, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NOW(), NOW(), TRUE)
		RETURNING `+accountColumns,
		acct.Email, acct.PasswordHash, acct.Name, acct.Username, acct.Phone, string(acct.Theme))
	created, err := scanAccount(row)
	if err != nil {
		if conflict, ok := conflictFor(err); ok {
			return nil, conflict, nil
		}
		return nil, NoConflict, fmt.Errorf("accounts: insert: %w", err)
	}
	return created, NoConflict, nil
}

// FindByEmail fetches an account by email, ignoring case.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("accounts: find by email: %w", err)
	}
	return acct, err
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("accounts: find by id: %w", err)
	}
	return acct, err
}

// UsernameExists reports whether any account uses the username.
func (r *PGRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("accounts: username exists: %w", err)
	}
	return exists, nil
}

// UpdateTheme stores the theme preference.
func (r *PGRepository) UpdateTheme(ctx context.Context, id int64, theme Theme) (*Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx, `
		UPDATE users SET theme = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+accountColumns, id, string(theme)))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("accounts: update theme: %w", err)
	}
	return acct, err
}

// UpdateProfile applies the non-nil fields. Empty name or bio clears them.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, changes ProfileInput) (*Account, Conflict, error) {
	set := func(p *string) (bool, string) {
		if p == nil {
			return false, ""
		}
		return true, *p
	}
	setName, name := set(changes.Name)
	setUsername, username := set(changes.Username)
	setBio, bio := set(changes.Bio)
	setEmail, email := set(changes.Email)

	acct, err := scanAccount(r.db.QueryRow(ctx, `
		UPDATE users SET
			name = CASE WHEN $2::boolean THEN NULLIF($3, '') ELSE name END,
			username = CASE WHEN $4::boolean THEN NULLIF($5, '') ELSE username END,
			bio = CASE WHEN $6::boolean THEN NULLIF($7, '') ELSE bio END,
			email = CASE WHEN $8::boolean THEN $9 ELSE email END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, setName, name, setUsername, username, setBio, bio, setEmail, email))
	if err != nil {
		if conflict, ok := conflictFor(err); ok {
			return nil, conflict, nil
		}
		if errors.Is(err, shared.ErrNotFound) {
			return nil, NoConflict, err
		}
		return nil, NoConflict, fmt.Errorf("accounts: update profile: %w", err)
	}
	return acct, NoConflict, nil
}

// UpdatePassword replaces the stored hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.execByID(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

// SetActive toggles soft deactivation.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.execByID(ctx, "set active",
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

// Delete removes the account row. Session audit rows cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return r.execByID(ctx, "delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *PGRepository) execByID(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("accounts: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
