package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icarus-art/icarus/internal/platform/db"
)

// Repository defines persistence operations for waitlist entries.
type Repository interface {
	// Insert stores the entry and reports Joined, or reports AlreadyListed
	// with a nil entry when the email is taken.
	Insert(ctx context.Context, entry Entry) (*Entry, JoinOutcome, error)
	ListAll(ctx context.Context) ([]Entry, error)
	MarkNotified(ctx context.Context, ids []int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const entryColumns = `id, email, COALESCE(name, ''), COALESCE(role, ''), source, created_at, notified`

// Insert relies on the lower(email) unique index so concurrent duplicates
// resolve to exactly one row.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) (*Entry, JoinOutcome, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO waitlist (email, name, role, source, created_at, notified)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NOW(), FALSE)
		ON CONFLICT ((lower(email))) DO NOTHING
		RETURNING `+entryColumns,
		entry.Email, entry.Name, entry.Role, entry.Source)
	var out Entry
	if err := row.Scan(&out.ID, &out.Email, &out.Name, &out.Role, &out.Source, &out.CreatedAt, &out.Notified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, AlreadyListed, nil
		}
		return nil, 0, fmt.Errorf("waitlist: insert: %w", err)
	}
	return &out, Joined, nil
}

// ListAll returns every entry, newest first.
func (r *PGRepository) ListAll(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM waitlist ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("waitlist: list: %w", err)
	}
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Email, &e.Name, &e.Role, &e.Source, &e.CreatedAt, &e.Notified); err != nil {
			return nil, fmt.Errorf("waitlist: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waitlist: list: %w", err)
	}
	return entries, nil
}

// MarkNotified flags the given entries as notified.
func (r *PGRepository) MarkNotified(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `UPDATE waitlist SET notified = TRUE WHERE id = ANY($1) AND NOT notified`, ids)
	if err != nil {
		return 0, fmt.Errorf("waitlist: mark notified: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
