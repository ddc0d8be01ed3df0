package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_idx"}

	name, ok := UniqueViolation(fmt.Errorf("insert: %w", conflict))
	assert.True(t, ok)
	assert.Equal(t, "users_email_lower_idx", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestForeignKeyViolation(t *testing.T) {
	missing := &pgconn.PgError{Code: "23503", ConstraintName: "likes_post_id_fkey"}

	name, ok := ForeignKeyViolation(fmt.Errorf("toggle: %w", missing))
	assert.True(t, ok)
	assert.Equal(t, "likes_post_id_fkey", name)

	_, ok = ForeignKeyViolation(&pgconn.PgError{Code: "23505"})
	assert.False(t, ok)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
}
