package posts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/testing/pgtest"
)

func TestPGRepositoryReactionsAndCascade(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()
	accts := accounts.NewRepository(pool)
	repo := posts.NewRepository(pool)

	author, _, err := accts.Insert(ctx, accounts.NewAccount{Email: "ada@example.com", PasswordHash: "x", Name: "Ada", Username: "ada", Theme: accounts.ThemeEarth})
	require.NoError(t, err)
	fan, _, err := accts.Insert(ctx, accounts.NewAccount{Email: "grace@example.com", PasswordHash: "x", Theme: accounts.ThemeDark})
	require.NoError(t, err)

	id, err := repo.Insert(ctx, posts.NewPost{AuthorID: author.ID, Content: "Etude", MediaType: posts.MediaText, Category: posts.CategoryMusic})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, posts.NewPost{AuthorID: author.ID, MediaURL: "/static/uploads/a.png", MediaType: posts.MediaImage, Category: posts.CategoryArt})
	require.NoError(t, err)

	post, err := repo.FindByID(ctx, id, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Etude", post.Content)
	assert.Equal(t, "ada", post.Author.Username)
	assert.Empty(t, post.MediaURL)

	state, err := repo.ToggleLike(ctx, fan.ID, id)
	require.NoError(t, err)
	assert.Equal(t, posts.Toggle{Active: true, Count: 1}, state)
	state, err = repo.ToggleBookmark(ctx, fan.ID, id)
	require.NoError(t, err)
	assert.True(t, state.Active)

	post, err = repo.FindByID(ctx, id, fan.ID)
	require.NoError(t, err)
	assert.True(t, post.Liked)
	assert.True(t, post.Bookmarked)
	assert.EqualValues(t, 1, post.Likes)

	list, total, err := repo.List(ctx, posts.ListQuery{ViewerID: fan.ID, Category: posts.CategoryMusic, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	saved, err := repo.ListBookmarked(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	stats, err := repo.Stats(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, posts.Stats{Total: 2, Art: 1, Music: 1}, stats)

	_, err = repo.ToggleLike(ctx, fan.ID, id+1000)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	deleted, err := repo.Delete(ctx, id, fan.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, accts.Delete(ctx, fan.ID))
	post, err = repo.FindByID(ctx, id, author.ID)
	require.NoError(t, err)
	assert.Zero(t, post.Likes)
	assert.Zero(t, post.Bookmarks)

	require.NoError(t, accts.Delete(ctx, author.ID))
	_, err = repo.FindByID(ctx, id, author.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
