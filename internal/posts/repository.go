package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icarus-art/icarus/internal/platform/db"
	"github.com/icarus-art/icarus/internal/shared"
)

// Repository defines persistence operations for posts and their reactions.
// Reads resolve the Liked and Bookmarked flags for the given viewer.
type Repository interface {
	Insert(ctx context.Context, post NewPost) (int64, error)
	FindByID(ctx context.Context, id, viewerID int64) (*Post, error)
	List(ctx context.Context, q ListQuery) ([]Post, int, error)
	ListBookmarked(ctx context.Context, userID int64) ([]Post, error)
	// Delete removes the post when authorID owns it and reports whether a
	// row went away.
	Delete(ctx context.Context, id, authorID int64) (bool, error)
	ToggleLike(ctx context.Context, userID, postID int64) (Toggle, error)
	ToggleBookmark(ctx context.Context, userID, postID int64) (Toggle, error)
	Stats(ctx context.Context, authorID int64) (Stats, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

// reaction tables share one shape.
const (
	likesTable     = "likes"
	bookmarksTable = "bookmarks"
)

// postSelect expects the viewer id as $1.
const postSelect = `
	SELECT p.id, p.user_id, COALESCE(p.content, ''), p.media_type, COALESCE(p.media_url, ''),
		p.category, p.created_at, p.updated_at,
		u.email, COALESCE(u.name, ''), COALESCE(u.username, ''),
		(SELECT count(*) FROM likes l WHERE l.post_id = p.id),
		(SELECT count(*) FROM bookmarks b WHERE b.post_id = p.id),
		EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1),
		EXISTS (SELECT 1 FROM bookmarks b WHERE b.post_id = p.id AND b.user_id = $1)
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	var mediaType, category string
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &mediaType, &p.MediaURL,
		&category, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.Email, &p.Author.Name, &p.Author.Username,
		&p.Likes, &p.Bookmarks, &p.Liked, &p.Bookmarked); err != nil {
		return nil, err
	}
	p.MediaType = MediaType(mediaType)
	p.Category = Category(category)
	p.Author.ID = p.AuthorID
	return &p, nil
}

func collect(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()
	out := make([]Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Insert stores a post and returns its id.
func (r *PGRepository) Insert(ctx context.Context, post NewPost) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO posts (user_id, content, media_type, media_url, category, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING id`,
		post.AuthorID, post.Content, string(post.MediaType), post.MediaURL, string(post.Category)).Scan(&id)
	if err != nil {
		if _, ok := db.ForeignKeyViolation(err); ok {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("posts: insert: %w", err)
	}
	return id, nil
}

// FindByID returns shared.ErrNotFound for unknown ids.
func (r *PGRepository) FindByID(ctx context.Context, id, viewerID int64) (*Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx, postSelect+` WHERE p.id = $2`, viewerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("posts: find: %w", err)
	}
	return p, nil
}

// List returns one page, newest first, and the total number of matches.
func (r *PGRepository) List(ctx context.Context, q ListQuery) ([]Post, int, error) {
	const filter = ` WHERE ($2::text = '' OR p.category = $2::text) AND ($3::bigint = 0 OR p.user_id = $3::bigint)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM posts p`+
		` WHERE ($1::text = '' OR p.category = $1::text) AND ($2::bigint = 0 OR p.user_id = $2::bigint)`,
		string(q.Category), q.AuthorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("posts: count: %w", err)
	}

	rows, err := r.db.Query(ctx, postSelect+filter+` ORDER BY p.created_at DESC, p.id DESC LIMIT $4 OFFSET $5`,
		q.ViewerID, string(q.Category), q.AuthorID, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("posts: list: %w", err)
	}
	list, err := collect(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("posts: list: %w", err)
	}
	return list, total, nil
}

// ListBookmarked returns the posts userID bookmarked, most recent bookmark first.
func (r *PGRepository) ListBookmarked(ctx context.Context, userID int64) ([]Post, error) {
	rows, err := r.db.Query(ctx, postSelect+`
		JOIN bookmarks bm ON bm.post_id = p.id AND bm.user_id = $1
		ORDER BY bm.created_at DESC, bm.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("posts: bookmarked: %w", err)
	}
	list, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("posts: bookmarked: %w", err)
	}
	return list, nil
}

// Delete removes the post; likes and bookmarks cascade.
func (r *PGRepository) Delete(ctx context.Context, id, authorID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND user_id = $2`, id, authorID)
	if err != nil {
		return false, fmt.Errorf("posts: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ToggleLike flips the like of userID on postID.
func (r *PGRepository) ToggleLike(ctx context.Context, userID, postID int64) (Toggle, error) {
	return r.toggle(ctx, likesTable, userID, postID)
}

// ToggleBookmark flips the bookmark of userID on postID.
func (r *PGRepository) ToggleBookmark(ctx context.Context, userID, postID int64) (Toggle, error) {
	return r.toggle(ctx, bookmarksTable, userID, postID)
}

// toggle removes an existing reaction or adds a missing one. The
// (user_id, post_id) unique constraint keeps concurrent adds to one row.
func (r *PGRepository) toggle(ctx context.Context, table string, userID, postID int64) (Toggle, error) {
	var out Toggle
	tag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return out, fmt.Errorf("posts: toggle %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO `+table+` (user_id, post_id, created_at) VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, post_id) DO NOTHING`, userID, postID)
		if err != nil {
			if _, ok := db.ForeignKeyViolation(err); ok {
				return out, shared.ErrNotFound
			}
			return out, fmt.Errorf("posts: toggle %s: %w", table, err)
		}
		out.Active = true
	}
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE post_id = $1`, postID).Scan(&out.Count); err != nil {
		return out, fmt.Errorf("posts: count %s: %w", table, err)
	}
	return out, nil
}

// Stats counts the posts of authorID per category.
func (r *PGRepository) Stats(ctx context.Context, authorID int64) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE category = 'art'),
			count(*) FILTER (WHERE category = 'music'),
			count(*) FILTER (WHERE category = 'film')
		FROM posts WHERE user_id = $1`, authorID).Scan(&s.Total, &s.Art, &s.Music, &s.Film)
	if err != nil {
		return s, fmt.Errorf("posts: stats: %w", err)
	}
	return s, nil
}

var _ Repository = (*PGRepository)(nil)
