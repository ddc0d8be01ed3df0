package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/icarus-art/icarus/internal/posts"
	"github.com/icarus-art/icarus/internal/shared"
)

type reaction struct {
	userID int64
	postID int64
	seq    int64
}

// Posts is an in-memory posts.Repository. Posts and reactions whose account
// is gone from the backing Accounts store are invisible, mirroring the
// ON DELETE CASCADE foreign keys.
type Posts struct {
	mu        sync.RWMutex
	accounts  *Accounts
	nextID    int64
	seq       int64
	rows      map[int64]posts.NewPost
	created   map[int64]time.Time
	likes     []reaction
	bookmarks []reaction
	now       func() time.Time
}

// NewPosts creates an empty post store resolving authors from accts.
func NewPosts(accts *Accounts) *Posts {
	return &Posts{
		accounts: accts,
		rows:     make(map[int64]posts.NewPost),
		created:  make(map[int64]time.Time),
		now:      time.Now,
	}
}

func (s *Posts) alive(userID int64) bool {
	_, err := s.accounts.FindByID(context.Background(), userID)
	return err == nil
}

func (s *Posts) resolve(id, viewerID int64) (posts.Post, bool) {
	row, ok := s.rows[id]
	if !ok {
		return posts.Post{}, false
	}
	author, err := s.accounts.FindByID(context.Background(), row.AuthorID)
	if err != nil {
		return posts.Post{}, false
	}
	p := posts.Post{
		ID:        id,
		AuthorID:  row.AuthorID,
		Content:   row.Content,
		MediaType: row.MediaType,
		MediaURL:  row.MediaURL,
		Category:  row.Category,
		CreatedAt: s.created[id],
		UpdatedAt: s.created[id],
		Author:    *author,
	}
	p.Likes, p.Liked = s.count(s.likes, id, viewerID)
	p.Bookmarks, p.Bookmarked = s.count(s.bookmarks, id, viewerID)
	return p, true
}

func (s *Posts) count(list []reaction, postID, viewerID int64) (int64, bool) {
	var n int64
	var mine bool
	for _, r := range list {
		if r.postID != postID || !s.alive(r.userID) {
			continue
		}
		n++
		if r.userID == viewerID {
			mine = true
		}
	}
	return n, mine
}

// Insert implements posts.Repository.
func (s *Posts) Insert(ctx context.Context, post posts.NewPost) (int64, error) {
	if !s.alive(post.AuthorID) {
		return 0, shared.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows[s.nextID] = post
	s.created[s.nextID] = s.now()
	return s.nextID, nil
}

// FindByID implements posts.Repository.
func (s *Posts) FindByID(ctx context.Context, id, viewerID int64) (*posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.resolve(id, viewerID)
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

// List implements posts.Repository.
func (s *Posts) List(ctx context.Context, q posts.ListQuery) ([]posts.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]posts.Post, 0)
	for id := range s.rows {
		p, ok := s.resolve(id, q.ViewerID)
		if !ok {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.AuthorID != 0 && p.AuthorID != q.AuthorID {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	if q.Offset >= total {
		return []posts.Post{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

// ListBookmarked implements posts.Repository.
func (s *Posts) ListBookmarked(ctx context.Context, userID int64) ([]posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marks := make([]reaction, 0)
	for _, r := range s.bookmarks {
		if r.userID == userID {
			marks = append(marks, r)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].seq > marks[j].seq })
	out := make([]posts.Post, 0, len(marks))
	for _, r := range marks {
		if p, ok := s.resolve(r.postID, userID); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Delete implements posts.Repository.
func (s *Posts) Delete(ctx context.Context, id, authorID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.AuthorID != authorID {
		return false, nil
	}
	delete(s.rows, id)
	delete(s.created, id)
	s.likes = dropPost(s.likes, id)
	s.bookmarks = dropPost(s.bookmarks, id)
	return true, nil
}

// ToggleLike implements posts.Repository.
func (s *Posts) ToggleLike(ctx context.Context, userID, postID int64) (posts.Toggle, error) {
	return s.toggle(&s.likes, userID, postID)
}

// ToggleBookmark implements posts.Repository.
func (s *Posts) ToggleBookmark(ctx context.Context, userID, postID int64) (posts.Toggle, error) {
	return s.toggle(&s.bookmarks, userID, postID)
}

func (s *Posts) toggle(list *[]reaction, userID, postID int64) (posts.Toggle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resolve(postID, userID); !ok {
		return posts.Toggle{}, shared.ErrNotFound
	}
	var out posts.Toggle
	kept := (*list)[:0]
	removed := false
	for _, r := range *list {
		if r.userID == userID && r.postID == postID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	*list = kept
	if !removed {
		s.seq++
		*list = append(*list, reaction{userID: userID, postID: postID, seq: s.seq})
		out.Active = true
	}
	out.Count, _ = s.count(*list, postID, userID)
	return out, nil
}

// Stats implements posts.Repository.
func (s *Posts) Stats(ctx context.Context, authorID int64) (posts.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st posts.Stats
	if !s.alive(authorID) {
		return st, nil
	}
	for _, row := range s.rows {
		if row.AuthorID != authorID {
			continue
		}
		st.Total++
		switch row.Category {
		case posts.CategoryArt:
			st.Art++
		case posts.CategoryMusic:
			st.Music++
		case posts.CategoryFilm:
			st.Film++
		}
	}
	return st, nil
}

func dropPost(list []reaction, postID int64) []reaction {
	kept := list[:0]
	for _, r := range list {
		if r.postID != postID {
			kept = append(kept, r)
		}
	}
	return kept
}

var _ posts.Repository = (*Posts)(nil)
