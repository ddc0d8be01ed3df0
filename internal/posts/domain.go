// Package posts holds creative works shared by accounts, together with the
// likes and bookmarks other accounts attach to them.
package posts

import (
	"fmt"
	"strings"
	"time"

	"github.com/icarus-art/icarus/internal/accounts"
)

// Category groups posts by medium.
type Category string

const (
	CategoryArt   Category = "art"
	CategoryMusic Category = "music"
	CategoryFilm  Category = "film"

	// DefaultCategory is stored when a post names no known category.
	DefaultCategory = CategoryArt
)

// ParseCategory validates a user-supplied category.
func ParseCategory(value string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(value))); c {
	case CategoryArt, CategoryMusic, CategoryFilm:
		return c, true
	default:
		return "", false
	}
}

// MediaType describes what MediaURL points at.
type MediaType string

const (
	MediaText  MediaType = "text"
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// ParseMediaType validates a user-supplied media type.
func ParseMediaType(value string) (MediaType, bool) {
	switch m := MediaType(strings.ToLower(strings.TrimSpace(value))); m {
	case MediaText, MediaImage, MediaAudio, MediaVideo:
		return m, true
	default:
		return "", false
	}
}

// Post is a stored post with its counters resolved for one viewer.
type Post struct {
	ID         int64
	AuthorID   int64
	Content    string
	MediaType  MediaType
	MediaURL   string
	Category   Category
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Author     accounts.Account
	Likes      int64
	Bookmarks  int64
	Liked      bool
	Bookmarked bool
}

// View is the JSON view-model of a post.
type View struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	AuthorName     string    `json:"author_name"`
	AuthorHandle   string    `json:"author_handle"`
	AuthorInitials string    `json:"author_initials"`
	Content        *string   `json:"content"`
	MediaType      MediaType `json:"media_type"`
	MediaURL       *string   `json:"media_url"`
	Category       Category  `json:"category"`
	Likes          int64     `json:"likes"`
	Bookmarks      int64     `json:"bookmarks"`
	IsLiked        bool      `json:"is_liked"`
	IsBookmarked   bool      `json:"is_bookmarked"`
	CreatedAt      string    `json:"created_at"`
	TimeAgo        string    `json:"time_ago"`
}

// View builds the view-model relative to now.
func (p *Post) View(now time.Time) View {
	return View{
		ID:             p.ID,
		UserID:         p.AuthorID,
		AuthorName:     p.Author.DisplayName(),
		AuthorHandle:   p.Author.Handle(),
		AuthorInitials: p.Author.Initials(),
		Content:        optional(p.Content),
		MediaType:      p.MediaType,
		MediaURL:       optional(p.MediaURL),
		Category:       p.Category,
		Likes:          p.Likes,
		Bookmarks:      p.Bookmarks,
		IsLiked:        p.Liked,
		IsBookmarked:   p.Bookmarked,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		TimeAgo:        TimeAgo(p.CreatedAt, now),
	}
}

// Views converts a slice of posts.
func Views(list []Post, now time.Time) []View {
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, list[i].View(now))
	}
	return out
}

// TimeAgo renders the age of a post in the compact feed notation: 2y, 3mo,
// 5d, 4h, 12m or "now".
func TimeAgo(created, now time.Time) string {
	age := now.Sub(created)
	if age < 0 {
		return "now"
	}
	days := int(age / (24 * time.Hour))
	switch {
	case days > 365:
		return fmt.Sprintf("%dy", days/365)
	case days > 30:
		return fmt.Sprintf("%dmo", days/30)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	}
	seconds := int(age / time.Second)
	switch {
	case seconds > 3600:
		return fmt.Sprintf("%dh", seconds/3600)
	case seconds > 60:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return "now"
	}
}

// NewPost carries the validated fields of an insert.
type NewPost struct {
	AuthorID  int64
	Content   string
	MediaType MediaType
	MediaURL  string
	Category  Category
}

// CreateInput is the raw create request.
type CreateInput struct {
	Content   string
	MediaType string
	MediaURL  string
	Category  string
}

// ListQuery selects a page of the feed. Zero AuthorID and empty Category
// match every post.
type ListQuery struct {
	ViewerID int64
	AuthorID int64
	Category Category
	Limit    int
	Offset   int
}

// ListOptions is the raw feed request.
type ListOptions struct {
	Category string
	Page     int
	PerPage  int
}

// Page is one page of the feed.
type Page struct {
	Posts       []Post
	Total       int
	Pages       int
	CurrentPage int
}

// Toggle is the state of a like or bookmark after it was flipped.
type Toggle struct {
	Active bool
	Count  int64
}

// Stats counts the posts of one author per category.
type Stats struct {
	Total int64 `json:"total"`
	Art   int64 `json:"art"`
	Music int64 `json:"music"`
	Film  int64 `json:"film"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
