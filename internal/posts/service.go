package posts

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/icarus-art/icarus/internal/shared"
)

const (
	maxContentLength  = 5000
	maxMediaURLLength = 500

	defaultPerPage = 20
	maxPerPage     = 100

	// RecentLimit is how many of an author's posts the dashboard shows.
	RecentLimit = 5
)

// Service implements the post store on top of a Repository.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs the posts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create stores a post written by authorID. An unknown category falls back to
// DefaultCategory; at least one of content and media is required.
func (s *Service) Create(ctx context.Context, authorID int64, input CreateInput) (*Post, error) {
	content := strings.TrimSpace(input.Content)
	mediaURL := strings.TrimSpace(input.MediaURL)
	if content == "" && mediaURL == "" {
		return nil, shared.NewValidationError("content", "Content or media is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, shared.NewValidationError("content", fmt.Sprintf("Content must be at most %d characters", maxContentLength))
	}
	if mediaURL != "" {
		if utf8.RuneCountInString(mediaURL) > maxMediaURLLength {
			return nil, shared.NewValidationError("media_url", fmt.Sprintf("Media URL must be at most %d characters", maxMediaURLLength))
		}
		if !strings.HasPrefix(mediaURL, "/") && s.validate.Var(mediaURL, "http_url") != nil {
			return nil, shared.NewValidationError("media_url", "Invalid media URL")
		}
	}

	mediaType := MediaText
	if raw := strings.TrimSpace(input.MediaType); raw != "" {
		parsed, ok := ParseMediaType(raw)
		if !ok {
			return nil, shared.NewValidationError("media_type", "Invalid media type")
		}
		mediaType = parsed
	}
	category, ok := ParseCategory(input.Category)
	if !ok {
		category = DefaultCategory
	}

	id, err := s.repo.Insert(ctx, NewPost{
		AuthorID:  authorID,
		Content:   content,
		MediaType: mediaType,
		MediaURL:  mediaURL,
		Category:  category,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id, authorID)
}

// List returns one page of the feed as seen by viewerID. Page and PerPage
// fall back to 1 and 20; PerPage is capped at 100.
func (s *Service) List(ctx context.Context, viewerID int64, opts ListOptions) (*Page, error) {
	var category Category
	if raw := strings.TrimSpace(opts.Category); raw != "" {
		parsed, ok := ParseCategory(raw)
		if !ok {
			return nil, shared.NewValidationError("category", "Invalid category")
		}
		category = parsed
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	switch {
	case perPage < 1:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}

	list, total, err := s.repo.List(ctx, ListQuery{
		ViewerID: viewerID,
		Category: category,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		return nil, err
	}
	return &Page{
		Posts:       list,
		Total:       total,
		Pages:       (total + perPage - 1) / perPage,
		CurrentPage: page,
	}, nil
}

// Delete removes a post. Unknown posts yield shared.ErrNotFound and posts of
// other authors shared.ErrForbidden.
func (s *Service) Delete(ctx context.Context, callerID, postID int64) error {
	post, err := s.repo.FindByID(ctx, postID, callerID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return shared.ErrForbidden
	}
	deleted, err := s.repo.Delete(ctx, postID, callerID)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.ErrNotFound
	}
	return nil
}

// ToggleLike flips the caller's like and returns the new state.
func (s *Service) ToggleLike(ctx context.Context, userID, postID int64) (Toggle, error) {
	return s.repo.ToggleLike(ctx, userID, postID)
}

// ToggleBookmark flips the caller's bookmark and returns the new state.
func (s *Service) ToggleBookmark(ctx context.Context, userID, postID int64) (Toggle, error) {
	return s.repo.ToggleBookmark(ctx, userID, postID)
}

// Bookmarked lists the posts userID saved.
func (s *Service) Bookmarked(ctx context.Context, userID int64) ([]Post, error) {
	return s.repo.ListBookmarked(ctx, userID)
}

// Dashboard returns the author's per-category counts and latest posts.
func (s *Service) Dashboard(ctx context.Context, authorID int64) (Stats, []Post, error) {
	stats, err := s.repo.Stats(ctx, authorID)
	if err != nil {
		return Stats{}, nil, err
	}
	recent, _, err := s.repo.List(ctx, ListQuery{
		ViewerID: authorID,
		AuthorID: authorID,
		Limit:    RecentLimit,
	})
	if err != nil {
		return Stats{}, nil, err
	}
	return stats, recent, nil
}
