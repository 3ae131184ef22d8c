// Package catalog serves the user and video index: profiles, listings, view
// counts, title search and the domain path tree.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/SriHarishb/edith/internal/core"
	"golang.org/x/text/cases"
)

// ErrMessageEmpty indicates a chat request without a message.
var ErrMessageEmpty = errors.New("message cannot be empty")

// Service implements the catalog operations on top of a document store.
type Service struct {
	documents core.DocumentStore
	text      core.TextGenerator
}

// New creates a catalog service.
func New(documents core.DocumentStore, text core.TextGenerator) *Service {
	return &Service{
		documents: documents,
		text:      text,
	}
}

// CreateUser creates or resets a profile with no videos.
func (s *Service) CreateUser(ctx context.Context, userID string) error {
	err := s.documents.CreateUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// UserVideos returns the user's videos in the order they were generated.
func (s *Service) UserVideos(ctx context.Context, userID string) ([]core.Video, error) {
	user, err := s.documents.User(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("user videos: %w", err)
	}

	return user.Videos, nil
}

// AllVideos returns every video, most viewed first. Ties keep store order.
func (s *Service) AllVideos(ctx context.Context) ([]core.Video, error) {
	videos, err := s.documents.AllVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("all videos: %w", err)
	}

	sortByViews(videos)

	return videos, nil
}

// IncrementViews adds one view to the user's first video with the link.
func (s *Service) IncrementViews(ctx context.Context, userID, link string) error {
	err := s.documents.IncrementViews(ctx, strings.TrimSpace(userID), link)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	return nil
}

// Search returns the videos whose title contains query, ignoring case, most
// viewed first.
func (s *Service) Search(ctx context.Context, query string) ([]core.Video, error) {
	videos, err := s.documents.AllVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	// Casers are stateful and cannot be shared between requests.
	fold := cases.Fold()
	needle := fold.String(query)
	matches := make([]core.Video, 0, len(videos))

	for _, video := range videos {
		if strings.Contains(fold.String(video.Title), needle) {
			matches = append(matches, video)
		}
	}

	sortByViews(matches)

	return matches, nil
}

// Paths returns the domain tree.
func (s *Service) Paths(ctx context.Context) (map[string]any, error) {
	tree, err := s.documents.DomainTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}

	return tree, nil
}

// Chat answers a single message.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrMessageEmpty
	}

	reply, err := s.text.Chat(ctx, message)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	return reply, nil
}

func sortByViews(videos []core.Video) {
	slices.SortStableFunc(videos, func(a, b core.Video) int {
		return b.Views - a.Views
	})
}
