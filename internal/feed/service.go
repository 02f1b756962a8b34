package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"feedengine/internal/assets"
	"feedengine/internal/storage"
)

const minTitleLen = 5
const minContentLen = 5

// Service orchestrates the lifecycle of a post together with its image
// asset: every mutation keeps the database record and the stored file
// consistent with each other.
type Service struct {
	store    storage.Store
	assets   assets.Store
	events   Publisher
	logger   *slog.Logger
	pageSize int
}

func NewService(store storage.Store, assetStore assets.Store, events Publisher, defaultPageSize int, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		assets:   assetStore,
		events:   events,
		logger:   logger,
		pageSize: defaultPageSize,
	}
}

type CreatePostInput struct {
	Title     string
	Content   string
	Image     io.Reader // required
	ImageName string
}

type UpdatePostInput struct {
	Title     string
	Content   string
	Image     io.Reader // nil keeps the current image
	ImageName string
}

func validatePostFields(title, content string) []FieldError {
	var fields []FieldError
	if len(strings.TrimSpace(title)) < minTitleLen {
		fields = append(fields, FieldError{Field: "title", Message: "must be at least 5 characters"})
	}
	if len(strings.TrimSpace(content)) < minContentLen {
		fields = append(fields, FieldError{Field: "content", Message: "must be at least 5 characters"})
	}
	return fields
}

// Create stores the image, then persists the post referencing it. The asset
// write happens strictly before the database write, so a crash in between
// leaves at most an orphaned file and never a post pointing at nothing.
func (s *Service) Create(ctx context.Context, actorID int64, in CreatePostInput) (*storage.Post, error) {
	fields := validatePostFields(in.Title, in.Content)
	if in.Image == nil {
		fields = append(fields, FieldError{Field: "image", Message: "an image is required"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	// a missing acting user is fatal, never silently substituted
	if _, err := s.store.GetUserByID(ctx, actorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	imageKey, err := s.assets.Save(ctx, in.Image, in.ImageName)
	if err != nil {
		return nil, err
	}

	post, err := s.store.CreatePost(ctx, strings.TrimSpace(in.Title), strings.TrimSpace(in.Content), imageKey, actorID)
	if err != nil {
		// the stored image is now orphaned; acceptable residue, log and move on
		s.logger.Warn("post insert failed after asset write, asset orphaned", "key", imageKey, "err", err)
		return nil, err
	}

	s.events.Publish(ctx, Event{Action: ActionCreate, Post: post})

	return post, nil
}

// Update rewrites a post's fields and, when a new image was supplied,
// retires the previous asset. The old file is removed only after the new
// record has committed: a crash mid-operation leaks a file, never a
// dangling reference.
func (s *Service) Update(ctx context.Context, actorID, postID int64, in UpdatePostInput) (*storage.Post, error) {
	if fields := validatePostFields(in.Title, in.Content); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	current, err := s.AuthorizeMutation(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	imageKey := current.ImageURL
	if in.Image != nil {
		imageKey, err = s.assets.Save(ctx, in.Image, in.ImageName)
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdatePost(ctx, postID, actorID, strings.TrimSpace(in.Title), strings.TrimSpace(in.Content), imageKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, storage.ErrStaleWrite):
			return nil, ErrForbidden
		}
		// a freshly stored replacement image is orphaned here; accepted
		return nil, err
	}

	if imageKey != current.ImageURL {
		s.removeAsset(ctx, current.ImageURL)
	}

	s.events.Publish(ctx, Event{Action: ActionUpdate, Post: updated})

	return updated, nil
}

// Delete removes the record first and the asset after; the record delete is
// the operation's success criterion, file cleanup is best-effort.
func (s *Service) Delete(ctx context.Context, actorID, postID int64) error {
	post, err := s.AuthorizeMutation(ctx, actorID, postID)
	if err != nil {
		return err
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.removeAsset(ctx, post.ImageURL)

	s.events.Publish(ctx, Event{Action: ActionDelete, Post: post})

	return nil
}

func (s *Service) Get(ctx context.Context, postID int64) (*storage.Post, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

// List returns one page of the feed, newest first, plus the total count.
// Out-of-range pages come back empty rather than failing.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*storage.Post, int64, error) {
	total, err := s.store.CountPosts(ctx)
	if err != nil {
		return nil, 0, err
	}

	window := Window(page, pageSize, s.pageSize)

	posts, err := s.store.ListPosts(ctx, window.Offset, window.Limit)
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// PostsOf returns the owned-posts set of one user.
func (s *Service) PostsOf(ctx context.Context, userID int64) ([]*storage.Post, error) {
	return s.store.GetPostsForUser(ctx, userID)
}

// removeAsset is fire-and-forget: a leftover file is logged residue, never a
// reason to fail the operation that triggered the cleanup.
func (s *Service) removeAsset(ctx context.Context, key string) {
	cleanupCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.assets.Delete(cleanupCtx, key); err != nil {
			s.logger.Warn("asset cleanup failed, file orphaned", "key", key, "err", err)
		}
	}()
}
