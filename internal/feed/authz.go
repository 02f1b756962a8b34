package feed

import (
	"context"
	"errors"

	"feedengine/internal/storage"
)

// AuthorizeMutation decides whether an acting identity may mutate a post.
// Ownership is the only rule: allowed iff the post's creator is the actor.
// The post is always re-fetched here so the decision is never made against a
// stale or caller-supplied copy.
func (s *Service) AuthorizeMutation(ctx context.Context, actorID, postID int64) (*storage.Post, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if post.CreatorID != actorID {
		return nil, ErrForbidden
	}

	return post, nil
}
