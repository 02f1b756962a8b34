package sqlite

import (
	"context"
	"errors"
	"fmt"

	"feedengine/internal/storage"

	"github.com/jmoiron/sqlx"
)

func (s *Store) CreatePost(ctx context.Context, title, content, imageURL string, creatorID int64) (*storage.Post, error) {
	query := `INSERT INTO posts (title, content, image_url, creator_id)
		VALUES (?, ?, ?, ?)
		RETURNING id, title, content, image_url, creator_id, created_at, updated_at,
			(SELECT name FROM users WHERE id = ?) AS creator_name`

	var post storage.Post
	if err := s.db.GetContext(ctx, &post, query, title, content, imageURL, creatorID, creatorID); err != nil {
		return nil, fmt.Errorf("could not create post: %w", mapSqlError(err))
	}

	return &post, nil
}

func (s *Store) GetPostByID(ctx context.Context, postID int64) (*storage.Post, error) {
	query := `SELECT p.*, u.name AS creator_name
		FROM posts AS p
		JOIN users AS u ON p.creator_id = u.id
		WHERE p.id = ?
		LIMIT 1`

	var post storage.Post
	if err := s.db.GetContext(ctx, &post, query, postID); err != nil {
		return nil, fmt.Errorf("cannot find post with ID %d: %w", postID, mapSqlError(err))
	}

	return &post, nil
}

// ListPosts returns a window of the feed, newest first. The id tie-break keeps
// repeated windows stable when two posts share a creation timestamp.
func (s *Store) ListPosts(ctx context.Context, offset, limit int64) ([]*storage.Post, error) {
	query := `SELECT p.*, u.name AS creator_name
		FROM posts AS p
		JOIN users AS u ON p.creator_id = u.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?
		OFFSET ?`

	var posts []*storage.Post
	if err := s.db.SelectContext(ctx, &posts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", mapSqlError(err))
	}

	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", mapSqlError(err))
	}
	return count, nil
}

// UpdatePost rewrites title, content and image_url of a post. Ownership is
// re-checked inside the same transaction as the write, so the record the
// authorizing read saw is the record the write touches.
func (s *Store) UpdatePost(ctx context.Context, postID, ownerID int64, title, content, imageURL string) (*storage.Post, error) {
	var post storage.Post

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var creatorID int64
		if err := tx.GetContext(ctx, &creatorID, `SELECT creator_id FROM posts WHERE id = ?`, postID); err != nil {
			return mapSqlError(err)
		}
		if creatorID != ownerID {
			return storage.ErrStaleWrite
		}

		query := `UPDATE posts SET title = ?, content = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND creator_id = ?
			RETURNING id, title, content, image_url, creator_id, created_at, updated_at,
				(SELECT name FROM users WHERE id = ?) AS creator_name`

		return tx.GetContext(ctx, &post, query, title, content, imageURL, postID, ownerID, ownerID)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrStaleWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("could not update post %d: %w", postID, mapSqlError(err))
	}

	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, postID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("could not delete post: %w", mapSqlError(err))
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}
