package sqlite

import (
	"context"
	"fmt"

	"feedengine/internal/storage"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (*storage.User, error) {
	query := `INSERT INTO users (email, password_hash, name)
		VALUES (?, ?, ?)
		RETURNING *`

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, email, passwordHash, name); err != nil {
		return nil, fmt.Errorf("cannot create user %q: %w", email, mapSqlError(err))
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*storage.User, error) {
	query := `SELECT * FROM users
		WHERE id = ?
		LIMIT 1`

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("cannot find user id %d: %w", id, mapSqlError(err))
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	query := `SELECT * FROM users
		WHERE email = ?
		LIMIT 1`

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("cannot find user %q: %w", email, mapSqlError(err))
	}
	return &user, nil
}

func (s *Store) UpdateUserStatus(ctx context.Context, userID int64, status string) error {
	query := `UPDATE users SET status = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, status, userID)
	if err != nil {
		return fmt.Errorf("could not update status: %w", mapSqlError(err))
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetPostsForUser returns the owned-posts set of a user, newest first.
func (s *Store) GetPostsForUser(ctx context.Context, userID int64) ([]*storage.Post, error) {
	query := `SELECT p.*, u.name AS creator_name
		FROM posts AS p
		JOIN users AS u ON p.creator_id = u.id
		WHERE p.creator_id = ?
		ORDER BY p.created_at DESC, p.id DESC`

	var posts []*storage.Post
	if err := s.db.SelectContext(ctx, &posts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get posts for user %d: %w", userID, mapSqlError(err))
	}

	return posts, nil
}
