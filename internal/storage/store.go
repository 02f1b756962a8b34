package storage

import (
	"context"
	"errors"
	"time"
)

type Store interface {
	// users
	CreateUser(ctx context.Context, email, passwordHash, name string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserStatus(ctx context.Context, userID int64, status string) error
	GetPostsForUser(ctx context.Context, userID int64) ([]*Post, error)

	// posts
	CreatePost(ctx context.Context, title, content, imageURL string, creatorID int64) (*Post, error)
	GetPostByID(ctx context.Context, postID int64) (*Post, error)
	ListPosts(ctx context.Context, offset, limit int64) ([]*Post, error)
	CountPosts(ctx context.Context) (int64, error)
	UpdatePost(ctx context.Context, postID, ownerID int64, title, content, imageURL string) (*Post, error)
	DeletePost(ctx context.Context, postID int64) error

	Close() error
}

var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrCheckViolation  = errors.New("check constraint violation")
	// ErrStaleWrite means the row changed between the authorizing read and the
	// write; callers should treat it like a lost race, not corrupt anything.
	ErrStaleWrite = errors.New("row modified concurrently")
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Post struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	CreatorID   int64     `db:"creator_id" json:"creator_id"`
	CreatorName string    `db:"creator_name" json:"creator_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
