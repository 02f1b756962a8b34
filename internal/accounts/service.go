package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"feedengine/internal/auth"
	"feedengine/internal/feed"
	"feedengine/internal/storage"
)

const minPasswordLen = 5

var (
	// ErrEmailTaken is returned on signup with an already registered email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials deliberately does not say whether the email or
	// the password was wrong
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles identity: signup, login and the user status line.
type Service struct {
	store     storage.Store
	tokens    *auth.Tokens
	passwords *auth.Passwords
	logger    *slog.Logger
}

func NewService(store storage.Store, tokens *auth.Tokens, passwords *auth.Passwords, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Signup registers a new user. The password is stored only as a bcrypt hash.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*storage.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	var fields []feed.FieldError
	if _, err := mail.ParseAddress(email); err != nil {
		fields = append(fields, feed.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(password) < minPasswordLen {
		fields = append(fields, feed.FieldError{Field: "password", Message: "must be at least 5 characters"})
	}
	if name == "" {
		fields = append(fields, feed.FieldError{Field: "name", Message: "must not be empty"})
	}
	if len(fields) > 0 {
		return nil, &feed.ValidationError{Fields: fields}
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, storage.ErrUniqueViolation) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user signed up", "id", user.ID, "email", user.Email)

	return user, nil
}

// Login checks credentials and issues a token binding the user's identity.
func (s *Service) Login(ctx context.Context, email, password string) (string, *storage.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.passwords.Compare(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", "id", user.ID, "email", user.Email)

	return token, user, nil
}

func (s *Service) Status(ctx context.Context, userID int64) (string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", feed.ErrNotFound
		}
		return "", err
	}
	return user.Status, nil
}

func (s *Service) SetStatus(ctx context.Context, userID int64, status string) error {
	if strings.TrimSpace(status) == "" {
		return &feed.ValidationError{Fields: []feed.FieldError{
			{Field: "status", Message: "must not be empty"},
		}}
	}

	if err := s.store.UpdateUserStatus(ctx, userID, strings.TrimSpace(status)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return feed.ErrNotFound
		}
		return err
	}

	return nil
}
