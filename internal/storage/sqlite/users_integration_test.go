//go:build integration

package sqlite

import (
	"context"
	"errors"
	"testing"

	"feedengine/internal/storage"
)

func TestUserCRUD(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)

	ctx := context.Background()

	t.Run("create and get user", func(t *testing.T) {
		email := "alice@example.com"
		hash := gen60CharHash()

		user, err := store.CreateUser(ctx, email, hash, "Alice")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.Email != email {
			t.Errorf("want %s, got %s", email, user.Email)
		}
		if user.Status != "I am new!" {
			t.Errorf("default status: want 'I am new!', got %q", user.Status)
		}

		foundByEmail, err := store.GetUserByEmail(ctx, email)
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if foundByEmail.ID != user.ID {
			t.Errorf("ID mismatch: want %d, got %d", user.ID, foundByEmail.ID)
		}

		foundByID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user by id: %v", err)
		}
		if foundByID.ID != user.ID {
			t.Errorf("ID mismatch: want %d, got %d", user.ID, foundByID.ID)
		}
	})

	t.Run("duplicate email is a unique violation", func(t *testing.T) {
		email := "taken@example.com"
		if _, err := store.CreateUser(ctx, email, gen60CharHash(), "First"); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		_, err := store.CreateUser(ctx, email, gen60CharHash(), "Second")
		if !errors.Is(err, storage.ErrUniqueViolation) {
			t.Errorf("want ErrUniqueViolation, got %v", err)
		}
	})

	t.Run("update status", func(t *testing.T) {
		user, err := store.CreateUser(ctx, "status@example.com", gen60CharHash(), "Statler")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := store.UpdateUserStatus(ctx, user.ID, "Shipping code"); err != nil {
			t.Fatalf("could not update status: %v", err)
		}

		updated, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("could not get updated user: %v", err)
		}
		if updated.Status != "Shipping code" {
			t.Errorf("status: want %q, got %q", "Shipping code", updated.Status)
		}
	})

	t.Run("update status of missing user", func(t *testing.T) {
		err := store.UpdateUserStatus(ctx, 99999, "ghost")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("get missing user", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, 99999)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
	})
}
