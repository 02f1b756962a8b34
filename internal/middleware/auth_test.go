package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedengine/internal/auth"
)

func newTestAuth() (*Auth, *auth.Tokens) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	return &Auth{
		Tokens: tokens,
		Logger: slog.New(slog.DiscardHandler),
	}, tokens
}

func identityProbe(t *testing.T, got *auth.Identity, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if identity, ok := IdentityFrom(r.Context()); ok {
			*got = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()
	authMw, tokens := newTestAuth()

	valid, err := tokens.Issue(42, "alice@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID int64
	}{
		{"no header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic abc123", http.StatusUnauthorized, 0},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, 0},
		{"valid token", "Bearer " + valid, http.StatusOK, 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got auth.Identity
			var called bool
			handler := authMw.RequireAuth()(identityProbe(t, &got, &called))

			req := httptest.NewRequest(http.MethodGet, "/feed/posts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status: want %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus != http.StatusOK && called {
				t.Error("handler ran despite rejection")
			}
			if got.UserID != tc.wantUserID {
				t.Errorf("user id: want %d, got %d", tc.wantUserID, got.UserID)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()
	authMw, tokens := newTestAuth()

	valid, err := tokens.Issue(7, "bob@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	t.Run("anonymous passes through", func(t *testing.T) {
		var got auth.Identity
		var called bool
		handler := authMw.OptionalAuth()(identityProbe(t, &got, &called))

		req := httptest.NewRequest(http.MethodGet, "/feed/posts", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if !called {
			t.Fatal("anonymous request was blocked")
		}
		if got.UserID != 0 {
			t.Errorf("anonymous request carries identity %d", got.UserID)
		}
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		var got auth.Identity
		var called bool
		handler := authMw.OptionalAuth()(identityProbe(t, &got, &called))

		req := httptest.NewRequest(http.MethodGet, "/feed/posts", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if !called {
			t.Fatal("authenticated request was blocked")
		}
		if got.UserID != 7 {
			t.Errorf("user id: want 7, got %d", got.UserID)
		}
	})

	t.Run("present but invalid token is rejected", func(t *testing.T) {
		var got auth.Identity
		var called bool
		handler := authMw.OptionalAuth()(identityProbe(t, &got, &called))

		req := httptest.NewRequest(http.MethodGet, "/feed/posts", nil)
		req.Header.Set("Authorization", "Bearer expired-or-forged")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: want 401, got %d", rec.Code)
		}
		if called {
			t.Error("handler ran despite bad token")
		}
	})
}
