package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"feedengine/internal/auth"
	"feedengine/internal/telemetry"
)

type contextKey string

const identityKey contextKey = "identity"

// Auth validates Bearer tokens and injects the verified identity into the
// request context. Missing credentials and bad credentials are kept apart:
// OptionalAuth lets anonymous reads through, RequireAuth rejects both.
type Auth struct {
	Tokens  *auth.Tokens
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}

	return strings.TrimSpace(token), true
}

// RequireAuth ensures a valid token is present, responding 401 otherwise.
func (a *Auth) RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				a.reject(w, r, "missing credentials")
				return
			}

			identity, err := a.Tokens.Verify(token)
			if err != nil {
				a.reject(w, r, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth loads the identity when a valid token is supplied but treats
// its absence as a normal anonymous request. A token that is present but
// invalid is still rejected.
func (a *Auth) OptionalAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := a.Tokens.Verify(token)
			if err != nil {
				a.reject(w, r, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Auth) reject(w http.ResponseWriter, r *http.Request, reason string) {
	a.Logger.Warn("401 unauthenticated", "reason", reason, "path", r.URL.Path, "method", r.Method)
	if a.Metrics != nil {
		a.Metrics.AuthFailuresTotal.Add(r.Context(), 1)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthenticated","message":"Not authenticated."}`))
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}
