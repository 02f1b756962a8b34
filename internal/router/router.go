package router

import (
	"log/slog"
	"net/http"
	"time"

	"feedengine/internal/config"
	"feedengine/internal/handlers"
	"feedengine/internal/middleware"
	"feedengine/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
)

// RouterDependencies holds everything needed to register routes.
type RouterDependencies struct {
	Cfg             *config.Config
	Logger          *slog.Logger
	FeedHandler     *handlers.FeedHandler
	AccountsHandler *handlers.AccountsHandler
	AssetHandler    *handlers.AssetHandler
	Auth            *middleware.Auth
	Limiter         *middleware.IPRateLimiter
	AuthLimiter     *middleware.IPRateLimiter
	Tracer          trace.Tracer
	Metrics         *telemetry.Metrics
}

func NewRouter(deps RouterDependencies) http.Handler {
	// routing
	appMux := http.NewServeMux()

	appMux.Handle("GET /images/{key}", deps.AssetHandler)

	authDelay := 500 * time.Millisecond
	credentialStack := func(h http.Handler) http.Handler {
		h = middleware.SecureDelay(authDelay, deps.Metrics)(h)
		h = deps.AuthLimiter.Middleware(deps.Logger)(h)
		return h
	}
	requireAuth := deps.Auth.RequireAuth()

	// accounts
	appMux.Handle("PUT /auth/signup", credentialStack(deps.AccountsHandler.HandleSignup()))
	appMux.Handle("POST /auth/login", credentialStack(deps.AccountsHandler.HandleLogin()))
	appMux.Handle("GET /auth/status", requireAuth(deps.AccountsHandler.HandleGetStatus()))
	appMux.Handle("PUT /auth/status", requireAuth(deps.AccountsHandler.HandleSetStatus()))

	// feed
	appMux.Handle("GET /feed/posts", deps.FeedHandler.HandleList())
	appMux.Handle("GET /feed/post/{id}", deps.FeedHandler.HandleGet())
	appMux.Handle("POST /feed/post", requireAuth(deps.FeedHandler.HandleCreate()))
	appMux.Handle("PUT /feed/post/{id}", requireAuth(deps.FeedHandler.HandleUpdate()))
	appMux.Handle("DELETE /feed/post/{id}", requireAuth(deps.FeedHandler.HandleDelete()))

	appMux.HandleFunc("/", handlers.NotFound)

	middlewareStack := []middleware.Middleware{
		middleware.Recover(deps.Logger),
	}

	if deps.Cfg.Telemetry.EnableTelemetry {
		// order matters so don't append
		middlewareStack = append(middlewareStack, middleware.Observability(deps.Tracer, deps.Metrics, deps.Logger))
	}

	middlewareStack = append(middlewareStack,
		middleware.CORS(),
		deps.Limiter.Middleware(deps.Logger),
		middleware.Logger(deps.Logger), // Inner logger (shows simple text logs)
	)

	appHandler := middleware.Chain(appMux, middlewareStack...)

	rootMux := http.NewServeMux()

	// lightweight for docker keepalive
	rootMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	rootMux.Handle("/", appHandler)

	return rootMux
}
