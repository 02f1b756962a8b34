package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all the metric instruments for the feed engine
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter
	// feed specific
	PostsCreatedTotal metric.Int64Counter
	PostsUpdatedTotal metric.Int64Counter
	PostsDeletedTotal metric.Int64Counter
	// assets
	AssetsStoredTotal  metric.Int64Counter
	AssetsDeletedTotal metric.Int64Counter
	AssetRequestsTotal metric.Int64Counter
	// auth
	AuthFailuresTotal metric.Int64Counter
	AuthWorkDuration  metric.Float64Histogram
	// limiter
	RateLimitHitsTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests: %w", err)
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration",
		metric.WithDescription("HTTP request latency in ms"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration: %w", err)
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_active_requests: %w", err)
	}

	postsCreatedTotal, err := meter.Int64Counter(
		"posts_created",
		metric.WithDescription("Total number of posts created"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts_created: %w", err)
	}

	postsUpdatedTotal, err := meter.Int64Counter(
		"posts_updated",
		metric.WithDescription("Total number of posts updated"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts_updated: %w", err)
	}

	postsDeletedTotal, err := meter.Int64Counter(
		"posts_deleted",
		metric.WithDescription("Total number of posts deleted"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts_deleted: %w", err)
	}

	assetsStoredTotal, err := meter.Int64Counter(
		"assets_stored",
		metric.WithDescription("Total number of image assets written"),
		metric.WithUnit("{asset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assets_stored: %w", err)
	}

	assetsDeletedTotal, err := meter.Int64Counter(
		"assets_deleted",
		metric.WithDescription("Total number of image assets removed"),
		metric.WithUnit("{asset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assets_deleted: %w", err)
	}

	assetRequestsTotal, err := meter.Int64Counter(
		"asset_requests",
		metric.WithDescription("Total number of assets requested"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset_requests: %w", err)
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures",
		metric.WithDescription("Total number of rejected credentials"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_failures: %w", err)
	}

	authWorkDuration, err := meter.Float64Histogram(
		"auth_work_duration",
		metric.WithDescription("real time spent on DB/Bcrypt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_work_duration: %w", err)
	}

	rateLimitHitsTotal, err := meter.Int64Counter(
		"rate_limit_hits",
		metric.WithDescription("Number of rate limiter blocked requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit_hits: %w", err)
	}

	return &Metrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,
		PostsCreatedTotal:   postsCreatedTotal,
		PostsUpdatedTotal:   postsUpdatedTotal,
		PostsDeletedTotal:   postsDeletedTotal,
		AssetsStoredTotal:   assetsStoredTotal,
		AssetsDeletedTotal:  assetsDeletedTotal,
		AssetRequestsTotal:  assetRequestsTotal,
		AuthFailuresTotal:   authFailuresTotal,
		AuthWorkDuration:    authWorkDuration,
		RateLimitHitsTotal:  rateLimitHitsTotal,
	}, nil
}
