package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"feedengine/internal/assets"
	"feedengine/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AssetHandler serves stored post images read-only. With ?w= it prefers a
// pre-generated webp variant and enqueues one when it doesn't exist yet.
type AssetHandler struct {
	Assets    assets.Store
	Processor *assets.Processor
	Tracer    trace.Tracer
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

const cacheForAYear = 31536000

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "AssetHandler.ServeHTTP")
	defer span.End()

	key := r.PathValue("key")

	h.Metrics.AssetRequestsTotal.Add(ctx, 1)

	widthStr := r.URL.Query().Get("w")
	if widthStr == "" {
		h.serveOriginal(ctx, w, r, key)
		return
	}

	requestedWidth, err := strconv.Atoi(widthStr)
	if err != nil || !slices.Contains(assets.SupportedWidths, requestedWidth) {
		http.NotFound(w, r)
		return
	}

	variantKey := h.Processor.VariantKey(key, requestedWidth)
	if h.Assets.Exists(ctx, variantKey) {
		span.SetAttributes(attribute.String("variant.status", "hit"))

		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "image/webp")
		// attempt to cache in the browser for a long time
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", cacheForAYear))

		reader, err := h.Assets.Open(ctx, variantKey)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer reader.Close()

		io.Copy(w, reader)
		return
	}

	span.SetAttributes(attribute.String("variant.status", "miss"))
	w.Header().Set("X-Cache", "MISS")

	// context that doesn't die when the user leaves the page
	bgCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	currentSpan := trace.SpanFromContext(r.Context())

	for _, width := range assets.SupportedWidths {
		h.Processor.Enqueue(bgCtx, assets.ImageJob{
			SourceKey:  key,
			Width:      width,
			ParentSpan: currentSpan.SpanContext(),
		})
	}

	h.serveOriginal(ctx, w, r, key)
}

func (h *AssetHandler) serveOriginal(ctx context.Context, w http.ResponseWriter, r *http.Request, key string) {
	reader, err := h.Assets.Open(ctx, key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer reader.Close()

	ext := filepath.Ext(key)
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream" // fallback
	}
	w.Header().Set("Content-Type", mimeType)

	if _, err := io.Copy(w, reader); err != nil {
		h.Logger.Warn("stream interrupted", "err", err)
	}
}
