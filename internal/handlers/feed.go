package handlers

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"feedengine/internal/feed"
	"feedengine/internal/middleware"
	"feedengine/internal/storage"
	"feedengine/internal/telemetry"
)

// 10 MiB is plenty for a single image upload
const maxUploadBytes = 10 << 20

// FeedHandler exposes the post lifecycle over JSON
type FeedHandler struct {
	Service  *feed.Service
	Renderer *feed.MarkdownRenderer
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
}

func NewFeedHandler(service *feed.Service, renderer *feed.MarkdownRenderer, logger *slog.Logger, metrics *telemetry.Metrics) *FeedHandler {
	return &FeedHandler{
		Service:  service,
		Renderer: renderer,
		Logger:   logger,
		Metrics:  metrics,
	}
}

type postResponse struct {
	*storage.Post
	ContentHTML string `json:"content_html,omitempty"`
}

func (h *FeedHandler) HandleList() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

		posts, total, err := h.Service.List(r.Context(), page, pageSize)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Fetched posts successfully.",
			"posts":      posts,
			"totalItems": total,
		})
	})
}

func (h *FeedHandler) HandleGet() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "NotFound", "Could not find post")
			return
		}

		post, err := h.Service.Get(r.Context(), postID)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		resp := postResponse{Post: post}
		if r.URL.Query().Get("render") == "html" {
			html, err := h.Renderer.Render([]byte(post.Content))
			if err != nil {
				writeServiceError(w, h.Logger, err)
				return
			}
			resp.ContentHTML = string(html)
		}

		writeJSON(w, http.StatusOK, map[string]any{"message": "Post fetched.", "post": resp})
	})
}

// imageUpload pulls the optional image part out of a multipart form and
// rejects anything that isn't png or jpeg.
func imageUpload(r *http.Request) (multipart.File, string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", nil
		}
		return nil, "", err
	}

	switch header.Header.Get("Content-Type") {
	case "image/png", "image/jpg", "image/jpeg":
		return file, header.Filename, nil
	default:
		file.Close()
		return nil, "", &feed.ValidationError{Fields: []feed.FieldError{
			{Field: "image", Message: "only png and jpeg images are accepted"},
		}}
	}
}

func (h *FeedHandler) HandleCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", "Not authenticated.")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid multipart form")
			return
		}

		file, filename, err := imageUpload(r)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		in := feed.CreatePostInput{
			Title:     r.FormValue("title"),
			Content:   r.FormValue("content"),
			ImageName: filename,
		}
		if file != nil {
			defer file.Close()
			in.Image = file
		}

		post, err := h.Service.Create(r.Context(), identity.UserID, in)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		h.Metrics.PostsCreatedTotal.Add(r.Context(), 1)
		h.Metrics.AssetsStoredTotal.Add(r.Context(), 1)

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Post created.",
			"post":    post,
			"creator": map[string]any{"id": post.CreatorID, "name": post.CreatorName},
		})
	})
}

func (h *FeedHandler) HandleUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", "Not authenticated.")
			return
		}

		postID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "NotFound", "Could not find post")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid multipart form")
			return
		}

		file, filename, err := imageUpload(r)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		in := feed.UpdatePostInput{
			Title:     r.FormValue("title"),
			Content:   r.FormValue("content"),
			ImageName: filename,
		}
		if file != nil {
			defer file.Close()
			in.Image = file
		}

		post, err := h.Service.Update(r.Context(), identity.UserID, postID, in)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		h.Metrics.PostsUpdatedTotal.Add(r.Context(), 1)
		if file != nil {
			h.Metrics.AssetsStoredTotal.Add(r.Context(), 1)
			h.Metrics.AssetsDeletedTotal.Add(r.Context(), 1)
		}

		writeJSON(w, http.StatusOK, map[string]any{"message": "Post updated.", "post": post})
	})
}

func (h *FeedHandler) HandleDelete() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", "Not authenticated.")
			return
		}

		postID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "NotFound", "Could not find post")
			return
		}

		if err := h.Service.Delete(r.Context(), identity.UserID, postID); err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		h.Metrics.PostsDeletedTotal.Add(r.Context(), 1)
		h.Metrics.AssetsDeletedTotal.Add(r.Context(), 1)

		writeJSON(w, http.StatusOK, map[string]any{"message": "Post deleted."})
	})
}
