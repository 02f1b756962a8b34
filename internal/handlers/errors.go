package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"feedengine/internal/accounts"
	"feedengine/internal/feed"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  []feed.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, errorResponse{Error: errorType, Message: message})
}

// NotFound is the catch-all for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NotFound", "Could not find the requested resource")
}

// writeServiceError maps core errors onto distinct response codes so clients
// can tell client-fault from not-found from server-fault without matching on
// message strings.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var valErr *feed.ValidationError

	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "ValidationFailed",
			Message: "Validation failed",
			Fields:  valErr.Fields,
		})

	case errors.Is(err, feed.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", "Could not find the requested resource")

	case errors.Is(err, feed.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", "Not authorized")

	case errors.Is(err, accounts.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EmailTaken", "E-Mail address already exists")

	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Unauthenticated", "Invalid email or password")

	default:
		// don't leak internals to clients
		logger.Error("500 internal server error", "err", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError", "Something went wrong on our end")
	}
}
