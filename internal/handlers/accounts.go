package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"feedengine/internal/accounts"
	"feedengine/internal/middleware"
)

// AccountsHandler exposes signup, login and the user status line
type AccountsHandler struct {
	Service *accounts.Service
	Logger  *slog.Logger
}

func NewAccountsHandler(service *accounts.Service, logger *slog.Logger) *AccountsHandler {
	return &AccountsHandler{Service: service, Logger: logger}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AccountsHandler) HandleSignup() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
			return
		}

		user, err := h.Service.Signup(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "User created.",
			"userId":  user.ID,
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountsHandler) HandleLogin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
			return
		}

		token, user, err := h.Service.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"token":  token,
			"userId": user.ID,
		})
	})
}

func (h *AccountsHandler) HandleGetStatus() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", "Not authenticated.")
			return
		}

		status, err := h.Service.Status(r.Context(), identity.UserID)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": status})
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *AccountsHandler) HandleSetStatus() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", "Not authenticated.")
			return
		}

		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
			return
		}

		if err := h.Service.SetStatus(r.Context(), identity.UserID, req.Status); err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"message": "Status changed."})
	})
}
