package handlers

import (
	"log/slog"
	"net/http"

	"github.com/edita-ar/apiserver/internal/services"
	"github.com/edita-ar/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AccountHandler serves signup and login.
type AccountHandler struct {
	accounts *services.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *services.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(r chi.Router, accounts *services.AccountService, logger *slog.Logger) {
	handler := NewAccountHandler(accounts, logger)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
}

type AccountResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{Message: "User registered successfully", User: user})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{Message: "User Login successfully", User: user})
}
