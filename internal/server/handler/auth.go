package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/service"
)

// AuthService defines the methods that the auth handler requires from the
// service layer.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (service.Token, error)
	Me(ctx context.Context, id int64) (domain.User, error)
}

// AuthHandler serves registration, login and the current-user endpoint.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler with the given service and logger.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logHandler(logger, "auth")}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user account.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "register", err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Token exchanges a username and password for a bearer token. Both a JSON
// body and an OAuth2 password-grant form are accepted.
// POST /api/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	} else if err := decodeJSON(r, &creds); err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}

	token, err := h.auth.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "me", err)
		return
	}

	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
