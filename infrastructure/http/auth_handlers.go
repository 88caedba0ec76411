package http

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"time"

	"chat-gateway/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

var validate = validator.New()

type issueTokenRequest struct {
	Username string `json:"username" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// handleIssueToken mints a JWT from caller-provided identity data.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := s.authService.IssueToken(req.Username, req.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: string(token)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := s.authService.Register(req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := s.authService.Login(req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: string(token)})
}

// handleGoogleLogin redirects the browser to Google's consent page with a
// fresh CSRF state pinned in a short-lived cookie.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.authService.GoogleLoginURL(state), http.StatusFound)
}

// handleGoogleCallback finishes the OAuth flow and hands the session token
// back, either to the configured frontend or directly as JSON.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	token, err := s.authService.LoginWithGoogle(r.Context(), code)
	if err != nil {
		s.log.Error("google authentication failed", "error", err)
		writeError(w, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	if s.frontendRedirectURL != "" {
		http.Redirect(w, r, s.frontendRedirectURL+"?token="+string(token), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: string(token)})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		writeError(w, http.StatusNotAcceptable, "A user with given data already exists")
	case goerrors.Is(err, errors.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case goerrors.Is(err, errors.ErrInvalidCredentials), goerrors.Is(err, errors.ErrGoogleAuth):
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
	default:
		s.log.Error("auth request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
