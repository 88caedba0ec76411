package http

import (
	goerrors "errors"
	"net/http"
	"strings"

	"chat-gateway/errors"

	"github.com/go-chi/chi/v5"
)

// requireBearer guards REST endpoints with the same token verifier the chat
// handshake uses.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if _, err := s.verifier.ValidateToken(token); err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleShowUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		if goerrors.Is(err, errors.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User with given id doesn't exist")
			return
		}
		s.log.Error("user lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   user,
		"detail": "Successful",
	})
}
