// Package http exposes the gateway's public surface: the REST endpoints for
// authentication and users, and the two real-time WebSocket channels.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chat-gateway/chat"
	"chat-gateway/repositories"
	"chat-gateway/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	log         *slog.Logger
	authService services.IAuthService
	users       repositories.IUserRepository
	verifier    chat.TokenVerifier
	sessions    *chat.SessionHandler
	echo        *chat.EchoHandler
	metrics     http.Handler

	frontendRedirectURL string
	server              *http.Server
}

func NewServer(
	log *slog.Logger,
	addr string,
	authService services.IAuthService,
	users repositories.IUserRepository,
	verifier chat.TokenVerifier,
	sessions *chat.SessionHandler,
	echo *chat.EchoHandler,
	metrics http.Handler,
	frontendRedirectURL string,
) *Server {
	s := &Server{
		log:                 log,
		authService:         authService,
		users:               users,
		verifier:            verifier,
		sessions:            sessions,
		echo:                echo,
		metrics:             metrics,
		frontendRedirectURL: frontendRedirectURL,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", s.handleIssueToken)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Get("/google/login", s.handleGoogleLogin)
			r.Get("/google/callback", s.handleGoogleCallback)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/{user_id}", s.handleShowUser)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/echo/ws", s.handleEchoSocket)
			r.Get("/simple_group_chat/ws", s.handleChatSocket)
		})
	})

	return r
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
