package http

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers reach the chat socket from the frontend origin; admission is
	// gated by the token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEchoSocket upgrades the connection and hands it to the echo loop.
func (s *Server) handleEchoSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.echo.Run(conn)
}

// handleChatSocket upgrades the connection and hands it to the session state
// machine. The bearer credential travels as a query parameter because
// browsers cannot set headers on WebSocket handshakes; authentication is the
// session's first step, before admission.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.sessions.Run(conn, token)
}
