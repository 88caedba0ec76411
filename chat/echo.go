package chat

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const echoWelcomeText = "Welcome to the echo channel"

// echoReply is the request/response payload of the echo channel.
type echoReply struct {
	Message string `json:"message"`
}

// EchoHandler runs the stateless sibling of the group chat: one
// request/response loop per connection, no registry, no broadcast.
type EchoHandler struct {
	log *slog.Logger
}

func NewEchoHandler(log *slog.Logger) *EchoHandler {
	return &EchoHandler{log: log}
}

// Run sends the fixed welcome payload and then echoes every valid frame
// until the peer disconnects. Malformed frames get a diagnostic reply and
// the loop continues.
func (h *EchoHandler) Run(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	h.log.Info("echo connection established", "addr", conn.RemoteAddr().String())

	if err := h.reply(conn, echoReply{Message: echoWelcomeText}); err != nil {
		h.log.Debug("echo welcome failed", "error", err)
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.log.Info("echo connection closed", "addr", conn.RemoteAddr().String())
			break
		}

		frame, err := decodeFrame(raw)
		if err != nil {
			if err := h.reply(conn, echoReply{Message: malformedPayloadText}); err != nil {
				break
			}
			continue
		}

		if err := h.reply(conn, echoReply{Message: "You wrote: " + *frame.Message}); err != nil {
			break
		}
	}

	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

func (h *EchoHandler) reply(conn *websocket.Conn, payload echoReply) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}
