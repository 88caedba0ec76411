package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const malformedPayloadText = "You are using an invalid message format"

var validate = validator.New()

// TokenVerifier yields the identity behind a bearer token.
type TokenVerifier interface {
	ValidateToken(token string) (*auth.CustomClaims, error)
}

// SessionHandler drives one group chat connection through its lifecycle:
// authentication, admission into the registry, the message loop, and a
// single finalization path shared by every termination trigger.
type SessionHandler struct {
	verifier    TokenVerifier
	registry    *Registry
	broadcaster *Broadcaster
	metrics     *observability.Metrics
	log         *slog.Logger
	sendBuffer  int
}

func NewSessionHandler(
	verifier TokenVerifier,
	registry *Registry,
	broadcaster *Broadcaster,
	metrics *observability.Metrics,
	log *slog.Logger,
	sendBuffer int,
) *SessionHandler {
	return &SessionHandler{
		verifier:    verifier,
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     metrics,
		log:         log,
		sendBuffer:  sendBuffer,
	}
}

// Run owns the connection from handshake to termination. The caller has
// already upgraded the transport; Run authenticates the credential, admits
// the connection, and blocks until the session ends.
func (h *SessionHandler) Run(conn *websocket.Conn, token string) {
	claims, err := h.verifier.ValidateToken(token)
	if err != nil {
		// Rejected before admission: nothing was broadcast, nothing to clean up.
		h.metrics.RejectedHandshakes.Inc()
		h.log.Info("chat handshake rejected", "error", err)
		h.closeWith(conn, websocket.ClosePolicyViolation, "invalid credentials")
		return
	}

	identity := domain.Sender{Username: claims.Subject, UserID: claims.UserID}
	client := NewClient(conn, identity, h.sendBuffer, h.log)
	go client.WritePump()

	h.registry.Add(client)
	h.metrics.ActiveConnections.Inc()
	h.log.Info("user joined the chat", "user", identity.Username)
	h.broadcaster.Broadcast(domain.NewJoinEvent(identity.Username))

	defer h.finalize(client)
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("chat session panic", "user", identity.Username, "panic", r)
		}
	}()

	h.readLoop(conn, client)
}

// readLoop processes inbound frames strictly in arrival order. A malformed
// frame is answered to the originator only and the loop continues; any read
// error means the transport is gone and ends the session.
func (h *SessionHandler) readLoop(conn *websocket.Conn, client *Client) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logDisconnect(client, err)
			return
		}

		frame, err := decodeFrame(raw)
		if err != nil {
			h.metrics.MalformedFrames.Inc()
			payload, _ := json.Marshal(domain.NewErrorEvent(malformedPayloadText))
			client.Enqueue(payload)
			continue
		}

		h.metrics.MessagesTotal.Inc()
		h.broadcaster.Broadcast(domain.NewMessageEvent(*frame.Message, client.Identity()))
	}
}

// finalize is the single cleanup path for an admitted session. It runs
// exactly once no matter which trigger fired: the handle is removed first,
// so the departing user never receives their own leave event.
func (h *SessionHandler) finalize(client *Client) {
	h.registry.Remove(client)
	h.metrics.ActiveConnections.Dec()
	client.Close()
	h.broadcaster.Broadcast(domain.NewLeaveEvent(client.Identity().Username))
	h.log.Info("user left the chat", "user", client.Identity().Username)
}

func (h *SessionHandler) logDisconnect(client *Client, err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		h.log.Warn("unexpected close", "user", client.Identity().Username, "error", err)
		return
	}
	h.log.Debug("client disconnected", "user", client.Identity().Username)
}

func (h *SessionHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// decodeFrame enforces the inbound contract: valid JSON with a message field
// present. Anything else is a malformed payload.
func decodeFrame(raw []byte) (domain.InboundFrame, error) {
	var frame domain.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return frame, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	if err := validate.Struct(frame); err != nil {
		return frame, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	return frame, nil
}
