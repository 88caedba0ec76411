package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-gateway/auth"
	"chat-gateway/domain"
	apperrors "chat-gateway/errors"
	"chat-gateway/observability"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// chatHarness runs a real session handler behind an httptest server so the
// tests exercise the full path: upgrade, token check, registry, fan-out.
type chatHarness struct {
	srv      *httptest.Server
	registry *Registry
	metrics  *observability.Metrics
	tokens   *auth.TokenManager
}

func newChatHarness(t *testing.T) *chatHarness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	broadcaster := NewBroadcaster(log, registry, metrics)
	tokens := auth.NewTokenManager("harness_secret_not_for_production", "chat-gateway-test")
	sessions := NewSessionHandler(tokens, registry, broadcaster, metrics, log, 16)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sessions.Run(conn, r.URL.Query().Get("token"))
	}))
	t.Cleanup(srv.Close)

	return &chatHarness{srv: srv, registry: registry, metrics: metrics, tokens: tokens}
}

func (h *chatHarness) dial(t *testing.T, username, userID string) *websocket.Conn {
	t.Helper()
	token, err := h.tokens.GenerateToken(username, userID, time.Minute)
	require.NoError(t, err)
	return h.dialToken(t, token)
}

// dialToken completes the upgrade regardless of token validity; rejection
// happens after the handshake, as a close frame on the open socket.
func (h *chatHarness) dialToken(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.ChatEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.ChatEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(map[string]string{"message": text}))
}

func TestSession_JoinGreeting(t *testing.T) {
	req := require.New(t)
	harness := newChatHarness(t)

	conn := harness.dial(t, "user_1", "id-1")

	event := readEvent(t, conn)
	req.Equal(domain.EventJoin, event.Type)
	req.Equal("Welcome, user_1!", event.Content)
	req.Nil(event.Sender)

	req.Equal(1, harness.registry.Len())
	req.Equal(float64(1), testutil.ToFloat64(harness.metrics.ActiveConnections))
}

func TestSession_MessageFanOut(t *testing.T) {
	req := require.New(t)
	harness := newChatHarness(t)

	alice := harness.dial(t, "user_1", "id-1")
	readEvent(t, alice) // own greeting

	bob := harness.dial(t, "user_2", "id-2")
	greeting := readEvent(t, bob)
	req.Equal("Welcome, user_2!", greeting.Content)

	// The earlier member sees the newcomer's join.
	joined := readEvent(t, alice)
	req.Equal(domain.EventJoin, joined.Type)
	req.Equal("Welcome, user_2!", joined.Content)

	sendText(t, alice, "hi")

	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readEvent(t, conn)
		req.Equal(domain.EventMessage, event.Type)
		req.Equal("hi", event.Content)
		req.NotNil(event.Sender)
		req.Equal("user_1", event.Sender.Username)
		req.Equal("id-1", event.Sender.UserID)
	}
}

func TestSession_LeaveBroadcast(t *testing.T) {
	req := require.New(t)
	harness := newChatHarness(t)

	alice := harness.dial(t, "user_1", "id-1")
	readEvent(t, alice)

	bob := harness.dial(t, "user_2", "id-2")
	readEvent(t, bob)
	readEvent(t, alice)

	req.NoError(alice.Close())

	left := readEvent(t, bob)
	req.Equal(domain.EventLeave, left.Type)
	req.Equal("user_1 left the chat", left.Content)
	req.Nil(left.Sender)

	// The handle was removed before the leave event went out, so the
	// remaining member is alone by the time they see it.
	req.Equal(1, harness.registry.Len())

	// No duplicate leave: the next frame the survivor sees is their own message.
	sendText(t, bob, "still here")
	next := readEvent(t, bob)
	req.Equal(domain.EventMessage, next.Type)
	req.Equal("still here", next.Content)
}

func TestSession_InvalidTokenRejectedBeforeAdmission(t *testing.T) {
	req := require.New(t)
	harness := newChatHarness(t)

	alice := harness.dial(t, "user_1", "id-1")
	readEvent(t, alice)

	expired, err := harness.tokens.GenerateToken("ghost", "id-ghost", -time.Minute)
	req.NoError(err)

	conn := harness.dialToken(t, expired)
	req.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, readErr := conn.ReadMessage()

	var closeErr *websocket.CloseError
	req.ErrorAs(readErr, &closeErr)
	req.Equal(websocket.ClosePolicyViolation, closeErr.Code)

	req.Equal(1, harness.registry.Len())
	req.Equal(float64(1), testutil.ToFloat64(harness.metrics.RejectedHandshakes))

	// The member already in the room never hears about the rejected peer.
	sendText(t, alice, "anyone there?")
	event := readEvent(t, alice)
	req.Equal(domain.EventMessage, event.Type)
	req.Equal("anyone there?", event.Content)
}

func TestSession_MalformedFrameAnsweredPrivately(t *testing.T) {
	req := require.New(t)
	harness := newChatHarness(t)

	alice := harness.dial(t, "user_1", "id-1")
	readEvent(t, alice)

	bob := harness.dial(t, "user_2", "id-2")
	readEvent(t, bob)
	readEvent(t, alice)

	req.NoError(alice.SetWriteDeadline(time.Now().Add(5 * time.Second)))
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("not json at all")))

	diagnostic := readEvent(t, alice)
	req.Equal(domain.EventError, diagnostic.Type)
	req.Equal(malformedPayloadText, diagnostic.Content)
	req.Nil(diagnostic.Sender)

	// The session keeps going and the other member never saw the diagnostic.
	sendText(t, alice, "sorry about that")
	for _, conn := range []*websocket.Conn{alice, bob} {
		event := readEvent(t, conn)
		req.Equal(domain.EventMessage, event.Type)
		req.Equal("sorry about that", event.Content)
	}

	req.Equal(float64(1), testutil.ToFloat64(harness.metrics.MalformedFrames))
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    string
	}{
		{"valid message", `{"message":"hi"}`, false, "hi"},
		{"empty string is allowed", `{"message":""}`, false, ""},
		{"not json", `not json`, true, ""},
		{"empty object", `{}`, true, ""},
		{"null message", `{"message":null}`, true, ""},
		{"wrong field", `{"text":"hi"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			frame, err := decodeFrame([]byte(tt.raw))
			if tt.wantErr {
				req.ErrorIs(err, apperrors.ErrMalformedPayload)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, *frame.Message)
		})
	}
}
