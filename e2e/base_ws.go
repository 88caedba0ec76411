package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseWsSuite holds the shared plumbing for WebSocket scenarios against a
// running gateway.
type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GatewayAddr == "" {
		s.T().Skip("E2E_GATEWAY_ADDR not set, skipping e2e suite")
	}
}

// Dial opens a WebSocket against the gateway with a colorized log header.
func (s *BaseWsSuite) Dial(t *testing.T, name, path string, query url.Values) *websocket.Conn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.GatewayAddr, Path: path, RawQuery: query.Encode()}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// IssueToken asks the gateway for a fresh JWT via the token endpoint.
func (s *BaseWsSuite) IssueToken(username, userID string) string {
	body := fmt.Sprintf(`{"username":%q,"user_id":%q}`, username, userID)
	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/v1/auth/token", s.Config.GatewayAddr),
		"application/json",
		strings.NewReader(body),
	)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out.AccessToken
}

// ReadEvent reads one frame with a deadline and decodes it as a chat event.
func (s *BaseWsSuite) ReadEvent(conn *websocket.Conn) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)

	var event map[string]any
	s.Require().NoError(json.Unmarshal(raw, &event))
	return event
}
