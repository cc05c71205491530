package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
)

type stubTokens map[string]string

func (s stubTokens) ValidateToken(_ context.Context, token string) (*service.Claims, error) {
	userID, ok := s[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &service.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}, nil
}

// stubAccess lets a user view the organizations listed for them.
type stubAccess map[string][]string

func (s stubAccess) Authorize(_ context.Context, req service.AccessRequest) (string, error) {
	for _, org := range s[req.UserID] {
		if org == req.OrganizationID {
			return org, nil
		}
	}
	return "", service.ErrInsufficientPermissions
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := newTestHub(t)
	handler := NewHandler(hub,
		stubTokens{"token-u1": "u1"},
		stubAccess{"u1": {"acme"}},
		nil,
		time.Second,
	)

	router := gin.New()
	router.GET("/ws", handler.HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleWebSocket_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "?token=forged"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocket_JoinAndReceive(t *testing.T) {
	srv, hub := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=token-u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "join", Room: "org:acme"}))
	ack := readMessage(t, conn)
	assert.Equal(t, MessageAck, ack.Type)
	assert.Equal(t, "org:acme", ack.Payload["room"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "join", Room: "org:globex"}))
	denied := readMessage(t, conn)
	assert.Equal(t, MessageError, denied.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "join", Room: "user:u2"}))
	denied = readMessage(t, conn)
	assert.Equal(t, MessageError, denied.Type)

	NewBroadcaster(hub).BroadcastMemberAdded("acme", map[string]interface{}{"userId": "u9"}, "")
	added := readMessage(t, conn)
	assert.Equal(t, MessageMemberAdded, added.Type)
	assert.Equal(t, "acme", added.Payload["organizationId"])

	NewBroadcaster(hub).SendNotification("u1", map[string]interface{}{"type": "member_welcome"})
	note := readMessage(t, conn)
	assert.Equal(t, MessageNotification, note.Type)
}
