// internal/socket/handler.go
package socket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/types"
)

// TokenValidator is satisfied by service.AuthService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.Claims, error)
}

// AccessChecker is satisfied by service.AccessGate.
type AccessChecker interface {
	Authorize(ctx context.Context, req service.AccessRequest) (string, error)
}

// Handler upgrades authenticated requests to WebSocket connections.
type Handler struct {
	Hub      *Hub
	tokens   TokenValidator
	access   AccessChecker
	upgrader websocket.Upgrader
	timeout  time.Duration
}

// NewHandler restricts upgrades to allowedOrigins; an empty list accepts any origin.
func NewHandler(hub *Hub, tokens TokenValidator, access AccessChecker, allowedOrigins []string, timeout time.Duration) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		Hub:     hub,
		tokens:  tokens,
		access:  access,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

// HandleWebSocket accepts the token as a query parameter because browsers
// cannot set headers on WebSocket requests.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	claims, err := h.tokens.ValidateToken(c.Request.Context(), tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	userID := claims.UserID()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Hub.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(h.Hub, userID, conn)
	client.canJoin = func(room string) bool {
		return h.canJoin(userID, room)
	}
	h.Hub.register <- client

	h.Hub.logger.WithFields(logrus.Fields{"user_id": userID, "client_id": client.ID}).Info("websocket client connected")

	go client.WritePump()
	go client.ReadPump()
}

// canJoin allows the caller's own user room and organization rooms the
// caller can view. Membership is re-checked on every join.
func (h *Handler) canJoin(userID, room string) bool {
	switch {
	case room == userRoom(userID):
		return true
	case strings.HasPrefix(room, "org:"):
		orgID := strings.TrimPrefix(room, "org:")
		if orgID == "" || h.access == nil {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		_, err := h.access.Authorize(ctx, service.AccessRequest{
			UserID:         userID,
			OrganizationID: orgID,
			Permission:     types.PermViewOrganization,
		})
		return err == nil
	default:
		return false
	}
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 256),
		Rooms:  make(map[string]bool),
	}
}
