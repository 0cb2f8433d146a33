package realtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
)

var errForbidden = apperr.AccessDenied("access denied")

func statusOf(err error) int {
	return apperr.StatusOf(err)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set custom headers on websocket connects, so
	// auth rides on the query string and origins are not restricted.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades /ws connections. The access token comes from the
// "token" query parameter; an invalid token rejects the upgrade.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		userID, err := h.verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(conn, userID, raw)
		go h.readLoop(client)
	}
}

// readLoop dispatches join/leave frames until the connection closes.
func (h *Hub) readLoop(client *Client) {
	defer func() {
		h.drop(client)
		client.close()
	}()

	for {
		var msg Envelope
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client", client.ID).Msg("websocket closed")
			}
			return
		}

		id, _ := msg.Data["id"].(string)
		ctx := context.Background()

		switch {
		case strings.HasPrefix(msg.Event, "join"):
			kind, ok := parseKind(strings.TrimPrefix(msg.Event, "join"))
			if !ok || id == "" {
				client.sendError(http.StatusBadRequest, "unknown event")
				continue
			}
			h.Join(ctx, kind, id, client)
		case strings.HasPrefix(msg.Event, "leave"):
			kind, ok := parseKind(strings.TrimPrefix(msg.Event, "leave"))
			if !ok || id == "" {
				client.sendError(http.StatusBadRequest, "unknown event")
				continue
			}
			h.Leave(kind, id, client)
		default:
			client.sendError(http.StatusBadRequest, "unknown event")
		}
	}
}

func parseKind(name string) (Kind, bool) {
	switch Kind(name) {
	case KindNote, KindTable, KindDocument, KindBoard, KindUser:
		return Kind(name), true
	}
	return "", false
}
