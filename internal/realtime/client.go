package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope is the wire frame for every websocket message, both
// directions.
type Envelope struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Client is one websocket connection. The raw access token is kept so
// broadcasts can re-verify it; a token that expires mid-session gets
// the connection evicted on the next broadcast.
type Client struct {
	ID     string
	UserID string
	token  string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newClient(conn *websocket.Conn, userID, rawToken string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		token:  rawToken,
		conn:   conn,
	}
}

// send serializes writes; gorilla connections allow one concurrent
// writer only.
func (c *Client) send(event string, data map[string]interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(Envelope{Event: event, Data: data})
}

func (c *Client) sendError(code int, message string) {
	_ = c.send("error", map[string]interface{}{"code": code, "message": message})
}

func (c *Client) close() {
	_ = c.conn.Close()
}
