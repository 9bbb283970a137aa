package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vntrieu/werewolf/internal/memory"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// spectators connect from any origin; tokens gate private channels
		return true
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound envelopes
	send chan *ServerEnvelope

	// Game this client watches
	GameID string

	// PlayerID is the seat the client speaks for; 0 for a spectator.
	PlayerID int

	// Role of the seat; empty for a spectator.
	Role string

	// After is the highest entry seq the client already has. The hub only
	// delivers entries above it.
	After int
}

// visible filters entries to what this client may read and advances After.
func (c *Client) visible(entries []memory.Entry) []memory.Entry {
	out := make([]memory.Entry, 0, len(entries))
	for _, e := range memory.Visible(c.PlayerID, c.Role, entries) {
		if e.Seq <= c.After {
			continue
		}
		out = append(out, e)
	}
	for _, e := range entries {
		if e.Seq > c.After {
			c.After = e.Seq
		}
	}
	return out
}

// readPump handles control frames and answers pings until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error game_id=%s: %v", c.GameID, err)
			}
			break
		}
		var msg ClientInMessage
		if err := json.Unmarshal(message, &msg); err != nil || len(msg.Type) > MaxClientMessageTypeLength {
			c.hub.reply(c, &ServerEnvelope{Type: ServerTypeError, Payload: map[string]interface{}{"message": "invalid message"}})
			continue
		}
		if msg.Type == ClientMessageTypePing {
			c.hub.reply(c, &ServerEnvelope{Type: ServerTypePong, GameID: c.GameID})
			continue
		}
		c.hub.reply(c, &ServerEnvelope{Type: ServerTypeError, Payload: map[string]interface{}{"message": "connection is read-only"}})
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(out); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
