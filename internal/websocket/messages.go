package websocket

import "github.com/vntrieu/werewolf/internal/memory"

// ServerEnvelope is the envelope for messages from server to client.
type ServerEnvelope struct {
	Type    string                 `json:"type"`
	GameID  string                 `json:"game_id,omitempty"`
	Entries []memory.Entry         `json:"entries,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Server envelope types.
const (
	// ServerTypeEntries carries memory entries the client may read, in seq order.
	ServerTypeEntries = "entries"
	// ServerTypeGameEnded is sent once when the run stops.
	ServerTypeGameEnded = "game_ended"
	ServerTypeError     = "error"
)

// ClientInMessage is a message from client to server. Connections are
// read-only: anything but a ping is answered with an error envelope.
type ClientInMessage struct {
	Type string `json:"type"`
}

// ClientMessageTypePing asks the server to confirm the connection is alive.
const ClientMessageTypePing = "ping"

// ServerTypePong answers a ping.
const ServerTypePong = "pong"

// MaxClientMessageTypeLength limits the "type" field to prevent abuse.
const MaxClientMessageTypeLength = 64
