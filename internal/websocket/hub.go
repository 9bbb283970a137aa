package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/memory"
	"github.com/vntrieu/werewolf/internal/store"
)

// EventSource returns the stored entries of a game, used to catch a client
// up when it registers.
type EventSource interface {
	GetGameEvents(ctx context.Context, gameID string, afterSeq int) ([]store.GameEvent, error)
}

// Hub maintains the set of active clients per game and fans out entries,
// filtered per client by seat visibility.
type Hub struct {
	// Registered clients by game_id -> client map
	games map[string]map[*Client]bool

	// Entries and envelopes to fan out to a game
	broadcast chan *broadcastMessage

	// Envelopes for a single client
	direct chan directMessage

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	source EventSource
	logger *log.Logger

	// closed when Run returns
	done chan struct{}

	// Mutex for thread-safe access
	mu sync.RWMutex
}

type broadcastMessage struct {
	GameID   string
	Entries  []memory.Entry
	Envelope *ServerEnvelope
}

type directMessage struct {
	client   *Client
	envelope *ServerEnvelope
}

// NewHub creates a new Hub. source may be nil; clients then only receive
// entries published after they connect.
func NewHub(source EventSource, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *broadcastMessage, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		source:     source,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for gameID, clients := range h.games {
				for client := range clients {
					close(client.send)
				}
				delete(h.games, gameID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.games[client.GameID] == nil {
				h.games[client.GameID] = make(map[*Client]bool)
			}
			h.games[client.GameID][client] = true
			total := len(h.games[client.GameID])
			h.mu.Unlock()
			h.logger.Debug("ws client registered game_id=%s player_id=%d total=%d", client.GameID, client.PlayerID, total)
			h.catchUp(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("ws client unregistered game_id=%s player_id=%d", client.GameID, client.PlayerID)

		case m := <-h.direct:
			h.mu.Lock()
			if h.games[m.client.GameID][m.client] {
				h.deliver(m.client, m.envelope)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.games[message.GameID] {
				if message.Envelope != nil {
					h.deliver(client, message.Envelope)
					continue
				}
				if visible := client.visible(message.Entries); len(visible) > 0 {
					h.deliver(client, &ServerEnvelope{Type: ServerTypeEntries, GameID: message.GameID, Entries: visible})
				}
			}
			h.mu.Unlock()
		}
	}
}

// catchUp sends the stored entries the client has not seen. Entries published
// while it runs are queued behind it and deduplicated by Client.After.
func (h *Hub) catchUp(ctx context.Context, client *Client) {
	if h.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	events, err := h.source.GetGameEvents(ctx, client.GameID, client.After)
	if err != nil {
		h.logger.Warn("ws catch-up game_id=%s: %v", client.GameID, err)
		return
	}
	entries := make([]memory.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, ev.Entry)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.games[client.GameID][client] {
		return
	}
	if visible := client.visible(entries); len(visible) > 0 {
		h.deliver(client, &ServerEnvelope{Type: ServerTypeEntries, GameID: client.GameID, Entries: visible})
	}
}

// deliver queues env for client, dropping clients that cannot keep up. h.mu must be held.
func (h *Hub) deliver(client *Client, env *ServerEnvelope) {
	select {
	case client.send <- env:
	default:
		h.logger.Warn("ws client too slow game_id=%s player_id=%d, dropping", client.GameID, client.PlayerID)
		h.remove(client)
	}
}

// remove closes and forgets client. h.mu must be held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.games[client.GameID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.games, client.GameID)
	}
}

// Publish fans entries out to the clients of gameID. It implements
// games.EventPublisher.
func (h *Hub) Publish(gameID string, entries []memory.Entry) {
	if len(entries) == 0 {
		return
	}
	cp := make([]memory.Entry, len(entries))
	copy(cp, entries)
	h.send(&broadcastMessage{GameID: gameID, Entries: cp})
}

// GameEnded tells every client of gameID that the run stopped.
func (h *Hub) GameEnded(gameID, status, winner string) {
	h.send(&broadcastMessage{GameID: gameID, Envelope: &ServerEnvelope{
		Type:    ServerTypeGameEnded,
		GameID:  gameID,
		Payload: map[string]interface{}{"status": status, "winner": winner},
	}})
}

func (h *Hub) send(m *broadcastMessage) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	}
}

func (h *Hub) reply(client *Client, env *ServerEnvelope) {
	select {
	case h.direct <- directMessage{client: client, envelope: env}:
	case <-h.done:
	}
}

// Register adds client to its game. It blocks until the hub accepts it.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// GetGameClientCount returns the number of clients watching a game.
func (h *Hub) GetGameClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}
