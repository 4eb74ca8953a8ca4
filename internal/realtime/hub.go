package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Client is one websocket connection. Send is drained by the connection's
// writer goroutine.
type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
}

// Hub tracks the sockets connected to this instance and the rooms they joined.
type Hub struct {
	clients    map[string]*Client
	rooms      map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// RegisterClient and UnregisterClient hand the client to Run. Once Run has
// returned they apply the change directly so closing sockets never block.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		h.add(client)
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

// Join adds client to the local members of room.
func (h *Hub) Join(client *Client, room uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.ID] = client
}

func (h *Hub) Leave(client *Client, room uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

// RoomsOf lists the rooms client is in.
func (h *Hub) RoomsOf(client *Client) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []uuid.UUID
	for room, members := range h.rooms {
		if _, ok := members[client.ID]; ok {
			out = append(out, room)
		}
	}
	return out
}

func (h *Hub) leaveLocked(client *Client, room uuid.UUID) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client.ID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastRoom delivers payload to every local member of room. Members whose
// buffer is full miss the message.
func (h *Hub) BroadcastRoom(room uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[room] {
		h.trySend(client, payload)
	}
}

// SendToUser delivers payload to every socket of userID on this instance.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			h.trySend(client, payload)
		}
	}
}

// SendJSON encodes v and delivers it to a single client. Only the client's
// reader goroutine may call it, since Send is closed on unregister.
func (h *Hub) SendJSON(client *Client, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("could not encode websocket payload", "err", err)
		return
	}
	h.trySend(client, b)
}

func (h *Hub) trySend(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		slog.Warn("dropping message for slow socket", "client", client.ID, "user", client.UserID)
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	slog.Debug("socket registered", "client", client.ID, "user", client.UserID)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old, ok := h.clients[client.ID]
	if !ok {
		return
	}
	delete(h.clients, client.ID)
	for room := range h.rooms {
		h.leaveLocked(client, room)
	}
	close(old.Send)
	slog.Debug("socket unregistered", "client", client.ID)
}
