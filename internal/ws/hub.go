package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/observability"
)

// Client wraps a websocket connection with a write mutex so broadcasts
// from different goroutines never interleave writes on one connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	Info ConnInfo
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, Info: info}
}

// Send marshals and delivers one event to the client.
func (c *Client) Send(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.send(payload)
}

func (c *Client) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Hub is the in-memory room registry for live connections. A client
// belongs to at most one room at a time; registry state is rebuilt empty
// on restart. The hub also owns outbound fan-out to room members.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	current map[*Client]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		current: make(map[*Client]string),
	}
}

// Join registers the client in room, first removing it from its previous
// room if it had one. Joining the same room twice is a no-op.
func (h *Hub) Join(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.current[client]; ok {
		if prev == room {
			return
		}
		h.removeLocked(prev, client)
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.current[client] = room
}

// Leave removes the client from its current room and reports which room
// it belonged to. Empty rooms are discarded.
func (h *Hub) Leave(client *Client) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.current[client]
	if !ok {
		return "", false
	}
	h.removeLocked(room, client)
	return room, true
}

func (h *Hub) removeLocked(room string, client *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.current, client)
}

// RoomOf returns the client's current room, empty when not joined.
func (h *Hub) RoomOf(client *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current[client]
}

// MembersOf returns a snapshot of the live clients in room.
func (h *Hub) MembersOf(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	return members
}

// Broadcast delivers event to every live client in room.
func (h *Hub) Broadcast(room string, event models.Event) {
	h.BroadcastExcept(room, "", event)
}

// BroadcastExcept delivers event to every live client in room except the
// one identified by exceptConnID. Clients whose write fails are closed
// and dropped from the registry.
func (h *Hub) BroadcastExcept(room string, exceptConnID string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	for _, client := range h.MembersOf(room) {
		if exceptConnID != "" && client.Info.ConnID == exceptConnID {
			continue
		}
		if err := client.send(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			client.Close()
			h.Leave(client)
			h.publishWSError(room, client, err)
		}
	}
	observability.IncBroadcast(event.Type)
}

func (h *Hub) publishWSError(room string, client *Client, err error) {
	info := client.Info
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room":        room,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"name": info.Name,
			"ip":   info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("room", "ws_error")
}
