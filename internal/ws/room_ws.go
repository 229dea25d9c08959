package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/observability"
	"classroom-chat-service/internal/services"
)

// RoomWebSocketHandler handles room websocket connections: it upgrades
// the request and runs the per-connection event loop.
type RoomWebSocketHandler struct {
	hub  *Hub
	chat *services.ChatService
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(hub *Hub, chat *services.ChatService) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, chat: chat}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientEvent is the small fixed set of inbound protocol events.
type clientEvent struct {
	Type   string `json:"type"`
	Room   string `json:"room,omitempty"`
	Author string `json:"author,omitempty"`
	Body   string `json:"body,omitempty"`
}

const (
	eventJoinRoom    = "join_room"
	eventSendMessage = "send_message"
)

// Handle upgrades the connection and starts the read loop.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("classroom-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Name:        c.Query("name"),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	observability.IncWSActive("room")
	observability.IncWSEvent("room", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload("", "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(context.WithoutCancel(ctx), client)
}

// readLoop reacts to inbound events until the connection closes; the
// deferred cleanup releases room membership promptly on disconnect.
func (h *RoomWebSocketHandler) readLoop(ctx context.Context, client *Client) {
	info := client.Info
	var closeReason string
	defer func() {
		room, _ := h.hub.Leave(client)
		observability.DecWSActive("room")
		observability.IncWSEvent("room", "ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload(room, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		client.Close()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("room", "ws_error")
			}
			return
		}

		var evt clientEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			client.Send(models.Event{Type: models.EventError, Error: "malformed event"})
			continue
		}

		switch evt.Type {
		case eventJoinRoom:
			h.handleJoin(ctx, client, evt)
		case eventSendMessage:
			h.handleSend(ctx, client, evt)
		default:
			client.Send(models.Event{Type: models.EventError, Error: "unknown event type"})
		}
	}
}

// handleJoin registers the client for live delivery first and reads
// history second. A message racing the join may therefore show up both
// in the history snapshot and as a live event, but none is ever lost.
func (h *RoomWebSocketHandler) handleJoin(ctx context.Context, client *Client, evt clientEvent) {
	if evt.Room == "" {
		client.Send(models.Event{Type: models.EventError, Error: "room is required"})
		return
	}

	h.hub.Join(evt.Room, client)

	history, err := h.chat.History(ctx, evt.Room)
	if err != nil {
		client.Send(models.Event{Type: models.EventError, Error: "failed to load history"})
		return
	}
	client.Send(models.Event{Type: models.EventChatHistory, Messages: history})
}

func (h *RoomWebSocketHandler) handleSend(ctx context.Context, client *Client, evt clientEvent) {
	room := h.hub.RoomOf(client)
	if room == "" {
		client.Send(models.Event{Type: models.EventError, Error: "join a room first"})
		return
	}

	author := evt.Author
	if author == "" {
		author = client.Info.Name
	}
	if author == "" || evt.Body == "" {
		client.Send(models.Event{Type: models.EventError, Error: "author and body are required"})
		return
	}

	msg, err := h.chat.Submit(ctx, room, author, evt.Body, client.Info.ConnID)
	if err != nil {
		client.Send(models.Event{Type: models.EventError, Error: "failed to store message"})
		return
	}
	client.Send(models.Event{Type: models.EventMessageSent, Message: &msg})
}

func wsEventPayload(room, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"room":        room,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"name": info.Name,
			"ip":   info.IP,
		},
	}
}
