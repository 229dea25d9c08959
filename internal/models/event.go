package models

// Websocket event types sent to clients.
const (
	EventChatHistory         = "chat_history"
	EventReceiveMessage      = "receive_message"
	EventMessageSent         = "message_sent"
	EventMessageDeleted      = "message_deleted"
	EventClassRequestCreated = "class_request_created"
	EventClassRequestUpdated = "class_request_updated"
	EventClassRequestDeleted = "class_request_deleted"
	EventError               = "error"
)

// Event is the envelope broadcast through websockets.
type Event struct {
	Type      string        `json:"type"`
	Message   *Message      `json:"message,omitempty"`
	Messages  []Message     `json:"messages,omitempty"`
	MessageID string        `json:"message_id,omitempty"`
	Request   *ClassRequest `json:"request,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}
