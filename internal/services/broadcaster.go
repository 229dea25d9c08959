package services

import "classroom-chat-service/internal/models"

// Broadcaster delivers events to the live connections of a room. The hub
// implements it; tests substitute a mock.
type Broadcaster interface {
	Broadcast(room string, event models.Event)
	BroadcastExcept(room string, exceptConnID string, event models.Event)
}
