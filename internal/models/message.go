package models

import "time"

// Message represents a chat message in a room. IDs are assigned by the
// server, never by the client.
type Message struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
