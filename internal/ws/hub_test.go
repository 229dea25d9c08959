package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClient(name string) *Client {
	return NewClient(nil, ConnInfo{ConnID: newConnID(), Name: name})
}

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub()
	client := testClient("alice")

	hub.Join("math", client)
	assert.Len(t, hub.MembersOf("math"), 1)
	assert.Equal(t, "math", hub.RoomOf(client))

	room, ok := hub.Leave(client)
	assert.True(t, ok)
	assert.Equal(t, "math", room)
	assert.Empty(t, hub.MembersOf("math"))
	assert.Empty(t, hub.RoomOf(client))
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	client := testClient("alice")

	hub.Join("math", client)
	hub.Join("math", client)

	assert.Len(t, hub.MembersOf("math"), 1)
}

func TestHubJoinMovesClientBetweenRooms(t *testing.T) {
	hub := NewHub()
	client := testClient("alice")

	hub.Join("math", client)
	hub.Join("physics", client)

	assert.Empty(t, hub.MembersOf("math"))
	assert.Len(t, hub.MembersOf("physics"), 1)
	assert.Equal(t, "physics", hub.RoomOf(client))
}

func TestHubLeaveDiscardsEmptyRoom(t *testing.T) {
	hub := NewHub()
	a := testClient("alice")
	b := testClient("bob")

	hub.Join("math", a)
	hub.Join("math", b)
	hub.Leave(a)
	assert.Len(t, hub.MembersOf("math"), 1)

	hub.Leave(b)
	hub.mu.RLock()
	_, exists := hub.rooms["math"]
	hub.mu.RUnlock()
	assert.False(t, exists)
}

func TestHubLeaveWithoutJoin(t *testing.T) {
	hub := NewHub()

	_, ok := hub.Leave(testClient("alice"))
	assert.False(t, ok)
}

func TestHubMembersOfUnknownRoom(t *testing.T) {
	hub := NewHub()

	assert.Empty(t, hub.MembersOf("nowhere"))
}
