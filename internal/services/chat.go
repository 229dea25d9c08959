package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/observability"
	"classroom-chat-service/internal/store"
)

// ChatService owns room chat logs: it assigns message identities,
// appends to the durable log and fans messages out to live connections.
type ChatService struct {
	store       store.Store
	broadcaster Broadcaster
}

// NewChatService constructs a ChatService.
func NewChatService(st store.Store, broadcaster Broadcaster) *ChatService {
	return &ChatService{store: st, broadcaster: broadcaster}
}

func chatKey(room string) string {
	return "chat:" + room
}

// newMessageID builds a globally unique id: unix millis plus a random
// suffix. Uniqueness is what matters, not strict ordering.
func newMessageID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// Submit assigns a fresh id, appends the message to the room's log and
// broadcasts it to every live connection in the room except the sender.
// The populated message is returned so the sender can receive a distinct
// acknowledgement.
func (s *ChatService) Submit(ctx context.Context, room, author, body, senderConnID string) (models.Message, error) {
	msg := models.Message{
		ID:        newMessageID(),
		Room:      room,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.AtomicUpdate(ctx, chatKey(room), func(cur []byte) ([]byte, error) {
		var chatLog []models.Message
		if cur != nil {
			if err := json.Unmarshal(cur, &chatLog); err != nil {
				return nil, fmt.Errorf("decode chat log for room %q: %w", room, err)
			}
		}
		chatLog = append(chatLog, msg)
		return json.Marshal(chatLog)
	})
	if err != nil {
		return models.Message{}, err
	}

	observability.IncMessageSubmitted(room)
	s.broadcaster.BroadcastExcept(room, senderConnID, models.Event{
		Type:    models.EventReceiveMessage,
		Message: &msg,
	})
	return msg, nil
}

// History returns the room's chat log in persisted order, empty when the
// room has no history.
func (s *ChatService) History(ctx context.Context, room string) ([]models.Message, error) {
	val, err := s.store.ReadRecord(ctx, chatKey(room))
	if err != nil {
		return nil, err
	}
	chatLog := []models.Message{}
	if val != nil {
		if err := json.Unmarshal(val, &chatLog); err != nil {
			return nil, fmt.Errorf("decode chat log for room %q: %w", room, err)
		}
	}
	return chatLog, nil
}

// DeleteMessage removes the first message matching both id and author.
// A missing message and a wrong author are indistinguishable to the
// caller: both return ErrNotAuthorized. On success the deletion is
// broadcast to the whole room, the deleter included, so every client
// drops the message when the event arrives.
func (s *ChatService) DeleteMessage(ctx context.Context, room, messageID, author string) error {
	err := s.store.AtomicUpdate(ctx, chatKey(room), func(cur []byte) ([]byte, error) {
		if cur == nil {
			return nil, ErrNotAuthorized
		}
		var chatLog []models.Message
		if err := json.Unmarshal(cur, &chatLog); err != nil {
			return nil, fmt.Errorf("decode chat log for room %q: %w", room, err)
		}
		for i, msg := range chatLog {
			if msg.ID == messageID && msg.Author == author {
				chatLog = append(chatLog[:i], chatLog[i+1:]...)
				return json.Marshal(chatLog)
			}
		}
		return nil, ErrNotAuthorized
	})
	if err != nil {
		return err
	}

	s.broadcaster.Broadcast(room, models.Event{
		Type:      models.EventMessageDeleted,
		MessageID: messageID,
	})
	return nil
}
