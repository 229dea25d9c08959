package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"classroom-chat-service/internal/mocks"
	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/store"
)

func newChatService() (*ChatService, *mocks.BroadcasterMock) {
	broadcaster := new(mocks.BroadcasterMock)
	return NewChatService(store.NewMemoryStore(), broadcaster), broadcaster
}

func TestSubmitAssignsIDAndBroadcastsToOthers(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()

	broadcaster.On("BroadcastExcept", "A", "conn-x", mock.MatchedBy(func(e models.Event) bool {
		return e.Type == models.EventReceiveMessage && e.Message != nil && e.Message.Body == "hi"
	})).Once()

	msg, err := svc.Submit(ctx, "A", "alice", "hi", "conn-x")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "A", msg.Room)
	assert.Equal(t, "alice", msg.Author)
	assert.Equal(t, "hi", msg.Body)
	broadcaster.AssertExpectations(t)
}

func TestSubmitHistoryRoundTrip(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)

	sent, err := svc.Submit(ctx, "A", "alice", "hi", "")
	require.NoError(t, err)

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent, history[0])
}

func TestHistoryEmptyRoom(t *testing.T) {
	svc, _ := newChatService()

	history, err := svc.History(context.Background(), "empty")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistoryPreservesSubmitOrder(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		_, err := svc.Submit(ctx, "A", "alice", body, "")
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, history, len(bodies))
	for i, body := range bodies {
		assert.Equal(t, body, history[i].Body)
	}
}

func TestConcurrentSubmitsLoseNothing(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)

	const senders = 20
	var wg sync.WaitGroup
	ids := make(chan string, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := svc.Submit(ctx, "A", "alice", "hi", "")
			assert.NoError(t, err)
			ids <- msg.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate message id %s", id)
		seen[id] = true
	}

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, history, senders)
}

func TestDeleteMessageByAuthor(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)

	msg, err := svc.Submit(ctx, "A", "alice", "hi", "")
	require.NoError(t, err)

	broadcaster.On("Broadcast", "A", mock.MatchedBy(func(e models.Event) bool {
		return e.Type == models.EventMessageDeleted && e.MessageID == msg.ID
	})).Once()

	require.NoError(t, svc.DeleteMessage(ctx, "A", msg.ID, "alice"))

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, history)
	broadcaster.AssertExpectations(t)
}

func TestDeleteMessageWrongAuthor(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)

	msg, err := svc.Submit(ctx, "A", "alice", "hi", "")
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, "A", msg.ID, "mallory")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestDeleteMessageTwice(t *testing.T) {
	svc, broadcaster := newChatService()
	ctx := context.Background()
	broadcaster.On("BroadcastExcept", mock.Anything, mock.Anything, mock.Anything)
	broadcaster.On("Broadcast", mock.Anything, mock.Anything)

	msg, err := svc.Submit(ctx, "A", "alice", "hi", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMessage(ctx, "A", msg.ID, "alice"))
	err = svc.DeleteMessage(ctx, "A", msg.ID, "alice")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestDeleteMessageUnknownRoom(t *testing.T) {
	svc, _ := newChatService()

	err := svc.DeleteMessage(context.Background(), "nowhere", "some-id", "alice")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
