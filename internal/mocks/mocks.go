package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/store"
)

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(room string, event models.Event) {
	m.Called(room, event)
}

func (m *BroadcasterMock) BroadcastExcept(room string, exceptConnID string, event models.Event) {
	m.Called(room, exceptConnID, event)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	var val []byte
	if v := args.Get(0); v != nil {
		val = v.([]byte)
	}
	return val, args.Error(1)
}

func (m *StoreMock) AtomicUpdate(ctx context.Context, key string, fn store.UpdateFunc) error {
	args := m.Called(ctx, key, fn)
	return args.Error(0)
}

func (m *StoreMock) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	args := m.Called(ctx, prefix)
	var records map[string][]byte
	if v := args.Get(0); v != nil {
		records = v.(map[string][]byte)
	}
	return records, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ store.Store = (*StoreMock)(nil)
