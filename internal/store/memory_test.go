package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLStore)(nil)
var _ Store = (*RedisStore)(nil)

func TestMemoryStoreReadAbsent(t *testing.T) {
	s := NewMemoryStore()

	val, err := s.ReadRecord(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStoreUpdateAndRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.AtomicUpdate(ctx, "k", func(cur []byte) ([]byte, error) {
		require.Nil(t, cur)
		return []byte(`"v1"`), nil
	})
	require.NoError(t, err)

	val, err := s.ReadRecord(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(val))
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AtomicUpdate(ctx, "k", func([]byte) ([]byte, error) {
		return []byte(`"v1"`), nil
	}))
	require.NoError(t, s.AtomicUpdate(ctx, "k", func([]byte) ([]byte, error) {
		return nil, nil
	}))

	val, err := s.ReadRecord(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStoreUpdateErrorLeavesRecordUntouched(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, s.AtomicUpdate(ctx, "k", func([]byte) ([]byte, error) {
		return []byte(`"v1"`), nil
	}))

	err := s.AtomicUpdate(ctx, "k", func([]byte) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	val, err := s.ReadRecord(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(val))
}

func TestMemoryStoreConcurrentUpdatesLoseNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.AtomicUpdate(ctx, "counter", func(cur []byte) ([]byte, error) {
				n := 0
				if cur != nil {
					if err := json.Unmarshal(cur, &n); err != nil {
						return nil, err
					}
				}
				return json.Marshal(n + 1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	val, err := s.ReadRecord(ctx, "counter")
	require.NoError(t, err)
	var n int
	require.NoError(t, json.Unmarshal(val, &n))
	assert.Equal(t, writers, n)
}

func TestMemoryStoreScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"request:1", "request:2", "chat:general"} {
		require.NoError(t, s.AtomicUpdate(ctx, key, func([]byte) ([]byte, error) {
			return []byte(`{}`), nil
		}))
	}

	records, err := s.Scan(ctx, "request:")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Contains(t, records, "request:1")
	assert.Contains(t, records, "request:2")
}
