package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps records in process memory. Updates are serialized
// with one mutex per key, so concurrent AtomicUpdate calls on different
// keys do not block each other.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	locks map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// ReadRecord returns a copy of the stored value, or nil when absent.
func (s *MemoryStore) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// AtomicUpdate applies fn under the key's mutex.
func (s *MemoryStore) AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	cur, err := s.ReadRecord(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next == nil {
		delete(s.data, key)
		return nil
	}
	val := make([]byte, len(next))
	copy(val, next)
	s.data[key] = val
	return nil
}

// Scan returns copies of all records under prefix.
func (s *MemoryStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for key, val := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		cp := make([]byte, len(val))
		copy(cp, val)
		out[key] = cp
	}
	return out, nil
}
