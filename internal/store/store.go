package store

import "context"

// UpdateFunc receives the current value of a key, nil when the key is
// absent, and returns the replacement value. Returning nil deletes the
// key. Returning an error aborts the update without writing; the error
// is passed through to the caller unchanged.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is the durable key/value contract shared by the chat log and the
// class-request table. AtomicUpdate is indivisible with respect to other
// AtomicUpdate calls on the same key; keys are never serialized against
// each other globally.
type Store interface {
	// ReadRecord returns the value for key, or nil when absent.
	ReadRecord(ctx context.Context, key string) ([]byte, error)

	// AtomicUpdate reads the current value, applies fn and writes the
	// result as a single unit. A successful update is visible to all
	// subsequent reads before the call returns.
	AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) error

	// Scan returns all records whose key starts with prefix. Iteration
	// order is unspecified.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}
