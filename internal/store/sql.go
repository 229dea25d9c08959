package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists records in a key/value table. It works with the
// postgres and sqlite3 drivers; placeholders are rebound per driver by
// sqlx. Per-key serialization uses in-process mutexes, and every write
// is a single upsert or delete statement so a failed call never leaves
// a partially written record.
type SQLStore struct {
	db    *sqlx.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenSQL connects to the database and creates the records table.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	log.Printf("sql store ready driver=%s", driver)
	return &SQLStore{db: db, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *SQLStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// ReadRecord returns the value for key, or nil when absent.
func (s *SQLStore) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM records WHERE key=?`)
	err := s.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record %q: %w", key, err)
	}
	return []byte(value), nil
}

// AtomicUpdate applies fn under the key's mutex and writes the result
// with a single statement.
func (s *SQLStore) AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) error {
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

	if next == nil {
		query := s.db.Rebind(`DELETE FROM records WHERE key=?`)
		if _, err := s.db.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("delete record %q: %w", key, err)
		}
		return nil
	}

	query := s.db.Rebind(`INSERT INTO records (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value=excluded.value`)
	if _, err := s.db.ExecContext(ctx, query, key, string(next)); err != nil {
		return fmt.Errorf("write record %q: %w", key, err)
	}
	return nil
}

// Scan returns all records under prefix.
func (s *SQLStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	type row struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []row
	query := s.db.Rebind(`SELECT key, value FROM records WHERE key LIKE ?`)
	if err := s.db.SelectContext(ctx, &rows, query, prefix+"%"); err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Key] = []byte(r.Value)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
