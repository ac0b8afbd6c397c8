// Package history persists one record per completed dictation. Failures
// here are always soft: the text is already injected, so callers log and
// move on.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Record summarizes one dictation session.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Duration  float64   `json:"duration_seconds"`
	WordCount int       `json:"word_count"`
	Mode      string    `json:"mode"`
	AppClass  string    `json:"app_class,omitempty"`
	AppTitle  string    `json:"app_title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence collaborator backed by a local badger database.
type Store interface {
	Save(rec Record) error
	Recent(n int) ([]Record, error)
	Close() error
}

type badgerStore struct {
	db *badger.DB
}

// DefaultPath returns ~/.local/share/hushtype/history.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(dir, ".local", "share", "hushtype", "history"), nil
}

// Open creates or opens the history database at path.
func Open(path string) (Store, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &badgerStore{db: db}, nil
}

// Save assigns the record an id and timestamp when missing and appends it.
func (s *badgerStore) Save(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.CreatedAt, rec.ID), value)
	})
	if err != nil {
		return fmt.Errorf("write history record: %w", err)
	}

	log.Printf("history: saved record %s (%d words)", rec.ID, rec.WordCount)
	return nil
}

// Recent returns up to n records, newest first.
func (s *badgerStore) Recent(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}

	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek past the last possible key.
		for it.Seek([]byte{0xff}); it.Valid() && len(out) < n; it.Next() {
			var rec Record
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

// key orders records chronologically: big-endian unix-nano timestamp plus
// the record id to break same-nanosecond collisions.
func key(ts time.Time, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(ts.UnixNano()))
	return append(k, id...)
}
