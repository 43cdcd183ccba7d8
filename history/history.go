// Package history keeps a local, bounded record of completed
// transcriptions in a BadgerDB store under the user config directory.
// Entries expire on their own; nothing ever leaves the machine.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"go.kwisper.app/kwisper/internal/types"
)

// DefaultTTL is how long an entry is retained.
const DefaultTTL = 30 * 24 * time.Hour

// Entry is one completed transcription.
type Entry struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	Language  string              `json:"language,omitempty"`
	Duration  time.Duration       `json:"duration"`
	Source    types.TriggerSource `json:"source"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store is the transcription history database.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the history database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db, ttl: DefaultTTL}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetRetention changes the TTL applied to new entries. Existing entries
// keep the TTL they were written with.
func (s *Store) SetRetention(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// Append records a completed transcription. CreatedAt is filled in when
// zero.
func (s *Store) Append(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	key := entryKey(e.CreatedAt, e.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		ent := badger.NewEntry(key, data).WithTTL(s.ttl)
		return txn.SetEntry(ent)
	})
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek point past every real key.
		seek := append([]byte(keyPrefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.Valid() && len(entries) < n; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decode history entry: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Clear deletes every entry.
func (s *Store) Clear() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}

const keyPrefix = "t:"

// entryKey orders entries by creation time; the ID breaks ties.
func entryKey(at time.Time, id string) []byte {
	key := make([]byte, 0, len(keyPrefix)+8+1+len(id))
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(at.UnixNano()))
	key = append(key, ':')
	key = append(key, id...)
	return key
}
