package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Well-known keys. Ledger entries live under a per-room prefix.
const (
	KeyAccessToken   = "access"
	KeyRefreshToken  = "refresh"
	KeyUser          = "user"
	KeyTheme         = "theme"
	KeyPendingInvite = "pending_invite"

	ledgerPrefix = "ledger/"
)

// Store is the client's durable local storage: tokens, the serialized user
// profile, UI preferences and per-room reaction ledgers survive restarts.
type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer closer.Close()
	return string(v), true, nil
}

func (s *Store) Set(key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetJSON unmarshals the value for key into out. Returns false when absent.
func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(key, string(data))
}

// SaveLedger persists a room's reaction counts so reopening the room does not
// reset them.
func (s *Store) SaveLedger(roomID string, counts map[string]map[string]int) error {
	return s.SetJSON(ledgerPrefix+roomID, counts)
}

// LoadLedger returns a room's persisted reaction counts, or ok=false when the
// room has none yet.
func (s *Store) LoadLedger(roomID string) (map[string]map[string]int, bool, error) {
	counts := make(map[string]map[string]int)
	ok, err := s.GetJSON(ledgerPrefix+roomID, &counts)
	if err != nil || !ok {
		return nil, false, err
	}
	return counts, true, nil
}
