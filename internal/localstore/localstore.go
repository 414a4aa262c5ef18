// Package localstore persists the bits of client state that survive a page
// reload: the sticky local player id and the staged table cards per deck.
package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/decktable/decktable-go/internal/room"
)

var (
	metaBucket   = []byte("meta")
	stagedBucket = []byte("staged")

	playerIDKey = []byte("playerId")
)

// Store is a single-file bbolt database. One Store per client process.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, stagedBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init local store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// PlayerID returns the persisted player id, empty when none was stored yet.
func (s *Store) PlayerID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(playerIDKey); v != nil {
			id = string(v)
		}
		return nil
	})
	return id, err
}

// SetPlayerID persists the player id so rejoins keep the same identity.
func (s *Store) SetPlayerID(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(playerIDKey, []byte(id))
	})
}

// SavedStage returns the staged table cards stored for a deck, nil when the
// deck has no saved table.
func (s *Store) SavedStage(deckKey string) ([]room.Card, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(stagedBucket).Get([]byte(deckKey)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}
	var cards []room.Card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decode staged cards for %q: %w", deckKey, err)
	}
	return cards, nil
}

// SaveStage stores the staged table cards for a deck, replacing any previous
// save. An empty slice clears the entry.
func (s *Store) SaveStage(deckKey string, cards []room.Card) error {
	if len(cards) == 0 {
		return s.ClearStage(deckKey)
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode staged cards for %q: %w", deckKey, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stagedBucket).Put([]byte(deckKey), raw)
	})
}

// ClearStage removes the saved table for a deck.
func (s *Store) ClearStage(deckKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stagedBucket).Delete([]byte(deckKey))
	})
}
