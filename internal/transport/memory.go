package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/decktable/decktable-go/internal/room"
)

// MemoryStore is an in-process Store used by tests and local single-device
// play. Snapshots are delivered synchronously on Write, which makes engine
// tests deterministic.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*room.Document
	subs  map[string]map[string]SnapshotFunc // roomCode -> subID -> fn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*room.Document),
		subs:  make(map[string]map[string]SnapshotFunc),
	}
}

// FetchCurrent implements Store.
func (s *MemoryStore) FetchCurrent(_ context.Context, roomCode string) (*room.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.rooms[roomCode]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

// Write implements Store. The stored document is a private clone; the
// caller's copy stays untouched. Subscribers observe the new state after the
// lock is released, mirroring the push store's callback behavior.
func (s *MemoryStore) Write(_ context.Context, roomCode string, doc *room.Document) error {
	s.mu.Lock()
	s.rooms[roomCode] = doc.Clone()
	var fns []SnapshotFunc
	for _, fn := range s.subs[roomCode] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(doc.Clone())
	}
	return nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(_ context.Context, roomCode string, onSnapshot SnapshotFunc) (Subscription, error) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.subs[roomCode] == nil {
		s.subs[roomCode] = make(map[string]SnapshotFunc)
	}
	s.subs[roomCode][id] = onSnapshot
	current := s.rooms[roomCode].Clone()
	s.mu.Unlock()

	if current != nil {
		onSnapshot(current)
	}
	return &memorySubscription{store: s, roomCode: roomCode, id: id}, nil
}

// Delete removes a room outright. Rooms are normally abandoned rather than
// deleted; tests use this to simulate a vanished room.
func (s *MemoryStore) Delete(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomCode)
}

type memorySubscription struct {
	store    *MemoryStore
	roomCode string
	id       string
	once     sync.Once
}

func (sub *memorySubscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()
		if m := sub.store.subs[sub.roomCode]; m != nil {
			delete(m, sub.id)
		}
	})
}
