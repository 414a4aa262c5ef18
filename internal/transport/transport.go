// Package transport defines the replicated document store contract the
// session engine consumes, plus the bundled adapters (in-memory, Redis,
// WebSocket relay). The store is addressed by room code and replaces whole
// documents on write: no partial patch, no compare-and-swap. Snapshot
// delivery is at-least-once and carries no ordering guarantee across
// concurrent writers.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/decktable/decktable-go/internal/room"
)

var (
	// ErrUnavailable means the store handle never became ready within the
	// readiness budget.
	ErrUnavailable = errors.New("transport: store unavailable")
	// ErrRoomNotFound means the listener resolved without any snapshot for
	// the requested room.
	ErrRoomNotFound = errors.New("transport: room not found")
	// ErrClosed means the adapter has been shut down.
	ErrClosed = errors.New("transport: closed")
)

// Connection establishment budgets. Joining a room polls readiness
// ReadyAttempts times at ReadyInterval, then waits at most
// FirstSnapshotTimeout for the initial snapshot before declaring failure.
const (
	ReadyAttempts        = 30
	ReadyInterval        = 100 * time.Millisecond
	FirstSnapshotTimeout = 6 * time.Second
)

// SnapshotFunc receives every successive full-document snapshot. The adapter
// hands out deep copies; callers may mutate them freely.
type SnapshotFunc func(doc *room.Document)

// Subscription is a handle on a snapshot feed.
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}

// Store is the replicated key-value document store the engine requires.
type Store interface {
	// FetchCurrent returns the latest known document for the room, or
	// (nil, nil) when the room does not exist.
	FetchCurrent(ctx context.Context, roomCode string) (*room.Document, error)

	// Write replaces the room's document wholesale. Callers follow
	// read-modify-write; the store performs no merge. A write failure is
	// reported once and never retried by the adapter.
	Write(ctx context.Context, roomCode string, doc *room.Document) error

	// Subscribe registers onSnapshot for every subsequent document state,
	// delivering the current state first when one exists.
	Subscribe(ctx context.Context, roomCode string, onSnapshot SnapshotFunc) (Subscription, error)
}
