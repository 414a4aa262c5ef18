package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/decktable/decktable-go/internal/room"
)

// Relay protocol message types. A relay is a dumb fan-out: it stores the last
// written document per room and rebroadcasts every write to the room's
// subscribers. It performs no merging.
const (
	wsTypeSubscribe   = "subscribe"
	wsTypeUnsubscribe = "unsubscribe"
	wsTypeFetch       = "fetch"
	wsTypeWrite       = "write"
	wsTypeSnapshot    = "snapshot"
)

type wsEnvelope struct {
	Type string         `json:"type"`
	Room string         `json:"room"`
	Doc  *room.Document `json:"doc,omitempty"`
}

// WSStore adapts a WebSocket relay server to the Store contract. One
// connection multiplexes all rooms; a single read pump dispatches inbound
// snapshots to fetch waiters and subscribers.
type WSStore struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu      sync.Mutex
	subs    map[string]map[string]SnapshotFunc
	fetches map[string][]chan *room.Document
	closed  bool

	// fetchTimeout bounds how long FetchCurrent waits for the relay's reply.
	fetchTimeout time.Duration
}

// NewWSStore dials the relay at url, retrying within the readiness budget.
func NewWSStore(ctx context.Context, url string, logger *zap.Logger) (*WSStore, error) {
	var conn *websocket.Conn
	var err error
	for attempt := 0; attempt < ReadyAttempts; attempt++ {
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ReadyInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: relay at %s: %v", ErrUnavailable, url, err)
	}

	s := &WSStore{
		conn:         conn,
		logger:       logger,
		subs:         make(map[string]map[string]SnapshotFunc),
		fetches:      make(map[string][]chan *room.Document),
		fetchTimeout: FirstSnapshotTimeout,
	}
	go s.readPump()
	logger.Info("relay store connected", zap.String("url", url))
	return s, nil
}

func (s *WSStore) readPump() {
	for {
		var env wsEnvelope
		if err := s.conn.ReadJSON(&env); err != nil {
			s.mu.Lock()
			s.closed = true
			waiters := s.fetches
			s.fetches = make(map[string][]chan *room.Document)
			s.mu.Unlock()
			for _, chans := range waiters {
				for _, ch := range chans {
					close(ch)
				}
			}
			s.logger.Warn("relay connection closed", zap.Error(err))
			return
		}
		if env.Type != wsTypeSnapshot {
			continue
		}

		s.mu.Lock()
		waiters := s.fetches[env.Room]
		delete(s.fetches, env.Room)
		var fns []SnapshotFunc
		for _, fn := range s.subs[env.Room] {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		for _, ch := range waiters {
			ch <- env.Doc.Clone()
			close(ch)
		}
		for _, fn := range fns {
			if env.Doc != nil {
				fn(env.Doc.Clone())
			}
		}
	}
}

func (s *WSStore) send(env wsEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.conn.WriteJSON(env)
}

// FetchCurrent implements Store. A nil document in the relay's reply means
// the room does not exist.
func (s *WSStore) FetchCurrent(ctx context.Context, roomCode string) (*room.Document, error) {
	ch := make(chan *room.Document, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.fetches[roomCode] = append(s.fetches[roomCode], ch)
	s.mu.Unlock()

	if err := s.send(wsEnvelope{Type: wsTypeFetch, Room: roomCode}); err != nil {
		s.dropFetchWaiter(roomCode, ch)
		return nil, err
	}

	select {
	case doc, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return doc, nil
	case <-time.After(s.fetchTimeout):
		s.dropFetchWaiter(roomCode, ch)
		return nil, fmt.Errorf("%w: no reply for room %s", ErrUnavailable, roomCode)
	case <-ctx.Done():
		s.dropFetchWaiter(roomCode, ch)
		return nil, ctx.Err()
	}
}

// dropFetchWaiter deregisters a waiter that gave up, so an eventual late reply
// does not send into an abandoned channel list that only ever grows.
func (s *WSStore) dropFetchWaiter(roomCode string, ch chan *room.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.fetches[roomCode]
	for i, w := range waiters {
		if w == ch {
			s.fetches[roomCode] = append(waiters[:i:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.fetches[roomCode]) == 0 {
		delete(s.fetches, roomCode)
	}
}

// Write implements Store.
func (s *WSStore) Write(_ context.Context, roomCode string, doc *room.Document) error {
	return s.send(wsEnvelope{Type: wsTypeWrite, Room: roomCode, Doc: doc})
}

// Subscribe implements Store.
func (s *WSStore) Subscribe(_ context.Context, roomCode string, onSnapshot SnapshotFunc) (Subscription, error) {
	id := uuid.NewString()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.subs[roomCode] == nil {
		s.subs[roomCode] = make(map[string]SnapshotFunc)
	}
	s.subs[roomCode][id] = onSnapshot
	s.mu.Unlock()

	if err := s.send(wsEnvelope{Type: wsTypeSubscribe, Room: roomCode}); err != nil {
		return nil, err
	}
	return &wsSubscription{store: s, roomCode: roomCode, id: id}, nil
}

// Close tears the connection down. In-flight writes are not awaited.
func (s *WSStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

type wsSubscription struct {
	store    *WSStore
	roomCode string
	id       string
	once     sync.Once
}

func (sub *wsSubscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		m := sub.store.subs[sub.roomCode]
		if m != nil {
			delete(m, sub.id)
		}
		remaining := len(m)
		sub.store.mu.Unlock()
		if remaining == 0 {
			_ = sub.store.send(wsEnvelope{Type: wsTypeUnsubscribe, Room: sub.roomCode})
		}
	})
}
