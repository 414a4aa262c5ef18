package session

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/decktable/decktable-go/internal/deck"
	"github.com/decktable/decktable-go/internal/room"
	"github.com/decktable/decktable-go/internal/transport"
)

// LocalState is this client's private mirror of its own zones plus the dedup
// watermark. It is never shared; the room document carries only the derived
// views (counts, discard pile, optionally the hand).
type LocalState struct {
	Draw         []room.Card
	Hand         []room.Card
	Staged       []room.Card
	Discard      []room.Card
	Intermediate []room.Card

	// Selected is the transient multi-select set, keyed by card uid.
	Selected map[string]bool

	HP      map[string]int
	DeckKey string

	SpecialDeck    []room.Card
	SpecialDiscard []room.Card
	SpecialCurrent *room.Card
	SpecialMode    deck.SpecialMode

	// HandShared records the one-way opt-in to publishing hand contents.
	HandShared bool

	// LastSeenRevealTimestamp is the dedup watermark: the timestamp of the
	// newest reveal event this client has already rendered.
	LastSeenRevealTimestamp int64
}

// NewLocalState returns an empty local state.
func NewLocalState() *LocalState {
	return &LocalState{
		Selected: make(map[string]bool),
		HP:       make(map[string]int),
	}
}

// Session is the per-client context threaded through every component: the
// player's identity, the transport handle, local zones and the cached room
// mirror. One Session exists per client and is torn down on leave. Sessions
// are single-threaded: all entry points must be called from one goroutine
// (Run serializes the push and poll triggers onto it).
type Session struct {
	PlayerID   string
	PlayerName string
	RoomCode   string
	IsHost     bool

	// Multiplayer is false for solo play, where all shared-document
	// operations degrade to local no-ops.
	Multiplayer bool

	Local *LocalState

	store    transport.Store
	catalog  deck.Catalog
	notifier Notifier
	logger   *zap.Logger

	now func() time.Time
	rng *rand.Rand

	// cache is the last received room document snapshot; it is the document
	// every read-modify-write starts from (faithful to the source: writers
	// mutate the cached snapshot, not a fresh fetch).
	cache *room.Document

	// Authoritative mirrors, overwritten unconditionally on every reconcile.
	TurnOrder   []string
	CurrentTurn int
	GameStarted bool
	Combat      map[string]*room.CombatEntry

	pending *RequestTracker

	// randomPick is the uid marked by PickRandom; the next action that
	// targets it is announced as a random pick.
	randomPick string

	sub       transport.Subscription
	snapshots chan *room.Document

	pollInterval time.Duration
}

// Options configures a Session beyond its required collaborators.
type Options struct {
	// PollInterval overrides the 500 ms reconciliation fallback cadence.
	PollInterval time.Duration
	// Now and Rand inject clock and randomness for tests.
	Now  func() time.Time
	Rand *rand.Rand
}

// New creates a solo session. Hosting or joining a room upgrades it to
// multiplayer.
func New(store transport.Store, catalog deck.Catalog, notifier Notifier, logger *zap.Logger, opts Options) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Session{
		Local:        NewLocalState(),
		store:        store,
		catalog:      catalog,
		notifier:     notifier,
		logger:       logger,
		now:          now,
		rng:          rng,
		pending:      NewRequestTracker(),
		snapshots:    make(chan *room.Document, 8),
		pollInterval: interval,
	}
}

// Pending exposes the effect-request tracker.
func (s *Session) Pending() *RequestTracker { return s.pending }

// Document returns the cached room snapshot mirror, nil before the first
// snapshot arrives.
func (s *Session) Document() *room.Document { return s.cache }

// ActiveDeck resolves the local player's current deck definition, nil when
// no deck is selected or the catalog does not know it.
func (s *Session) ActiveDeck() *deck.Deck {
	if s.Local.DeckKey == "" || s.catalog == nil {
		return nil
	}
	d, ok := s.catalog.Deck(s.Local.DeckKey)
	if !ok {
		return nil
	}
	return d
}

// MyTurn reports whether the round-robin cursor points at this player.
func (s *Session) MyTurn() bool {
	return len(s.TurnOrder) > 0 &&
		s.CurrentTurn >= 0 && s.CurrentTurn < len(s.TurnOrder) &&
		s.TurnOrder[s.CurrentTurn] == s.PlayerID
}

// nowMillis is the timestamp used for reveal events and lastUpdate fields.
func (s *Session) nowMillis() int64 { return s.now().UnixMilli() }

// zone helpers

func removeByUID(zone []room.Card, uid string) ([]room.Card, *room.Card) {
	for i, c := range zone {
		if c.UID == uid {
			removed := c
			return append(zone[:i:i], zone[i+1:]...), &removed
		}
	}
	return zone, nil
}

func containsUID(zone []room.Card, uid string) bool {
	for _, c := range zone {
		if c.UID == uid {
			return true
		}
	}
	return false
}

func (s *Session) shuffleCards(cards []room.Card) []room.Card {
	out := append([]room.Card(nil), cards...)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
