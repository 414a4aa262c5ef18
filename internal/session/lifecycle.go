package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/decktable/decktable-go/internal/room"
	"github.com/decktable/decktable-go/internal/transport"
)

// Host creates a new room, writes its initial document and starts listening.
// The returned room code is what other players join with.
func (s *Session) Host(ctx context.Context, playerName string) (string, error) {
	if playerName == "" {
		playerName = "Host"
	}
	s.RoomCode = room.NewRoomCode(s.rng)
	s.PlayerID = room.NewPlayerID(s.rng, s.now())
	s.PlayerName = playerName
	s.IsHost = true
	s.Multiplayer = true

	doc := room.NewDocument(s.PlayerID, s.PlayerName, s.now())
	if err := s.store.Write(ctx, s.RoomCode, doc); err != nil {
		s.teardown()
		return "", fmt.Errorf("create room: %w", err)
	}

	if err := s.listen(ctx); err != nil {
		s.teardown()
		return "", err
	}

	s.logger.Info("hosting room",
		zap.String("room", s.RoomCode),
		zap.String("player_id", s.PlayerID),
	)
	return s.RoomCode, nil
}

// Join connects to an existing room as a guest. Before the game starts the
// player is appended to the roster and turn order; afterwards the client
// attaches read-only to its stale entry (players are never removed).
func (s *Session) Join(ctx context.Context, roomCode, playerName string) error {
	if !room.ValidRoomCode(roomCode) {
		return fmt.Errorf("invalid room code %q", roomCode)
	}
	s.RoomCode = roomCode
	s.PlayerID = room.NewPlayerID(s.rng, s.now())
	s.PlayerName = playerName
	s.IsHost = false
	s.Multiplayer = true

	if err := s.listen(ctx); err != nil {
		s.teardown()
		return err
	}

	if !s.cache.GameStarted {
		err := s.mutateDocument(func(doc *room.Document) error {
			if doc.Player(s.PlayerID) == nil {
				p := doc.EnsurePlayer(s.PlayerID)
				p.Name = s.PlayerName
				p.LastUpdate = s.nowMillis()
			}
			if len(doc.TurnOrder) == 0 {
				for id := range doc.Players {
					doc.TurnOrder = append(doc.TurnOrder, id)
				}
			}
			if !contains(doc.TurnOrder, s.PlayerID) {
				doc.TurnOrder = append(doc.TurnOrder, s.PlayerID)
			}
			return nil
		})
		if err != nil {
			s.teardown()
			return err
		}
		s.syncMirrors(s.cache)
	}

	s.logger.Info("joined room",
		zap.String("room", s.RoomCode),
		zap.String("player_id", s.PlayerID),
	)
	return nil
}

// listen subscribes to the room and waits for the first snapshot. A listener
// that never resolves within the budget is reported as room-not-found; an
// adapter that never became ready surfaces as transport-unavailable from the
// Subscribe call itself.
func (s *Session) listen(ctx context.Context) error {
	sub, err := s.store.Subscribe(ctx, s.RoomCode, func(doc *room.Document) {
		select {
		case s.snapshots <- doc:
		default:
			// Mailbox full: drop, the polling fallback re-delivers.
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.sub = sub

	select {
	case doc := <-s.snapshots:
		s.Reconcile(doc)
		return nil
	case <-time.After(transport.FirstSnapshotTimeout):
		sub.Unsubscribe()
		return transport.ErrRoomNotFound
	case <-ctx.Done():
		sub.Unsubscribe()
		return ctx.Err()
	}
}

// Run drives the reconciliation loop until ctx is cancelled: push snapshots
// and the fixed-cadence polling fallback both funnel into the same
// single-threaded Reconcile entry point.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case doc := <-s.snapshots:
			s.Reconcile(doc)
		case <-ticker.C:
			doc, err := s.store.FetchCurrent(ctx, s.RoomCode)
			if err != nil {
				s.logger.Warn("poll fetch failed", zap.Error(err))
				continue
			}
			if doc != nil {
				s.Reconcile(doc)
			}
		}
	}
}

// Leave unsubscribes and drops back to solo mode. In-flight writes are not
// awaited; the abandoned room document is never deleted.
func (s *Session) Leave() {
	if !s.Multiplayer {
		return
	}
	s.logger.Info("leaving room", zap.String("room", s.RoomCode))
	s.teardown()
	s.notifier.StateChanged()
}

func (s *Session) teardown() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.Multiplayer = false
	s.IsHost = false
	s.RoomCode = ""
	s.cache = nil
	s.TurnOrder = nil
	s.CurrentTurn = 0
	s.GameStarted = false
	s.Combat = nil
	s.pending = NewRequestTracker()
}

// mutateDocument is the single read-modify-write seam against the shared
// document. It applies fn to the cached snapshot and writes the whole
// document back, last-write-wins; a stronger scheme (version field, per-key
// merge) would replace only this method. A failed write is logged and not
// retried: local optimistic state diverges until the next successful write.
func (s *Session) mutateDocument(fn func(doc *room.Document) error) error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	if s.cache == nil {
		return ErrRoomUnavailable
	}
	if err := fn(s.cache); err != nil {
		return err
	}
	if err := s.store.Write(context.Background(), s.RoomCode, s.cache); err != nil {
		s.logger.Error("document write failed",
			zap.String("room", s.RoomCode),
			zap.Error(err),
		)
	}
	return nil
}

// publishEvent appends one reveal event describing a local action. The
// common header fields are filled in here; callers set only the tag and its
// payload.
func (s *Session) publishEvent(ev room.RevealEvent) {
	if !s.Multiplayer {
		return
	}
	err := s.mutateDocument(func(doc *room.Document) error {
		doc.AppendReveal(s.stampEvent(ev))
		return nil
	})
	if err != nil {
		s.logger.Debug("event not published", zap.String("action", string(ev.Action)), zap.Error(err))
	}
}

// publishPlayerState pushes this player's shared slice (name, deck, hp,
// counts, discard pile, optionally hand, special card) into the document.
// extra, when non-nil, is applied in the same write so the state delta and
// its reveal event land atomically.
func (s *Session) publishPlayerState(extra *room.RevealEvent) {
	if !s.Multiplayer {
		return
	}
	err := s.mutateDocument(func(doc *room.Document) error {
		s.applyPlayerState(doc)
		if extra != nil {
			doc.AppendReveal(s.stampEvent(*extra))
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("player state not published", zap.Error(err))
	}
}

// applyPlayerState writes this player's shared slice into the document. It
// runs inside a mutateDocument callback. The shared discard pile covers both
// the discard and the intermediate zone: state publication replaces the whole
// entry, so every card other players may browse or take must be derivable
// from local zones or it would vanish on the next write.
func (s *Session) applyPlayerState(doc *room.Document) {
	p := doc.EnsurePlayer(s.PlayerID)
	p.Name = s.PlayerName
	p.DeckKey = s.Local.DeckKey
	p.HP = copyHP(s.Local.HP)
	p.CardCounts = room.CardCounts{
		Draw:         len(s.Local.Draw),
		Hand:         len(s.Local.Hand),
		Staged:       len(s.Local.Staged),
		Intermediate: len(s.Local.Intermediate),
		Discard:      len(s.Local.Discard),
	}
	p.DiscardCards = s.sharedCards(append(append([]room.Card(nil), s.Local.Discard...), s.Local.Intermediate...))
	if s.Local.HandShared {
		p.HandCards = s.sharedCards(s.Local.Hand)
	}
	p.SpecialCurrent = s.Local.SpecialCurrent
	p.LastUpdate = s.nowMillis()
}

// stampEvent fills the common header fields on an outgoing reveal event.
func (s *Session) stampEvent(ev room.RevealEvent) room.RevealEvent {
	ev.PlayerID = s.PlayerID
	ev.PlayerName = s.PlayerName
	ev.Timestamp = s.nowMillis()
	return ev
}

// sharedCards copies a zone for publication, stamping the origin deck key so
// takers can track card provenance.
func (s *Session) sharedCards(zone []room.Card) []room.Card {
	out := make([]room.Card, len(zone))
	for i, c := range zone {
		if c.DeckKey == "" {
			c.DeckKey = s.Local.DeckKey
		}
		out[i] = c
	}
	return out
}

func copyHP(hp map[string]int) map[string]int {
	out := make(map[string]int, len(hp))
	for k, v := range hp {
		out[k] = v
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
