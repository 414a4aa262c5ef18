package session

import (
	"reflect"

	"github.com/decktable/decktable-go/internal/room"
)

// Reconcile merges a freshly received document snapshot into this client's
// state. Both the push subscription and the polling fallback land here; the
// method is idempotent, so redundant calls with the same snapshot produce no
// additional side effects or duplicate notifications.
func (s *Session) Reconcile(doc *room.Document) {
	if !s.Multiplayer || doc == nil {
		return
	}

	// Capture this player's combat cards before the mirror overwrite: if a
	// remote clear swept them, they must be reclaimed into a local zone or
	// the next state publication would lose them.
	swept := s.ownCombatCards()

	// The document is authoritative for turn order, cursor, start flag and
	// combat: no local speculative state exists for them.
	changed := s.syncMirrors(doc)

	// Discard reconciliation runs on every pass, not only on explicit
	// events: another player's take-from-discard can only ever land in the
	// shared document, never in this client's memory.
	if s.reconcileDiscard(doc) {
		changed = true
	}

	s.cache = doc

	if len(swept) > 0 && len(s.ownCombatCards()) == 0 {
		s.routeToPile(swept)
		s.publishPlayerState(nil)
		changed = true
	}

	if changed {
		s.notifier.StateChanged()
	}

	s.processReveals(doc)
}

// ownCombatCards returns this player's cards in the combat mirror, nil when
// absent.
func (s *Session) ownCombatCards() []room.Card {
	entry, ok := s.Combat[s.PlayerID]
	if !ok || entry == nil {
		return nil
	}
	return append([]room.Card(nil), entry.Cards...)
}

// syncMirrors overwrites the authoritative mirrors from the snapshot and
// reports whether anything observable changed.
func (s *Session) syncMirrors(doc *room.Document) bool {
	changed := false

	if !stringSliceEqual(s.TurnOrder, doc.TurnOrder) {
		s.TurnOrder = append([]string(nil), doc.TurnOrder...)
		changed = true
	}
	if s.CurrentTurn != doc.CurrentTurn {
		s.CurrentTurn = doc.CurrentTurn
		changed = true
	}
	if s.GameStarted != doc.GameStarted {
		s.GameStarted = doc.GameStarted
		changed = true
	}

	combat := room.NormalizeCombat(doc.Combat, doc.Players)
	if !reflect.DeepEqual(s.Combat, combat) {
		s.Combat = combat
		changed = true
	}

	return changed
}

// reconcileDiscard trims the local discard and intermediate zones down to
// the snapshot's authoritative shared-pile uid set for this player. Both
// zones feed the published pile, so a taker can remove from either. This is
// the one place where another actor's write can shrink one of this client's
// own zones.
func (s *Session) reconcileDiscard(doc *room.Document) bool {
	self := doc.Player(s.PlayerID)
	if self == nil {
		return false
	}
	authoritative := make(map[string]bool, len(self.DiscardCards))
	for _, c := range self.DiscardCards {
		authoritative[c.UID] = true
	}

	changed := false
	if kept, shrunk := keepKnown(s.Local.Discard, authoritative); shrunk {
		s.Local.Discard = kept
		changed = true
	}
	if kept, shrunk := keepKnown(s.Local.Intermediate, authoritative); shrunk {
		s.Local.Intermediate = kept
		changed = true
	}
	return changed
}

func keepKnown(zone []room.Card, known map[string]bool) ([]room.Card, bool) {
	kept := zone[:0]
	for _, c := range zone {
		if known[c.UID] {
			kept = append(kept, c)
		}
	}
	return kept, len(kept) != len(zone)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
