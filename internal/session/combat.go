package session

import (
	"github.com/decktable/decktable-go/internal/room"
)

// Combat zone operations. Every write touches only this player's own combat
// key; the clear operation is the one exception, since any player may sweep
// the whole zone.

// AddToCombat moves one card from hand into this player's combat entry.
// Adding never reveals: the entry stays face down until RevealCombat.
func (s *Session) AddToCombat(uid string) error {
	return s.addToCombat([]string{uid}, s.consumeRandomMark(uid))
}

// AddSelectedToCombat moves every selected hand card into combat and clears
// the selection.
func (s *Session) AddSelectedToCombat() error {
	uids := s.selectedIn(s.Local.Hand)
	if len(uids) == 0 {
		return ErrCardNotFound
	}
	if err := s.addToCombat(uids, false); err != nil {
		return err
	}
	s.clearSelection()
	return nil
}

// AddRandomToCombat picks a uniformly random hand card and commits it to
// combat, marking the resulting event as a random pick.
func (s *Session) AddRandomToCombat() error {
	pick, err := s.PickRandom(ZoneHand)
	if err != nil {
		return err
	}
	return s.AddToCombat(pick.UID)
}

func (s *Session) addToCombat(uids []string, random bool) error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}

	var moved []room.Card
	for _, uid := range uids {
		next, card := removeByUID(s.Local.Hand, uid)
		if card == nil {
			continue
		}
		s.Local.Hand = next
		moved = append(moved, *card)
	}
	if len(moved) == 0 {
		return ErrCardNotFound
	}

	err := s.mutateDocument(func(doc *room.Document) error {
		entry := doc.EnsureCombatEntry(s.PlayerID)
		entry.Cards = append(entry.Cards, s.sharedCards(moved)...)
		s.applyPlayerState(doc)
		doc.AppendReveal(s.stampEvent(room.RevealEvent{
			Action: room.ActionAddedToCombat,
			Count:  len(moved),
			Random: random,
		}))
		return nil
	})
	if err != nil {
		return err
	}
	s.syncMirrors(s.cache)
	s.notifier.StateChanged()
	return nil
}

// RevealCombat flips this player's combat entry face up. The flag is one-way:
// cards added after the reveal are immediately visible too.
func (s *Session) RevealCombat() error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	err := s.mutateDocument(func(doc *room.Document) error {
		entry := doc.EnsureCombatEntry(s.PlayerID)
		if len(entry.Cards) == 0 {
			return ErrEmptyZone
		}
		entry.Revealed = true
		doc.AppendReveal(s.stampEvent(room.RevealEvent{
			Action: room.ActionCombatReveal,
			Cards:  append([]room.Card(nil), entry.Cards...),
		}))
		return nil
	})
	if err != nil {
		return err
	}
	s.syncMirrors(s.cache)
	s.notifier.StateChanged()
	return nil
}

// ClearCombat sweeps the whole combat zone. Every entry's cards move to the
// owning player's shared discard pile; this player's own cards additionally
// land in the local discard, or in the intermediate zone when the active deck
// defines one. Any player may clear, not just the entries' owners.
func (s *Session) ClearCombat() error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}

	err := s.mutateDocument(func(doc *room.Document) error {
		combat := room.NormalizeCombat(doc.Combat, doc.Players)
		if combat == nil {
			return ErrEmptyZone
		}
		for ownerID, entry := range combat {
			if len(entry.Cards) == 0 {
				continue
			}
			if ownerID == s.PlayerID {
				s.routeToPile(entry.Cards)
				continue
			}
			owner := doc.EnsurePlayer(ownerID)
			owner.DiscardCards = append(owner.DiscardCards, entry.Cards...)
			owner.CardCounts.Discard = len(owner.DiscardCards)
		}
		doc.Combat = nil
		// applyPlayerState republishes the shared pile, so the own swept
		// cards land in discardCards regardless of which zone they routed to.
		s.applyPlayerState(doc)
		doc.AppendReveal(s.stampEvent(room.RevealEvent{
			Action: room.ActionCombatCleared,
		}))
		return nil
	})
	if err != nil {
		return err
	}
	s.Combat = nil
	s.notifier.StateChanged()
	return nil
}

// routeToPile moves cards into the local pile leaving play: the intermediate
// zone when the active deck has one, the discard pile otherwise. Played,
// discarded and swept combat cards all funnel through here.
func (s *Session) routeToPile(cards []room.Card) {
	if d := s.ActiveDeck(); d != nil && d.HasIntermediateZone() {
		s.Local.Intermediate = append(s.Local.Intermediate, cards...)
		return
	}
	s.Local.Discard = append(s.Local.Discard, cards...)
}

// selection helpers shared by the multi-card intents

func (s *Session) selectedIn(zone []room.Card) []string {
	var uids []string
	for _, c := range zone {
		if s.Local.Selected[c.UID] {
			uids = append(uids, c.UID)
		}
	}
	return uids
}

func (s *Session) clearSelection() {
	s.Local.Selected = make(map[string]bool)
}
