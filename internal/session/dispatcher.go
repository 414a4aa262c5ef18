package session

import (
	"fmt"

	"github.com/decktable/decktable-go/internal/room"
)

// Action dispatch: every intent mutates local zones first, then publishes the
// player-state delta and at most one reveal event in a single best-effort
// write. Failures degrade to local-only state; the next successful write
// re-converges.

// SelectDeck resets the local zones from a catalog deck: shuffled draw pile,
// starting HP, and the special-ability pile when the deck has one.
func (s *Session) SelectDeck(key string) error {
	d, ok := s.catalog.Deck(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoDeck, key)
	}
	s.Local.DeckKey = key
	s.Local.Draw = d.BuildDrawPile(s.rng)
	s.Local.Hand = nil
	s.Local.Staged = nil
	s.Local.Discard = nil
	s.Local.Intermediate = nil
	s.Local.HP = d.StartingHP()
	s.clearSelection()

	s.Local.SpecialDeck = nil
	s.Local.SpecialDiscard = nil
	s.Local.SpecialCurrent = nil
	s.Local.SpecialMode = ""
	if d.SpecialAbility.Enabled {
		s.Local.SpecialMode = d.SpecialAbility.Mode
		for i, def := range d.SpecialAbility.Deck {
			s.Local.SpecialDeck = append(s.Local.SpecialDeck, room.Card{
				Image:   def.Image,
				UID:     fmt.Sprintf("%s_sa_%s_%d", d.Key, def.ID, i),
				DeckKey: d.Key,
			})
		}
		if len(s.Local.SpecialDeck) > 0 {
			current := s.Local.SpecialDeck[0]
			s.Local.SpecialDeck = s.Local.SpecialDeck[1:]
			s.Local.SpecialCurrent = &current
		}
	}

	if s.Multiplayer {
		s.publishPlayerState(nil)
	}
	s.notifier.StateChanged()
	return nil
}

// Draw moves n cards from the top of the draw pile into the hand.
func (s *Session) Draw(n int) error {
	if n <= 0 || len(s.Local.Draw) == 0 {
		return ErrEmptyZone
	}
	if n > len(s.Local.Draw) {
		n = len(s.Local.Draw)
	}
	s.Local.Hand = append(s.Local.Hand, s.Local.Draw[:n]...)
	s.Local.Draw = s.Local.Draw[n:]

	s.notifier.LogEntry(fmt.Sprintf("You drew %s", countWord(n)), LogDraw)
	s.publishPlayerState(&room.RevealEvent{Action: room.ActionDrew, Count: n})
	s.notifier.StateChanged()
	return nil
}

// DrawFromPosition pulls the card at a specific deck position into the hand.
// Positions are zero-based from the top.
func (s *Session) DrawFromPosition(pos int) error {
	if pos < 0 || pos >= len(s.Local.Draw) {
		return ErrCardNotFound
	}
	card := s.Local.Draw[pos]
	s.Local.Draw = append(s.Local.Draw[:pos:pos], s.Local.Draw[pos+1:]...)
	s.Local.Hand = append(s.Local.Hand, card)

	s.notifier.LogEntry(fmt.Sprintf("You drew the card at deck position %d", pos+1), LogDraw)
	s.publishPlayerState(&room.RevealEvent{Action: room.ActionDrawnFromPos, Position: pos})
	s.notifier.StateChanged()
	return nil
}

// Play commits one card from the hand or the table face up: it routes into
// the discard pile (or the intermediate zone when the active deck has one)
// and the room sees which card it was. Playing is discarding with a reveal;
// the shared pile makes played cards browsable and takeable afterwards.
func (s *Session) Play(uid string) error {
	return s.play([]string{uid}, s.consumeRandomMark(uid))
}

// PlaySelected plays every selected hand or table card and clears the
// selection.
func (s *Session) PlaySelected() error {
	uids := append(s.selectedIn(s.Local.Hand), s.selectedIn(s.Local.Staged)...)
	if len(uids) == 0 {
		return ErrCardNotFound
	}
	if err := s.play(uids, false); err != nil {
		return err
	}
	s.clearSelection()
	return nil
}

// PlayRandom plays a uniformly random hand card, marking the reveal event as
// a random pick.
func (s *Session) PlayRandom() error {
	pick, err := s.PickRandom(ZoneHand)
	if err != nil {
		return err
	}
	return s.Play(pick.UID)
}

func (s *Session) play(uids []string, random bool) error {
	moved := s.moveOut(&s.Local.Hand, uids)
	moved = append(moved, s.moveOut(&s.Local.Staged, uids)...)
	if len(moved) == 0 {
		return ErrCardNotFound
	}
	s.routeToPile(moved)

	if random {
		s.notifier.LogEntry("You played a random card (random pick)", LogPlay)
	} else {
		s.notifier.LogEntry(fmt.Sprintf("You played %s", countWord(len(moved))), LogPlay)
	}
	s.publishPlayerState(&room.RevealEvent{
		Action: room.ActionPlayed,
		Cards:  s.sharedCards(moved),
		Random: random,
	})
	s.notifier.StateChanged()
	return nil
}

// Discard moves a card from the hand or the table into the discard pile, or
// the intermediate zone when the active deck has one, and reveals it.
func (s *Session) Discard(uid string) error {
	return s.discard([]string{uid}, s.consumeRandomMark(uid))
}

// DiscardSelected discards every selected card in hand or on the table.
func (s *Session) DiscardSelected() error {
	uids := append(s.selectedIn(s.Local.Hand), s.selectedIn(s.Local.Staged)...)
	if len(uids) == 0 {
		return ErrCardNotFound
	}
	if err := s.discard(uids, false); err != nil {
		return err
	}
	s.clearSelection()
	return nil
}

// DiscardRandom discards a uniformly random hand card.
func (s *Session) DiscardRandom() error {
	pick, err := s.PickRandom(ZoneHand)
	if err != nil {
		return err
	}
	return s.Discard(pick.UID)
}

// Zone names addressable by PickRandom.
const (
	ZoneDraw         = "draw"
	ZoneHand         = "hand"
	ZoneIntermediate = "intermediate"
	ZoneDiscard      = "discard"
)

// PickRandom chooses a uniformly random card from one of this player's zones
// and marks it: the next Play, Discard or AddToCombat that targets the marked
// card announces itself as a random pick. Any other action drops the mark.
func (s *Session) PickRandom(zone string) (*room.Card, error) {
	var pool []room.Card
	switch zone {
	case ZoneDraw:
		pool = s.Local.Draw
	case ZoneHand:
		pool = s.Local.Hand
	case ZoneIntermediate:
		pool = s.Local.Intermediate
	case ZoneDiscard:
		pool = s.Local.Discard
	default:
		return nil, fmt.Errorf("%w: unknown zone %q", ErrCardNotFound, zone)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyZone
	}
	pick := pool[s.rng.Intn(len(pool))]
	s.randomPick = pick.UID
	return &pick, nil
}

// consumeRandomMark reports whether uid is the currently marked random pick
// and clears the mark either way.
func (s *Session) consumeRandomMark(uid string) bool {
	marked := s.randomPick != "" && s.randomPick == uid
	s.randomPick = ""
	return marked
}

func (s *Session) discard(uids []string, random bool) error {
	moved := s.moveOut(&s.Local.Hand, uids)
	moved = append(moved, s.moveOut(&s.Local.Staged, uids)...)
	if len(moved) == 0 {
		return ErrCardNotFound
	}
	s.routeToPile(moved)

	if random {
		s.notifier.LogEntry("You discarded a random card (random pick)", LogDiscard)
	} else {
		s.notifier.LogEntry(fmt.Sprintf("You discarded %s", countWord(len(moved))), LogDiscard)
	}
	s.publishPlayerState(&room.RevealEvent{
		Action: room.ActionDiscarded,
		Cards:  s.sharedCards(moved),
		Random: random,
	})
	s.notifier.StateChanged()
	return nil
}

// Stage moves a hand card onto the table without announcing it: only the
// shared counts change.
func (s *Session) Stage(uid string) error {
	next, card := removeByUID(s.Local.Hand, uid)
	if card == nil {
		return ErrCardNotFound
	}
	s.Local.Hand = next
	s.Local.Staged = append(s.Local.Staged, *card)
	s.publishPlayerState(nil)
	s.notifier.StateChanged()
	return nil
}

// Unstage returns a table card to the hand.
func (s *Session) Unstage(uid string) error {
	next, card := removeByUID(s.Local.Staged, uid)
	if card == nil {
		return ErrCardNotFound
	}
	s.Local.Staged = next
	s.Local.Hand = append(s.Local.Hand, *card)
	s.publishPlayerState(nil)
	s.notifier.StateChanged()
	return nil
}

// Deck positions accepted by ReturnToDeck.
const (
	DeckTop     = "top"
	DeckBottom  = "bottom"
	DeckShuffle = "shuffle"
)

// ReturnToDeck moves a card from the hand or table back into the draw pile,
// on top, on the bottom, or shuffled in.
func (s *Session) ReturnToDeck(uid, pos string) error {
	return s.returnToDeck([]string{uid}, pos)
}

// ReturnSelectedToDeck returns every selected card to the draw pile.
func (s *Session) ReturnSelectedToDeck(pos string) error {
	uids := append(s.selectedIn(s.Local.Hand), s.selectedIn(s.Local.Staged)...)
	if len(uids) == 0 {
		return ErrCardNotFound
	}
	if err := s.returnToDeck(uids, pos); err != nil {
		return err
	}
	s.clearSelection()
	return nil
}

func (s *Session) returnToDeck(uids []string, pos string) error {
	moved := s.moveOut(&s.Local.Hand, uids)
	moved = append(moved, s.moveOut(&s.Local.Staged, uids)...)
	if len(moved) == 0 {
		return ErrCardNotFound
	}
	switch pos {
	case DeckTop:
		s.Local.Draw = append(moved, s.Local.Draw...)
	case DeckBottom:
		s.Local.Draw = append(s.Local.Draw, moved...)
	default:
		pos = DeckShuffle
		s.Local.Draw = s.shuffleCards(append(s.Local.Draw, moved...))
	}

	s.notifier.LogEntry(fmt.Sprintf("You returned %s to %s", countWord(len(moved)), posLabel(pos)), LogOther)
	s.publishPlayerState(&room.RevealEvent{
		Action: room.ActionReturnedToDeck,
		Count:  len(moved),
		Pos:    pos,
	})
	s.notifier.StateChanged()
	return nil
}

// ShuffleHandIn shuffles the whole hand back into the draw pile.
func (s *Session) ShuffleHandIn() error {
	n := len(s.Local.Hand)
	if n == 0 {
		return ErrEmptyZone
	}
	s.Local.Draw = s.shuffleCards(append(s.Local.Draw, s.Local.Hand...))
	s.Local.Hand = nil
	s.clearSelection()

	s.notifier.LogEntry(fmt.Sprintf("You shuffled your hand (%d cards) into the deck", n), LogOther)
	s.publishPlayerState(&room.RevealEvent{Action: room.ActionShuffledHandIn, Count: n})
	s.notifier.StateChanged()
	return nil
}

// ShuffleDiscardIn shuffles the whole discard pile back into the draw pile.
func (s *Session) ShuffleDiscardIn() error {
	n := len(s.Local.Discard)
	if n == 0 {
		return ErrEmptyZone
	}
	s.Local.Draw = s.shuffleCards(append(s.Local.Draw, s.Local.Discard...))
	s.Local.Discard = nil

	s.notifier.LogEntry(fmt.Sprintf("You shuffled your discard (%d cards) into the deck", n), LogOther)
	s.publishPlayerState(&room.RevealEvent{Action: room.ActionShuffledPileIn, Count: n})
	s.notifier.StateChanged()
	return nil
}

// ShuffleDraw reshuffles the draw pile in place. Only counts are shared, so
// no event is announced.
func (s *Session) ShuffleDraw() error {
	if len(s.Local.Draw) == 0 {
		return ErrEmptyZone
	}
	s.Local.Draw = s.shuffleCards(s.Local.Draw)
	s.notifier.StateChanged()
	return nil
}

// MoveInDeck moves a draw-pile card to a new position, announcing only that
// the deck was rearranged.
func (s *Session) MoveInDeck(uid string, toPos int) error {
	next, card := removeByUID(s.Local.Draw, uid)
	if card == nil {
		return ErrCardNotFound
	}
	if toPos < 0 {
		toPos = 0
	}
	if toPos > len(next) {
		toPos = len(next)
	}
	s.Local.Draw = append(next[:toPos:toPos], append([]room.Card{*card}, next[toPos:]...)...)

	s.publishEvent(room.RevealEvent{Action: room.ActionMovedInDeck})
	s.notifier.StateChanged()
	return nil
}

// MoveToHand pulls a card out of the intermediate zone into the hand.
func (s *Session) MoveToHand(uid string) error {
	next, card := removeByUID(s.Local.Intermediate, uid)
	if card == nil {
		return ErrCardNotFound
	}
	s.Local.Intermediate = next
	s.Local.Hand = append(s.Local.Hand, *card)

	s.publishPlayerState(&room.RevealEvent{
		Action:   room.ActionMovedZoneToHand,
		CardName: card.Label(),
	})
	s.notifier.StateChanged()
	return nil
}

// MoveToDiscard moves a card from the intermediate zone to the discard pile.
func (s *Session) MoveToDiscard(uid string) error {
	next, card := removeByUID(s.Local.Intermediate, uid)
	if card == nil {
		return ErrCardNotFound
	}
	s.Local.Intermediate = next
	s.Local.Discard = append(s.Local.Discard, *card)

	s.publishPlayerState(&room.RevealEvent{
		Action:   room.ActionMovedZoneToPile,
		CardName: card.Label(),
	})
	s.notifier.StateChanged()
	return nil
}

// HPChange adjusts one health bar by delta, clamped at zero, and announces
// the transition.
func (s *Session) HPChange(barID string, delta int) error {
	if delta == 0 {
		return nil
	}
	from := s.Local.HP[barID]
	to := from + delta
	if to < 0 {
		to = 0
	}
	if to == from {
		return nil
	}
	s.Local.HP[barID] = to

	label := barID
	if d := s.ActiveDeck(); d != nil {
		label = d.BarLabel(barID)
	}
	dir := "decreased"
	if to > from {
		dir = "increased"
	}
	s.notifier.LogEntry(fmt.Sprintf("You %s %s: %d -> %d HP", dir, label, from, to), LogHP)
	s.publishPlayerState(&room.RevealEvent{
		Action:   room.ActionHPChange,
		BarLabel: label,
		From:     from,
		To:       to,
		Delta:    to - from,
	})
	s.notifier.StateChanged()
	return nil
}

// TakeFromDiscard pulls a card out of any player's shared discard pile into
// this player's hand. The authoritative pile decides whether the card is
// still there: a concurrent taker wins and this call reports ErrAlreadyTaken.
func (s *Session) TakeFromDiscard(ownerID, uid string) error {
	if containsUID(s.Local.Hand, uid) {
		return ErrAlreadyInHand
	}

	if ownerID == s.PlayerID {
		// The published pile spans both local piles, so the card may live in
		// either one.
		next, card := removeByUID(s.Local.Discard, uid)
		if card != nil {
			s.Local.Discard = next
		} else {
			next, card = removeByUID(s.Local.Intermediate, uid)
			if card == nil {
				return ErrAlreadyTaken
			}
			s.Local.Intermediate = next
		}
		s.Local.Hand = append(s.Local.Hand, *card)
		s.publishPlayerState(&room.RevealEvent{
			Action:   room.ActionTookFromOwnPile,
			CardName: card.Label(),
		})
		s.notifier.StateChanged()
		return nil
	}

	var taken room.Card
	var fromName string
	err := s.mutateDocument(func(doc *room.Document) error {
		owner := doc.Player(ownerID)
		if owner == nil {
			return ErrAlreadyTaken
		}
		next, card := removeByUID(owner.DiscardCards, uid)
		if card == nil {
			return ErrAlreadyTaken
		}
		owner.DiscardCards = next
		owner.CardCounts.Discard = len(next)
		taken = *card
		fromName = owner.Name

		s.Local.Hand = append(s.Local.Hand, taken)
		s.applyPlayerState(doc)
		doc.AppendReveal(s.stampEvent(room.RevealEvent{
			Action:   room.ActionTookFromDiscard,
			CardName: taken.Label(),
			FromName: fromName,
		}))
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.LogEntry(fmt.Sprintf("You took %s from %s's discard", quoted(taken.Label()), fromName), LogOther)
	s.notifier.StateChanged()
	return nil
}

// ShareHand opts in to publishing the hand contents. The opt-in is one-way
// for the rest of the session.
func (s *Session) ShareHand() {
	if s.Local.HandShared {
		return
	}
	s.Local.HandShared = true
	s.publishPlayerState(nil)
	s.notifier.StateChanged()
}

// UseSpecial consumes the current special-ability card (discard mode): it
// moves to the special discard and the next deck card becomes current.
func (s *Session) UseSpecial() error {
	if s.Local.SpecialCurrent == nil {
		return ErrEmptyZone
	}
	used := *s.Local.SpecialCurrent
	s.Local.SpecialDiscard = append(s.Local.SpecialDiscard, used)
	if len(s.Local.SpecialDeck) > 0 {
		next := s.Local.SpecialDeck[0]
		s.Local.SpecialDeck = s.Local.SpecialDeck[1:]
		s.Local.SpecialCurrent = &next
	} else {
		s.Local.SpecialCurrent = nil
	}

	s.publishPlayerState(&room.RevealEvent{
		Action:       room.ActionUsedSpecial,
		SpecialLabel: s.specialAbilityLabel(),
		CardName:     used.Label(),
	})
	s.notifier.StateChanged()
	return nil
}

// ActivateSpecial cycles to the next special-ability card without consuming
// (swap mode): the current card goes to the back of the pile.
func (s *Session) ActivateSpecial() error {
	if s.Local.SpecialCurrent == nil {
		return ErrEmptyZone
	}
	if len(s.Local.SpecialDeck) > 0 {
		prev := *s.Local.SpecialCurrent
		next := s.Local.SpecialDeck[0]
		s.Local.SpecialDeck = append(s.Local.SpecialDeck[1:], prev)
		s.Local.SpecialCurrent = &next
	}

	s.publishPlayerState(&room.RevealEvent{
		Action:       room.ActionActivatedSpecial,
		SpecialLabel: s.specialAbilityLabel(),
		Cards:        []room.Card{*s.Local.SpecialCurrent},
		CardName:     s.Local.SpecialCurrent.Label(),
	})
	s.notifier.StateChanged()
	return nil
}

func (s *Session) specialAbilityLabel() string {
	if d := s.ActiveDeck(); d != nil && d.SpecialAbility.Label != "" {
		return d.SpecialAbility.Label
	}
	return "special ability"
}

// moveOut removes the named uids from a zone, returning the removed cards in
// uid-argument order. Missing uids are skipped.
func (s *Session) moveOut(zone *[]room.Card, uids []string) []room.Card {
	var moved []room.Card
	for _, uid := range uids {
		next, card := removeByUID(*zone, uid)
		if card == nil {
			continue
		}
		*zone = next
		moved = append(moved, *card)
	}
	return moved
}
