package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/decktable/decktable-go/internal/room"
)

// processReveals walks the snapshot's event log and renders everything newer
// than the watermark that was authored by someone else. Self-authored events
// are never re-notified. The watermark advances to the timestamp of the last
// selected event; the log is chronological by construction, so that equals
// the newest.
func (s *Session) processReveals(doc *room.Document) {
	if len(doc.Reveals) == 0 {
		return
	}

	var selected []room.RevealEvent
	for _, ev := range doc.Reveals {
		if ev.Timestamp > s.Local.LastSeenRevealTimestamp && ev.PlayerID != s.PlayerID {
			selected = append(selected, ev)
		}
	}
	if len(selected) == 0 {
		return
	}

	s.Local.LastSeenRevealTimestamp = selected[len(selected)-1].Timestamp

	var big *room.RevealEvent
	for i := range selected {
		ev := selected[i]

		text, kind := describeEvent(ev)
		if text != "" {
			s.notifier.LogEntry(text, kind)
		}

		s.applyEventEffects(ev)

		// Exactly one prominent popup per pass: the most recent
		// played/discarded/special-activation event carrying cards.
		switch ev.Action {
		case room.ActionPlayed, room.ActionDiscarded, room.ActionActivatedSpecial:
			if len(ev.Cards) > 0 {
				big = &selected[i]
			}
		}
	}

	if big != nil {
		s.notifier.BigReveal(*big)
	}
}

// applyEventEffects handles the event tags that do more than render text:
// effect requests and responses, and victim-addressed mutations. The latter
// are the only channel by which another player's action reaches into this
// client's private zones.
func (s *Session) applyEventEffects(ev room.RevealEvent) {
	if ev.IsRequest() {
		if ev.VictimID == s.PlayerID {
			req := s.pending.Stage(ev, s.now())
			s.notifier.EffectRequest(req)
		}
		return
	}
	if ev.IsResponse() {
		if ev.RequesterID == s.PlayerID {
			s.notifier.EffectResponse(ev)
		}
		return
	}

	if ev.VictimID != s.PlayerID {
		return
	}

	switch ev.Action {
	case room.ActionForceDiscardHand:
		if card := s.takeLocal(&s.Local.Hand, ev); card != nil {
			s.Local.Discard = append(s.Local.Discard, *card)
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	case room.ActionForceShuffleToDeck:
		if card := s.takeLocal(&s.Local.Hand, ev); card != nil {
			s.Local.Draw = s.shuffleCards(append(s.Local.Draw, *card))
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	case room.ActionForcePeekDiscard:
		if card := s.takeLocal(&s.Local.Draw, ev); card != nil {
			s.Local.Discard = append(s.Local.Discard, *card)
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	case room.ActionForceDeckTakeToHand:
		// The requester already appended the card to their own hand; this
		// side only removes it from the deck.
		if card := s.takeLocal(&s.Local.Draw, ev); card != nil {
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	case room.ActionForceTakeFromHand:
		if card := s.takeLocal(&s.Local.Hand, ev); card != nil {
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	case room.ActionForcePeekReorder:
		if s.reorderDrawTop(ev.Order) {
			s.publishPlayerState(nil)
			s.notifier.StateChanged()
		}
	}
}

// takeLocal removes the event's target card from a local zone, matching by
// uid first and falling back to the card label. A miss means a concurrent
// action already moved the card; the effect degrades to a no-op.
func (s *Session) takeLocal(zone *[]room.Card, ev room.RevealEvent) *room.Card {
	if ev.CardUID != "" {
		if next, card := removeByUID(*zone, ev.CardUID); card != nil {
			*zone = next
			return card
		}
	}
	if ev.CardName != "" {
		for i, c := range *zone {
			if c.Label() == ev.CardName {
				card := c
				*zone = append((*zone)[:i:i], (*zone)[i+1:]...)
				return &card
			}
		}
	}
	s.logger.Debug("effect target not present",
		zap.String("action", string(ev.Action)),
		zap.String("card_uid", ev.CardUID),
	)
	return nil
}

// reorderDrawTop rearranges the top of the draw pile to match the requested
// uid order. Uids that no longer exist are skipped; cards not named keep
// their relative positions below the reordered block.
func (s *Session) reorderDrawTop(order []string) bool {
	if len(order) == 0 {
		return false
	}
	index := make(map[string]int, len(s.Local.Draw))
	for i, c := range s.Local.Draw {
		index[c.UID] = i
	}

	var top []room.Card
	taken := make(map[string]bool, len(order))
	for _, uid := range order {
		if i, ok := index[uid]; ok && !taken[uid] {
			top = append(top, s.Local.Draw[i])
			taken[uid] = true
		}
	}
	if len(top) == 0 {
		return false
	}
	rest := make([]room.Card, 0, len(s.Local.Draw)-len(top))
	for _, c := range s.Local.Draw {
		if !taken[c.UID] {
			rest = append(rest, c)
		}
	}
	s.Local.Draw = append(top, rest...)
	return true
}

// describeEvent renders one log line for an event. Unknown tags fall back to
// a generic description rather than failing.
func describeEvent(ev room.RevealEvent) (string, LogKind) {
	n := ev.PlayerName
	if n == "" {
		n = "Someone"
	}
	victim := ev.VictimName
	if victim == "" {
		victim = "someone"
	}
	cWord := countWord(ev.CardCount())
	cardName := ev.CardName
	if cardName == "" {
		cardName = "a card"
	}

	switch ev.Action {
	case room.ActionPlayed:
		if ev.Random {
			return n + " played a random card (random pick)", LogPlay
		}
		return n + " played " + cWord, LogPlay
	case room.ActionDiscarded:
		if ev.Random {
			return n + " discarded a random card (random pick)", LogDiscard
		}
		return n + " discarded " + cWord, LogDiscard
	case room.ActionDrew:
		return n + " drew " + cWord, LogDraw
	case room.ActionHPChange:
		dir := "decreased"
		if ev.Delta > 0 {
			dir = "increased"
		}
		return fmt.Sprintf("%s %s %s: %d -> %d HP", n, dir, ev.BarLabel, ev.From, ev.To), LogHP
	case room.ActionAddedToCombat:
		if ev.Random {
			return n + " added a random card to combat (random pick)", LogCombat
		}
		return n + " added " + cWord + " to combat", LogCombat
	case room.ActionCombatReveal:
		return n + " revealed their combat cards", LogCombat
	case room.ActionCombatCleared:
		return n + " cleared the combat zone", LogCombat
	case room.ActionReturnedToDeck:
		return n + " returned " + cWord + " to " + posLabel(ev.Pos), LogOther
	case room.ActionTookFromDiscard:
		from := ev.FromName
		if from == "" {
			from = "someone"
		}
		return n + " took " + quoted(cardName) + " from " + from + "'s discard", LogOther
	case room.ActionTookFromOwnPile:
		return n + " recovered " + quoted(cardName) + " from their own discard", LogOther
	case room.ActionMovedZoneToHand:
		return n + " moved " + quoted(cardName) + " to hand", LogOther
	case room.ActionMovedZoneToPile:
		return n + " moved " + quoted(cardName) + " to discard", LogDiscard
	case room.ActionShuffledHandIn:
		return fmt.Sprintf("%s shuffled hand (%d cards) into deck", n, ev.Count), LogOther
	case room.ActionShuffledPileIn:
		return fmt.Sprintf("%s shuffled discard (%d cards) into deck", n, ev.Count), LogOther
	case room.ActionUsedSpecial:
		return n + " used " + specialLabel(ev) + specialSuffix(ev), LogOther
	case room.ActionActivatedSpecial:
		return n + " activated " + specialLabel(ev) + specialSuffix(ev), LogOther
	case room.ActionTurnEnd:
		return n + " ended their turn", LogTurn
	case room.ActionPeekedDeck:
		return fmt.Sprintf("%s peeked at the top %d of %s's deck", n, ev.Count, victim), LogOther
	case room.ActionMovedInDeck:
		return n + " rearranged their deck", LogOther
	case room.ActionDrawnFromPos:
		return fmt.Sprintf("%s drew the card at deck position %d", n, ev.Position+1), LogDraw
	case room.ActionDeckShareRequest:
		return fmt.Sprintf("%s asked to see the top %d of %s's deck", n, ev.Count, victim), LogOther
	case room.ActionDeckShareResponse:
		return fmt.Sprintf("%s shared their top %d cards", n, len(ev.TopCards)), LogOther
	case room.ActionHandShareRequest:
		return n + " asked to view " + victim + "'s hand", LogOther
	case room.ActionHandShareResponse:
		return fmt.Sprintf("%s shared their hand (%d cards)", n, len(ev.HandCards)), LogOther
	case room.ActionForceDiscardHand:
		return n + " discarded " + quoted(cardName) + " from " + victim + "'s hand", LogDiscard
	case room.ActionForceShuffleToDeck:
		return n + " shuffled " + quoted(cardName) + " from " + victim + "'s hand into their deck", LogOther
	case room.ActionForcePeekDiscard:
		return n + " discarded " + quoted(cardName) + " from " + victim + "'s deck", LogDiscard
	case room.ActionForcePeekReorder:
		return n + " reordered the top of " + victim + "'s deck", LogOther
	case room.ActionForceDeckTakeToHand:
		return n + " took " + quoted(cardName) + " from " + victim + "'s deck", LogOther
	case room.ActionForceTakeFromHand:
		return n + " took " + quoted(cardName) + " from " + victim + "'s hand", LogOther
	default:
		return n + " performed an action", LogOther
	}
}

func countWord(n int) string {
	if n == 1 {
		return "1 card"
	}
	return fmt.Sprintf("%d cards", n)
}

func posLabel(pos string) string {
	switch pos {
	case "top":
		return "top of deck"
	case "bottom":
		return "bottom of deck"
	default:
		return "shuffled into deck"
	}
}

func quoted(name string) string {
	return "\"" + name + "\""
}

func specialLabel(ev room.RevealEvent) string {
	if ev.SpecialLabel != "" {
		return ev.SpecialLabel
	}
	return "special ability"
}

func specialSuffix(ev room.RevealEvent) string {
	if ev.CardName != "" {
		return ": " + ev.CardName
	}
	return ""
}
