package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/decktable/decktable-go/internal/room"
)

// Cross-player effects are two-phase and ride the reveal log: a request event
// addressed to the victim, then (on accept) a response event carrying a
// snapshot back to the requester. While browsing the snapshot the requester
// emits per-card follow-up events; the victim's own reconciler applies those
// to its private zones. Nothing here touches another player's local state
// directly.

// RequestDeckPeek asks a player to show the top count cards of their deck.
func (s *Session) RequestDeckPeek(victimID string, count int) error {
	if count <= 0 {
		return ErrEmptyZone
	}
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	s.publishEvent(room.RevealEvent{
		Action:     room.ActionDeckShareRequest,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
		Count:      count,
	})
	return nil
}

// RequestHandView asks a player to show their whole hand.
func (s *Session) RequestHandView(victimID string) error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	s.publishEvent(room.RevealEvent{
		Action:     room.ActionHandShareRequest,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
	})
	return nil
}

// AcceptRequest answers a staged effect request affirmatively: the snapshot
// payload is computed from the local zones right now (not at request time)
// and published addressed to the requester.
func (s *Session) AcceptRequest(requesterID string, action room.ActionType) error {
	req, err := s.pending.Resolve(requesterID, action, true)
	if err != nil {
		return err
	}

	switch action {
	case room.ActionDeckShareRequest:
		count := req.Event.Count
		if count > len(s.Local.Draw) {
			count = len(s.Local.Draw)
		}
		top := make([]room.Card, count)
		copy(top, s.Local.Draw[:count])
		s.publishEvent(room.RevealEvent{
			Action:      room.ActionDeckShareResponse,
			RequesterID: requesterID,
			Count:       count,
			TopCards:    top,
		})
	case room.ActionHandShareRequest:
		s.publishEvent(room.RevealEvent{
			Action:      room.ActionHandShareResponse,
			RequesterID: requesterID,
			HandCards:   s.sharedCards(s.Local.Hand),
		})
	default:
		return ErrNoPendingRequest
	}

	s.pending.MarkApplied(req)
	return nil
}

// DeclineRequest answers a staged effect request negatively. The response
// carries no payload; an empty response is the decline signal.
func (s *Session) DeclineRequest(requesterID string, action room.ActionType) error {
	req, err := s.pending.Resolve(requesterID, action, false)
	if err != nil {
		return err
	}
	response := room.ActionDeckShareResponse
	if action == room.ActionHandShareRequest {
		response = room.ActionHandShareResponse
	}
	s.publishEvent(room.RevealEvent{
		Action:      response,
		RequesterID: requesterID,
	})
	s.pending.MarkApplied(req)
	return nil
}

// FinishDeckPeek closes the requester's browsing session with the
// informational peeked-deck announcement.
func (s *Session) FinishDeckPeek(victimID string, count int) {
	s.publishEvent(room.RevealEvent{
		Action:     room.ActionPeekedDeck,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
		Count:      count,
	})
}

// ForceDiscardFromDeck discards one card out of a peeked deck snapshot. The
// victim's reconciler performs the actual move.
func (s *Session) ForceDiscardFromDeck(victimID string, card room.Card) {
	s.publishVictimEvent(room.ActionForcePeekDiscard, victimID, card)
}

// ReorderVictimDeck rearranges the peeked top of the victim's deck into the
// given uid order.
func (s *Session) ReorderVictimDeck(victimID string, order []string) {
	s.publishEvent(room.RevealEvent{
		Action:     room.ActionForcePeekReorder,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
		Order:      append([]string(nil), order...),
	})
}

// TakeFromVictimDeck moves a peeked deck card into this player's hand. The
// local copy gets a fresh uid suffix so it can never collide with the
// victim's original.
func (s *Session) TakeFromVictimDeck(victimID string, card room.Card) {
	s.takeFromVictim(room.ActionForceDeckTakeToHand, victimID, card)
}

// TakeFromVictimHand moves a viewed hand card into this player's hand.
func (s *Session) TakeFromVictimHand(victimID string, card room.Card) {
	s.takeFromVictim(room.ActionForceTakeFromHand, victimID, card)
}

// ForceDiscardFromHand discards one card out of a viewed hand snapshot.
func (s *Session) ForceDiscardFromHand(victimID string, card room.Card) {
	s.publishVictimEvent(room.ActionForceDiscardHand, victimID, card)
}

// ForceShuffleToDeck shuffles one viewed hand card back into the victim's
// deck.
func (s *Session) ForceShuffleToDeck(victimID string, card room.Card) {
	s.publishVictimEvent(room.ActionForceShuffleToDeck, victimID, card)
}

func (s *Session) takeFromVictim(action room.ActionType, victimID string, card room.Card) {
	local := card
	local.UID = transferUID(card.UID)
	s.Local.Hand = append(s.Local.Hand, local)

	s.publishPlayerState(&room.RevealEvent{
		Action:     action,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
		CardUID:    card.UID,
		CardName:   card.Label(),
	})
	s.notifier.StateChanged()
}

func (s *Session) publishVictimEvent(action room.ActionType, victimID string, card room.Card) {
	s.publishEvent(room.RevealEvent{
		Action:     action,
		VictimID:   victimID,
		VictimName: s.playerName(victimID),
		CardUID:    card.UID,
		CardName:   card.Label(),
	})
}

// playerName resolves a display name from the cached room document.
func (s *Session) playerName(playerID string) string {
	if s.cache == nil {
		return ""
	}
	if p := s.cache.Player(playerID); p != nil {
		return p.Name
	}
	return ""
}

// transferUID derives a fresh uid for a card crossing between players, so
// the transferred copy stays distinguishable from the original.
func transferUID(uid string) string {
	return fmt.Sprintf("%s_%s", uid, uuid.NewString()[:8])
}
