package session

import (
	"fmt"

	"github.com/decktable/decktable-go/internal/room"
)

// Turn order machine. Before the start the host controls the order and joins
// append to it; StartGame is a one-way transition, after which the cursor
// advances round-robin forever. There is no terminal state: win conditions
// live with the players, not the engine.

// StartGame flips the room into its in-progress state. Host only, one-way.
func (s *Session) StartGame() error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	if !s.IsHost {
		return ErrNotHost
	}
	if s.GameStarted {
		return ErrGameStarted
	}
	err := s.mutateDocument(func(doc *room.Document) error {
		if doc.GameStarted {
			return ErrGameStarted
		}
		doc.GameStarted = true
		doc.CurrentTurn = 0
		return nil
	})
	if err != nil {
		return err
	}
	s.syncMirrors(s.cache)
	s.notifier.LogEntry("Game started", LogTurn)
	s.notifier.StateChanged()
	return nil
}

// RotateOrder moves the first player in the turn order to the back. Host
// only, and only before the game starts.
func (s *Session) RotateOrder() error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	if !s.IsHost {
		return ErrNotHost
	}
	if s.GameStarted {
		return ErrGameStarted
	}
	err := s.mutateDocument(func(doc *room.Document) error {
		if len(doc.TurnOrder) < 2 {
			return nil
		}
		doc.TurnOrder = append(doc.TurnOrder[1:], doc.TurnOrder[0])
		return nil
	})
	if err != nil {
		return err
	}
	s.syncMirrors(s.cache)
	s.notifier.StateChanged()
	return nil
}

// EndTurn advances the round-robin cursor and announces the hand-off. Only
// the player the cursor points at may end the turn.
func (s *Session) EndTurn() error {
	if !s.Multiplayer {
		return ErrNotInMultiplayer
	}
	if !s.MyTurn() {
		return ErrNotYourTurn
	}
	var nextName string
	err := s.mutateDocument(func(doc *room.Document) error {
		if len(doc.TurnOrder) == 0 {
			return ErrRoomUnavailable
		}
		doc.CurrentTurn = (doc.CurrentTurn + 1) % len(doc.TurnOrder)
		if next := doc.Player(doc.ActivePlayer()); next != nil {
			nextName = next.Name
		}
		doc.AppendReveal(s.stampEvent(room.RevealEvent{
			Action: room.ActionTurnEnd,
		}))
		return nil
	})
	if err != nil {
		return err
	}
	s.syncMirrors(s.cache)
	if nextName != "" {
		s.notifier.LogEntry(fmt.Sprintf("%s ended their turn, %s is up", s.PlayerName, nextName), LogTurn)
	}
	s.notifier.StateChanged()
	return nil
}
