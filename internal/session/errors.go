package session

import "errors"

var (
	// ErrNotInMultiplayer is returned by intents that only make sense while
	// connected to a room.
	ErrNotInMultiplayer = errors.New("session: not in a multiplayer room")
	// ErrRoomUnavailable means no room snapshot has been received yet, so a
	// shared-document mutation has nothing to apply against.
	ErrRoomUnavailable = errors.New("session: room data unavailable")
	// ErrAlreadyTaken means the targeted card was removed by a concurrent
	// remote write before the action could apply.
	ErrAlreadyTaken = errors.New("session: card already taken")
	// ErrAlreadyInHand guards against duplicating a card in the local hand.
	ErrAlreadyInHand = errors.New("session: card already in hand")
	// ErrEmptyZone is returned when an intent targets an empty zone.
	ErrEmptyZone = errors.New("session: zone is empty")
	// ErrCardNotFound means the targeted uid is not in the expected zone.
	ErrCardNotFound = errors.New("session: card not in zone")
	// ErrNoDeck is returned by intents that need a selected deck.
	ErrNoDeck = errors.New("session: no deck selected")
	// ErrNotHost guards host-only operations.
	ErrNotHost = errors.New("session: host only")
	// ErrGameStarted guards pre-game operations after the one-way start.
	ErrGameStarted = errors.New("session: game already started")
	// ErrNotYourTurn guards turn-gated operations.
	ErrNotYourTurn = errors.New("session: not your turn")
	// ErrNoPendingRequest means there is no effect request to accept or
	// decline for the given requester.
	ErrNoPendingRequest = errors.New("session: no pending request")
)
