package session

import "github.com/decktable/decktable-go/internal/room"

// LogKind classifies action-log lines so the UI can style them.
type LogKind string

const (
	LogDraw    LogKind = "draw"
	LogPlay    LogKind = "play"
	LogDiscard LogKind = "discard"
	LogHP      LogKind = "hp"
	LogCombat  LogKind = "combat"
	LogTurn    LogKind = "turn"
	LogOther   LogKind = "other"
)

// Notifier is the seam towards the UI collaborator. The engine calls it with
// change notifications and rendered event descriptions; the UI re-renders in
// response. Implementations must be cheap and non-blocking.
type Notifier interface {
	// LogEntry appends one human-readable line to the action log.
	LogEntry(text string, kind LogKind)

	// StateChanged fires when reconciliation or a local intent changed
	// observable state (zones, turn order, combat, players).
	StateChanged()

	// BigReveal shows the single prominent popup for a reconciliation pass:
	// the most recent played/discarded/special-activation event in the batch.
	BigReveal(ev room.RevealEvent)

	// EffectRequest prompts this client, as the victim, with an incoming
	// cross-player effect request.
	EffectRequest(req *PendingRequest)

	// EffectResponse delivers a response payload addressed to this client
	// as the original requester, for interactive browsing.
	EffectResponse(ev room.RevealEvent)
}

// NopNotifier discards all notifications. Useful for headless sessions.
type NopNotifier struct{}

func (NopNotifier) LogEntry(string, LogKind)          {}
func (NopNotifier) StateChanged()                     {}
func (NopNotifier) BigReveal(room.RevealEvent)        {}
func (NopNotifier) EffectRequest(*PendingRequest)     {}
func (NopNotifier) EffectResponse(room.RevealEvent)   {}
