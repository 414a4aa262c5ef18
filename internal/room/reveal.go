package room

// ActionType tags a reveal event. The set is closed; renderers must keep a
// fallback arm for tags introduced by newer clients.
type ActionType string

const (
	ActionPlayed           ActionType = "played"
	ActionDiscarded        ActionType = "discarded"
	ActionDrew             ActionType = "drew"
	ActionHPChange         ActionType = "hp-change"
	ActionAddedToCombat    ActionType = "added-to-combat"
	ActionCombatReveal     ActionType = "combat-reveal"
	ActionCombatCleared    ActionType = "combat-cleared"
	ActionReturnedToDeck   ActionType = "returned-to-deck"
	ActionTookFromDiscard  ActionType = "took-from-discard"
	ActionTookFromOwnPile  ActionType = "took-from-own-discard"
	ActionMovedZoneToHand  ActionType = "moved-zone-to-hand"
	ActionMovedZoneToPile  ActionType = "moved-zone-to-discard"
	ActionShuffledHandIn   ActionType = "shuffled-hand-in"
	ActionShuffledPileIn   ActionType = "shuffled-discard-in"
	ActionUsedSpecial      ActionType = "used-special"
	ActionActivatedSpecial ActionType = "activated-special"
	ActionTurnEnd          ActionType = "turn-end"
	ActionPeekedDeck       ActionType = "peeked-deck"
	ActionMovedInDeck      ActionType = "moved-in-deck"
	ActionDrawnFromPos     ActionType = "drawn-from-deck-position"

	// Cross-player effect requests and responses. Requests are addressed to
	// a victim; responses carry the payload back to the original requester.
	ActionDeckShareRequest  ActionType = "deck-share-request"
	ActionDeckShareResponse ActionType = "deck-share-response"
	ActionHandShareRequest  ActionType = "hand-share-request"
	ActionHandShareResponse ActionType = "hand-share-response"

	// Victim-addressed follow-ups; applied locally by the victim's own
	// dedup side-effect path.
	ActionForceDiscardHand    ActionType = "force-discard-hand"
	ActionForceShuffleToDeck  ActionType = "force-shuffle-to-deck"
	ActionForcePeekDiscard    ActionType = "force-deck-peek-discard"
	ActionForcePeekReorder    ActionType = "force-deck-peek-reorder"
	ActionForceDeckTakeToHand ActionType = "force-deck-take-to-hand"
	ActionForceTakeFromHand   ActionType = "force-take-from-hand"
)

// RevealEvent is an immutable fact appended to the room document's event log.
// The timestamp (unix milliseconds at append time) doubles as ordering key
// and dedup key; the log is never reordered, so array order is chronological
// by construction. Payload fields beyond the common header are tag-specific.
type RevealEvent struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Timestamp  int64      `json:"timestamp"`
	Action     ActionType `json:"action"`

	Cards  []Card `json:"cards,omitempty"`
	Count  int    `json:"count,omitempty"`
	Random bool   `json:"random,omitempty"`

	CardName string `json:"cardName,omitempty"`
	CardUID  string `json:"cardUid,omitempty"`
	FromName string `json:"fromName,omitempty"`

	// hp-change
	BarLabel string `json:"barLabel,omitempty"`
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Delta    int    `json:"delta,omitempty"`

	// returned-to-deck / drawn-from-deck-position
	Pos      string `json:"pos,omitempty"`
	Position int    `json:"position,omitempty"`

	// used-special / activated-special
	SpecialLabel string `json:"saLabel,omitempty"`

	// Cross-player effects.
	VictimID    string   `json:"victimId,omitempty"`
	VictimName  string   `json:"victimName,omitempty"`
	RequesterID string   `json:"requesterId,omitempty"`
	TopCards    []Card   `json:"topCards,omitempty"`
	HandCards   []Card   `json:"handCards,omitempty"`
	Order       []string `json:"order,omitempty"`
}

// IsRequest reports whether the event opens a two-phase cross-player effect.
func (ev RevealEvent) IsRequest() bool {
	return ev.Action == ActionDeckShareRequest || ev.Action == ActionHandShareRequest
}

// IsResponse reports whether the event answers a cross-player request.
func (ev RevealEvent) IsResponse() bool {
	return ev.Action == ActionDeckShareResponse || ev.Action == ActionHandShareResponse
}

// CardCount returns the number of cards the event describes, falling back to
// the count field when no card references are attached.
func (ev RevealEvent) CardCount() int {
	if len(ev.Cards) > 0 {
		return len(ev.Cards)
	}
	if ev.Count > 0 {
		return ev.Count
	}
	return 1
}

func (ev RevealEvent) clone() RevealEvent {
	out := ev
	out.Cards = append([]Card(nil), ev.Cards...)
	out.TopCards = append([]Card(nil), ev.TopCards...)
	out.HandCards = append([]Card(nil), ev.HandCards...)
	out.Order = append([]string(nil), ev.Order...)
	return out
}
