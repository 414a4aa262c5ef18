package room

import (
	"strings"
	"time"
)

// MaxReveals bounds the shared event log. Appending beyond the cap evicts the
// oldest events, preserving relative order among survivors.
const MaxReveals = 50

// PlayerIDPrefix marks client-generated player identifiers. Combat keys that
// do not carry it are stale artifacts from older document layouts and are
// dropped during normalization.
const PlayerIDPrefix = "p_"

// Card is a single card reference as it appears in shared zones.
type Card struct {
	Image   string `json:"image"`
	UID     string `json:"uid"`
	DeckKey string `json:"deckKey,omitempty"`
}

// Label derives a human-readable card name from its image path.
// Catalog images follow the "<n> x <name>.png" convention; anything else
// falls back to the bare file name.
func (c Card) Label() string {
	img := c.Image
	if img == "" {
		return "card"
	}
	base := img
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot]
	}
	if x := strings.Index(base, " x "); x > 0 {
		prefix := base[:x]
		if prefix != "" && strings.Trim(prefix, "0123456789") == "" {
			return base[x+3:]
		}
	}
	if base == "" {
		return "card"
	}
	return base
}

// CardCounts is the informational zone-size summary a player publishes.
type CardCounts struct {
	Draw         int `json:"draw"`
	Hand         int `json:"hand"`
	Staged       int `json:"staged"`
	Intermediate int `json:"intermediate"`
	Discard      int `json:"discard"`
}

// PlayerState is one participant's shared slice of the room document.
// DiscardCards is the authoritative view of that player's discard pile;
// HandCards is present only after the player opted into sharing their hand.
type PlayerState struct {
	Name           string         `json:"name"`
	DeckKey        string         `json:"deckKey,omitempty"`
	HP             map[string]int `json:"hp,omitempty"`
	CardCounts     CardCounts     `json:"cardCounts"`
	DiscardCards   []Card         `json:"discardCards,omitempty"`
	HandCards      []Card         `json:"handCards,omitempty"`
	SpecialCurrent *Card          `json:"specialCurrent,omitempty"`
	LastUpdate     int64          `json:"lastUpdate"`
}

// CombatEntry holds one player's cards in the shared combat zone.
type CombatEntry struct {
	Cards    []Card `json:"cards"`
	Revealed bool   `json:"revealed"`
}

// Document is the full shared state of one game session, addressed by a
// 6-character room code in the replicated store. Writes always replace the
// whole document; there is no partial patch or compare-and-swap.
type Document struct {
	Host        string                  `json:"host"`
	Players     map[string]*PlayerState `json:"players"`
	TurnOrder   []string                `json:"turnOrder"`
	CurrentTurn int                     `json:"currentTurn"`
	GameStarted bool                    `json:"gameStarted"`
	Combat      map[string]*CombatEntry `json:"combat,omitempty"`
	Reveals     []RevealEvent           `json:"reveals,omitempty"`
}

// NewDocument creates the initial room document for a hosting player.
func NewDocument(hostID, hostName string, now time.Time) *Document {
	return &Document{
		Host: hostID,
		Players: map[string]*PlayerState{
			hostID: {
				Name:       hostName,
				HP:         map[string]int{},
				LastUpdate: now.UnixMilli(),
			},
		},
		TurnOrder:   []string{hostID},
		CurrentTurn: 0,
		GameStarted: false,
	}
}

// Player returns the state for id, or nil if the player is unknown.
func (d *Document) Player(id string) *PlayerState {
	if d == nil || d.Players == nil {
		return nil
	}
	return d.Players[id]
}

// EnsurePlayer returns the state for id, creating an empty entry if absent.
func (d *Document) EnsurePlayer(id string) *PlayerState {
	if d.Players == nil {
		d.Players = make(map[string]*PlayerState)
	}
	p, ok := d.Players[id]
	if !ok {
		p = &PlayerState{HP: map[string]int{}}
		d.Players[id] = p
	}
	return p
}

// ActivePlayer returns the id whose turn it currently is, or "" when the
// turn order is empty.
func (d *Document) ActivePlayer() string {
	if len(d.TurnOrder) == 0 {
		return ""
	}
	if d.CurrentTurn < 0 || d.CurrentTurn >= len(d.TurnOrder) {
		return d.TurnOrder[0]
	}
	return d.TurnOrder[d.CurrentTurn]
}

// NormalizeCombat repairs the combat zone after a round trip through the
// store. The transport may drop empty arrays and objects on write, so missing
// cards/revealed fields default to empty/false rather than being treated as
// errors. Keys that are not player-generated ids (or that name no known
// player) are dropped. Returns nil when nothing remains.
func NormalizeCombat(combat map[string]*CombatEntry, players map[string]*PlayerState) map[string]*CombatEntry {
	if len(combat) == 0 {
		return nil
	}
	clean := make(map[string]*CombatEntry, len(combat))
	for key, entry := range combat {
		if !strings.HasPrefix(key, PlayerIDPrefix) {
			continue
		}
		if players != nil {
			if _, known := players[key]; !known {
				continue
			}
		}
		norm := &CombatEntry{Revealed: false}
		if entry != nil {
			norm.Cards = entry.Cards
			norm.Revealed = entry.Revealed
		}
		if norm.Cards == nil {
			norm.Cards = []Card{}
		}
		clean[key] = norm
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

// EnsureCombatEntry returns the combat entry for id, creating the combat map
// and a default entry as needed.
func (d *Document) EnsureCombatEntry(id string) *CombatEntry {
	if d.Combat == nil {
		d.Combat = make(map[string]*CombatEntry)
	}
	entry, ok := d.Combat[id]
	if !ok || entry == nil {
		entry = &CombatEntry{Cards: []Card{}}
		d.Combat[id] = entry
	}
	if entry.Cards == nil {
		entry.Cards = []Card{}
	}
	return entry
}

// AppendReveal appends an event to the bounded log, evicting the oldest
// entries beyond MaxReveals.
func (d *Document) AppendReveal(ev RevealEvent) {
	d.Reveals = append(d.Reveals, ev)
	if len(d.Reveals) > MaxReveals {
		d.Reveals = d.Reveals[len(d.Reveals)-MaxReveals:]
	}
}

// Clone returns a deep copy of the document. Transport adapters hand out
// clones so a subscriber mutating its snapshot cannot corrupt the store's
// cached state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Host:        d.Host,
		TurnOrder:   append([]string(nil), d.TurnOrder...),
		CurrentTurn: d.CurrentTurn,
		GameStarted: d.GameStarted,
	}
	if d.Players != nil {
		out.Players = make(map[string]*PlayerState, len(d.Players))
		for id, p := range d.Players {
			out.Players[id] = p.clone()
		}
	}
	if d.Combat != nil {
		out.Combat = make(map[string]*CombatEntry, len(d.Combat))
		for id, e := range d.Combat {
			out.Combat[id] = e.clone()
		}
	}
	if d.Reveals != nil {
		out.Reveals = make([]RevealEvent, len(d.Reveals))
		for i, ev := range d.Reveals {
			out.Reveals[i] = ev.clone()
		}
	}
	return out
}

func (p *PlayerState) clone() *PlayerState {
	if p == nil {
		return nil
	}
	out := *p
	if p.HP != nil {
		out.HP = make(map[string]int, len(p.HP))
		for k, v := range p.HP {
			out.HP[k] = v
		}
	}
	out.DiscardCards = append([]Card(nil), p.DiscardCards...)
	out.HandCards = append([]Card(nil), p.HandCards...)
	if p.SpecialCurrent != nil {
		c := *p.SpecialCurrent
		out.SpecialCurrent = &c
	}
	return &out
}

func (e *CombatEntry) clone() *CombatEntry {
	if e == nil {
		return nil
	}
	return &CombatEntry{
		Cards:    append([]Card(nil), e.Cards...),
		Revealed: e.Revealed,
	}
}
