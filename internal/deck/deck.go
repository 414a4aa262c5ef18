// Package deck holds the catalog contract for deck and card definitions.
// The catalog is an external collaborator; the engine only needs lookups and
// the zone/special-ability metadata that changes dispatch behavior.
package deck

import (
	"fmt"
	"math/rand"

	"github.com/decktable/decktable-go/internal/room"
)

// CardDef is a card as defined by the catalog, before it is instantiated
// into a zone with a uid.
type CardDef struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// HealthBar configures one HP counter.
type HealthBar struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Color      string `json:"color,omitempty"`
	StartValue int    `json:"startValue"`
}

// IntermediateZone is an optional deck-specific holding zone that played and
// discarded cards pass through instead of going straight to the discard pile.
type IntermediateZone struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name,omitempty"`
}

// SpecialMode selects how a special-ability deck cycles.
type SpecialMode string

const (
	// SpecialModeDiscard uses up the current card and reveals the next.
	SpecialModeDiscard SpecialMode = "discard"
	// SpecialModeSwap cycles through the special deck without consuming.
	SpecialModeSwap SpecialMode = "swap"
)

// SpecialAbility configures a deck's optional special-ability pile.
type SpecialAbility struct {
	Enabled bool        `json:"enabled"`
	Label   string      `json:"label,omitempty"`
	Mode    SpecialMode `json:"mode,omitempty"`
	Deck    []CardDef   `json:"deck,omitempty"`
}

// Deck is one playable deck definition.
type Deck struct {
	Key              string           `json:"key"`
	Name             string           `json:"name"`
	Image            string           `json:"image,omitempty"`
	Cards            []CardDef        `json:"cards"`
	HealthBars       []HealthBar      `json:"healthBars,omitempty"`
	IntermediateZone IntermediateZone `json:"intermediateZone,omitempty"`
	SpecialAbility   SpecialAbility   `json:"specialAbility,omitempty"`
}

// HasIntermediateZone reports whether played/discarded cards route through
// the deck's holding zone.
func (d *Deck) HasIntermediateZone() bool {
	return d != nil && d.IntermediateZone.Enabled
}

// StartingHP builds the initial HP map for this deck's bars.
func (d *Deck) StartingHP() map[string]int {
	hp := make(map[string]int, len(d.HealthBars))
	for i, bar := range d.HealthBars {
		hp[barID(bar, i)] = bar.StartValue
	}
	return hp
}

// BarLabel resolves the display label for a bar id, falling back to the id.
func (d *Deck) BarLabel(id string) string {
	for i, bar := range d.HealthBars {
		if barID(bar, i) == id {
			return bar.Label
		}
	}
	return id
}

func barID(bar HealthBar, idx int) string {
	if bar.ID != "" {
		return bar.ID
	}
	return fmt.Sprintf("bar%d", idx)
}

// BuildDrawPile instantiates the deck's cards into a shuffled draw pile.
// Uids encode deck key, card id and position so they stay unique across
// duplicated card definitions.
func (d *Deck) BuildDrawPile(rng *rand.Rand) []room.Card {
	pile := make([]room.Card, len(d.Cards))
	for i, def := range d.Cards {
		pile[i] = room.Card{
			Image:   def.Image,
			UID:     fmt.Sprintf("%s_%s_%d", d.Key, def.ID, i),
			DeckKey: d.Key,
		}
	}
	rng.Shuffle(len(pile), func(i, j int) {
		pile[i], pile[j] = pile[j], pile[i]
	})
	return pile
}

// Catalog looks deck definitions up by key.
type Catalog interface {
	Deck(key string) (*Deck, bool)
}

// MemoryCatalog is a static in-process catalog.
type MemoryCatalog struct {
	decks map[string]*Deck
}

// NewMemoryCatalog indexes the given decks by key.
func NewMemoryCatalog(decks ...*Deck) *MemoryCatalog {
	m := &MemoryCatalog{decks: make(map[string]*Deck, len(decks))}
	for _, d := range decks {
		m.decks[d.Key] = d
	}
	return m
}

// Deck implements Catalog.
func (m *MemoryCatalog) Deck(key string) (*Deck, bool) {
	d, ok := m.decks[key]
	return d, ok
}
