package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decktable/decktable-go/internal/room"
	"github.com/decktable/decktable-go/internal/transport"
)

func TestSelectDeckBuildsZones(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	require.NoError(t, s.SelectDeck("ember"))

	assert.Len(t, s.Local.Draw, 5)
	assert.Empty(t, s.Local.Hand)
	assert.Equal(t, 20, s.Local.HP["main"])
	assert.Nil(t, s.Local.SpecialCurrent)

	self := s.Document().Player(s.PlayerID)
	require.NotNil(t, self)
	assert.Equal(t, "ember", self.DeckKey)
	assert.Equal(t, 5, self.CardCounts.Draw)
}

func TestSelectDeckInitializesSpecialPile(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	require.NoError(t, s.SelectDeck("tide"))

	require.NotNil(t, s.Local.SpecialCurrent)
	assert.Equal(t, "Surge", s.Local.SpecialCurrent.Label())
	assert.Len(t, s.Local.SpecialDeck, 1)

	assert.ErrorIs(t, s.SelectDeck("missing"), ErrNoDeck)
}

func TestDrawMovesTopCards(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, n := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))

	top := s.Local.Draw[0].UID
	require.NoError(t, s.Draw(2))

	assert.Len(t, s.Local.Hand, 2)
	assert.Len(t, s.Local.Draw, 3)
	assert.Equal(t, top, s.Local.Hand[0].UID)

	doc := s.Document()
	last := doc.Reveals[len(doc.Reveals)-1]
	assert.Equal(t, room.ActionDrew, last.Action)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, 2, doc.Player(s.PlayerID).CardCounts.Hand)

	assert.Equal(t, "You drew 2 cards", n.logs[len(n.logs)-1].text)
}

func TestDrawFromEmptyDeck(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	assert.ErrorIs(t, s.Draw(1), ErrEmptyZone)
}

func TestDrawFromPosition(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))

	want := s.Local.Draw[2].UID
	require.NoError(t, s.DrawFromPosition(2))

	require.Len(t, s.Local.Hand, 1)
	assert.Equal(t, want, s.Local.Hand[0].UID)
	assert.Len(t, s.Local.Draw, 4)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionDrawnFromPos, last.Action)
	assert.Equal(t, 2, last.Position)

	assert.ErrorIs(t, s.DrawFromPosition(99), ErrCardNotFound)
}

func TestPlayRevealsCards(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png"), card("u2", "1 x Spark.png")}
	require.NoError(t, s.Play("u1"))

	assert.Len(t, s.Local.Hand, 1)
	require.Len(t, s.Local.Discard, 1)
	assert.Empty(t, s.Local.Staged)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionPlayed, last.Action)
	require.Len(t, last.Cards, 1)
	assert.Equal(t, "u1", last.Cards[0].UID)
	assert.False(t, last.Random)

	// Played cards land in the shared pile, where anyone can browse or take.
	self := s.Document().Player(s.PlayerID)
	require.Len(t, self.DiscardCards, 1)
	assert.Equal(t, "u1", self.DiscardCards[0].UID)
}

func TestPlayFromTable(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Staged = []room.Card{card("u1", "1 x Flame.png")}
	require.NoError(t, s.Play("u1"))

	assert.Empty(t, s.Local.Staged)
	require.Len(t, s.Local.Discard, 1)
}

func TestPlayRoutesThroughIntermediateZone(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("tide"))

	s.Local.Hand = []room.Card{card("u1", "1 x Wave.png")}
	require.NoError(t, s.Play("u1"))

	assert.Empty(t, s.Local.Discard)
	require.Len(t, s.Local.Intermediate, 1)
	assert.Equal(t, "u1", s.Local.Intermediate[0].UID)

	// Intermediate-routed cards are still part of the published pile.
	self := s.Document().Player(s.PlayerID)
	require.Len(t, self.DiscardCards, 1)
	assert.Equal(t, "u1", self.DiscardCards[0].UID)
}

func TestPlayedCardIsTakeable(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	alice, _, bob, _ := joinedPair(t, store, clk)

	alice.Local.Hand = []room.Card{card("u1", "1 x Flame.png")}
	require.NoError(t, alice.Play("u1"))
	pump(t, bob)

	require.NoError(t, bob.TakeFromDiscard(alice.PlayerID, "u1"))
	require.Len(t, bob.Local.Hand, 1)
	assert.Equal(t, "u1", bob.Local.Hand[0].UID)

	pump(t, alice)
	assert.Empty(t, alice.Local.Discard, "taken card reconciled out of the owner's pile")
}

func TestPlaySelectedClearsSelection(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{
		card("u1", "1 x Flame.png"),
		card("u2", "1 x Spark.png"),
		card("u3", "1 x Ash.png"),
	}
	s.Local.Selected["u1"] = true
	s.Local.Selected["u3"] = true

	require.NoError(t, s.PlaySelected())

	assert.Len(t, s.Local.Discard, 2)
	assert.Len(t, s.Local.Hand, 1)
	assert.Empty(t, s.Local.Selected)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	require.Len(t, last.Cards, 2)
}

func TestPlayRandomIsSeededAndMarked(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{
		card("u1", "1 x Flame.png"),
		card("u2", "1 x Spark.png"),
		card("u3", "1 x Ash.png"),
	}
	require.NoError(t, s.PlayRandom())

	require.Len(t, s.Local.Discard, 1)
	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.True(t, last.Random)
	require.Len(t, last.Cards, 1)
	assert.Equal(t, s.Local.Discard[0].UID, last.Cards[0].UID)
}

func TestPickRandomSpansZones(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Discard = []room.Card{card("u1", "1 x Flame.png")}
	pick, err := s.PickRandom(ZoneDiscard)
	require.NoError(t, err)
	assert.Equal(t, "u1", pick.UID)

	s.Local.Intermediate = []room.Card{card("u2", "1 x Wave.png")}
	pick, err = s.PickRandom(ZoneIntermediate)
	require.NoError(t, err)
	assert.Equal(t, "u2", pick.UID)

	_, err = s.PickRandom(ZoneHand)
	assert.ErrorIs(t, err, ErrEmptyZone)
	_, err = s.PickRandom("graveyard")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestPickRandomMarksNextAction(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png"), card("u2", "1 x Spark.png")}
	pick, err := s.PickRandom(ZoneHand)
	require.NoError(t, err)

	require.NoError(t, s.Discard(pick.UID))
	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.True(t, last.Random, "the marked card's discard announces a random pick")

	// The mark is single-use: the next action is ordinary again.
	require.NoError(t, s.Discard(s.Local.Hand[0].UID))
	last = s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.False(t, last.Random)
}

func TestPickRandomMarkDropsWhenAnotherCardActs(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png"), card("u2", "1 x Spark.png")}
	pick, err := s.PickRandom(ZoneHand)
	require.NoError(t, err)

	other := "u1"
	if pick.UID == "u1" {
		other = "u2"
	}
	require.NoError(t, s.Play(other))
	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.False(t, last.Random)

	// Acting on a different card consumed the mark.
	require.NoError(t, s.Play(pick.UID))
	last = s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.False(t, last.Random)
}

func TestDiscardFromHandOrTable(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png")}
	s.Local.Staged = []room.Card{card("u2", "1 x Spark.png")}

	require.NoError(t, s.Discard("u2"))
	require.NoError(t, s.Discard("u1"))
	assert.ErrorIs(t, s.Discard("u1"), ErrCardNotFound)

	assert.Len(t, s.Local.Discard, 2)
	self := s.Document().Player(s.PlayerID)
	assert.Len(t, self.DiscardCards, 2)
}

func TestDiscardRoutesThroughIntermediateZone(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("tide"))

	s.Local.Hand = []room.Card{card("u1", "1 x Wave.png")}
	require.NoError(t, s.Discard("u1"))

	assert.Empty(t, s.Local.Discard)
	require.Len(t, s.Local.Intermediate, 1)

	self := s.Document().Player(s.PlayerID)
	require.Len(t, self.DiscardCards, 1)
	assert.Equal(t, "u1", self.DiscardCards[0].UID)
}

func TestStageAndUnstageAreSilent(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png")}
	events := len(s.Document().Reveals)

	require.NoError(t, s.Stage("u1"))
	require.NoError(t, s.Unstage("u1"))

	assert.Len(t, s.Document().Reveals, events, "stage/unstage announce nothing")
	assert.Equal(t, 1, s.Document().Player(s.PlayerID).CardCounts.Hand)
}

func TestReturnToDeckPositions(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))
	require.NoError(t, s.Draw(2))

	first := s.Local.Hand[0].UID
	second := s.Local.Hand[1].UID

	require.NoError(t, s.ReturnToDeck(first, DeckTop))
	assert.Equal(t, first, s.Local.Draw[0].UID)

	require.NoError(t, s.ReturnToDeck(second, DeckBottom))
	assert.Equal(t, second, s.Local.Draw[len(s.Local.Draw)-1].UID)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionReturnedToDeck, last.Action)
	assert.Equal(t, DeckBottom, last.Pos)
}

func TestShuffleHandIn(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))
	require.NoError(t, s.Draw(3))

	require.NoError(t, s.ShuffleHandIn())

	assert.Empty(t, s.Local.Hand)
	assert.Len(t, s.Local.Draw, 5)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionShuffledHandIn, last.Action)
	assert.Equal(t, 3, last.Count)

	assert.ErrorIs(t, s.ShuffleHandIn(), ErrEmptyZone)
}

func TestShuffleDiscardIn(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Discard = []room.Card{card("u1", "1 x Flame.png")}
	require.NoError(t, s.ShuffleDiscardIn())

	assert.Empty(t, s.Local.Discard)
	assert.Len(t, s.Local.Draw, 1)
	assert.Empty(t, s.Document().Player(s.PlayerID).DiscardCards)
}

func TestMoveInDeck(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))

	moved := s.Local.Draw[4].UID
	require.NoError(t, s.MoveInDeck(moved, 0))
	assert.Equal(t, moved, s.Local.Draw[0].UID)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionMovedInDeck, last.Action)
}

func TestIntermediateZoneMoves(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("tide"))

	s.Local.Intermediate = []room.Card{
		card("u1", "1 x Wave.png"),
		card("u2", "1 x Foam.png"),
	}

	require.NoError(t, s.MoveToHand("u1"))
	require.NoError(t, s.MoveToDiscard("u2"))

	assert.Len(t, s.Local.Hand, 1)
	assert.Len(t, s.Local.Discard, 1)
	assert.Empty(t, s.Local.Intermediate)

	reveals := s.Document().Reveals
	assert.Equal(t, room.ActionMovedZoneToPile, reveals[len(reveals)-1].Action)
	assert.Equal(t, room.ActionMovedZoneToHand, reveals[len(reveals)-2].Action)
}

func TestHPChangeClampsAtZero(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("ember"))

	require.NoError(t, s.HPChange("main", -25))
	assert.Equal(t, 0, s.Local.HP["main"])

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionHPChange, last.Action)
	assert.Equal(t, "Health", last.BarLabel)
	assert.Equal(t, 20, last.From)
	assert.Equal(t, 0, last.To)
	assert.Equal(t, -20, last.Delta)

	// No-op deltas announce nothing.
	events := len(s.Document().Reveals)
	require.NoError(t, s.HPChange("main", -5))
	assert.Len(t, s.Document().Reveals, events)
}

func TestTakeFromOtherPlayersDiscard(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	doc := s.Document().Clone()
	doc.Players["p_b"] = &room.PlayerState{
		Name:         "Bob",
		DiscardCards: []room.Card{card("u1", "1 x Wave.png")},
	}
	require.NoError(t, store.Write(context.Background(), s.RoomCode, doc))
	pump(t, s)

	require.NoError(t, s.TakeFromDiscard("p_b", "u1"))

	require.Len(t, s.Local.Hand, 1)
	assert.Empty(t, s.Document().Player("p_b").DiscardCards)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionTookFromDiscard, last.Action)
	assert.Equal(t, "Bob", last.FromName)
	assert.Equal(t, "Wave", last.CardName)

	// The uid is gone from the pile now: a second take is stale.
	s.Local.Hand = nil
	assert.ErrorIs(t, s.TakeFromDiscard("p_b", "u1"), ErrAlreadyTaken)
}

func TestTakeFromDiscardGuards(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png")}
	assert.ErrorIs(t, s.TakeFromDiscard("p_b", "u1"), ErrAlreadyInHand)
}

func TestTakeFromOwnDiscard(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Discard = []room.Card{card("u1", "1 x Flame.png")}
	require.NoError(t, s.TakeFromDiscard(s.PlayerID, "u1"))

	assert.Empty(t, s.Local.Discard)
	require.Len(t, s.Local.Hand, 1)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionTookFromOwnPile, last.Action)
}

func TestTakeFromOwnIntermediateZone(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Intermediate = []room.Card{card("u1", "1 x Wave.png")}
	require.NoError(t, s.TakeFromDiscard(s.PlayerID, "u1"))

	assert.Empty(t, s.Local.Intermediate)
	require.Len(t, s.Local.Hand, 1)
	assert.ErrorIs(t, s.TakeFromDiscard(s.PlayerID, "u2"), ErrAlreadyTaken)
}

func TestShareHandIsOneWay(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png")}
	assert.Nil(t, s.Document().Player(s.PlayerID).HandCards)

	s.ShareHand()
	require.Len(t, s.Document().Player(s.PlayerID).HandCards, 1)

	// Later state publications keep sharing.
	require.NoError(t, s.Discard("u1"))
	assert.NotNil(t, s.Document().Player(s.PlayerID).HandCards)
	assert.Empty(t, s.Document().Player(s.PlayerID).HandCards)
}

func TestUseSpecialDiscardMode(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)
	require.NoError(t, s.SelectDeck("tide"))

	require.NoError(t, s.UseSpecial())
	require.NotNil(t, s.Local.SpecialCurrent)
	assert.Equal(t, "Undertow", s.Local.SpecialCurrent.Label())
	assert.Len(t, s.Local.SpecialDiscard, 1)

	last := s.Document().Reveals[len(s.Document().Reveals)-1]
	assert.Equal(t, room.ActionUsedSpecial, last.Action)
	assert.Equal(t, "Tidecall", last.SpecialLabel)
	assert.Equal(t, "Surge", last.CardName)

	require.NoError(t, s.UseSpecial())
	assert.Nil(t, s.Local.SpecialCurrent)
	assert.ErrorIs(t, s.UseSpecial(), ErrEmptyZone)
}
