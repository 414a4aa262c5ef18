package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decktable/decktable-go/internal/room"
	"github.com/decktable/decktable-go/internal/transport"
)

func TestAddToCombatStaysFaceDown(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png"), card("u2", "1 x Spark.png")}
	require.NoError(t, s.AddToCombat("u1"))

	assert.Len(t, s.Local.Hand, 1)
	require.Contains(t, s.Combat, s.PlayerID)
	entry := s.Combat[s.PlayerID]
	require.Len(t, entry.Cards, 1)
	assert.False(t, entry.Revealed, "adding must not reveal")

	doc := s.Document()
	require.Len(t, doc.Reveals, 1)
	assert.Equal(t, room.ActionAddedToCombat, doc.Reveals[len(doc.Reveals)-1].Action)
}

func TestRevealCombatIsOneWay(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("u1", "1 x Flame.png"), card("u2", "1 x Spark.png")}
	require.NoError(t, s.AddToCombat("u1"))
	require.NoError(t, s.RevealCombat())
	assert.True(t, s.Combat[s.PlayerID].Revealed)

	// Cards added after the reveal are immediately visible.
	require.NoError(t, s.AddToCombat("u2"))
	assert.True(t, s.Combat[s.PlayerID].Revealed)
	assert.Len(t, s.Combat[s.PlayerID].Cards, 2)
}

func TestRevealEmptyCombat(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	assert.ErrorIs(t, s.RevealCombat(), ErrEmptyZone)
}

func TestClearCombatDistributesToOwners(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("mine", "1 x Flame.png")}
	require.NoError(t, s.AddToCombat("mine"))

	// Another player's committed entry, as it would arrive in a snapshot.
	doc := s.Document().Clone()
	doc.Players["p_b"] = &room.PlayerState{Name: "Bob"}
	doc.Combat["p_b"] = &room.CombatEntry{
		Cards: []room.Card{card("theirs", "1 x Wave.png")},
	}
	require.NoError(t, store.Write(context.Background(), s.RoomCode, doc))
	pump(t, s)

	require.NoError(t, s.ClearCombat())

	final := s.Document()
	assert.Nil(t, final.Combat)

	bob := final.Player("p_b")
	require.NotNil(t, bob)
	require.Len(t, bob.DiscardCards, 1)
	assert.Equal(t, "theirs", bob.DiscardCards[0].UID)

	// Own swept card lands in the local discard (no intermediate zone on
	// the ember deck) and in the shared pile.
	require.Len(t, s.Local.Discard, 1)
	assert.Equal(t, "mine", s.Local.Discard[0].UID)
	self := final.Player(s.PlayerID)
	require.Len(t, self.DiscardCards, 1)

	require.NotEmpty(t, final.Reveals)
	assert.Equal(t, room.ActionCombatCleared, final.Reveals[len(final.Reveals)-1].Action)
}

func TestClearCombatRoutesThroughIntermediateZone(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	require.NoError(t, s.SelectDeck("tide"))
	s.Local.Hand = []room.Card{card("u1", "1 x Wave.png")}
	require.NoError(t, s.AddToCombat("u1"))

	require.NoError(t, s.ClearCombat())

	assert.Empty(t, s.Local.Discard)
	require.Len(t, s.Local.Intermediate, 1)
	assert.Equal(t, "u1", s.Local.Intermediate[0].UID)

	// The swept card reaches the shared pile even when it routed through the
	// intermediate zone, so any player can still take it.
	self := s.Document().Player(s.PlayerID)
	require.Len(t, self.DiscardCards, 1)
	assert.Equal(t, "u1", self.DiscardCards[0].UID)
}

func TestRemoteClearReclaimsOwnCards(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	s.Local.Hand = []room.Card{card("mine", "1 x Flame.png")}
	require.NoError(t, s.AddToCombat("mine"))
	require.Empty(t, s.Local.Discard)

	// Another player sweeps the zone: combat vanishes and this player's
	// cards appear in its shared discard pile.
	doc := s.Document().Clone()
	self := doc.Player(s.PlayerID)
	self.DiscardCards = append(self.DiscardCards, card("mine", "1 x Flame.png"))
	doc.Combat = nil
	doc.Reveals = append(doc.Reveals, room.RevealEvent{
		PlayerID: "p_b", PlayerName: "Bob", Timestamp: clk.Now().UnixMilli(),
		Action: room.ActionCombatCleared,
	})
	require.NoError(t, store.Write(context.Background(), s.RoomCode, doc))
	pump(t, s)

	require.Len(t, s.Local.Discard, 1)
	assert.Equal(t, "mine", s.Local.Discard[0].UID)
	assert.Empty(t, s.Combat)
}

func TestClearEmptyCombat(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	assert.ErrorIs(t, s.ClearCombat(), ErrEmptyZone)
}

func TestStartGameHostOnlyOneWay(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	host, _ := hostedSession(t, store, clk)

	guest, _ := newTestSession(t, store, clk, 2)
	require.NoError(t, guest.Join(context.Background(), host.RoomCode, "Bob"))

	assert.ErrorIs(t, guest.StartGame(), ErrNotHost)

	pump(t, host)
	require.NoError(t, host.StartGame())
	assert.True(t, host.GameStarted)
	assert.ErrorIs(t, host.StartGame(), ErrGameStarted)
}

func TestTurnWrapsAroundOrder(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, n := hostedSession(t, store, clk)

	doc := s.Document().Clone()
	doc.Players["p_b"] = &room.PlayerState{Name: "Bob"}
	doc.Players["p_c"] = &room.PlayerState{Name: "Cara"}
	doc.TurnOrder = []string{"p_b", "p_c", s.PlayerID}
	doc.CurrentTurn = 2
	doc.GameStarted = true
	require.NoError(t, store.Write(context.Background(), s.RoomCode, doc))
	pump(t, s)
	require.True(t, s.MyTurn())

	events := len(s.Document().Reveals)
	require.NoError(t, s.EndTurn())

	assert.Equal(t, 0, s.CurrentTurn)
	assert.False(t, s.MyTurn())

	final := s.Document()
	require.Len(t, final.Reveals, events+1)
	assert.Equal(t, room.ActionTurnEnd, final.Reveals[len(final.Reveals)-1].Action)

	require.NotEmpty(t, n.logs)
	assert.Equal(t, "Alice ended their turn, Bob is up", n.logs[len(n.logs)-1].text)
}

func TestEndTurnRequiresTurn(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	doc := s.Document().Clone()
	doc.TurnOrder = []string{"p_b", s.PlayerID}
	doc.CurrentTurn = 0
	doc.GameStarted = true
	s.Reconcile(doc)

	assert.ErrorIs(t, s.EndTurn(), ErrNotYourTurn)
}

func TestRotateOrderBeforeStart(t *testing.T) {
	store := transport.NewMemoryStore()
	clk := newFakeClock()
	s, _ := hostedSession(t, store, clk)

	doc := s.Document().Clone()
	doc.TurnOrder = []string{s.PlayerID, "p_b", "p_c"}
	s.Reconcile(doc)

	require.NoError(t, s.RotateOrder())
	assert.Equal(t, []string{"p_b", "p_c", s.PlayerID}, s.TurnOrder)

	require.NoError(t, s.StartGame())
	assert.ErrorIs(t, s.RotateOrder(), ErrGameStarted)
}
