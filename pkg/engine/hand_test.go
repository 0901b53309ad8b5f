package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/table"
)

// stackedDeck replays a fixed card sequence, letting tests script exact
// boards and hole cards instead of depending on shuffle order.
type stackedDeck struct{ cards []card.Card }

func (d *stackedDeck) Draw() (card.Card, bool) {
	if len(d.cards) == 0 {
		return card.Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

func newStackedDeck(cards ...card.Card) CardSource { return &stackedDeck{cards: cards} }

func twoHandedConfig() table.Config {
	return table.Config{
		ID: "t1", DisplayName: "test table",
		SmallBlind: 1, BigBlind: 2,
		MinBuyIn: 20, MaxBuyIn: 1000,
		MaxSeats: 2, MinSeatsToPlay: 2,
		TurnBudget: 30 * time.Second,
	}
}

func seatAt(i int, stack int64) *table.Seat {
	s := &table.Seat{PlayerID: "p", Index: i, Stack: stack}
	s.Status.Active = true
	return s
}

// TestHeadsUpButtonPostsSmallBlind implements spec.md §8 Scenario 1.
func TestHeadsUpButtonPostsSmallBlind(t *testing.T) {
	cfg := twoHandedConfig()
	a := seatAt(0, 1000)
	b := seatAt(1, 1000)

	deck := newStackedDeck(
		card.Card{Suit: card.Spades, Rank: card.Two}, card.Card{Suit: card.Hearts, Rank: card.Seven},
		card.Card{Suit: card.Clubs, Rank: card.Nine}, card.Card{Suit: card.Diamonds, Rank: card.Nine},
		// burn + flop
		card.Card{Suit: card.Spades, Rank: card.Three},
		card.Card{Suit: card.Hearts, Rank: card.King}, card.Card{Suit: card.Clubs, Rank: card.Four}, card.Card{Suit: card.Diamonds, Rank: card.Jack},
		// burn + turn
		card.Card{Suit: card.Spades, Rank: card.Four},
		card.Card{Suit: card.Hearts, Rank: card.Two},
		// burn + river
		card.Card{Suit: card.Spades, Rank: card.Five},
		card.Card{Suit: card.Clubs, Rank: card.Two},
	)

	h, err := NewHand(1, cfg, []*table.Seat{a, b}, 0, deck)
	require.NoError(t, err)

	require.True(t, a.Roles.SmallBlind)
	require.True(t, b.Roles.BigBlind)
	require.EqualValues(t, 1, a.CurrentRoundBet)
	require.EqualValues(t, 2, b.CurrentRoundBet)
	require.Equal(t, 0, h.TurnCursor) // heads-up: dealer/SB acts first preflop

	require.NoError(t, h.ApplyAction(0, table.ActionRaise, 6))
	require.NoError(t, h.ApplyAction(1, table.ActionCall, 0))
	require.Equal(t, Flop, h.Phase)
	require.Equal(t, 1, h.TurnCursor) // non-dealer acts first post-flop

	require.NoError(t, h.ApplyAction(1, table.ActionCheck, 0))
	require.NoError(t, h.ApplyAction(0, table.ActionBet, 10))
	require.NoError(t, h.ApplyAction(1, table.ActionCall, 0))
	require.Equal(t, Turn, h.Phase)

	require.NoError(t, h.ApplyAction(1, table.ActionCheck, 0))
	require.NoError(t, h.ApplyAction(0, table.ActionCheck, 0))
	require.Equal(t, River, h.Phase)

	require.NoError(t, h.ApplyAction(1, table.ActionCheck, 0))
	require.NoError(t, h.ApplyAction(0, table.ActionCheck, 0))
	require.Equal(t, Showdown, h.Phase)

	result, err := h.Settle()
	require.NoError(t, err)
	require.Equal(t, Finished, h.Phase)

	total := totalPotAmount(result)
	require.EqualValues(t, 32, total)

	deltaA := a.Stack - 1000
	deltaB := b.Stack - 1000
	require.EqualValues(t, deltaA+deltaB, 0)
	require.True(t, deltaA == 16 || deltaA == -16)
}

func totalPotAmount(r *SettlementResult) int64 {
	var total int64
	for _, p := range r.Pots {
		total += p.Amount
	}
	return total
}

// TestMinRaiseReopensButUnderRaiseAllInDoesNot implements spec.md §8
// Scenario 3.
func TestMinRaiseReopensButUnderRaiseAllInDoesNot(t *testing.T) {
	cfg := table.Config{
		ID: "t3", DisplayName: "test",
		SmallBlind: 1, BigBlind: 2,
		MinBuyIn: 20, MaxBuyIn: 1000,
		MaxSeats: 9, MinSeatsToPlay: 2,
		TurnBudget: 30 * time.Second,
	}
	a := seatAt(0, 1000)
	b := seatAt(1, 1000)
	c := seatAt(2, 45)
	seats := []*table.Seat{a, b, c}

	deck := newStackedDeck(deal52()...)
	h, err := NewHand(1, cfg, seats, 0, deck)
	require.NoError(t, err)

	// Dealer=0(A), SB=1(B), BB=2(C) in 3-handed; first to act preflop is A (UTG = dealer+3 here wraps to dealer).
	require.Equal(t, 0, h.TurnCursor)

	require.NoError(t, h.ApplyAction(0, table.ActionRaise, 10))
	require.Equal(t, 1, h.TurnCursor)

	require.NoError(t, h.ApplyAction(1, table.ActionRaise, 30))
	require.EqualValues(t, 20, h.MinRaise)
	require.Equal(t, 2, h.TurnCursor)

	require.NoError(t, h.ApplyAction(2, table.ActionAllIn, 0))
	require.EqualValues(t, 45, h.CurrentBet)
	require.EqualValues(t, 20, h.MinRaise) // unchanged: +15 increment did not qualify

	// Action returns to A, who already acted at the prior level but must
	// act again because B's raise reopened it.
	require.Equal(t, 0, h.TurnCursor)
	legal := h.LegalActions()
	var sawRaise bool
	for _, la := range legal {
		if la.Type == table.ActionRaise {
			sawRaise = true
			require.GreaterOrEqual(t, la.MinAmt, int64(65))
		}
	}
	require.True(t, sawRaise, "A's raise option should survive since B's raise reopened action")

	require.NoError(t, h.ApplyAction(0, table.ActionCall, 0))

	// B faces C's all-in and A's call but never lost or regained reopening
	// rights from C's under-raise, so only call/fold are legal.
	require.Equal(t, 1, h.TurnCursor)
	legal = h.LegalActions()
	for _, la := range legal {
		require.NotEqual(t, table.ActionRaise, la.Type, "B's raise should not be reopened by C's under-raise all-in")
	}
}

// TestTurnTimeoutAutoAction implements spec.md §8 Scenario 4.
func TestTurnTimeoutAutoAction(t *testing.T) {
	cfg := twoHandedConfig()
	a := seatAt(0, 1000)
	b := seatAt(1, 1000)
	deck := newStackedDeck(deal52()...)

	h, err := NewHand(1, cfg, []*table.Seat{a, b}, 0, deck)
	require.NoError(t, err)

	// A faces a call-needed spot (BB posted, A only posted SB): auto-fold.
	require.NoError(t, h.AutoAct(0))
	require.True(t, a.Status.Folded)
	require.Equal(t, Showdown, h.Phase)
}

// TestTurnTimeoutAutoCheck covers the other half of Scenario 4: a
// check-legal spot auto-resolves to check, not fold.
func TestTurnTimeoutAutoCheck(t *testing.T) {
	cfg := twoHandedConfig()
	a := seatAt(0, 1000)
	b := seatAt(1, 1000)
	deck := newStackedDeck(deal52()...)

	h, err := NewHand(1, cfg, []*table.Seat{a, b}, 0, deck)
	require.NoError(t, err)

	require.NoError(t, h.ApplyAction(0, table.ActionCall, 0))
	require.NoError(t, h.ApplyAction(1, table.ActionCheck, 0))
	require.Equal(t, Flop, h.Phase)

	// Post-flop heads-up, B acts first and checks, leaving A facing a
	// check-legal spot.
	require.NoError(t, h.AutoAct(1))
	require.Equal(t, table.ActionCheck, b.LastAction.Type)
	require.False(t, b.Status.Folded)
}

// deal52 returns a fixed full deck ordering sufficient to deal any single
// test hand out to the river without exhausting the source.
func deal52() []card.Card {
	return card.CanonicalDeck()
}
