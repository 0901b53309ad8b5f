package pot_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencardroom/pokerd/pkg/pot"
)

func TestThreePlayerSidePotWithShortStack(t *testing.T) {
	// Scenario 2 (spec.md §8): A=100, B=40 (all-in), C=100, all contribute
	// their full stacks this hand.
	contributions := []pot.Contribution{
		{Seat: 0, Amount: 100, Eligible: true}, // A
		{Seat: 1, Amount: 40, Eligible: true},  // B
		{Seat: 2, Amount: 100, Eligible: true}, // C
	}

	adjusted, returnedTo, returnedAmount := pot.ReturnUncalled(contributions)
	require.Equal(t, pot.SeatID(-1), returnedTo)
	require.Equal(t, int64(0), returnedAmount)

	pots := pot.Build(adjusted)
	require.Len(t, pots, 2)

	require.Equal(t, int64(120), pots[0].Amount)
	require.Equal(t, map[pot.SeatID]bool{0: true, 1: true, 2: true}, pots[0].Eligible)

	require.Equal(t, int64(120), pots[1].Amount)
	require.Equal(t, map[pot.SeatID]bool{0: true, 2: true}, pots[1].Eligible)

	require.Equal(t, pot.TotalContribution(contributions), pot.TotalPots(pots)+returnedAmount)
}

func TestUncalledBetReturnedToTopContributor(t *testing.T) {
	contributions := []pot.Contribution{
		{Seat: 0, Amount: 50, Eligible: true},
		{Seat: 1, Amount: 20, Eligible: true},
	}
	adjusted, seat, amount := pot.ReturnUncalled(contributions)
	require.Equal(t, pot.SeatID(0), seat)
	require.Equal(t, int64(30), amount)
	require.Equal(t, int64(20), adjusted[0].Amount)

	pots := pot.Build(adjusted)
	require.Len(t, pots, 1)
	require.Equal(t, int64(40), pots[0].Amount)
}

func TestFoldedSeatStillContributesButIsNotEligible(t *testing.T) {
	contributions := []pot.Contribution{
		{Seat: 0, Amount: 30, Eligible: false}, // folded
		{Seat: 1, Amount: 30, Eligible: true},
		{Seat: 2, Amount: 30, Eligible: true},
	}
	pots := pot.Build(contributions)
	require.Len(t, pots, 1)
	require.Equal(t, int64(90), pots[0].Amount)
	require.Equal(t, map[pot.SeatID]bool{1: true, 2: true}, pots[0].Eligible)
}

func TestDistributeSplitsRemainderStartingLeftOfDealer(t *testing.T) {
	p := pot.Pot{Amount: 10, Eligible: map[pot.SeatID]bool{0: true, 1: true, 2: true}}
	hands := []pot.Hand{{Seat: 0, Rank: 1}, {Seat: 1, Rank: 1}, {Seat: 2, Rank: 1}}
	compare := func(a, b interface{}) int { return a.(int) - b.(int) }

	deltas := pot.Distribute(p, hands, compare, 2 /* dealer */, 3)
	require.Len(t, deltas, 3)

	var total int64
	for _, d := range deltas {
		total += d.Amount
	}
	require.Equal(t, int64(10), total)

	// Seat left of dealer (seat 0) gets the remainder chip first.
	require.Equal(t, pot.SeatID(0), deltas[0].Seat)
	require.Equal(t, int64(4), deltas[0].Amount)
}

func TestDistributeOnlyBestHandsAmongEligibleWin(t *testing.T) {
	p := pot.Pot{Amount: 100, Eligible: map[pot.SeatID]bool{0: true, 1: true}}
	hands := []pot.Hand{{Seat: 0, Rank: 5}, {Seat: 1, Rank: 2}}
	compare := func(a, b interface{}) int { return a.(int) - b.(int) }

	deltas := pot.Distribute(p, hands, compare, 0, 2)
	require.Len(t, deltas, 1)
	require.Equal(t, pot.SeatID(0), deltas[0].Seat)
	require.Equal(t, int64(100), deltas[0].Amount)
}
