package engine

import (
	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/evaluator"
	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/pot"
)

// SettlementResult is the outcome of Settle: the built pots and the chip
// deltas applied to each seat, plus which seats showed cards (spec.md §4.3's
// "Showdown" and SPEC_FULL.md's supplemented "show cards" feature).
type SettlementResult struct {
	Pots       []pot.Pot
	Deltas     []pot.Delta
	ShownSeats []int // seat indices whose hole cards were revealed to the table
}

// uncontested is the Rank sentinel used when exactly one seat remains
// (others folded): Compare never discriminates between hands at that pot.
type uncontested struct{}

// Settle builds the pots from cumulative contributions, returns any uncalled
// portion of the last bet, evaluates hands among eligible non-folded seats,
// and distributes each pot independently to its best-hand winners. Settle
// must be called exactly once per hand, at Phase == Showdown; it transitions
// the hand to Finished.
//
// Grounded on the teacher's pkg/poker/game.go showdown handling (evaluate
// all non-folded hands, award side pots independently) generalized to use
// pkg/pot's contribution-level construction instead of the teacher's
// single-pot-plus-one-side-pot special case.
func (h *Hand) Settle() (*SettlementResult, error) {
	if h.Phase != Showdown {
		return nil, perrors.Protocolf("wrong-phase", "Settle called outside showdown (phase %s)", h.Phase)
	}

	contributions := make([]pot.Contribution, len(h.Seats))
	for i, s := range h.Seats {
		contributions[i] = pot.Contribution{
			Seat:     pot.SeatID(i),
			Amount:   s.CumulativeContribution,
			Eligible: !s.Status.Folded,
		}
	}

	contributions, returnSeat, returnAmt := pot.ReturnUncalled(contributions)
	pots := pot.Build(contributions)

	var deltas []pot.Delta
	if returnAmt > 0 {
		deltas = append(deltas, pot.Delta{Seat: returnSeat, Amount: returnAmt})
	}

	nonFolded := h.ActiveNonFolded()
	showCards := len(nonFolded) > 1

	hands := make([]pot.Hand, 0, len(h.Seats))
	var shown []int
	for i, s := range h.Seats {
		if s.Status.Folded {
			continue
		}
		if showCards {
			seven := append(append([]card.Card{}, s.HoleCards...), h.CommunityCards...)
			rank := evaluator.Evaluate(seven)
			hands = append(hands, pot.Hand{Seat: pot.SeatID(i), Rank: rank})
			shown = append(shown, i)
		} else {
			hands = append(hands, pot.Hand{Seat: pot.SeatID(i), Rank: uncontested{}})
		}
	}

	compare := func(a, b interface{}) int {
		ra, aok := a.(evaluator.Ranking)
		rb, bok := b.(evaluator.Ranking)
		if aok && bok {
			return evaluator.Compare(ra, rb)
		}
		return 0
	}

	for _, p := range pots {
		deltas = append(deltas, pot.Distribute(p, hands, compare, pot.SeatID(h.Dealer), len(h.Seats))...)
	}

	applyDeltas(h, deltas)

	h.Phase = Finished
	return &SettlementResult{Pots: pots, Deltas: deltas, ShownSeats: shown}, nil
}

func applyDeltas(h *Hand, deltas []pot.Delta) {
	for _, d := range deltas {
		h.Seats[d.Seat].Stack += d.Amount
	}
}
