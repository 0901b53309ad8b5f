// Package pot implements the pure Pot Builder (spec.md §4.2): given each
// contestant's cumulative contribution and fold status it produces an
// ordered list of (amount, eligible set) pots, plus uncalled-bet return and
// distribution to showdown winners.
//
// Grounded on the teacher's pkg/poker/pot.go (PotManager.CreateSidePots /
// ReturnUncalledBet / DistributePots), generalized from a player-index/slice
// model into a pure function over seat contributions so it has no side
// effects and is independently testable per spec.md §8.
package pot

import (
	"sort"
)

// SeatID identifies a seat at the table for the purposes of pot math.
type SeatID int

// Type distinguishes the first (main) pot from later side pots.
type Type int

const (
	Main Type = iota
	Side
)

// Contribution is one seat's input to the pot-building algorithm.
type Contribution struct {
	Seat     SeatID
	Amount   int64 // cumulative chip contribution over the hand
	Eligible bool  // true if the seat has not folded
}

// Pot is one pot in the decomposition: an amount and the set of seats
// eligible to win it.
type Pot struct {
	Amount    int64
	Eligible  map[SeatID]bool
	Type      Type
}

// ReturnUncalled implements the pre-step described in spec.md §4.2: if the
// highest contribution among eligible (non-folded) seats exceeds the
// second-highest contribution among ALL seats, the difference is returned
// to the top contributor rather than placed in any pot. It mutates a copy
// of contributions and returns (adjusted contributions, seat that received a
// return or -1, amount returned).
func ReturnUncalled(contributions []Contribution) ([]Contribution, SeatID, int64) {
	adjusted := make([]Contribution, len(contributions))
	copy(adjusted, contributions)

	var topSeat SeatID = -1
	var topAmount int64 = -1
	var topIdx = -1
	for i, c := range adjusted {
		if !c.Eligible {
			continue
		}
		if c.Amount > topAmount {
			topAmount = c.Amount
			topSeat = c.Seat
			topIdx = i
		}
	}
	if topIdx == -1 {
		return adjusted, -1, 0
	}

	var secondHighest int64
	for _, c := range adjusted {
		if c.Seat == topSeat {
			continue
		}
		if c.Amount > secondHighest {
			secondHighest = c.Amount
		}
	}

	if topAmount > secondHighest {
		diff := topAmount - secondHighest
		adjusted[topIdx].Amount -= diff
		return adjusted, topSeat, diff
	}
	return adjusted, -1, 0
}

// Build decomposes contributions into an ordered list of pots following the
// contribution-level algorithm of spec.md §4.2. Callers should apply
// ReturnUncalled first. Pots whose eligible set would be empty are folded
// into the previous pot's amount (their money still belongs to someone, but
// nobody remaining can win it as a separate pot — it rides with the next
// lower level that has eligible seats).
func Build(contributions []Contribution) []Pot {
	levels := distinctLevels(contributions)
	if len(levels) == 0 {
		return nil
	}

	var pots []Pot
	var prev int64
	for _, level := range levels {
		amount := int64(0)
		eligible := map[SeatID]bool{}
		for _, c := range contributions {
			if c.Amount <= prev {
				continue
			}
			slice := c.Amount
			if slice > level {
				slice = level
			}
			amount += slice - prev
			if c.Amount >= level && c.Eligible {
				eligible[c.Seat] = true
			}
		}
		if len(eligible) == 0 {
			// Fold into the previous pot: no seat survives to contest this
			// level, so the money rides along with the pot below it.
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += amount
			}
		} else {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}

	for i := range pots {
		if i == 0 {
			pots[i].Type = Main
		} else {
			pots[i].Type = Side
		}
	}
	return pots
}

func distinctLevels(contributions []Contribution) []int64 {
	seen := map[int64]bool{}
	var levels []int64
	for _, c := range contributions {
		if c.Amount <= 0 {
			continue
		}
		if !seen[c.Amount] {
			seen[c.Amount] = true
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// Hand ranks a seat's best hand for distribution purposes. Comparable with
// itself via Compare, supplied by the caller (pkg/engine wires this to
// pkg/evaluator.Compare) to keep this package free of the evaluator
// dependency.
type Hand struct {
	Seat SeatID
	Rank interface{} // opaque; compared only via the supplied Compare func
}

// Delta is the chips credited to a seat from one pot's distribution (or, in
// pkg/engine, from an uncalled-bet return); it is a payout, not a net change.
type Delta struct {
	Seat   SeatID
	Amount int64
}

// Distribute splits one pot's amount among its winners: floor(amount/n) each,
// with the remainder paid chip-by-chip to winners in ascending seat order
// starting with the seat left of the dealer (spec.md §4.2).
func Distribute(p Pot, hands []Hand, compare func(a, b interface{}) int, dealerSeat SeatID, numSeats int) []Delta {
	var winners []Hand
	for _, h := range hands {
		if !p.Eligible[h.Seat] {
			continue
		}
		if len(winners) == 0 {
			winners = []Hand{h}
			continue
		}
		c := compare(h.Rank, winners[0].Rank)
		if c > 0 {
			winners = []Hand{h}
		} else if c == 0 {
			winners = append(winners, h)
		}
	}
	if len(winners) == 0 {
		return nil
	}

	sort.Slice(winners, func(i, j int) bool {
		return seatDistanceFromDealer(winners[i].Seat, dealerSeat, numSeats) < seatDistanceFromDealer(winners[j].Seat, dealerSeat, numSeats)
	})

	share := p.Amount / int64(len(winners))
	remainder := p.Amount % int64(len(winners))

	deltas := make([]Delta, len(winners))
	for i, w := range winners {
		amt := share
		if int64(i) < remainder {
			amt++
		}
		deltas[i] = Delta{Seat: w.Seat, Amount: amt}
	}
	return deltas
}

// seatDistanceFromDealer orders seats starting with the seat immediately
// left of the dealer, wrapping around the table.
func seatDistanceFromDealer(seat, dealer SeatID, numSeats int) int {
	if numSeats <= 0 {
		return int(seat)
	}
	d := (int(seat) - int(dealer) - 1 + numSeats) % numSeats
	return d
}

// TotalContribution sums all contributions, used by callers to assert
// spec.md §8's "Σ contribution = Σ pot amounts + uncalled-bet returns".
func TotalContribution(contributions []Contribution) int64 {
	var total int64
	for _, c := range contributions {
		total += c.Amount
	}
	return total
}

// TotalPots sums the amounts across a pot decomposition.
func TotalPots(pots []Pot) int64 {
	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
