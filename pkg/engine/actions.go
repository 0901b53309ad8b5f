package engine

import (
	"time"

	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/table"
)

// LegalAction is one action available to the seat currently to act, with
// the bounds on its amount (where applicable).
type LegalAction struct {
	Type   table.ActionType
	MinAmt int64 // for bet/raise: minimum total this-round bet after the action
	MaxAmt int64 // for bet/raise/call/all-in: the seat's stack-bounded ceiling
}

// amountToCall is the gap between the current bet and a seat's current-round
// contribution.
func (h *Hand) amountToCall(idx int) int64 {
	return h.CurrentBet - h.Seats[idx].CurrentRoundBet
}

// LegalActions computes the actions available at the turn cursor from
// (current bet, seat's current-round bet, seat's stack), per spec.md §4.3.
func (h *Hand) LegalActions() []LegalAction {
	idx := h.TurnCursor
	s := h.Seats[idx]
	toCall := h.amountToCall(idx)

	actions := []LegalAction{{Type: table.ActionFold}}

	switch {
	case toCall == 0:
		actions = append(actions, LegalAction{Type: table.ActionCheck})
	case toCall > 0 && toCall <= s.Stack:
		actions = append(actions, LegalAction{Type: table.ActionCall, MinAmt: toCall, MaxAmt: toCall})
	}

	if toCall == 0 && s.Stack > 0 {
		min := h.config.BigBlind
		if min > s.Stack {
			min = s.Stack
		}
		actions = append(actions, LegalAction{Type: table.ActionBet, MinAmt: min, MaxAmt: s.Stack})
	}

	// A seat that has already acted since the last qualifying raise may not
	// raise again unless that raise reopened action for it (spec.md §8
	// Scenario 3: an under-raise all-in does not reopen raising rights for
	// seats that already matched the prior level).
	if toCall > 0 && s.Stack > toCall && !h.actionsThisRound[idx] {
		minIncrement := h.MinRaise
		minTotal := h.CurrentBet + minIncrement
		maxTotal := s.CurrentRoundBet + s.Stack
		if minTotal > maxTotal {
			minTotal = maxTotal
		}
		actions = append(actions, LegalAction{Type: table.ActionRaise, MinAmt: minTotal, MaxAmt: maxTotal})
	}

	if s.Stack > 0 {
		actions = append(actions, LegalAction{Type: table.ActionAllIn, MinAmt: s.CurrentRoundBet + s.Stack, MaxAmt: s.CurrentRoundBet + s.Stack})
	}

	return actions
}

// TurnDeadline returns when the seat at the turn cursor must act by. The
// Room Controller owns the actual timer (spec.md §5: the engine holds no
// goroutines or timers of its own) and re-posts a timeout event onto the
// table's event loop at this instant.
func (h *Hand) TurnDeadline() time.Time {
	return h.TurnStartedAt.Add(h.config.TurnBudget)
}

// AutoAct applies the default action for a seat that missed its turn
// deadline: check if legal, otherwise fold (spec.md §4.3's "Turn timeout").
// The caller (Room Controller) is responsible for calling this only after
// confirming the deadline has actually passed for the current turn cursor.
func (h *Hand) AutoAct(seatIdx int) error {
	if seatIdx != h.TurnCursor {
		return perrors.Protocolf("wrong-seat", "auto-act for seat %d but turn is seat %d", seatIdx, h.TurnCursor)
	}
	if h.isLegal(table.ActionCheck) {
		return h.ApplyAction(seatIdx, table.ActionCheck, 0)
	}
	return h.ApplyAction(seatIdx, table.ActionFold, 0)
}

func (h *Hand) isLegal(actionType table.ActionType) bool {
	for _, a := range h.LegalActions() {
		if a.Type == actionType {
			return true
		}
	}
	return false
}

// ApplyAction validates and applies a player's action at the turn cursor.
// An illegal action is rejected without any state change (spec.md §4.3's
// failure semantics); the caller sees the returned error and surfaces
// `invalid-action` to the client.
func (h *Hand) ApplyAction(seatIdx int, actionType table.ActionType, amount int64) error {
	if h.Phase != Preflop && h.Phase != Flop && h.Phase != Turn && h.Phase != River {
		return perrors.Protocolf("wrong-phase", "no betting action legal in phase %s", h.Phase)
	}
	if seatIdx != h.TurnCursor {
		return perrors.Protocolf("wrong-seat", "seat %d acted out of turn (turn is seat %d)", seatIdx, h.TurnCursor)
	}
	if !h.isLegal(actionType) {
		return perrors.Protocolf("illegal-action", "action %s not legal for seat %d", actionType, seatIdx)
	}

	s := h.Seats[seatIdx]
	switch actionType {
	case table.ActionFold:
		s.Status.Folded = true
		h.log(seatIdx, table.ActionFold, 0)

	case table.ActionCheck:
		h.log(seatIdx, table.ActionCheck, 0)

	case table.ActionCall:
		delta := h.amountToCall(seatIdx)
		if delta > s.Stack {
			delta = s.Stack
			s.Status.AllIn = true
		}
		s.Stack -= delta
		s.CurrentRoundBet += delta
		s.CumulativeContribution += delta
		h.log(seatIdx, table.ActionCall, delta)

	case table.ActionBet, table.ActionRaise:
		if err := h.applyAggression(seatIdx, actionType, amount); err != nil {
			return err
		}

	case table.ActionAllIn:
		delta := s.Stack
		total := s.CurrentRoundBet + delta
		s.Stack = 0
		s.CurrentRoundBet = total
		s.CumulativeContribution += delta
		s.Status.AllIn = true
		increment := total - h.CurrentBet
		if total > h.CurrentBet {
			h.CurrentBet = total
		}
		if increment >= h.MinRaise {
			h.MinRaise = increment
			h.ReopenThreshold = increment
			h.LastAggressor = seatIdx
			// A full-size all-in raise reopens action like any other
			// qualifying raise.
			for i := range h.Seats {
				if i != seatIdx && h.CanAct(i) {
					delete(h.actionsThisRound, i)
				}
			}
		}
		h.log(seatIdx, table.ActionAllIn, delta)

	default:
		return perrors.Protocolf("unknown-action", "unknown action %s", actionType)
	}

	if s.Stack == 0 && !s.Status.Folded {
		s.Status.AllIn = true
	}

	h.actionsThisRound[seatIdx] = true
	h.advanceTurnOrPhase()
	return nil
}

// applyAggression handles bet/raise: validates the minimum increment,
// applies chips, and updates min-raise/reopen-threshold/last-aggressor per
// spec.md §4.3's "Raise sizing".
func (h *Hand) applyAggression(seatIdx int, actionType table.ActionType, totalAmount int64) error {
	s := h.Seats[seatIdx]
	var minTotal, maxTotal int64
	for _, a := range h.LegalActions() {
		if a.Type == actionType {
			minTotal, maxTotal = a.MinAmt, a.MaxAmt
		}
	}
	if totalAmount < minTotal && totalAmount != maxTotal {
		return perrors.Protocolf("below-min-raise", "amount %d below minimum %d", totalAmount, minTotal)
	}
	if totalAmount > maxTotal {
		return perrors.Protocolf("exceeds-stack", "amount %d exceeds available %d", totalAmount, maxTotal)
	}

	delta := totalAmount - s.CurrentRoundBet
	s.Stack -= delta
	s.CurrentRoundBet = totalAmount
	s.CumulativeContribution += delta
	if s.Stack == 0 {
		s.Status.AllIn = true
	}

	increment := totalAmount - h.CurrentBet
	h.CurrentBet = totalAmount
	if increment >= h.MinRaise {
		h.MinRaise = increment
		h.ReopenThreshold = increment
		h.LastAggressor = seatIdx
		// A qualifying raise reopens action for every other seat that can
		// still act (spec.md §4.3).
		for i := range h.Seats {
			if i != seatIdx && h.CanAct(i) {
				delete(h.actionsThisRound, i)
			}
		}
	}
	// else: an under-raise all-in advances the current bet for calling
	// purposes but does not reopen action for seats already acted at the
	// prior level (tracked implicitly: we do not clear actionsThisRound).

	h.log(seatIdx, actionType, totalAmount)
	return nil
}

// roundComplete implements spec.md §4.3's "Round completion": every
// non-folded non-all-in seat has acted at least once this round, and either
// all such seats have matching current-round bets, or at most one seat can
// still act.
func (h *Hand) roundComplete() bool {
	actable := h.seatsThatCanAct()
	if len(actable) <= 1 {
		for _, i := range actable {
			if !h.actionsThisRound[i] {
				return false
			}
		}
		return true
	}
	for _, i := range actable {
		if !h.actionsThisRound[i] {
			return false
		}
		if h.Seats[i].CurrentRoundBet != h.CurrentBet {
			return false
		}
	}
	return true
}

// advanceTurnOrPhase moves the turn cursor to the next seat that can act,
// or — if the round is complete — advances the hand's phase.
func (h *Hand) advanceTurnOrPhase() {
	nonFolded := h.ActiveNonFolded()
	if len(nonFolded) <= 1 {
		// A single survivor still owns every pot built so far; route through
		// Showdown so Settle can award it without a card reveal.
		h.Phase = Showdown
		return
	}

	if h.roundComplete() {
		h.advancePhase()
		return
	}

	h.TurnCursor = h.nextActiveFrom((h.TurnCursor+1)%len(h.Seats), true)
	h.TurnStartedAt = time.Now()
}

func (h *Hand) advancePhase() {
	resetRound := func() {
		for _, s := range h.Seats {
			s.CurrentRoundBet = 0
		}
		h.CurrentBet = 0
		h.MinRaise = h.config.BigBlind
		h.ReopenThreshold = h.config.BigBlind
		h.LastAggressor = -1
		h.actionsThisRound = map[int]bool{}
	}

	burnAndDeal := func(n int) error {
		if _, ok := h.Deck.Draw(); !ok { // burn
			return perrors.Invariantf("deck-exhausted", "deck exhausted on burn")
		}
		for i := 0; i < n; i++ {
			c, ok := h.Deck.Draw()
			if !ok {
				return perrors.Invariantf("deck-exhausted", "deck exhausted dealing community cards")
			}
			h.CommunityCards = append(h.CommunityCards, c)
		}
		return nil
	}

	switch h.Phase {
	case Preflop:
		if err := burnAndDeal(3); err != nil {
			h.Phase = Finished
			return
		}
		h.Phase = Flop
	case Flop:
		if err := burnAndDeal(1); err != nil {
			h.Phase = Finished
			return
		}
		h.Phase = Turn
	case Turn:
		if err := burnAndDeal(1); err != nil {
			h.Phase = Finished
			return
		}
		h.Phase = River
	case River:
		h.Phase = Showdown
		return
	default:
		return
	}

	resetRound()

	nonFolded := h.ActiveNonFolded()
	allAllIn := true
	for _, s := range nonFolded {
		if !s.Status.AllIn {
			allAllIn = false
		}
	}
	if allAllIn {
		// Nobody left to act: keep dealing through to showdown without
		// waiting on turns (spec.md §4.3's "at most one seat can still act").
		h.advancePhase()
		return
	}

	h.beginTurn(h.firstToActPostflop())
}
