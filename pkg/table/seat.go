package table

import (
	"time"

	"github.com/opencardroom/pokerd/pkg/card"
)

// ActionType is the type of a player action, recorded in the hand's action
// log and in LastAction.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"
)

// LastAction records a seat's most recent action this round.
type LastAction struct {
	Type      ActionType
	Amount    int64
	Timestamp time.Time
}

// Status flags for a seated player (spec.md §3).
type Status struct {
	Active    bool
	Folded    bool
	AllIn     bool
	SittingOut bool
}

// Roles flags for a seated player (spec.md §3).
type Roles struct {
	Dealer     bool
	SmallBlind bool
	BigBlind   bool
}

// Seat is a seated player: stable id, wallet, display name, position, and
// all per-hand mutable state (spec.md §3's "Seated Player").
type Seat struct {
	PlayerID    string
	Wallet      string // lowercase wallet address
	DisplayName string
	Index       int

	Stack                int64
	CurrentRoundBet      int64
	CumulativeContribution int64

	Status Status
	Roles  Roles

	HoleCards []card.Card // 0 or 2

	LastAction *LastAction

	DisconnectedAt *time.Time
}

// InvariantError reports a violated Seat invariant (spec.md §3).
type InvariantError struct{ Reason string }

func (e *InvariantError) Error() string { return "table: seat invariant violated: " + e.Reason }

// CheckInvariants validates the per-seat invariants listed in spec.md §3.
func (s *Seat) CheckInvariants() error {
	if s.Stack < 0 {
		return &InvariantError{Reason: "negative stack"}
	}
	if s.CurrentRoundBet > s.CumulativeContribution {
		return &InvariantError{Reason: "current-round bet exceeds cumulative contribution"}
	}
	if s.Status.Folded && s.LastAction != nil && s.LastAction.Type != ActionFold {
		// Folded seats may still carry a prior non-fold LastAction from
		// earlier in the hand; this is informational, not a violation by
		// itself. No check needed beyond the fold flag meaning "no further
		// action legal this hand", enforced by the Hand Engine's turn logic.
		_ = s.LastAction
	}
	if s.Status.AllIn && s.Stack != 0 {
		return &InvariantError{Reason: "all-in seat has nonzero stack"}
	}
	return nil
}

// AddChips adds a rebuy/add-on, bounded by maxBuyIn applied against the
// seat's current Stack only; chips already committed to the current hand
// (CumulativeContribution) are not counted. Grounded
// on the teacher's buy-in validation in pkg/server/server.go's CreateTable/
// JoinTable, generalized to mid-session rebuys (SPEC_FULL.md "Add-chips").
func (s *Seat) AddChips(amount int64, maxBuyIn int64) error {
	if amount <= 0 {
		return &InvariantError{Reason: "add-chips amount must be positive"}
	}
	if s.Stack+amount > maxBuyIn {
		return &InvariantError{Reason: "add-chips would exceed max buy-in"}
	}
	s.Stack += amount
	return nil
}
