package room

import (
	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/mentalpoker"
	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/table"
)

// eventKind is the closed set of inbound events the Room's loop accepts
// (spec.md §4.5).
type eventKind int

const (
	evJoin eventKind = iota
	evLeave
	evSitOut
	evSitIn
	evAddChips
	evAction
	evShowCards
	evMPCommit
	evMPShuffle
	evMPReveal
	evChat
	evTimerFire
	evDisconnect
	evReconnect
)

// timerKind distinguishes the re-posted timer events described in spec.md
// §5: turn timeouts, the disconnect removal grace period, the disconnect-
// aware auto-fold, and the Mental Poker per-step deadline.
type timerKind int

const (
	timerTurn timerKind = iota
	timerDisconnectRemoval
	timerAutoFold
	timerMPStep
)

// event is the single struct every inbound message or timer becomes before
// being sent on the Room's channel. Only the fields relevant to kind are
// populated; this mirrors the teacher's single GameEvent struct carrying a
// Type discriminator rather than one struct per event kind.
type event struct {
	kind eventKind

	wallet string
	conn   Connection

	desiredSeat int
	buyIn       int64

	actionType table.ActionType
	amount     int64

	message string

	commitment  string
	shuffleDeck []mentalpoker.Ciphertext
	revealPos   card.Position
	revealKey   []byte
	revealSalt  []byte

	timerKind       timerKind
	timerSeat       int // hand-relative index for timerTurn; physical seat index for the rest
	timerGeneration int
	timerHandNo     int

	done   chan error
	result interface{}
}

type joinResult struct{ seatIndex int }

func badSeatError(seat int) error {
	return perrors.Validationf("bad-seat", "seat %d out of range", seat)
}

func seatTakenError(seat int) error {
	return perrors.Protocolf("seat-taken", "seat %d is already occupied", seat)
}

func tableFullError() error {
	return perrors.Protocolf("table-full", "no free seats")
}
