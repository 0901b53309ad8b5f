package room

import (
	"time"

	"github.com/opencardroom/pokerd/pkg/engine"
	"github.com/opencardroom/pokerd/pkg/perrors"
)

// armTurnTimer schedules a timerTurn event at the current turn's deadline.
// The timer fires into r.events regardless of which goroutine's clock runs
// it; only the Room's own loop goroutine ever mutates r.hand when it is
// dequeued (spec.md §5 Design Note "timers are messages on that loop, not
// concurrent callbacks").
func (r *Room) armTurnTimer() {
	if r.hand == nil {
		return
	}
	switch r.hand.Phase {
	case engine.Preflop, engine.Flop, engine.Turn, engine.River:
	default:
		return
	}
	seat := r.hand.TurnCursor
	handNo := r.hand.Number
	d := time.Until(r.hand.TurnDeadline())
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, func() {
		r.events <- event{kind: evTimerFire, timerKind: timerTurn, timerSeat: seat, timerHandNo: handNo}
	})
}

// armMPTimer schedules a timerMPStep event at the coordinator's current
// step deadline.
func (r *Room) armMPTimer() {
	if r.coordinator == nil {
		return
	}
	handNo := r.handNumber
	d := time.Until(r.coordinator.Deadline())
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, func() {
		r.events <- event{kind: evTimerFire, timerKind: timerMPStep, timerHandNo: handNo}
	})
}

// armDisconnectTimers schedules the removal grace timer for a physical
// seat, plus — if it is currently that seat's turn — the shorter
// disconnect-aware auto-fold timer (spec.md §5).
func (r *Room) armDisconnectTimers(physicalSeat int, wallet string) {
	gen := r.seatGeneration[physicalSeat]
	time.AfterFunc(r.cfg.DisconnectGrace, func() {
		r.events <- event{kind: evTimerFire, timerKind: timerDisconnectRemoval, timerSeat: physicalSeat, timerGeneration: gen, wallet: wallet}
	})

	if handIdx, ok := r.handIndexOfWallet(wallet); ok && r.hand != nil && r.hand.TurnCursor == handIdx {
		const disconnectedTurnGrace = 30 * time.Second
		time.AfterFunc(disconnectedTurnGrace, func() {
			r.events <- event{kind: evTimerFire, timerKind: timerAutoFold, timerSeat: physicalSeat, timerGeneration: gen, wallet: wallet}
		})
	}
}

func (r *Room) handleTimer(ev event) {
	switch ev.timerKind {
	case timerTurn:
		if r.hand == nil || r.hand.Number != ev.timerHandNo || r.hand.TurnCursor != ev.timerSeat {
			return
		}
		if time.Now().Before(r.hand.TurnDeadline()) {
			return
		}
		_ = r.hand.AutoAct(ev.timerSeat)
		r.afterAction()

	case timerDisconnectRemoval:
		seat := r.seats[ev.timerSeat]
		if seat == nil || seat.Wallet != ev.wallet || seat.DisconnectedAt == nil {
			return
		}
		if r.seatGeneration[ev.timerSeat] != ev.timerGeneration {
			return
		}
		r.removeSeat(ev.timerSeat)

	case timerAutoFold:
		seat := r.seats[ev.timerSeat]
		if seat == nil || seat.Wallet != ev.wallet || seat.DisconnectedAt == nil {
			return
		}
		if r.seatGeneration[ev.timerSeat] != ev.timerGeneration {
			return
		}
		handIdx, ok := r.handIndexOfWallet(ev.wallet)
		if !ok || r.hand == nil || r.hand.TurnCursor != handIdx {
			return
		}
		_ = r.hand.AutoAct(handIdx)
		r.afterAction()

	case timerMPStep:
		if r.coordinator == nil || ev.timerHandNo != r.handNumber {
			return
		}
		if !r.coordinator.DeadlineExpired(time.Now()) {
			return
		}
		cause := perrors.Transientf("mp-step-timeout", "mental poker step deadline exceeded")
		r.abortHand(cause)
	}
}
