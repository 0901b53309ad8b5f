package room

import (
	"time"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/engine"
	"github.com/opencardroom/pokerd/pkg/mentalpoker"
	"github.com/opencardroom/pokerd/pkg/transport"
)

// gameStatePayload renders the table's full public state (spec.md §6's
// game:state), converting every hand-relative index back to the physical
// seat index clients know a player by.
func (r *Room) gameStatePayload() transport.GameStatePayload {
	seats := make([]transport.SeatPublicView, 0, len(r.seats))
	for i, s := range r.seats {
		if s == nil {
			continue
		}
		seats = append(seats, transport.SeatPublicView{
			SeatIndex:   i,
			Wallet:      s.Wallet,
			DisplayName: s.DisplayName,
			Stack:       transport.ChipAmount(s.Stack),
			CurrentBet:  transport.ChipAmount(s.CurrentRoundBet),
			Folded:      s.Status.Folded,
			AllIn:       s.Status.AllIn,
			SittingOut:  s.Status.SittingOut,
			IsDealer:    s.Roles.Dealer,
		})
	}

	phase := string(engine.Waiting)
	dealer, turn := -1, -1
	var pot int64
	var curBet int64
	var community []card.Card
	if r.hand != nil {
		phase = string(r.hand.Phase)
		curBet = r.hand.CurrentBet
		dealer = r.hand.Seats[r.hand.Dealer].Index
		if r.hand.TurnCursor >= 0 && r.hand.TurnCursor < len(r.hand.Seats) {
			turn = r.hand.Seats[r.hand.TurnCursor].Index
		}
		community = r.hand.CommunityCards
		for _, s := range r.hand.Seats {
			pot += s.CumulativeContribution
		}
	}

	return transport.GameStatePayload{
		Phase:          phase,
		Pot:            transport.ChipAmount(pot),
		CurrentBet:     transport.ChipAmount(curBet),
		DealerSeat:     dealer,
		TurnSeat:       turn,
		HandNumber:     r.handNumber,
		Seats:          seats,
		CommunityCards: community,
	}
}

// emitTurn broadcasts whose turn it is and which actions are legal, to
// every connected player (spec.md §6's game:turn).
func (r *Room) emitTurn() {
	if r.hand == nil {
		return
	}
	physical := r.hand.Seats[r.hand.TurnCursor].Index
	r.broadcast(transport.GameTurn, r.turnPayload(physical))
}

// emitTurnTo sends the same game:turn notice to a single reconnecting
// wallet, without re-broadcasting to everyone else.
func (r *Room) emitTurnTo(wallet string) {
	if r.hand == nil {
		return
	}
	physical := r.hand.Seats[r.hand.TurnCursor].Index
	r.sendTo(wallet, transport.GameTurn, r.turnPayload(physical))
}

func (r *Room) turnPayload(physicalSeat int) transport.GameTurnPayload {
	legal := r.hand.LegalActions()
	names := make([]string, len(legal))
	for i, a := range legal {
		names[i] = string(a.Type)
	}
	remaining := int(time.Until(r.hand.TurnDeadline()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return transport.GameTurnPayload{SeatIndex: physicalSeat, TimeRemainingSec: remaining, AvailableActions: names}
}

// broadcastMPPhase announces the coordinator's current phase (and, during
// Shuffle, whose turn it is to contribute) and re-arms the per-step timer.
func (r *Room) broadcastMPPhase() {
	if r.coordinator == nil {
		return
	}
	var shuffler *int
	if r.coordinator.Phase == mentalpoker.Shuffle {
		s := r.coordinator.CurrentShuffler()
		shuffler = &s
	}
	r.broadcast(transport.MentalPokerPhase, transport.MentalPokerPhasePayload{
		Phase:           string(r.coordinator.Phase),
		CurrentShuffler: shuffler,
	})
	r.armMPTimer()
}
