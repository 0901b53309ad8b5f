// Package room implements the Room Controller (spec.md §5): one single-
// goroutine actor per table, owning exactly one *engine.Hand and (when the
// table runs Mental Poker) one *mentalpoker.Coordinator, fed by a FIFO
// channel of inbound events. Timers are re-posted onto the same channel
// rather than driving state from a separate goroutine, so the Hand Engine
// and Coordinator are never mutated concurrently.
//
// Grounded on TylerPetri-P2Poker's internal/table/table.go Run() method — a
// select over one inbound channel plus a ticker/timeout, dispatching to
// internal methods rather than spawning goroutines per event — generalized
// from that repo's authority/follower consensus loop to spec.md §4.5's
// closed set of join/leave/action/mental-poker/chat/timer/disconnect event
// kinds. The payload-per-event-tag shape and per-table ownership boundary
// are grounded on the teacher's pkg/server/events.go GameEvent/EventProcessor
// (vctt94-pokerbisonrelay), whose worker-pool dispatch we replace with a
// strictly single-goroutine loop since spec.md §5 requires one table's state
// to be mutated by exactly one goroutine at a time.
package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/engine"
	"github.com/opencardroom/pokerd/pkg/escrow"
	"github.com/opencardroom/pokerd/pkg/mentalpoker"
	"github.com/opencardroom/pokerd/pkg/persistence"
	"github.com/opencardroom/pokerd/pkg/table"
	"github.com/opencardroom/pokerd/pkg/transport"
)

// Connection is the Room Controller's view of a player's live transport
// connection: just "deliver this tagged payload", so pkg/room never imports
// gorilla/websocket directly (spec.md §9 Design Note "keep the transport
// library out of the domain packages").
type Connection interface {
	Send(tag transport.OutboundTag, payload interface{})
}

// Room is the per-table actor. Exported methods enqueue an event and block
// the CALLER until it is processed (a request/response shape over the
// channel); they never run on the Room's own goroutine, so callers from
// many connections can invoke them concurrently while the table's state is
// still touched by exactly one goroutine (spec.md §5).
type Room struct {
	cfg          table.Config
	log          slog.Logger
	escrowClient escrow.Client
	store        persistence.Store
	rng          *rand.Rand

	events chan event
	stop   chan struct{}
	wg     sync.WaitGroup

	seats          []*table.Seat     // physical seats, index-stable for the table's lifetime; nil = empty
	conns          map[string]Connection // wallet -> live connection
	sessions       map[string]string     // wallet -> persistence session id
	seatGeneration []int                 // bumped on disconnect/reconnect to invalidate stale timers, one per physical seat

	hand           *engine.Hand
	handNumber     int
	dealerIdx      int // physical seat index of the last hand's dealer
	lastPhase      engine.Phase
	handStartedAt  time.Time
	handStartStack map[string]int64

	coordinator      *mentalpoker.Coordinator
	mpCommitCount    int
	mpSeatCount      int
	mpRevealTotal    int                       // required reveal positions for the current showdown
	mpRevealComplete map[card.Position]bool // positions whose required reveal set is already satisfied
}

// New constructs a Room for one table. escrowClient and store are shared
// collaborators injected by the caller (spec.md §6); store may be nil for a
// table that does not persist (tests, ephemeral play-money tables).
func New(cfg table.Config, escrowClient escrow.Client, store persistence.Store, log slog.Logger) *Room {
	return &Room{
		cfg:            cfg,
		log:            log,
		escrowClient:   escrowClient,
		store:          store,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		events:         make(chan event, 64),
		stop:           make(chan struct{}),
		seats:          make([]*table.Seat, cfg.MaxSeats),
		conns:          map[string]Connection{},
		sessions:       map[string]string{},
		seatGeneration: make([]int, cfg.MaxSeats),
		dealerIdx:      -1,
		handStartStack: map[string]int64{},
	}
}

// Run drives the event loop until Stop is called. Callers should run it in
// its own goroutine; it is the only goroutine permitted to touch r.hand,
// r.coordinator, r.seats, or any other table state directly.
func (r *Room) Run() {
	r.wg.Add(1)
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.stop:
			return
		}
	}
}

// Stop signals Run to return after draining no further events. In-flight
// public API calls blocked on a reply will receive a "room closed" error.
func (r *Room) Stop() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Room) dispatch(ev event) {
	var err error
	switch ev.kind {
	case evJoin:
		err = r.handleJoin(ev)
	case evLeave:
		err = r.handleLeave(ev)
	case evSitOut:
		err = r.handleSitOut(ev)
	case evSitIn:
		err = r.handleSitIn(ev)
	case evAddChips:
		err = r.handleAddChips(ev)
	case evAction:
		err = r.handleAction(ev)
	case evShowCards:
		err = r.handleShowCards(ev)
	case evMPCommit:
		err = r.handleMPCommit(ev)
	case evMPShuffle:
		err = r.handleMPShuffle(ev)
	case evMPReveal:
		err = r.handleMPReveal(ev)
	case evChat:
		err = r.handleChat(ev)
	case evDisconnect:
		err = r.handleDisconnect(ev)
	case evReconnect:
		err = r.handleReconnect(ev)
	case evTimerFire:
		r.handleTimer(ev)
		return
	}
	if ev.done != nil {
		ev.done <- err
	}
}

// seatIndexOf returns the physical seat index a wallet currently occupies.
func (r *Room) seatIndexOf(wallet string) (int, bool) {
	for i, s := range r.seats {
		if s != nil && s.Wallet == wallet {
			return i, true
		}
	}
	return 0, false
}

// handIndexOfWallet returns a wallet's index into the CURRENT hand's frozen
// seat order (distinct from its physical table seat index, per hand.go's
// "frozen seat order... already filtered to eligible-to-deal seats").
func (r *Room) handIndexOfWallet(wallet string) (int, bool) {
	if r.hand == nil {
		return 0, false
	}
	for i, s := range r.hand.Seats {
		if s.Wallet == wallet {
			return i, true
		}
	}
	return 0, false
}

func (r *Room) findSeat(desired int) (int, error) {
	if desired >= 0 {
		if desired >= len(r.seats) {
			return 0, badSeatError(desired)
		}
		if r.seats[desired] != nil {
			return 0, seatTakenError(desired)
		}
		return desired, nil
	}
	for i, s := range r.seats {
		if s == nil {
			return i, nil
		}
	}
	return 0, tableFullError()
}

func (r *Room) broadcast(tag transport.OutboundTag, payload interface{}) {
	for _, c := range r.conns {
		c.Send(tag, payload)
	}
}

func (r *Room) sendTo(wallet string, tag transport.OutboundTag, payload interface{}) {
	if c, ok := r.conns[wallet]; ok {
		c.Send(tag, payload)
	}
}

func (r *Room) removeSeat(idx int) {
	seat := r.seats[idx]
	if seat == nil {
		return
	}
	if err := r.escrowClient.UnlockChips(seat.Wallet, seat.Stack, r.cfg.ID); err != nil {
		r.log.Warnf("room %s: unlock chips for %s: %v", r.cfg.ID, seat.Wallet, err)
	}
	if r.store != nil {
		if sid, ok := r.sessions[seat.Wallet]; ok {
			if err := r.store.EndSession(sid, time.Now()); err != nil {
				r.log.Warnf("room %s: end session for %s: %v", r.cfg.ID, seat.Wallet, err)
			}
			delete(r.sessions, seat.Wallet)
		}
	}
	delete(r.conns, seat.Wallet)
	r.seats[idx] = nil
	r.seatGeneration[idx]++
	r.broadcast(transport.GameState, r.gameStatePayload())
}

// mpPhysicalSeats returns the physical seat indices of every seat dealt
// into the current hand, in hand order — the seated-player set the Mental
// Poker Coordinator is started over (spec.md §4.4).
func (r *Room) mpPhysicalSeats() []int {
	out := make([]int, len(r.hand.Seats))
	for i, s := range r.hand.Seats {
		out[i] = s.Index
	}
	return out
}
