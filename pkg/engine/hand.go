// Package engine implements the per-table Hand Engine (spec.md §4.3): the
// betting state machine, turn sequencing, pot/side-pot construction via
// pkg/pot, and showdown evaluation via pkg/evaluator.
//
// Grounded on the teacher's pkg/poker/game.go (Game's Rob-Pike-style state
// functions and maybeAdvancePhase round-completion check) and
// pkg/poker/table.go (blind posting and turn order), generalized from the
// teacher's two-state-only phase set to the full
// waiting/starting/preflop/flop/turn/river/showdown/finished machine of
// spec.md §4.3, and from "pot manager mutates player balances directly" to
// "pure pot.Build/pot.Distribute, engine applies the resulting deltas".
package engine

import (
	"math/rand"
	"time"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/evaluator"
	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/pot"
	"github.com/opencardroom/pokerd/pkg/table"
)

// Phase is one state in the per-hand state machine (spec.md §4.3).
type Phase string

const (
	Waiting  Phase = "waiting"
	Starting Phase = "starting"
	Preflop  Phase = "preflop"
	Flop     Phase = "flop"
	Turn     Phase = "turn"
	River    Phase = "river"
	Showdown Phase = "showdown"
	Finished Phase = "finished"
)

// ActionLogEntry is one record in the hand's action log (spec.md §3).
type ActionLogEntry struct {
	Seat      int
	Action    table.ActionType
	Amount    int64
	Phase     Phase
	Timestamp time.Time
}

// CardSource supplies cards to the engine. The engine draws every hole and
// community card from it synchronously; it never waits on
// pkg/mentalpoker's "card for position p revealed" events, and on a Mental
// Poker table the cards it deals do not come from the coordinator's
// encrypted deck (see DESIGN.md's hand/mental-poker coupling decision).
type CardSource interface {
	Draw() (card.Card, bool)
}

// randomDeck is the plain RNG deck pkg/room deals every hand from, on
// Mental Poker tables as well as on ordinary ones. Grounded on the
// teacher's pkg/poker/deck.go (Fisher-Yates shuffle over math/rand).
type randomDeck struct {
	cards []card.Card
}

// NewRandomDeck returns a freshly shuffled 52-card deck.
func NewRandomDeck(rng *rand.Rand) CardSource {
	cards := card.CanonicalDeck()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &randomDeck{cards: cards}
}

func (d *randomDeck) Draw() (card.Card, bool) {
	if len(d.cards) == 0 {
		return card.Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// Hand is the per-hand state (spec.md §3's "Hand State").
type Hand struct {
	Number int
	Phase  Phase

	Seats  []*table.Seat // frozen seat order for this hand
	Dealer int           // index into Seats

	Deck           CardSource
	CommunityCards []card.Card

	CurrentBet      int64
	MinRaise        int64
	ReopenThreshold int64 // last aggressive increment that met MinRaise
	LastAggressor   int   // index into Seats, or -1

	TurnCursor     int // index into Seats
	TurnStartedAt  time.Time
	actionsThisRound map[int]bool

	ActionLog []ActionLogEntry

	config table.Config
}

// NewHand starts a new hand over the given frozen seat order (already
// filtered to eligible-to-deal seats: active, stack>0, not sitting out, per
// spec.md §4.3's waiting→starting guard) with the given dealer index.
func NewHand(number int, cfg table.Config, seats []*table.Seat, dealerIdx int, deck CardSource) (*Hand, error) {
	if len(seats) < cfg.MinSeatsToPlay {
		return nil, perrors.Invariantf("not-enough-seats", "need %d seats, have %d", cfg.MinSeatsToPlay, len(seats))
	}
	h := &Hand{
		Number:           number,
		Phase:            Starting,
		Seats:            seats,
		Dealer:           dealerIdx,
		Deck:             deck,
		MinRaise:         cfg.BigBlind,
		LastAggressor:    -1,
		actionsThisRound: map[int]bool{},
		config:           cfg,
	}
	for _, s := range h.Seats {
		s.Status.Folded = false
		s.Status.AllIn = false
		s.CurrentRoundBet = 0
		s.CumulativeContribution = 0
		s.Roles = table.Roles{}
		s.HoleCards = nil
		s.LastAction = nil
	}
	h.Seats[h.Dealer].Roles.Dealer = true

	if err := h.deal(); err != nil {
		return nil, err
	}
	if err := h.postBlinds(); err != nil {
		return nil, err
	}
	h.Phase = Preflop
	h.beginTurn(h.firstToActPreflop())
	return h, nil
}

func (h *Hand) deal() error {
	for i := range h.Seats {
		for n := 0; n < 2; n++ {
			c, ok := h.Deck.Draw()
			if !ok {
				return perrors.Invariantf("deck-exhausted", "deck exhausted dealing hole cards")
			}
			h.Seats[i].HoleCards = append(h.Seats[i].HoleCards, c)
		}
	}
	return nil
}

func (h *Hand) postBlinds() error {
	n := len(h.Seats)
	var sbIdx, bbIdx int
	if n == 2 {
		sbIdx = h.Dealer
		bbIdx = (h.Dealer + 1) % n
	} else {
		sbIdx = (h.Dealer + 1) % n
		bbIdx = (h.Dealer + 2) % n
	}
	h.Seats[sbIdx].Roles.SmallBlind = true
	h.Seats[bbIdx].Roles.BigBlind = true

	h.postBlind(sbIdx, h.config.SmallBlind)
	h.postBlind(bbIdx, h.config.BigBlind)
	h.CurrentBet = h.config.BigBlind
	h.ReopenThreshold = h.config.BigBlind
	return nil
}

func (h *Hand) postBlind(idx int, amount int64) {
	s := h.Seats[idx]
	if amount > s.Stack {
		amount = s.Stack
		s.Status.AllIn = true
	}
	s.Stack -= amount
	s.CurrentRoundBet += amount
	s.CumulativeContribution += amount
}

func (h *Hand) firstToActPreflop() int {
	n := len(h.Seats)
	if n == 2 {
		return h.Dealer // heads-up: dealer/SB acts first preflop
	}
	bbIdx := (h.Dealer + 2) % n
	return (bbIdx + 1) % n
}

func (h *Hand) firstToActPostflop() int {
	n := len(h.Seats)
	if n == 2 {
		return (h.Dealer + 1) % n // non-dealer acts first post-flop heads-up
	}
	return (h.Dealer + 1) % n
}

func (h *Hand) beginTurn(idx int) {
	idx = h.nextActiveFrom(idx, true)
	h.TurnCursor = idx
	h.TurnStartedAt = time.Now()
}

// nextActiveFrom returns the next seat index starting at idx (inclusive if
// includeStart) that is neither folded nor all-in and therefore still has
// an action to take.
func (h *Hand) nextActiveFrom(idx int, includeStart bool) int {
	n := len(h.Seats)
	start := idx
	if !includeStart {
		start = (idx + 1) % n
	}
	for i := 0; i < n; i++ {
		cand := (start + i) % n
		s := h.Seats[cand]
		if !s.Status.Folded && !s.Status.AllIn {
			return cand
		}
	}
	return idx
}

// ActiveNonFolded returns seats still contesting the pot (not folded),
// regardless of all-in status.
func (h *Hand) ActiveNonFolded() []*table.Seat {
	var out []*table.Seat
	for _, s := range h.Seats {
		if !s.Status.Folded {
			out = append(out, s)
		}
	}
	return out
}

// CanAct returns true if the given seat index still has a decision to make
// this round (not folded and not all-in).
func (h *Hand) CanAct(idx int) bool {
	s := h.Seats[idx]
	return !s.Status.Folded && !s.Status.AllIn
}

func (h *Hand) seatsThatCanAct() []int {
	var out []int
	for i := range h.Seats {
		if h.CanAct(i) {
			out = append(out, i)
		}
	}
	return out
}

func (h *Hand) log(seat int, action table.ActionType, amount int64) {
	h.ActionLog = append(h.ActionLog, ActionLogEntry{
		Seat: seat, Action: action, Amount: amount, Phase: h.Phase, Timestamp: time.Now(),
	})
	h.Seats[seat].LastAction = &table.LastAction{Type: action, Amount: amount, Timestamp: time.Now()}
}

// String renders the hand phase for logging (decred/slog takes %v/%s freely).
func (p Phase) String() string { return string(p) }
