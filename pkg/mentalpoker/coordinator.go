// Package mentalpoker implements the per-hand Mental Poker Coordinator
// (spec.md §4.4): a relay that sequences a commutative-encryption shuffle
// and a threshold key-reveal for provably fair card dealing, without ever
// observing plaintext cards or plaintext decryption keys.
//
// Grounded on luca-patrignani-mental-poker's poker/poker_fsm.go (a plain
// phase enum driven by direct-call transitions) and deck/shuffle.go
// (turn-based shuffle contributions over a frozen peer order) for the phase
// machine shape, and on discordwell-OnChainPoker's apps/chain/internal/
// ocpcrypto/hash.go for domain-separated hashing (that package hashes with
// stdlib crypto/sha512 directly rather than reaching for a library, which is
// why this package does the same for commitment verification: the pack's
// own mental-poker-adjacent crypto code treats stdlib hashing as the right
// tool for this exact job, not a fallback). The actual commutative
// encryption (SRA) and its modular exponentiation live client-side and are
// out of scope here — this package is protocol-contract only (spec.md §1's
// Non-goals).
package mentalpoker

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/perrors"
)

// Phase is one state in the coordinator's per-hand machine (spec.md §4.4).
type Phase string

const (
	Waiting    Phase = "waiting"
	Commitment Phase = "commitment"
	Shuffle    Phase = "shuffle"
	Deal       Phase = "deal"
	Play       Phase = "play"
	Complete   Phase = "complete"
	Aborted    Phase = "aborted"
)

// Ciphertext is one opaque, commutatively-encrypted card slot. The
// coordinator never interprets its bytes.
type Ciphertext []byte

// RevealType distinguishes the card-reveal contract's two required-reveal
// sets (spec.md §4.4 "Card reveal contract").
type RevealType int

const (
	HoleCard RevealType = iota
	CommunityCard
)

// RevealRequest records one "reveal this position" solicitation the Hand
// Engine issued.
type RevealRequest struct {
	Position  card.Position
	Type      RevealType
	Recipient int // seat index for HoleCard; ignored for CommunityCard
	Required  map[int]bool
	Received  map[int]Reveal
}

// Reveal is one player's (key, salt) contribution toward decrypting a
// position, validated against that player's commitment.
type Reveal struct {
	Player int
	Key    []byte
	Salt   []byte
}

// Coordinator is the per-hand Mental Poker relay. It is owned exclusively
// by the table's Room Controller (spec.md §3 "Ownership").
type Coordinator struct {
	Phase Phase

	seats        []int // frozen seated-player order (seat indices), spec.md §4.4
	deadlineStep time.Duration

	commitments    map[int]string // seat -> hex commitment hash
	shufflerCursor int
	shuffled       map[int]bool // seats that have contributed their shuffle exactly once
	deck           []Ciphertext

	reveals map[card.Position]*RevealRequest

	deadline   time.Time
	flagged    map[int]bool // seats flagged for a protocol violation
	abortError error
}

// New starts a coordinator in Waiting over the given frozen seat order.
func New(seats []int, stepDeadline time.Duration) *Coordinator {
	return &Coordinator{
		Phase:        Waiting,
		seats:        append([]int{}, seats...),
		deadlineStep: stepDeadline,
		commitments:  map[int]string{},
		shuffled:     map[int]bool{},
		reveals:      map[card.Position]*RevealRequest{},
		flagged:      map[int]bool{},
	}
}

// Start transitions waiting → commitment, freezing the seated-player list
// already captured by New, and arms the first per-step deadline.
func (c *Coordinator) Start(now time.Time) error {
	if c.Phase != Waiting {
		return perrors.Protocolf("wrong-phase", "Start called outside waiting (phase %s)", c.Phase)
	}
	c.Phase = Commitment
	c.deadline = now.Add(c.deadlineStep)
	return nil
}

// Deadline returns the instant by which the current step must complete, for
// the Room Controller to arm a timer event against.
func (c *Coordinator) Deadline() time.Time { return c.deadline }

func (c *Coordinator) isSeated(player int) bool {
	for _, s := range c.seats {
		if s == player {
			return true
		}
	}
	return false
}

// SubmitCommitment accepts a player's single opaque commitment hash during
// the commitment phase. Duplicate or late commitments from an
// already-committed player are rejected (spec.md §4.4).
func (c *Coordinator) SubmitCommitment(player int, commitmentHex string, now time.Time) error {
	if c.Phase != Commitment {
		return perrors.Protocolf("wrong-phase", "commitment submitted outside commitment phase (phase %s)", c.Phase)
	}
	if !c.isSeated(player) {
		return perrors.Protocolf("unknown-player", "player %d is not seated for this hand", player)
	}
	if _, ok := c.commitments[player]; ok {
		return perrors.Protocolf("duplicate-commitment", "player %d already committed", player)
	}
	c.commitments[player] = commitmentHex

	if len(c.commitments) == len(c.seats) {
		c.Phase = Shuffle
		c.deck = seedCanonicalDeck()
		c.shufflerCursor = 0
		c.deadline = now.Add(c.deadlineStep)
	}
	return nil
}

// seedCanonicalDeck implements spec.md §4.4's "Starting seeding": the
// running deck begins as the canonical 52-card domain, opaque-wrapped, so
// that only domain values exist before the first shuffle contribution.
// Encoding each canonical card as a single byte holding its position keeps the
// starting deck auditable without ever representing it as a real
// ciphertext — the first shuffle contribution replaces it wholesale.
func seedCanonicalDeck() []Ciphertext {
	deck := card.CanonicalDeck()
	out := make([]Ciphertext, len(deck))
	for i, cd := range deck {
		pos, _ := card.Encode(cd)
		out[i] = Ciphertext{byte(pos)}
	}
	return out
}

// CurrentShuffler returns the seat index whose contribution the coordinator
// will accept next.
func (c *Coordinator) CurrentShuffler() int {
	return c.seats[c.shufflerCursor]
}

// Deck returns the coordinator's current running deck, for the Room
// Controller to relay to clients as the opaque "encrypted deck" payload
// (spec.md §6's mental-poker:shuffle-turn / mental-poker:shuffle-complete).
func (c *Coordinator) Deck() []Ciphertext { return c.deck }

// Seats returns the frozen seated-player order the coordinator was started
// with.
func (c *Coordinator) Seats() []int { return append([]int{}, c.seats...) }

// SubmitShuffle accepts a reshuffled deck from the current shuffler: it
// must be a sequence of exactly 52 opaque ciphertexts, and the submitter
// must be the exact current shuffler (spec.md §4.4, and invariant
// "length = 52 and the submitter = current shuffler index").
func (c *Coordinator) SubmitShuffle(player int, deck []Ciphertext, now time.Time) error {
	if c.Phase != Shuffle {
		return perrors.Protocolf("wrong-phase", "shuffle submitted outside shuffle phase (phase %s)", c.Phase)
	}
	if player != c.CurrentShuffler() {
		return perrors.Protocolf("wrong-shuffler", "player %d submitted but shuffler is %d", player, c.CurrentShuffler())
	}
	if len(deck) != 52 {
		return perrors.Protocolf("bad-shuffle-length", "shuffle contribution has %d entries, want 52", len(deck))
	}

	c.deck = deck
	c.shuffled[player] = true
	c.shufflerCursor = (c.shufflerCursor + 1) % len(c.seats)

	if len(c.shuffled) == len(c.seats) {
		c.Phase = Deal
		c.deadline = time.Time{}
		return nil
	}
	c.deadline = now.Add(c.deadlineStep)
	return nil
}

// RequestReveal records the Hand Engine's request for the card at a given
// position, and computes the required-reveal set per spec.md §4.4's card
// reveal contract. The coordinator transitions Deal → Play on the first
// request.
func (c *Coordinator) RequestReveal(pos card.Position, revealType RevealType, recipient int, now time.Time) (*RevealRequest, error) {
	if c.Phase != Deal && c.Phase != Play {
		return nil, perrors.Protocolf("wrong-phase", "reveal requested outside deal/play (phase %s)", c.Phase)
	}
	if c.Phase == Deal {
		c.Phase = Play
	}
	if existing, ok := c.reveals[pos]; ok {
		return existing, nil
	}

	required := map[int]bool{}
	switch revealType {
	case HoleCard:
		for _, s := range c.seats {
			if s != recipient {
				required[s] = true
			}
		}
	case CommunityCard:
		for _, s := range c.seats {
			required[s] = true
		}
	}

	req := &RevealRequest{
		Position:  pos,
		Type:      revealType,
		Recipient: recipient,
		Required:  required,
		Received:  map[int]Reveal{},
	}
	c.reveals[pos] = req
	c.deadline = now.Add(c.deadlineStep)
	return req, nil
}

// SubmitReveal accepts one player's (key, salt) contribution toward
// decrypting the card at pos. The reveal is validated against that
// player's commitment (hash(key ∥ salt) == commitment) before being
// recorded; a mismatch flags the player and rejects the reveal without any
// state mutation (spec.md §8 Scenario 5). Duplicate reveals from the same
// player for the same position are accepted idempotently.
func (c *Coordinator) SubmitReveal(player int, pos card.Position, key, salt []byte) (complete bool, err error) {
	req, ok := c.reveals[pos]
	if !ok {
		return false, perrors.Protocolf("unknown-position", "no reveal request outstanding for position %d", pos)
	}
	if !req.Required[player] {
		return false, perrors.Protocolf("not-required", "player %d is not in the required-reveal set for position %d", player, pos)
	}
	if _, already := req.Received[player]; already {
		return isRevealComplete(req), nil
	}

	commitmentHex, ok := c.commitments[player]
	if !ok {
		return false, perrors.Protocolf("no-commitment", "player %d has no recorded commitment", player)
	}
	if !VerifyCommitment(commitmentHex, key, salt) {
		c.flagged[player] = true
		return false, perrors.Protocolf("commitment-mismatch", "player %d's reveal does not match their commitment", player)
	}

	req.Received[player] = Reveal{Player: player, Key: key, Salt: salt}
	return isRevealComplete(req), nil
}

// Outstanding returns the seats still required to reveal the card at pos, or
// nil if no reveal is outstanding for that position.
func (c *Coordinator) Outstanding(pos card.Position) []int {
	req, ok := c.reveals[pos]
	if !ok {
		return nil
	}
	var out []int
	for seat := range req.Required {
		if _, done := req.Received[seat]; !done {
			out = append(out, seat)
		}
	}
	return out
}

// RevealInfo returns the type and recipient recorded for a reveal request.
func (c *Coordinator) RevealInfo(pos card.Position) (RevealType, int, bool) {
	req, ok := c.reveals[pos]
	if !ok {
		return 0, 0, false
	}
	return req.Type, req.Recipient, true
}

func isRevealComplete(req *RevealRequest) bool {
	for seat := range req.Required {
		if _, ok := req.Received[seat]; !ok {
			return false
		}
	}
	return true
}

// Flagged reports whether a seat has been flagged for a protocol violation
// (e.g. a commitment mismatch) during this hand.
func (c *Coordinator) Flagged(player int) bool { return c.flagged[player] }

// Abort moves the coordinator to Aborted, recording the triggering error so
// the Room Controller can decide escrow/persistence fallout (spec.md §4.4
// "Failure / timeouts"). It is valid from any phase except Complete.
func (c *Coordinator) Abort(cause error) error {
	if c.Phase == Complete {
		return perrors.Protocolf("wrong-phase", "cannot abort a completed hand")
	}
	c.Phase = Aborted
	c.abortError = cause
	return nil
}

// AbortError returns the cause recorded by Abort, or nil.
func (c *Coordinator) AbortError() error { return c.abortError }

// Complete moves the coordinator to Complete on hand completion (spec.md
// §4.4's "play → complete on hand completion or abort").
func (c *Coordinator) Complete() error {
	if c.Phase != Play && c.Phase != Deal {
		return perrors.Protocolf("wrong-phase", "Complete called from phase %s", c.Phase)
	}
	c.Phase = Complete
	return nil
}

// DeadlineExpired reports whether the current step's deadline has passed as
// of now; the Room Controller polls this on its re-posted timer events
// rather than the coordinator owning any timer itself (spec.md §4.3 Design
// Note "Timers are messages on that loop, not concurrent callbacks").
func (c *Coordinator) DeadlineExpired(now time.Time) bool {
	if c.deadline.IsZero() {
		return false
	}
	return now.After(c.deadline)
}

// CommitmentHash computes hash(key ∥ salt) with a domain-separation prefix,
// the quantity players must match their prior commitment against. Exported
// so test code and (if ever needed) a reference client-side harness can
// compute commitments identically to the verifier.
func CommitmentHash(key, salt []byte) string {
	h := sha256.New()
	h.Write([]byte("pokerd/mentalpoker/commitment|"))
	h.Write(lengthPrefixed(key))
	h.Write(lengthPrefixed(salt))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyCommitment reports whether hash(key ∥ salt) equals the given
// previously-submitted commitment (spec.md §8's quantified invariant).
func VerifyCommitment(commitmentHex string, key, salt []byte) bool {
	return CommitmentHash(key, salt) == commitmentHex
}

func lengthPrefixed(b []byte) []byte {
	n := len(b)
	prefix := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return append(prefix, b...)
}
