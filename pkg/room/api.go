package room

import (
	"encoding/hex"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/mentalpoker"
	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/table"
)

// roomClosedError is returned by public methods when Stop has already been
// called and the event will never be processed.
func roomClosedError() error {
	return perrors.Transientf("room-closed", "table is shutting down")
}

func (r *Room) submit(ev event) error {
	ev.done = make(chan error, 1)
	select {
	case r.events <- ev:
	case <-r.stop:
		return roomClosedError()
	}
	select {
	case err := <-ev.done:
		return err
	case <-r.stop:
		return roomClosedError()
	}
}

// Join seats a wallet (or, if already seated, displaces its old connection
// while the seat binding survives — spec.md §5's duplicate-connection rule)
// and returns the seat index it occupies.
func (r *Room) Join(wallet string, conn Connection, desiredSeat int, buyIn int64) (int, error) {
	res := &joinResult{}
	ev := event{kind: evJoin, wallet: wallet, conn: conn, desiredSeat: desiredSeat, buyIn: buyIn, result: res}
	err := r.submit(ev)
	return res.seatIndex, err
}

// Leave removes a wallet's seat, folding it first if it is mid-hand and has
// not already folded or gone all-in.
func (r *Room) Leave(wallet string) error {
	return r.submit(event{kind: evLeave, wallet: wallet})
}

// SitOut marks a seated wallet as sitting out: it is skipped when the next
// hand is dealt.
func (r *Room) SitOut(wallet string) error {
	return r.submit(event{kind: evSitOut, wallet: wallet})
}

// SitIn clears a wallet's sitting-out flag, making it eligible for the next
// hand.
func (r *Room) SitIn(wallet string) error {
	return r.submit(event{kind: evSitIn, wallet: wallet})
}

// AddChips rebuys/add-ons a seated wallet's stack, bounded by the table's
// max buy-in and backed by a fresh escrow lock.
func (r *Room) AddChips(wallet string, amount int64) error {
	return r.submit(event{kind: evAddChips, wallet: wallet, amount: amount})
}

// Action applies a betting action at the turn cursor on the wallet's behalf.
func (r *Room) Action(wallet string, actionType table.ActionType, amount int64) error {
	return r.submit(event{kind: evAction, wallet: wallet, actionType: actionType, amount: amount})
}

// ShowCards voluntarily broadcasts a seated wallet's hole cards (e.g. a
// non-winner choosing to show, or a winner proving a bluff).
func (r *Room) ShowCards(wallet string) error {
	return r.submit(event{kind: evShowCards, wallet: wallet})
}

// MPCommit forwards a player's Mental Poker commitment hash to the
// coordinator.
func (r *Room) MPCommit(wallet string, commitmentHex string) error {
	return r.submit(event{kind: evMPCommit, wallet: wallet, commitment: commitmentHex})
}

// MPShuffle forwards a player's reshuffled, hex-encoded ciphertext deck to
// the coordinator.
func (r *Room) MPShuffle(wallet string, deckHex []string) error {
	deck, err := decodeCiphertexts(deckHex)
	if err != nil {
		return err
	}
	return r.submit(event{kind: evMPShuffle, wallet: wallet, shuffleDeck: deck})
}

// MPReveal forwards a player's (key, salt) reveal for a card position to the
// coordinator, hex-decoding both.
func (r *Room) MPReveal(wallet string, position int, keyHex, saltHex string) error {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return perrors.Validationf("bad-hex", "invalid reveal key encoding: %v", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return perrors.Validationf("bad-hex", "invalid reveal salt encoding: %v", err)
	}
	return r.submit(event{kind: evMPReveal, wallet: wallet, revealPos: card.Position(position), revealKey: key, revealSalt: salt})
}

// Chat broadcasts a sanitised chat message from a seated wallet.
func (r *Room) Chat(wallet, message string) error {
	return r.submit(event{kind: evChat, wallet: wallet, message: message})
}

// Disconnect notifies the Room that a wallet's connection dropped. It arms
// the disconnect-removal grace timer (and, if it was that seat's turn, the
// shorter auto-fold timer) rather than removing the seat immediately.
func (r *Room) Disconnect(wallet string, conn Connection) error {
	return r.submit(event{kind: evDisconnect, wallet: wallet, conn: conn})
}

// Reconnect rebinds a new connection to a wallet's existing seat, cancelling
// any pending removal/auto-fold timers and resending private state.
func (r *Room) Reconnect(wallet string, conn Connection) error {
	return r.submit(event{kind: evReconnect, wallet: wallet, conn: conn})
}

func decodeCiphertexts(hexes []string) ([]mentalpoker.Ciphertext, error) {
	out := make([]mentalpoker.Ciphertext, len(hexes))
	for i, h := range hexes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, perrors.Validationf("bad-hex", "invalid ciphertext encoding at index %d: %v", i, err)
		}
		out[i] = mentalpoker.Ciphertext(b)
	}
	return out, nil
}

func encodeCiphertexts(cts []mentalpoker.Ciphertext) []string {
	out := make([]string, len(cts))
	for i, c := range cts {
		out[i] = hex.EncodeToString(c)
	}
	return out
}
