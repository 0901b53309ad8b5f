package room

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opencardroom/pokerd/pkg/card"
	"github.com/opencardroom/pokerd/pkg/engine"
	"github.com/opencardroom/pokerd/pkg/mentalpoker"
	"github.com/opencardroom/pokerd/pkg/perrors"
	"github.com/opencardroom/pokerd/pkg/persistence"
	"github.com/opencardroom/pokerd/pkg/table"
	"github.com/opencardroom/pokerd/pkg/transport"
)

func (r *Room) handleJoin(ev event) error {
	res, _ := ev.result.(*joinResult)

	if existingIdx, ok := r.seatIndexOf(ev.wallet); ok {
		// Duplicate-connection rule: a new connection from an already-seated
		// wallet displaces the old one, and the seat binding survives
		// (spec.md §5).
		r.conns[ev.wallet] = ev.conn
		if res != nil {
			res.seatIndex = existingIdx
		}
		r.sendTo(ev.wallet, transport.GameState, r.gameStatePayload())
		if seat := r.seats[existingIdx]; len(seat.HoleCards) > 0 {
			r.sendTo(ev.wallet, transport.PlayerCards, transport.PlayerCardsPayload{SeatIndex: existingIdx, Cards: seat.HoleCards})
		}
		return nil
	}

	if ev.buyIn < r.cfg.MinBuyIn || ev.buyIn > r.cfg.MaxBuyIn {
		return perrors.Validationf("bad-buyin", "buy-in %d outside [%d,%d]", ev.buyIn, r.cfg.MinBuyIn, r.cfg.MaxBuyIn)
	}
	idx, err := r.findSeat(ev.desiredSeat)
	if err != nil {
		return err
	}
	if err := r.escrowClient.LockChips(ev.wallet, ev.buyIn, r.cfg.ID); err != nil {
		return err
	}

	seat := &table.Seat{PlayerID: ev.wallet, Wallet: ev.wallet, DisplayName: ev.wallet, Index: idx, Stack: ev.buyIn}
	r.seats[idx] = seat
	r.conns[ev.wallet] = ev.conn
	if res != nil {
		res.seatIndex = idx
	}

	if r.store != nil {
		if sid, err := r.store.CreateSession(ev.wallet, r.cfg.ID, time.Now()); err != nil {
			r.log.Warnf("room %s: create session for %s: %v", r.cfg.ID, ev.wallet, err)
		} else {
			r.sessions[ev.wallet] = sid
		}
		if err := r.store.RecordTransaction(persistence.TransactionRow{
			Wallet: ev.wallet, TableID: r.cfg.ID, Amount: -ev.buyIn, Type: "buy-in", At: time.Now(),
		}); err != nil {
			r.log.Warnf("room %s: record buy-in transaction: %v", r.cfg.ID, err)
		}
	}

	r.broadcast(transport.GameState, r.gameStatePayload())
	r.maybeStartHand()
	return nil
}

func (r *Room) handleLeave(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	seat := r.seats[idx]

	if handIdx, inHand := r.handIndexOfWallet(ev.wallet); inHand && r.hand != nil {
		switch r.hand.Phase {
		case engine.Preflop, engine.Flop, engine.Turn, engine.River:
			if !seat.Status.Folded && !seat.Status.AllIn {
				if r.hand.TurnCursor == handIdx {
					_ = r.hand.ApplyAction(handIdx, table.ActionFold, 0)
					r.afterAction()
				} else {
					// Off-turn mid-hand departure: fold immediately so the
					// hand can proceed without this seat; its chips already
					// committed this hand stay in the pot.
					seat.Status.Folded = true
				}
			}
		}
	}

	r.removeSeat(idx)
	return nil
}

func (r *Room) handleSitOut(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	r.seats[idx].Status.SittingOut = true
	r.broadcast(transport.GameState, r.gameStatePayload())
	return nil
}

func (r *Room) handleSitIn(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	r.seats[idx].Status.SittingOut = false
	r.broadcast(transport.GameState, r.gameStatePayload())
	r.maybeStartHand()
	return nil
}

func (r *Room) handleAddChips(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	seat := r.seats[idx]
	if err := r.escrowClient.LockChips(ev.wallet, ev.amount, r.cfg.ID); err != nil {
		return err
	}
	if err := seat.AddChips(ev.amount, r.cfg.MaxBuyIn); err != nil {
		if unlockErr := r.escrowClient.UnlockChips(ev.wallet, ev.amount, r.cfg.ID); unlockErr != nil {
			r.log.Warnf("room %s: unwind add-chips lock for %s: %v", r.cfg.ID, ev.wallet, unlockErr)
		}
		return err
	}
	if r.store != nil {
		if err := r.store.RecordTransaction(persistence.TransactionRow{
			Wallet: ev.wallet, TableID: r.cfg.ID, Amount: -ev.amount, Type: "add-chips", At: time.Now(),
		}); err != nil {
			r.log.Warnf("room %s: record add-chips transaction: %v", r.cfg.ID, err)
		}
	}
	r.broadcast(transport.GameState, r.gameStatePayload())
	return nil
}

func (r *Room) handleAction(ev event) error {
	if r.hand == nil {
		return perrors.Protocolf("no-hand", "no hand in progress")
	}
	idx, ok := r.handIndexOfWallet(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-in-hand", "wallet %s is not active in this hand", ev.wallet)
	}
	if err := r.hand.ApplyAction(idx, ev.actionType, ev.amount); err != nil {
		return err
	}
	physical := r.hand.Seats[idx].Index
	r.broadcast(transport.GamePlayerAction, transport.PlayerActionPayload{
		SeatIndex: physical, Type: string(ev.actionType), Amount: transport.ChipAmount(ev.amount), Timestamp: time.Now(),
	})
	r.afterAction()
	return nil
}

func (r *Room) handleShowCards(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	seat := r.seats[idx]
	if len(seat.HoleCards) == 0 {
		return perrors.Protocolf("no-cards", "seat %d has no cards to show", idx)
	}
	r.broadcast(transport.PlayerCards, transport.PlayerCardsPayload{SeatIndex: idx, Cards: seat.HoleCards})
	return nil
}

func (r *Room) handleMPCommit(ev event) error {
	if r.coordinator == nil {
		return perrors.Protocolf("mental-poker-disabled", "table %s does not run mental poker", r.cfg.ID)
	}
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	if err := r.coordinator.SubmitCommitment(idx, ev.commitment, time.Now()); err != nil {
		return err
	}
	r.mpCommitCount++
	r.broadcast(transport.MentalPokerCommitmentRecv, transport.MentalPokerCommitmentReceivedPayload{
		PlayerSeat: idx, Count: r.mpCommitCount, Total: r.mpSeatCount,
	})
	r.broadcastMPPhase()
	return nil
}

func (r *Room) handleMPShuffle(ev event) error {
	if r.coordinator == nil {
		return perrors.Protocolf("mental-poker-disabled", "table %s does not run mental poker", r.cfg.ID)
	}
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	if err := r.coordinator.SubmitShuffle(idx, ev.shuffleDeck, time.Now()); err != nil {
		return err
	}
	encoded := encodeCiphertexts(r.coordinator.Deck())
	if r.coordinator.Phase == mentalpoker.Deal {
		r.broadcast(transport.MentalPokerShuffleComplete, transport.MentalPokerShuffleCompletePayload{EncryptedDeck: encoded})
	} else {
		r.broadcast(transport.MentalPokerShuffleTurn, transport.MentalPokerShuffleTurnPayload{EncryptedDeck: encoded})
	}
	r.broadcastMPPhase()
	return nil
}

func (r *Room) handleMPReveal(ev event) error {
	if r.coordinator == nil {
		return perrors.Protocolf("mental-poker-disabled", "table %s does not run mental poker", r.cfg.ID)
	}
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	complete, err := r.coordinator.SubmitReveal(idx, ev.revealPos, ev.revealKey, ev.revealSalt)
	if err != nil {
		if r.coordinator.Flagged(idx) {
			r.broadcast(transport.NotificationTag, transport.NotificationPayload{
				Type: "mental-poker-violation", Message: fmt.Sprintf("seat %d's reveal did not match its commitment", idx),
			})
			r.abortHand(err)
		}
		return err
	}
	r.broadcast(transport.MentalPokerKeyRevealed, transport.MentalPokerKeyRevealedPayload{
		PlayerSeat: idx, CardPosition: int(ev.revealPos), Complete: complete, PlayersNeeded: r.coordinator.Outstanding(ev.revealPos),
	})
	if complete {
		revealType, recipient, _ := r.coordinator.RevealInfo(ev.revealPos)
		cardType := "community"
		var recipientPtr *int
		if revealType == mentalpoker.HoleCard {
			cardType = "hole"
			recipientPtr = &recipient
		}
		r.broadcast(transport.MentalPokerCardRevealed, transport.MentalPokerCardRevealedPayload{
			CardPosition: int(ev.revealPos), CardType: cardType, RecipientID: recipientPtr,
		})
		r.noteRevealComplete(ev.revealPos)
	}
	return nil
}

// noteRevealComplete marks one required reveal position as satisfied and,
// once every position requested for the current showdown is satisfied,
// finalizes it. SubmitReveal is idempotent on an already-complete position
// (duplicate resubmission), so this only fires completeShowdown once.
func (r *Room) noteRevealComplete(pos card.Position) {
	if r.mpRevealComplete == nil || r.mpRevealComplete[pos] {
		return
	}
	r.mpRevealComplete[pos] = true
	if r.hand != nil && r.hand.Phase == engine.Showdown && r.mpRevealTotal > 0 && len(r.mpRevealComplete) >= r.mpRevealTotal {
		r.completeShowdown()
	}
}

func (r *Room) handleChat(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s is not seated", ev.wallet)
	}
	msg := transport.SanitizeChat(ev.message)
	if msg == "" {
		return perrors.Validationf("empty-chat", "chat message is empty after sanitisation")
	}
	r.broadcast(transport.TableChat, transport.ChatBroadcastPayload{PlayerSeat: idx, Message: msg, Timestamp: time.Now()})
	return nil
}

func (r *Room) handleDisconnect(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return nil // not seated: nothing to do
	}
	delete(r.conns, ev.wallet)
	now := time.Now()
	r.seats[idx].DisconnectedAt = &now
	r.seatGeneration[idx]++
	r.armDisconnectTimers(idx, ev.wallet)
	r.broadcast(transport.NotificationTag, transport.NotificationPayload{
		Type: "player-disconnected", Message: fmt.Sprintf("%s disconnected", ev.wallet),
	})
	return nil
}

func (r *Room) handleReconnect(ev event) error {
	idx, ok := r.seatIndexOf(ev.wallet)
	if !ok {
		return perrors.Protocolf("not-seated", "wallet %s has no seat to reconnect to", ev.wallet)
	}
	seat := r.seats[idx]
	seat.DisconnectedAt = nil
	r.seatGeneration[idx]++ // invalidates any removal/auto-fold timers armed before this reconnect
	r.conns[ev.wallet] = ev.conn

	r.sendTo(ev.wallet, transport.GameState, r.gameStatePayload())
	if len(seat.HoleCards) > 0 {
		r.sendTo(ev.wallet, transport.PlayerCards, transport.PlayerCardsPayload{SeatIndex: idx, Cards: seat.HoleCards})
	}
	if handIdx, inHand := r.handIndexOfWallet(ev.wallet); inHand && r.hand != nil && r.hand.TurnCursor == handIdx {
		r.emitTurnTo(ev.wallet)
	}
	return nil
}

// afterAction runs after every engine mutation: the turn cursor moved, the
// phase changed, or the hand reached showdown.
func (r *Room) afterAction() {
	if r.hand == nil {
		return
	}
	phaseChanged := r.hand.Phase != r.lastPhase
	if phaseChanged {
		r.broadcast(transport.GamePhaseChange, transport.GamePhaseChangePayload{
			Phase: string(r.hand.Phase), CommunityCards: r.hand.CommunityCards,
		})
		r.lastPhase = r.hand.Phase
	}
	if r.hand.Phase == engine.Showdown {
		// Only act on the transition into showdown: once reveals are
		// outstanding, later afterAction calls (e.g. a stray turn timer
		// re-fire) must not re-issue requests or re-settle.
		if phaseChanged {
			if r.coordinator != nil {
				r.beginShowdownReveals()
			} else {
				r.completeShowdown()
			}
		}
		return
	}
	r.broadcast(transport.GameState, r.gameStatePayload())
	r.armTurnTimer()
	r.emitTurn()
}

// maybeStartHand deals a new hand once enough seats are active and ready,
// and no hand is currently in progress.
func (r *Room) maybeStartHand() {
	if r.hand != nil && r.hand.Phase != engine.Finished && r.hand.Phase != engine.Waiting {
		return
	}
	eligible := 0
	for _, s := range r.seats {
		if s != nil && s.Stack > 0 && !s.Status.SittingOut {
			eligible++
		}
	}
	if eligible < r.cfg.MinSeatsToPlay {
		return
	}
	r.startHand()
}

func (r *Room) startHand() {
	var seats []*table.Seat
	for _, s := range r.seats {
		if s != nil && s.Stack > 0 && !s.Status.SittingOut {
			seats = append(seats, s)
		}
	}

	dealerPhysical := r.nextDealerPhysical(seats)
	handDealerIdx := 0
	for i, s := range seats {
		if s.Index == dealerPhysical {
			handDealerIdx = i
			break
		}
	}

	// Snapshot stacks before NewHand posts blinds, so an abort (abortHand)
	// can restore the full pre-hand amount rather than the post-blind one.
	preHandStack := make(map[string]int64, len(seats))
	for _, s := range seats {
		preHandStack[s.Wallet] = s.Stack
	}

	deck := engine.NewRandomDeck(r.rng)
	h, err := engine.NewHand(r.handNumber+1, r.cfg, seats, handDealerIdx, deck)
	if err != nil {
		r.log.Errorf("room %s: start hand: %v", r.cfg.ID, err)
		return
	}
	r.handNumber++
	r.hand = h
	r.lastPhase = h.Phase
	r.dealerIdx = dealerPhysical
	r.handStartedAt = time.Now()
	r.handStartStack = preHandStack

	if r.cfg.MentalPoker {
		r.coordinator = mentalpoker.New(r.mpPhysicalSeats(), r.cfg.MPStepDeadline)
		_ = r.coordinator.Start(time.Now())
		r.mpCommitCount = 0
		r.mpSeatCount = len(seats)
		r.armMPTimer()
	}

	r.broadcast(transport.GameStarted, transport.GameStartedPayload{HandNumber: r.handNumber})
	for _, s := range seats {
		r.sendTo(s.Wallet, transport.PlayerCards, transport.PlayerCardsPayload{SeatIndex: s.Index, Cards: s.HoleCards})
	}
	r.broadcast(transport.GameState, r.gameStatePayload())
	r.armTurnTimer()
	r.emitTurn()
}

// nextDealerPhysical rotates the button to the next active physical seat
// clockwise from the prior dealer, wrapping around the full (fixed-size)
// seat array so sat-out seats are skipped without disturbing seat numbering.
func (r *Room) nextDealerPhysical(activeSeats []*table.Seat) int {
	if len(activeSeats) == 0 {
		return 0
	}
	if r.dealerIdx < 0 {
		return activeSeats[0].Index
	}
	n := len(r.seats)
	for i := 1; i <= n; i++ {
		cand := (r.dealerIdx + i) % n
		for _, s := range activeSeats {
			if s.Index == cand {
				return cand
			}
		}
	}
	return activeSeats[0].Index
}

// beginShowdownReveals asks the Mental Poker Coordinator to reveal every
// hole and community card position dealt this hand, completing its audit
// trail alongside (not in place of) the Hand Engine's own independent
// showdown evaluation — see DESIGN.md's "weak coupling" decision. It only
// issues the requests: the coordinator stays alive, and the hand stays
// open, until handleMPReveal observes every requested position complete
// (via noteRevealComplete) or the step deadline fires abortHand — showdown
// is not finalized in this same call (spec.md §4.4's reveal-complete
// contract).
func (r *Room) beginShowdownReveals() {
	now := time.Now()
	total := 0
	r.mpRevealComplete = map[card.Position]bool{}
	for i, s := range r.hand.Seats {
		pos := card.Position(i * 2)
		if _, err := r.coordinator.RequestReveal(pos, mentalpoker.HoleCard, s.Index, now); err != nil {
			r.log.Debugf("room %s: request hole reveal seat %d: %v", r.cfg.ID, s.Index, err)
			continue
		}
		total++
		recipient := s.Index
		r.broadcast(transport.MentalPokerRequestKey, transport.MentalPokerRequestKeyPayload{
			CardPosition: int(pos), CardType: "hole", RecipientID: &recipient,
		})
	}
	base := card.Position(len(r.hand.Seats) * 2)
	for j := range r.hand.CommunityCards {
		pos := base + card.Position(j)
		if _, err := r.coordinator.RequestReveal(pos, mentalpoker.CommunityCard, -1, now); err != nil {
			r.log.Debugf("room %s: request community reveal %d: %v", r.cfg.ID, j, err)
			continue
		}
		total++
		r.broadcast(transport.MentalPokerRequestKey, transport.MentalPokerRequestKeyPayload{CardPosition: int(pos), CardType: "community"})
	}
	r.mpRevealTotal = total
	if total == 0 {
		// Nothing to reveal (e.g. every player folded pre-showdown with no
		// community cards dealt): nothing will ever satisfy it later.
		r.completeShowdown()
		return
	}
	r.armMPTimer()
}

// abortHand tears down the in-progress hand because of an unrecoverable
// protocol failure — a Mental Poker step deadline or a reveal that fails
// its commitment check (spec.md §4.4 Scenario 5, §4.3/§7 "invariant
// violation"). Every seat's stack is restored to its pre-hand snapshot (the
// buy-in lock is session-long, not per-hand — see DESIGN.md — so there is
// no separate escrow call to make while the player stays seated), no pot is
// paid, the aborted hand is persisted, and the table returns to waiting.
func (r *Room) abortHand(cause error) {
	h := r.hand
	if h == nil {
		return
	}
	for _, s := range h.Seats {
		if start, ok := r.handStartStack[s.Wallet]; ok {
			s.Stack = start
		}
		s.CurrentRoundBet = 0
		s.CumulativeContribution = 0
		s.Status.Folded = false
		s.Status.AllIn = false
		s.HoleCards = nil
		s.LastAction = nil
	}

	if r.store != nil {
		if err := r.store.RecordHand(persistence.HandRecord{
			HandID: uuid.NewString(), TableID: r.cfg.ID, HandNo: h.Number,
			Pot: 0, Aborted: true, StartedAt: r.handStartedAt, EndedAt: time.Now(),
		}); err != nil {
			r.log.Warnf("room %s: record aborted hand: %v", r.cfg.ID, err)
		}
	}

	if r.coordinator != nil {
		_ = r.coordinator.Abort(cause)
		r.coordinator = nil
	}
	r.mpRevealTotal = 0
	r.mpRevealComplete = nil

	r.hand = nil
	r.lastPhase = engine.Waiting

	r.broadcast(transport.NotificationTag, transport.NotificationPayload{
		Type: "hand-aborted", Message: fmt.Sprintf("hand %d aborted: %v", h.Number, cause),
	})
	r.broadcast(transport.GameState, r.gameStatePayload())
	r.maybeStartHand()
}

// completeShowdown settles the hand once the Hand Engine's own evaluation
// is ready to run: for a Mental Poker table this is only reached once every
// requested reveal position is satisfied (noteRevealComplete) or there is
// nothing to reveal; for a non-Mental-Poker table it runs immediately since
// there is no reveal sub-protocol to await.
func (r *Room) completeShowdown() {
	result, err := r.hand.Settle()
	if err != nil {
		r.log.Errorf("room %s: settle hand: %v", r.cfg.ID, err)
		r.abortHand(err)
		return
	}

	deltaByHandSeat := map[int]int64{}
	for _, d := range result.Deltas {
		deltaByHandSeat[int(d.Seat)] += d.Amount
	}

	winnersBySeat := map[int]int64{}
	for handIdx, amt := range deltaByHandSeat {
		if amt > 0 {
			winnersBySeat[r.hand.Seats[handIdx].Index] += amt
		}
	}
	var winners []transport.WinnerView
	for seat, amt := range winnersBySeat {
		winners = append(winners, transport.WinnerView{SeatIndex: seat, Amount: transport.ChipAmount(amt)})
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].SeatIndex < winners[j].SeatIndex })

	var potViews []transport.PotView
	for _, p := range result.Pots {
		view := transport.PotView{Amount: transport.ChipAmount(p.Amount)}
		for seatID := range p.Eligible {
			view.SeatsIn = append(view.SeatsIn, r.hand.Seats[seatID].Index)
		}
		sort.Ints(view.SeatsIn)
		potViews = append(potViews, view)
	}

	r.broadcast(transport.GameHandResult, transport.HandResultPayload{Winners: winners, Pots: potViews})

	if r.store != nil {
		handID := uuid.NewString()
		var potTotal int64
		for _, p := range result.Pots {
			potTotal += p.Amount
		}
		if err := r.store.RecordHand(persistence.HandRecord{
			HandID: handID, TableID: r.cfg.ID, HandNo: r.hand.Number, Pot: potTotal,
			StartedAt: r.handStartedAt, EndedAt: time.Now(),
		}); err != nil {
			r.log.Warnf("room %s: record hand: %v", r.cfg.ID, err)
		}

		shown := map[int]bool{}
		for _, si := range result.ShownSeats {
			shown[si] = true
		}
		rows := make([]persistence.ParticipantRow, 0, len(r.hand.Seats))
		for i, s := range r.hand.Seats {
			rows = append(rows, persistence.ParticipantRow{
				HandID: handID, Wallet: s.Wallet, SeatIndex: s.Index,
				StartingStack: r.handStartStack[s.Wallet], Delta: deltaByHandSeat[i], ShowedCards: shown[i],
			})
		}
		if err := r.store.RecordHandParticipants(rows); err != nil {
			r.log.Warnf("room %s: record hand participants: %v", r.cfg.ID, err)
		}
	}

	if r.coordinator != nil {
		_ = r.coordinator.Complete()
		r.coordinator = nil
	}
	r.mpRevealTotal = 0
	r.mpRevealComplete = nil

	for _, s := range r.seats {
		if s != nil && s.Stack <= 0 {
			s.Status.SittingOut = true
		}
	}

	r.broadcast(transport.GameState, r.gameStatePayload())
	r.maybeStartHand()
}
