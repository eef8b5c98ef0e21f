// Package game implements the No-Limit Hold'em hand state machine: blind
// posting, betting-round legality, min-raise re-opening, all-in resolution
// with side pots, and showdown.
package game

import (
	"errors"
	"sync"

	"github.com/cardtable/holdem/internal/deck"
	"github.com/cardtable/holdem/internal/evaluator"
)

// Config carries the per-table constants an operator can set.
type Config struct {
	MaxPlayers int
	BuyIn      int
	SBSize     int
	BBSize     int
}

// DefaultConfig matches spec §6.1's defaults.
func DefaultConfig() Config {
	return Config{MaxPlayers: 9, BuyIn: 1000, SBSize: 5, BBSize: 10}
}

var (
	// ErrTableFull is returned by AddSeat when the table is at capacity.
	ErrTableFull = errors.New("game: table full")
	// ErrNotEnoughPlayers is returned by StartHand when fewer than two
	// seats have a positive stack.
	ErrNotEnoughPlayers = errors.New("game: not enough players with chips")
)

// Table is the authoritative in-memory state for one poker table. Its
// methods do not lock on their own: callers serialize access by holding
// Lock/Unlock around each call, which is the per-table serialization
// discipline required by the concurrency model (no suspension happens inside
// a mutator, so holding the lock across one call never blocks on I/O).
type Table struct {
	mu sync.Mutex

	Config Config

	Seats []*Seat

	deck      *deck.Deck
	Community []deck.Card
	Pot       int
	Street    Street
	Started   bool

	dealerIdx   int
	dealerNick  string
	sbIdx       int
	bbIdx       int
	everStarted bool
	ToAct       int

	LastRaiseAmount int
	LastBettor      int

	RecentActions []ActionRecord
	Winners       []string
}

// NewTable builds an empty, idle table.
func NewTable(cfg Config) *Table {
	return &Table{
		Config:     cfg,
		ToAct:      -1,
		LastBettor: -1,
		dealerIdx:  -1,
	}
}

// Lock/Unlock expose the table's serialization mutex directly to the
// session manager, which wraps every dispatch against a table in
// Lock/Unlock so no two command applications interleave.
func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }

// SeatCount returns the number of occupied seats.
func (t *Table) SeatCount() int {
	return len(t.Seats)
}

// FindSeat returns the seat with the given nickname, if seated.
func (t *Table) FindSeat(nick string) (*Seat, bool) {
	for _, s := range t.Seats {
		if s.Nickname == nick {
			return s, true
		}
	}
	return nil, false
}

// AddSeat seats a new player with a fresh buy-in. One capacity predicate
// (">=") is used everywhere a seat is added, per spec §9 flag #4.
func (t *Table) AddSeat(nick string) (*Seat, error) {
	if len(t.Seats) >= t.Config.MaxPlayers {
		return nil, ErrTableFull
	}
	s := &Seat{Nickname: nick, Stack: t.Config.BuyIn, Connected: true}
	t.Seats = append(t.Seats, s)
	return s, nil
}

// RemoveSeat drops a seat entirely (used when reconciling stale nicknames on
// connect, never mid-hand for a connected player).
func (t *Table) RemoveSeat(nick string) {
	for i, s := range t.Seats {
		if s.Nickname == nick {
			t.Seats = append(t.Seats[:i], t.Seats[i+1:]...)
			return
		}
	}
}

// CountConnectedInHand returns how many seats still in the current hand
// (not folded) are connected.
func (t *Table) CountConnectedInHand() int {
	n := 0
	for _, s := range t.Seats {
		if !s.Folded && s.Connected {
			n++
		}
	}
	return n
}

// ResetToIdle cancels whatever hand is in progress, per §4.4's disconnect
// rule: fewer than two connected seats remain in the hand.
func (t *Table) ResetToIdle() {
	t.Street = Idle
	t.Started = false
	t.Community = nil
	t.Pot = 0
	t.ToAct = -1
	t.LastBettor = -1
	t.LastRaiseAmount = 0
	t.RecentActions = nil
	t.Winners = nil
	for _, s := range t.Seats {
		s.Hole = nil
		s.Bet = 0
		s.Committed = 0
		s.Folded = false
		s.AllIn = false
	}
}

// eligibleForHand reports the seats that can start a new hand: seated with
// a positive stack.
func (t *Table) eligibleForHand() []*Seat {
	var out []*Seat
	for _, s := range t.Seats {
		if s.Stack > 0 {
			out = append(out, s)
		}
	}
	return out
}

// StartHand begins a new hand: drops zero-stack seats, rotates the dealer,
// shuffles and deals, posts blinds, and sets the first actor to move.
func (t *Table) StartHand() error {
	// 1. Drop zero-stack seats.
	kept := t.Seats[:0:0]
	for _, s := range t.Seats {
		if s.Stack > 0 {
			kept = append(kept, s)
		}
	}
	t.Seats = kept
	if len(t.Seats) < 2 {
		return ErrNotEnoughPlayers
	}

	// 2. Rotate the dealer one seat forward.
	t.rotateDealer()

	// 3. Build and shuffle a fresh deck; deal hole cards.
	t.deck = deck.NewDeck()
	t.deck.Shuffle()
	t.Community = nil
	t.Pot = 0
	t.Winners = nil
	t.RecentActions = nil
	for _, s := range t.Seats {
		s.resetForHand()
	}

	n := len(t.Seats)
	sbIdx, bbIdx, firstToAct := blindPositions(t.dealerIdx, n)
	t.sbIdx = sbIdx
	t.bbIdx = bbIdx

	t.dealHoleCards(sbIdx)

	// 4-5. Post blinds.
	t.Seats[sbIdx].commit(t.Config.SBSize)
	t.Seats[bbIdx].commit(t.Config.BBSize)

	// 6. Reset per-hand accumulators and set the first actor.
	t.LastRaiseAmount = 0
	t.LastBettor = -1
	t.Street = Preflop
	t.Started = true
	t.everStarted = true
	t.settleInitialAction(firstToAct)
	return nil
}

// settleInitialAction sets ToAct for the seat nominally first to act,
// skipping forward if that seat is already all-in from its blind (a very
// short-stacked blind post) and leaving ToAct at -1 if no seat can act at
// all, so the SessionManager's auto-advance loop runs the hand out.
func (t *Table) settleInitialAction(nominal int) {
	if t.AllRemainingAreAllIn() {
		t.ToAct = -1
		return
	}
	t.ToAct = t.findNextActingSeat(nominal)
}

// blindPositions computes SB/BB seat indices and preflop's first actor.
// Heads-up applies the standard rule (dealer = SB, acts first preflop) per
// spec §9's REDESIGN of the reference's fixed dealer+1/dealer+2 assignment,
// which never lets the dealer post in a 2-seat game.
func blindPositions(dealerIdx, n int) (sb, bb, firstToAct int) {
	if n == 2 {
		sb = dealerIdx
		bb = (dealerIdx + 1) % n
		firstToAct = sb
		return
	}
	sb = (dealerIdx + 1) % n
	bb = (dealerIdx + 2) % n
	firstToAct = (bb + 1) % n
	return
}

// rotateDealer advances the button to the next seated player, even across a
// seat having been dropped for running out of chips, preserving the button's
// natural clockwise progression through the seats that remain.
func (t *Table) rotateDealer() {
	n := len(t.Seats)
	if !t.everStarted {
		t.dealerIdx = 0
		t.dealerNick = t.Seats[0].Nickname
		return
	}

	// Find the previous dealer among the seats that remain after zero-stack
	// seats were dropped, and move the button one seat past them. If the
	// previous dealer themself was dropped, the button lands on the seat
	// that is now first in join order — a reasonable, deterministic
	// continuation of the rotation.
	idx := findSeatIndex(t.Seats, t.dealerNick)
	if idx == -1 {
		t.dealerIdx = 0
	} else {
		t.dealerIdx = (idx + 1) % n
	}
	t.dealerNick = t.Seats[t.dealerIdx].Nickname
}

func findSeatIndex(seats []*Seat, nick string) int {
	for i, s := range seats {
		if s.Nickname == nick {
			return i
		}
	}
	return -1
}

// dealHoleCards deals one card per seat starting at sbIdx, then a second
// pass for the second card, matching the dealing order in spec §4.1.
func (t *Table) dealHoleCards(sbIdx int) {
	n := len(t.Seats)
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			idx := (sbIdx + i) % n
			card, ok := t.deck.Pop()
			if !ok {
				panic("game: deck exhausted dealing hole cards")
			}
			t.Seats[idx].Hole = append(t.Seats[idx].Hole, card)
		}
	}
}

// HighestBet returns the largest current-street bet among all seats.
func (t *Table) HighestBet() int {
	hb := 0
	for _, s := range t.Seats {
		if s.Bet > hb {
			hb = s.Bet
		}
	}
	return hb
}

// CallAmount is the chips nick would need to commit to match the highest
// bet, capped by their remaining stack.
func (t *Table) CallAmount(nick string) int {
	s, ok := t.FindSeat(nick)
	if !ok {
		return 0
	}
	amt := t.HighestBet() - s.Bet
	if amt < 0 {
		amt = 0
	}
	if amt > s.Stack {
		amt = s.Stack
	}
	return amt
}

// MinRaiseAmount is the minimum legal raise increment: the last full raise,
// or the big blind if none has occurred yet this street.
func (t *Table) MinRaiseAmount() int {
	if t.LastRaiseAmount > 0 {
		return t.LastRaiseAmount
	}
	return t.Config.BBSize
}

// ToActNickname returns the nickname to act, or "" if none.
func (t *Table) ToActNickname() string {
	if t.ToAct < 0 || t.ToAct >= len(t.Seats) {
		return ""
	}
	return t.Seats[t.ToAct].Nickname
}

// ApplyAction resolves one action submitted by nick. It returns false and
// leaves the table unchanged for any illegal action, per spec §7's "silently
// ignore" rule — callers must not mutate on failure and must not surface an
// error frame for this case.
func (t *Table) ApplyAction(nick string, action ActionType, amount int) bool {
	if t.Street == Idle || t.Street == Showdown {
		return false
	}
	seatIdx := findSeatIndex(t.Seats, nick)
	if seatIdx == -1 || seatIdx != t.ToAct {
		return false
	}
	seat := t.Seats[seatIdx]
	if !seat.canAct() {
		return false
	}

	switch action {
	case Fold:
		seat.Folded = true
		seat.Acted = true

	case Check:
		if seat.Bet != t.HighestBet() {
			return false
		}
		seat.Acted = true

	case Call:
		seat.commit(t.CallAmount(nick))
		seat.Acted = true

	case Raise:
		// A seat that has already acted since the action was last opened
		// may only call, fold, or go all-in: being asked to act again
		// here means it is merely catching up to a short all-in, not
		// responding to a genuine new raise (spec §8 S3).
		if seat.Acted {
			return false
		}
		if !t.applyRaise(seatIdx, seat, amount) {
			return false
		}

	case AllIn:
		t.applyAllIn(seatIdx, seat)

	default:
		return false
	}

	t.recordAction(nick, action, amount)
	t.advanceAfterAction(seatIdx)
	return true
}

// reopenAction records a raise that meets the minimum and clears Acted on
// every other seat still able to act, so they each get a fresh chance to
// respond to the new highest bet.
func (t *Table) reopenAction(seatIdx int, increment int) {
	t.LastRaiseAmount = increment
	t.LastBettor = seatIdx
	for i, s := range t.Seats {
		if i == seatIdx {
			continue
		}
		if s.canAct() {
			s.Acted = false
		}
	}
}

// applyRaise handles a bet/raise submitted as the increment above the
// current highest bet. It returns false (no mutation) if the increment is
// below the minimum raise and would not put the seat all-in.
func (t *Table) applyRaise(seatIdx int, seat *Seat, increment int) bool {
	if increment <= 0 {
		return false
	}
	hb := t.HighestBet()
	needed := (hb - seat.Bet) + increment
	goesAllIn := needed >= seat.Stack
	if increment < t.MinRaiseAmount() && !goesAllIn {
		return false
	}

	prevHB := hb
	seat.commit(needed)
	seat.Acted = true
	newHB := seat.Bet
	actualIncrement := newHB - prevHB
	if actualIncrement >= t.MinRaiseAmount() || !goesAllIn {
		t.reopenAction(seatIdx, actualIncrement)
	}
	// Short all-in: actualIncrement < MinRaiseAmount — leave the other
	// seats' Acted flags untouched so the action does not re-open for
	// players who already matched the previous highest bet.
	return true
}

// applyAllIn pushes the seat's entire remaining stack in, re-opening the
// action only if the resulting raise meets the minimum (short all-in rule).
// A seat that has already acted since the action was last opened is merely
// catching up to someone else's short all-in, not issuing a new raise, so it
// can never reopen action regardless of how its shove compares to the
// current highest bet — mirrors the Raise case's guard (spec §8 S3).
func (t *Table) applyAllIn(seatIdx int, seat *Seat) {
	alreadyActed := seat.Acted
	hb := t.HighestBet()
	minRaise := t.MinRaiseAmount()
	seat.commit(seat.Stack)
	seat.Acted = true
	newHB := seat.Bet
	if !alreadyActed && newHB > hb {
		increment := newHB - hb
		if increment >= minRaise {
			t.reopenAction(seatIdx, increment)
		}
	}
}

// advanceAfterAction sets ToAct to the next seat able to act, or to -1 if
// the hand should fast-forward (fold-to-one, all remaining all-in) or the
// betting round has completed. It never deals further streets itself — that
// is the SessionManager's auto-advance loop's responsibility (§4.4), kept
// out of this synchronous mutator per §5.
func (t *Table) advanceAfterAction(afterIdx int) {
	if t.NonFoldedCount() <= 1 {
		t.ToAct = -1
		return
	}
	if t.AllRemainingAreAllIn() {
		t.ToAct = -1
		return
	}
	if t.bettingRoundSettled() {
		t.ToAct = -1
		return
	}
	t.ToAct = t.findNextActingSeat(afterIdx + 1)
}

// bettingRoundSettled reports whether every seat still able to act has both
// matched the highest bet and acted since the action was last opened.
func (t *Table) bettingRoundSettled() bool {
	hb := t.HighestBet()
	for _, s := range t.Seats {
		if s.canAct() && (s.Bet != hb || !s.Acted) {
			return false
		}
	}
	return true
}

// findNextActingSeat searches cyclically from start for the next seat that
// can still act, returning -1 if none can.
func (t *Table) findNextActingSeat(start int) int {
	n := len(t.Seats)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if t.Seats[idx].canAct() {
			return idx
		}
	}
	return -1
}

// NonFoldedCount returns how many seats have not folded.
func (t *Table) NonFoldedCount() int {
	n := 0
	for _, s := range t.Seats {
		if !s.Folded {
			n++
		}
	}
	return n
}

// AllRemainingAreAllIn reports whether every non-folded seat is all-in (so
// no further betting action is possible).
func (t *Table) AllRemainingAreAllIn() bool {
	any := false
	for _, s := range t.Seats {
		if !s.Folded {
			any = true
			if !s.AllIn {
				return false
			}
		}
	}
	return any
}

// IsActionNeeded reports whether a seat is currently due to act.
func (t *Table) IsActionNeeded() bool {
	return t.ToAct >= 0
}

// AdvanceStreet clears the per-street bets (the chips stay counted in each
// seat's Committed, which PotSize sums), deals the next street (or
// resolves the showdown if the river is complete), and sets the next actor.
// Called by the SessionManager's auto-advance loop, never by ApplyAction
// itself.
func (t *Table) AdvanceStreet() {
	for _, s := range t.Seats {
		s.resetForStreet()
	}
	t.LastRaiseAmount = 0
	t.LastBettor = -1
	t.RecentActions = nil

	next := nextStreet(t.Street)
	t.Street = next
	if next == Showdown {
		t.ResolveShowdown()
		return
	}
	t.dealStreetCards(next)

	if t.NonFoldedCount() <= 1 {
		t.ResolveShowdown()
		return
	}
	if t.AllRemainingAreAllIn() {
		t.ToAct = -1
		return
	}
	t.ToAct = t.findNextActingSeat(t.dealerIdx + 1)
}

// RunOutRemainingStreets deals every street through the river without
// stopping for input, used when all non-folded seats are already all-in.
func (t *Table) RunOutRemainingStreets() {
	for _, s := range t.Seats {
		s.resetForStreet()
	}
	t.LastRaiseAmount = 0
	t.LastBettor = -1
	t.RecentActions = nil
	for t.Street != River {
		next := nextStreet(t.Street)
		t.Street = next
		t.dealStreetCards(next)
	}
	t.ResolveShowdown()
}

// dealStreetCards burns one card then deals the community cards for s.
func (t *Table) dealStreetCards(s Street) {
	if _, ok := t.deck.Pop(); !ok {
		panic("game: deck exhausted on burn")
	}
	var n int
	switch s {
	case Flop:
		n = 3
	case Turn, River:
		n = 1
	default:
		return
	}
	dealt := t.deck.DealN(n)
	t.Community = append(t.Community, dealt...)
}

// ResolveShowdown transitions the table to Showdown, computes side pots
// (or, for fold-to-one, awards the whole pot without a hand contest), and
// records the winning nicknames.
func (t *Table) ResolveShowdown() {
	t.Street = Showdown
	t.ToAct = -1

	var remaining []*Seat
	for _, s := range t.Seats {
		if !s.Folded {
			remaining = append(remaining, s)
		}
	}

	if len(remaining) == 1 {
		w := remaining[0]
		w.Stack += t.totalCommitted()
		t.Winners = []string{w.Nickname}
		t.Pot = 0
		return
	}

	pots := SolveSidePots(t.Seats)
	winners := make(map[string]bool)
	for _, pot := range pots {
		t.awardPot(pot, winners)
	}
	t.Winners = sortedKeys(winners)
	t.Pot = 0
}

func (t *Table) totalCommitted() int {
	sum := 0
	for _, s := range t.Seats {
		sum += s.Committed
	}
	return sum
}

// PotSize returns the total chips committed by all seats so far this hand —
// the live pot total for broadcast, since t.Pot itself is only meaningful at
// the reset/payout instants and is not incremented as bets land.
func (t *Table) PotSize() int {
	return t.totalCommitted()
}

// awardPot finds the best hand(s) among a pot's eligible seats and awards
// chips, splitting evenly with any indivisible remainder going to the
// earliest-seated tied winner (deterministic tie-break per spec §4.3).
func (t *Table) awardPot(pot Pot, winnersAcc map[string]bool) {
	eligibleSet := make(map[string]bool, len(pot.Eligible))
	for _, n := range pot.Eligible {
		eligibleSet[n] = true
	}

	var bestRank evaluator.HandRank
	var tied []*Seat
	for _, s := range t.Seats {
		if !eligibleSet[s.Nickname] {
			continue
		}
		hand := make([]deck.Card, 0, 7)
		hand = append(hand, s.Hole...)
		hand = append(hand, t.Community...)
		rank := evaluator.Evaluate(hand)
		switch {
		case len(tied) == 0 || rank > bestRank:
			bestRank = rank
			tied = []*Seat{s}
		case rank == bestRank:
			tied = append(tied, s)
		}
	}

	if len(tied) == 0 {
		return
	}
	share := pot.Amount / len(tied)
	remainder := pot.Amount % len(tied)
	for i, s := range tied {
		amt := share
		if i == 0 {
			amt += remainder
		}
		s.Stack += amt
		winnersAcc[s.Nickname] = true
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ShowdownOrder returns non-folded seat nicknames in reveal order: the last
// bettor first (if any), then the remainder clockwise from the dealer.
func (t *Table) ShowdownOrder() []string {
	var nonFolded []*Seat
	for _, s := range t.Seats {
		if !s.Folded {
			nonFolded = append(nonFolded, s)
		}
	}
	if len(nonFolded) == 0 {
		return nil
	}

	order := make([]string, 0, len(nonFolded))
	seen := make(map[string]bool, len(nonFolded))

	if t.LastBettor >= 0 && t.LastBettor < len(t.Seats) {
		lastBettorSeat := t.Seats[t.LastBettor]
		if !lastBettorSeat.Folded {
			order = append(order, lastBettorSeat.Nickname)
			seen[lastBettorSeat.Nickname] = true
		}
	}

	n := len(t.Seats)
	for i := 0; i < n; i++ {
		idx := (t.dealerIdx + i) % n
		s := t.Seats[idx]
		if s.Folded || seen[s.Nickname] {
			continue
		}
		order = append(order, s.Nickname)
		seen[s.Nickname] = true
	}
	return order
}

// DealerNickname returns the current dealer's nickname, or "" before the
// first hand.
func (t *Table) DealerNickname() string {
	return t.seatNickname(t.dealerIdx)
}

// SBNickname returns the current small blind's nickname, or "" if idle.
func (t *Table) SBNickname() string {
	if !t.Started {
		return ""
	}
	return t.seatNickname(t.sbIdx)
}

// BBNickname returns the current big blind's nickname, or "" if idle.
func (t *Table) BBNickname() string {
	if !t.Started {
		return ""
	}
	return t.seatNickname(t.bbIdx)
}

func (t *Table) seatNickname(idx int) string {
	if idx < 0 || idx >= len(t.Seats) {
		return ""
	}
	return t.Seats[idx].Nickname
}
