package game

import "github.com/cardtable/holdem/internal/deck"

// Seat is one occupied position at a table, identified by a nickname unique
// to the table. Connected is explicit and distinct from Folded/AllIn so a
// disconnected-but-seated player stays dealt into a hand in progress and can
// re-attach by nickname later.
type Seat struct {
	Nickname  string
	Stack     int
	Hole      []deck.Card
	Bet       int
	Committed int
	Folded    bool
	AllIn     bool
	Connected bool

	// Acted tracks whether this seat has responded to the current highest
	// bet on the current street. It is reset to false for every seat at
	// the start of each street, and for every other live seat whenever a
	// raise re-opens the action, so bettingRoundSettled can tell "everyone
	// has had their turn" apart from "the action hasn't gotten back around
	// yet" without relying on fragile seat-index arithmetic across
	// all-in seats that never get to act again.
	Acted bool
}

// canAct reports whether this seat may voluntarily act right now.
func (s *Seat) canAct() bool {
	return !s.Folded && !s.AllIn
}

// resetForHand clears per-hand state, hole cards included, ahead of a new
// deal. Every seat kept for the hand is dealt fresh cards right after,
// whether or not it is connected; disconnected seats do not sit out.
func (s *Seat) resetForHand() {
	s.Hole = nil
	s.Bet = 0
	s.Committed = 0
	s.Folded = false
	s.AllIn = false
	s.Acted = false
}

// resetForStreet clears the per-street betting state ahead of a new round.
func (s *Seat) resetForStreet() {
	s.Bet = 0
	s.Acted = false
}

// commit moves up to amt chips from the seat's stack into its bet/committed
// totals, capping at the seat's remaining stack and marking all-in if it
// empties the stack. Returns the amount actually moved.
func (s *Seat) commit(amt int) int {
	if amt > s.Stack {
		amt = s.Stack
	}
	if amt < 0 {
		amt = 0
	}
	s.Stack -= amt
	s.Bet += amt
	s.Committed += amt
	if s.Stack == 0 {
		s.AllIn = true
	}
	return amt
}
