package server

import (
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardtable/holdem/internal/deck"
	"github.com/cardtable/holdem/internal/game"
	"github.com/cardtable/holdem/internal/protocol"
)

// maxAutoAdvanceIterations bounds the auto-advance loop (spec.md §4.4), so a
// pathological table state can never spin the dispatcher forever.
const maxAutoAdvanceIterations = 10

// Dispatcher routes decoded inbound frames from a Connection against its
// table and rebroadcasts a per-connection state projection, implementing
// spec.md §4.4's Dispatch, Auto-advance loop, and Broadcast sections.
// Grounded in the teacher's Connection.handleMessage type-switch
// (internal/server/connection.go) adapted to this spec's three frame kinds
// plus the new_hand pseudo-action, and in TableEventSubscriber's
// broadcast-after-mutation shape (internal/server/game_service.go).
type Dispatcher struct {
	registry *Registry
	logger   *log.Logger
}

// NewDispatcher builds a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger *log.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger.WithPrefix("dispatch")}
}

// Handle processes one inbound frame from c, per spec.md §4.4 Dispatch.
func (d *Dispatcher) Handle(c *Connection, frame protocol.Inbound) {
	t, ok := d.registry.Table(c.TableID())
	if !ok {
		return
	}

	switch frame.Kind {
	case protocol.TypeChat:
		d.broadcastChat(c.TableID(), frame.Chat)

	case protocol.TypeStart:
		t.Lock()
		d.tryStartHand(t, c.TableID())
		snap := d.snapshot(t)
		t.Unlock()
		d.send(c.TableID(), snap)

	case protocol.TypeAction:
		d.handleAction(c, t, frame.Action)

	default:
		// Any other type: broadcast current state, per spec.md §4.4's
		// catch-all no-op.
		t.Lock()
		snap := d.snapshot(t)
		t.Unlock()
		d.send(c.TableID(), snap)
	}
}

func (d *Dispatcher) handleAction(c *Connection, t *game.Table, in protocol.ActionIn) {
	if in.IsNewHand() {
		t.Lock()
		d.tryStartHand(t, c.TableID())
		snap := d.snapshot(t)
		t.Unlock()
		d.send(c.TableID(), snap)
		return
	}

	action, known := game.ParseAction(in.Action)
	if !known {
		return
	}

	t.Lock()
	applied := t.ApplyAction(c.Nickname(), action, in.Amount)
	if applied {
		d.autoAdvance(t)
	}
	snap := d.snapshot(t)
	t.Unlock()

	if !applied {
		d.logger.Debug("rejected illegal action",
			"player", c.Nickname(), "action", in.Action, "table", c.TableID())
		return
	}
	d.send(c.TableID(), snap)
}

// tryStartHand validates the ">=2 seats with stack>0" precondition shared by
// "start" and the "new_hand" pseudo-action (spec.md §4.4), logging the
// rejection at Debug rather than surfacing it. No error frame is sent to the
// client for a failed precondition; the start is simply not acted on, so the
// next broadcast shows the table unchanged.
func (d *Dispatcher) tryStartHand(t *game.Table, tableID string) {
	eligible := 0
	for _, s := range t.Seats {
		if s.Stack > 0 {
			eligible++
		}
	}
	if eligible < 2 {
		d.logger.Debug("rejected start: fewer than two seats with chips",
			"table", tableID, "eligible", eligible)
		return
	}
	if err := t.StartHand(); err != nil {
		d.logger.Debug("start_hand failed", "table", tableID, "error", err)
	}
}

// autoAdvance runs the bounded auto-advance loop under the caller's lock on
// t, per spec.md §4.4.
func (d *Dispatcher) autoAdvance(t *game.Table) {
	for i := 0; i < maxAutoAdvanceIterations; i++ {
		if t.Street == game.Showdown || t.Street == game.Idle {
			return
		}
		switch {
		case t.NonFoldedCount() <= 1:
			t.ResolveShowdown()
		case t.AllRemainingAreAllIn():
			t.RunOutRemainingStreets()
		case !t.IsActionNeeded():
			t.AdvanceStreet()
		default:
			return
		}
	}
}

// BroadcastTable snapshots t and fans the projection out to every
// connection attached to tableID. Used directly by Connect (spec.md §4.4
// step 5), in addition to the post-dispatch broadcasts in Handle.
func (d *Dispatcher) BroadcastTable(t *game.Table, tableID string) {
	t.Lock()
	snap := d.snapshot(t)
	t.Unlock()
	d.send(tableID, snap)
}

func (d *Dispatcher) broadcastChat(tableID string, chat protocol.ChatIn) {
	out := protocol.NewChatOut(chat.From, chat.Text)
	var g errgroup.Group
	for _, c := range d.registry.Connections(tableID) {
		c := c
		g.Go(func() error {
			if err := c.Send(out); err != nil {
				d.registry.Disconnect(tableID, c)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// tableSnapshot is the table-wide data a broadcast needs, captured once
// under the table's lock so the per-connection projection afterward can run
// lock-free (sends are a suspension point per spec.md §5 and must never
// happen while holding the table mutex).
type tableSnapshot struct {
	players       []string
	started       bool
	community     []deck.Card
	pot           int
	street        string
	toAct         string
	winners       []string
	recentActions []game.ActionRecord
	stacks        map[string]int
	dealer        string
	sb            string
	bb            string
	callAmount    int
	minRaise      int
	holes         map[string][]deck.Card
	allHoles      map[string][]deck.Card
	showdownOrder []string
}

func (d *Dispatcher) snapshot(t *game.Table) tableSnapshot {
	stacks := make(map[string]int, t.SeatCount())
	holes := make(map[string][]deck.Card, t.SeatCount())
	for _, s := range t.Seats {
		stacks[s.Nickname] = s.Stack
		holes[s.Nickname] = nonNilCards(s.Hole)
	}

	var allHoles map[string][]deck.Card
	var showdownOrder []string
	if t.Street == game.Showdown {
		allHoles = make(map[string][]deck.Card)
		for _, s := range t.Seats {
			if !s.Folded {
				allHoles[s.Nickname] = s.Hole
			}
		}
		showdownOrder = t.ShowdownOrder()
	}

	var callAmount int
	toAct := t.ToActNickname()
	if toAct != "" {
		callAmount = t.CallAmount(toAct)
	}

	return tableSnapshot{
		players:       seatNicknames(t),
		started:       t.Started,
		community:     nonNilCards(t.Community), // withheld as [] rather than null while Street == Preflop
		pot:           t.PotSize(),
		street:        t.Street.String(),
		toAct:         toAct,
		winners:       t.Winners,
		recentActions: t.RecentActions,
		stacks:        stacks,
		dealer:        t.DealerNickname(),
		sb:            t.SBNickname(),
		bb:            t.BBNickname(),
		callAmount:    callAmount,
		minRaise:      t.MinRaiseAmount(),
		holes:         holes,
		allHoles:      allHoles,
		showdownOrder: showdownOrder,
	}
}

// nonNilCards coerces a nil hand into an empty, non-nil slice so it marshals
// to JSON "[]" rather than "null" — spec.md §4.4 describes withheld cards
// (preflop community, an unseated connection's hole) as an empty list, not
// a null.
func nonNilCards(cards []deck.Card) []deck.Card {
	if cards == nil {
		return []deck.Card{}
	}
	return cards
}

// project tailors snap to one connection's nickname, per spec.md §4.4's
// per-seat projection rules.
func project(snap tableSnapshot, nick string) protocol.StateFrame {
	frame := protocol.StateFrame{
		Type:          protocol.TypeState,
		Players:       snap.players,
		Started:       snap.started,
		Community:     snap.community,
		Hole:          nonNilCards(snap.holes[nick]), // [] rather than null when nick holds no seat
		Pot:           snap.pot,
		Street:        snap.street,
		ToAct:         snap.toAct,
		Winners:       snap.winners,
		RecentActions: snap.recentActions,
		Stacks:        snap.stacks,
		Dealer:        snap.dealer,
		SB:            snap.sb,
		BB:            snap.bb,
		AllHoles:      snap.allHoles,
		ShowdownOrder: snap.showdownOrder,
	}
	if snap.toAct != "" && nick == snap.toAct {
		callAmount := snap.callAmount
		frame.CallAmount = &callAmount
		minRaise := snap.minRaise
		frame.MinRaise = &minRaise
	}
	return frame
}

// send fans a tailored state frame out to every connection attached to
// tableID concurrently, per SPEC_FULL.md §5's broadcast enrichment. A send
// failure drops that connection from the table within the same broadcast and
// never blocks delivery to the others.
func (d *Dispatcher) send(tableID string, snap tableSnapshot) {
	var g errgroup.Group
	for _, c := range d.registry.Connections(tableID) {
		c := c
		g.Go(func() error {
			if err := c.Send(project(snap, c.Nickname())); err != nil {
				d.registry.Disconnect(tableID, c)
			}
			return nil
		})
	}
	_ = g.Wait()
}
