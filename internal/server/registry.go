package server

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cardtable/holdem/internal/game"
)

var (
	// ErrTableExists is returned by CreateNamed when table_id is already
	// registered (spec.md §6.3's 400 on a duplicate POST /api/tables).
	ErrTableExists = errors.New("server: table already exists")
	// ErrTableNotFound supplies the body text the admin HTTP surface writes
	// when a table lookup misses (Detail itself reports a miss as false).
	ErrTableNotFound = errors.New("server: table not found")
)

// Registry is the process-wide table_id -> *game.Table map plus the
// per-table connection set and the display-name registry, grounded in the
// teacher's GameService (internal/server/game_service.go: tables map guarded
// by its own mutex, independent of any one table's internal state) and
// SPEC_FULL.md §4.5's supplement splitting table creation from connection
// bookkeeping. Mutating a *game.Table always goes through that table's own
// Lock/Unlock; r.mu only ever guards the registry's own maps.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*game.Table
	conns  map[string]map[*Connection]bool
	names  map[string]string
	games  map[string]string
	cfg    game.Config
	group  singleflight.Group
}

// NewRegistry builds an empty registry that seats new tables with cfg.
func NewRegistry(cfg game.Config) *Registry {
	return &Registry{
		tables: make(map[string]*game.Table),
		conns:  make(map[string]map[*Connection]bool),
		names:  make(map[string]string),
		games:  make(map[string]string),
		cfg:    cfg,
	}
}

// DefaultTableID is the deterministic id spec.md §4.4 requires when a client
// connects with table="new": one well-known table per game.
func DefaultTableID(gameName string) string {
	return gameName + "-default"
}

// CreateNamed pre-creates an empty table for the admin HTTP surface (POST
// /api/tables, §6.3) before any client has connected to it, using the
// registry's default Config.
func (r *Registry) CreateNamed(gameName, tableID, name string) error {
	return r.CreateNamedWithConfig(gameName, tableID, name, r.cfg)
}

// CreateNamedWithConfig is CreateNamed with an explicit table Config, used
// at boot to seed the tables named by the HCL config's "table" blocks
// (SPEC_FULL.md §6.1), each of which may set its own blinds and buy-in.
func (r *Registry) CreateNamedWithConfig(gameName, tableID, name string, cfg game.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[tableID]; exists {
		return ErrTableExists
	}
	r.tables[tableID] = game.NewTable(cfg)
	r.conns[tableID] = make(map[*Connection]bool)
	r.games[tableID] = gameName
	if name != "" {
		r.names[tableID] = name
	}
	return nil
}

// getOrCreate returns the table for id, constructing it with the registry's
// Config on first reference. Concurrent first-connects to the same new
// table_id are deduplicated through a singleflight.Group so exactly one
// *game.Table gets built, per §5's "safe under concurrent table churn".
func (r *Registry) getOrCreate(gameName, tableID string) *game.Table {
	r.mu.RLock()
	t, ok := r.tables[tableID]
	r.mu.RUnlock()
	if ok {
		return t
	}

	v, _, _ := r.group.Do(tableID, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.tables[tableID]; ok {
			return existing, nil
		}
		t := game.NewTable(r.cfg)
		r.tables[tableID] = t
		r.conns[tableID] = make(map[*Connection]bool)
		r.games[tableID] = gameName
		return t, nil
	})
	return v.(*game.Table)
}

// Table looks up a table without creating it.
func (r *Registry) Table(tableID string) (*game.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[tableID]
	return t, ok
}

// Connect implements spec.md §4.4's Connect algorithm: normalize table="new"
// to the deterministic default id, reconcile stale seats, then either
// reattach an already-seated nickname or add a fresh seat. Returns the table
// and the resolved table id, or game.ErrTableFull if the table has no room
// and nick is not already seated.
func (r *Registry) Connect(gameName, tableParam, nick string) (*game.Table, string, error) {
	tableID := tableParam
	if tableID == "" || tableID == "new" {
		tableID = DefaultTableID(gameName)
	}

	t := r.getOrCreate(gameName, tableID)

	t.Lock()
	defer t.Unlock()

	r.reconcile(t, nick)

	if seat, ok := t.FindSeat(nick); ok {
		seat.Connected = true
		return t, tableID, nil
	}

	if _, err := t.AddSeat(nick); err != nil {
		return nil, tableID, err
	}
	return t, tableID, nil
}

// reconcile purges seats left behind by players who disconnected and never
// reattached. It never touches the connecting nick (that's step 3's
// reconnection case, handled by the caller right after this returns) and
// only runs while the table is idle — see DESIGN.md decision #9 for why a
// disconnected seat must survive reconcile once a hand is in progress.
func (r *Registry) reconcile(t *game.Table, nick string) {
	if t.Street != game.Idle {
		return
	}
	var stale []string
	for _, s := range t.Seats {
		if s.Nickname != nick && !s.Connected {
			stale = append(stale, s.Nickname)
		}
	}
	for _, name := range stale {
		t.RemoveSeat(name)
	}
}

// Disconnect implements spec.md §4.4 Disconnect: detach the connection, mark
// its seat no longer connected, cancel an in-progress hand that drops below
// two connected seats, and discard the TableState once its last connection
// is gone.
func (r *Registry) Disconnect(tableID string, c *Connection) {
	r.removeConn(tableID, c)

	t, ok := r.Table(tableID)
	if !ok {
		return
	}

	t.Lock()
	if seat, ok := t.FindSeat(c.Nickname()); ok {
		seat.Connected = false
	}
	if t.Started && t.CountConnectedInHand() < 2 {
		t.ResetToIdle()
	}
	t.Unlock()

	if len(r.connections(tableID)) == 0 {
		r.mu.Lock()
		delete(r.tables, tableID)
		delete(r.conns, tableID)
		delete(r.games, tableID)
		delete(r.names, tableID)
		r.mu.Unlock()
	}
}

// DisconnectNick rolls back a seat reserved by Connect when the websocket
// upgrade that should have followed it never completes (no *Connection
// exists yet, so there is nothing in the connection set to remove). Shares
// Disconnect's hand-cancellation and last-connection-gone bookkeeping.
func (r *Registry) DisconnectNick(tableID, nick string) {
	t, ok := r.Table(tableID)
	if !ok {
		return
	}

	t.Lock()
	if seat, ok := t.FindSeat(nick); ok {
		seat.Connected = false
	}
	if t.Started && t.CountConnectedInHand() < 2 {
		t.ResetToIdle()
	}
	t.Unlock()

	if len(r.connections(tableID)) == 0 {
		r.mu.Lock()
		delete(r.tables, tableID)
		delete(r.conns, tableID)
		delete(r.games, tableID)
		delete(r.names, tableID)
		r.mu.Unlock()
	}
}

func (r *Registry) addConn(tableID string, c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[tableID] == nil {
		r.conns[tableID] = make(map[*Connection]bool)
	}
	r.conns[tableID][c] = true
}

func (r *Registry) removeConn(tableID string, c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns[tableID], c)
}

// connections returns the live connection set for a table, a stable
// snapshot safe to range over while broadcasting.
func (r *Registry) connections(tableID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns[tableID]))
	for c := range r.conns[tableID] {
		out = append(out, c)
	}
	return out
}

// Connections is the exported form of connections, used by the dispatcher to
// broadcast.
func (r *Registry) Connections(tableID string) []*Connection {
	return r.connections(tableID)
}

// Attach registers c in the table's connection set; called once Connect has
// already seated or reattached c.Nickname().
func (r *Registry) Attach(c *Connection) {
	r.addConn(c.TableID(), c)
}

// TableSummary is the GET /api/tables list entry (spec.md §6.3).
type TableSummary struct {
	ID          string   `json:"id"`
	Game        string   `json:"game"`
	Name        string   `json:"name,omitempty"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count"`
	MaxPlayers  int      `json:"max_players"`
	Started     bool     `json:"started"`
}

// ListSummaries builds the GET /api/tables response, sorted by id for a
// stable listing.
func (r *Registry) ListSummaries() []TableSummary {
	r.mu.RLock()
	ids := make([]string, 0, len(r.tables))
	tables := make(map[string]*game.Table, len(r.tables))
	for id, t := range r.tables {
		ids = append(ids, id)
		tables[id] = t
	}
	names := r.names
	games := r.games
	r.mu.RUnlock()

	sort.Strings(ids)
	out := make([]TableSummary, 0, len(ids))
	for _, id := range ids {
		t := tables[id]
		t.Lock()
		players := seatNicknames(t)
		summary := TableSummary{
			ID:          id,
			Game:        games[id],
			Name:        names[id],
			Players:     players,
			PlayerCount: len(players),
			MaxPlayers:  t.Config.MaxPlayers,
			Started:     t.Started,
		}
		t.Unlock()
		out = append(out, summary)
	}
	return out
}

// TableDetail is the GET /api/tables/{id} response (spec.md §6.3).
type TableDetail struct {
	TableSummary
	Street         string `json:"street"`
	Pot            int    `json:"pot"`
	Dealer         string `json:"dealer"`
	SB             string `json:"sb"`
	BB             string `json:"bb"`
	OccupiedSlots  int    `json:"occupied_slots"`
	AvailableSlots int    `json:"available_slots"`
}

// Detail builds the GET /api/tables/{id} response, or reports not-found.
func (r *Registry) Detail(tableID string) (TableDetail, bool) {
	r.mu.RLock()
	t, ok := r.tables[tableID]
	gameName := r.games[tableID]
	name := r.names[tableID]
	r.mu.RUnlock()
	if !ok {
		return TableDetail{}, false
	}

	t.Lock()
	defer t.Unlock()
	players := seatNicknames(t)
	return TableDetail{
		TableSummary: TableSummary{
			ID:          tableID,
			Game:        gameName,
			Name:        name,
			Players:     players,
			PlayerCount: len(players),
			MaxPlayers:  t.Config.MaxPlayers,
			Started:     t.Started,
		},
		Street:         t.Street.String(),
		Pot:            t.PotSize(),
		Dealer:         t.DealerNickname(),
		SB:             t.SBNickname(),
		BB:             t.BBNickname(),
		OccupiedSlots:  len(players),
		AvailableSlots: t.Config.MaxPlayers - len(players),
	}, true
}

func seatNicknames(t *game.Table) []string {
	out := make([]string, 0, t.SeatCount())
	for _, s := range t.Seats {
		out = append(out, s.Nickname)
	}
	return out
}
