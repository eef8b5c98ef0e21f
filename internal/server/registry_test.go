package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/holdem/internal/game"
)

func testConfig() game.Config {
	return game.Config{MaxPlayers: 3, BuyIn: 1000, SBSize: 5, BBSize: 10}
}

func TestConnectNormalizesNewToDefaultTable(t *testing.T) {
	r := NewRegistry(testConfig())

	_, tableID, err := r.Connect("holdem", "new", "alice")
	require.NoError(t, err)
	assert.Equal(t, "holdem-default", tableID)

	_, tableID2, err := r.Connect("holdem", "", "bob")
	require.NoError(t, err)
	assert.Equal(t, "holdem-default", tableID2)
}

func TestConnectSeatsNewNickname(t *testing.T) {
	r := NewRegistry(testConfig())

	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	seat, ok := table.FindSeat("alice")
	require.True(t, ok)
	assert.Equal(t, 1000, seat.Stack)
	assert.True(t, seat.Connected)
	assert.Equal(t, "t1", tableID)
}

func TestConnectReattachesExistingNickname(t *testing.T) {
	r := NewRegistry(testConfig())

	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	seat, _ := table.FindSeat("alice")
	seat.Connected = false
	seat.Stack = 450

	table2, _, err := r.Connect("holdem", tableID, "alice")
	require.NoError(t, err)
	assert.Same(t, table, table2)
	reseat, ok := table2.FindSeat("alice")
	require.True(t, ok)
	assert.True(t, reseat.Connected)
	assert.Equal(t, 450, reseat.Stack, "reattaching must not reset the player's stack")
	assert.Equal(t, 1, table2.SeatCount())
}

func TestConnectRejectsWhenTableFull(t *testing.T) {
	r := NewRegistry(testConfig())

	_, tableID, err := r.Connect("holdem", "t1", "a")
	require.NoError(t, err)
	_, _, err = r.Connect("holdem", tableID, "b")
	require.NoError(t, err)
	_, _, err = r.Connect("holdem", tableID, "c")
	require.NoError(t, err)

	_, _, err = r.Connect("holdem", tableID, "d")
	assert.ErrorIs(t, err, game.ErrTableFull)
}

func TestConnectPurgesStaleDisconnectedSeatsWhileIdle(t *testing.T) {
	r := NewRegistry(testConfig())

	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	seat, _ := table.FindSeat("alice")
	seat.Connected = false

	_, _, err = r.Connect("holdem", tableID, "bob")
	require.NoError(t, err)

	_, ok := table.FindSeat("alice")
	assert.False(t, ok, "a stale disconnected seat must be purged before a new player is seated")
}

func TestConnectDoesNotPurgeDisconnectedSeatsMidHand(t *testing.T) {
	r := NewRegistry(testConfig())

	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	_, _, err = r.Connect("holdem", tableID, "bob")
	require.NoError(t, err)

	require.NoError(t, table.StartHand())
	aliceSeat, _ := table.FindSeat("alice")
	aliceSeat.Connected = false

	_, _, err = r.Connect("holdem", tableID, "carol")
	require.NoError(t, err)

	_, ok := table.FindSeat("alice")
	assert.True(t, ok, "a disconnected seat must survive reconcile while a hand is in progress")
}

func TestDisconnectMarksSeatNotConnected(t *testing.T) {
	r := NewRegistry(testConfig())
	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)

	conn := &Connection{nick: "alice", tableID: tableID}
	r.Attach(conn)
	r.Disconnect(tableID, conn)

	seat, ok := table.FindSeat("alice")
	require.True(t, ok)
	assert.False(t, seat.Connected)
}

func TestDisconnectCancelsHandBelowTwoConnectedSeats(t *testing.T) {
	r := NewRegistry(testConfig())
	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	_, _, err = r.Connect("holdem", tableID, "bob")
	require.NoError(t, err)
	require.NoError(t, table.StartHand())
	require.True(t, table.Started)

	connAlice := &Connection{nick: "alice", tableID: tableID}
	r.Attach(connAlice)
	connBob := &Connection{nick: "bob", tableID: tableID}
	r.Attach(connBob)

	r.Disconnect(tableID, connBob)

	assert.False(t, table.Started, "dropping below two connected seats must cancel the hand in progress")
	assert.Equal(t, game.Idle, table.Street)
}

func TestDisconnectDiscardsTableOnceEmpty(t *testing.T) {
	r := NewRegistry(testConfig())
	_, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)

	conn := &Connection{nick: "alice", tableID: tableID}
	r.Attach(conn)
	r.Disconnect(tableID, conn)

	_, ok := r.Table(tableID)
	assert.False(t, ok, "the last connection leaving must discard the table state")
}

func TestCreateNamedRejectsDuplicate(t *testing.T) {
	r := NewRegistry(testConfig())
	require.NoError(t, r.CreateNamed("holdem", "main", "Main Table"))
	err := r.CreateNamed("holdem", "main", "Main Table")
	assert.ErrorIs(t, err, ErrTableExists)
}

func TestListSummariesSortedByID(t *testing.T) {
	r := NewRegistry(testConfig())
	require.NoError(t, r.CreateNamed("holdem", "zeta", ""))
	require.NoError(t, r.CreateNamed("holdem", "alpha", ""))

	summaries := r.ListSummaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "alpha", summaries[0].ID)
	assert.Equal(t, "zeta", summaries[1].ID)
}

func TestDetailReportsNotFound(t *testing.T) {
	r := NewRegistry(testConfig())
	_, ok := r.Detail("nope")
	assert.False(t, ok)
}

func TestDetailReflectsLiveTableState(t *testing.T) {
	r := NewRegistry(testConfig())
	table, tableID, err := r.Connect("holdem", "t1", "alice")
	require.NoError(t, err)
	_, _, err = r.Connect("holdem", tableID, "bob")
	require.NoError(t, err)
	require.NoError(t, table.StartHand())

	detail, ok := r.Detail(tableID)
	require.True(t, ok)
	assert.Equal(t, "preflop", detail.Street)
	assert.Equal(t, 2, detail.PlayerCount)
	assert.Equal(t, 1, detail.AvailableSlots)
	assert.True(t, detail.Started)
}
