package server

import (
	"context"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/cardtable/holdem/internal/game"
	"github.com/cardtable/holdem/internal/protocol"
)

// Server is the realtime multi-table session manager: it owns the table
// Registry, the websocket upgrade endpoint, and the admin HTTP surface
// (spec.md §6.3). Grounded on the teacher's Server (internal/server/
// server.go: ServeMux + http.Server + websocket.Upgrader fields), adapted
// from its single bot-pool-per-game shape to the spec's table Registry.
type Server struct {
	registry *Registry
	dispatch *Dispatcher
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	http     *http.Server
	logger   *log.Logger
	clock    quartz.Clock
}

// New builds a Server over cfg's table defaults. logger should already carry
// any process-wide fields (e.g. from cmd/holdem-server's setup).
func New(cfg game.Config, logger *log.Logger) *Server {
	registry := NewRegistry(cfg)
	s := &Server{
		registry: registry,
		dispatch: NewDispatcher(registry, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux:    http.NewServeMux(),
		logger: logger.WithPrefix("server"),
		clock:  quartz.NewReal(),
	}
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.registerHTTP()
	return s
}

// Registry exposes the table registry, primarily so cmd/holdem-server can
// pre-create the tables named in the HCL config before serving traffic.
func (s *Server) Registry() *Registry { return s.registry }

// Start listens on addr and serves until the listener errors or Shutdown is
// called, grounded on the teacher's Start/Serve split.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve runs the HTTP server over an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.http = &http.Server{Handler: s.mux}
	s.logger.Info("server starting", "addr", listener.Addr().String())
	err := s.http.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops accepting new connections and waits for
// in-flight handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handleWebSocket implements spec.md §4.4 Connect: read the game/table/nick
// query params, seat or reattach the nickname, and hand the upgraded
// connection off to its read/write pumps. A full table closes the
// connection with an error frame first, per spec.md §7's Capacity case.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gameName := q.Get("game")
	if gameName == "" {
		gameName = "holdem"
	}
	tableParam := q.Get("table")
	nick := q.Get("nick")

	if nick == "" {
		http.Error(w, "nick query parameter is required", http.StatusBadRequest)
		return
	}

	t, tableID, err := s.registry.Connect(gameName, tableParam, nick)
	if err != nil {
		ws, upErr := s.upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			s.logger.Debug("websocket upgrade failed", "error", upErr)
			return
		}
		s.rejectCapacity(ws, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		s.registry.DisconnectNick(tableID, nick)
		return
	}

	conn := NewConnection(ws, s.logger, s.clock, nick, tableID)
	s.registry.Attach(conn)
	conn.Start(s.dispatch.Handle, func(c *Connection) {
		s.registry.Disconnect(tableID, c)
		// spec.md §4.4 Disconnect: a hand cancelled because fewer than two
		// connected seats remain must be broadcast to whoever is left; the
		// table may also have just been discarded if c was the last
		// connection, in which case there is nothing left to tell.
		if remaining, ok := s.registry.Table(tableID); ok {
			s.dispatch.BroadcastTable(remaining, tableID)
		}
	})

	// spec.md §4.4 Connect step 5: broadcast state to the whole table, not
	// just the connection that just joined.
	s.dispatch.BroadcastTable(t, tableID)
}

// rejectCapacity sends a single error frame and closes the socket, per
// spec.md §7's Capacity error handling.
func (s *Server) rejectCapacity(ws *websocket.Conn, cause error) {
	defer func() { _ = ws.Close() }()
	b, err := protocol.Encode(protocol.NewErrorFrame(cause.Error()))
	if err != nil {
		return
	}
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
