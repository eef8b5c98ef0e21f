package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/cardtable/holdem/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Connection wraps one client's websocket, grounded on the teacher's
// internal/server/connection.go read/write-pump split: one goroutine per
// direction, a buffered outbound channel, and a context used purely for
// cancellation — no suspension point lives inside a table mutator, only in
// these two pumps.
type Connection struct {
	ws      *websocket.Conn
	send    chan []byte
	nick    string
	tableID string
	logger  *log.Logger
	clock   quartz.Clock

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	onMessage func(*Connection, protocol.Inbound)
	onClose   func(*Connection)
}

// NewConnection builds a Connection ready for Start. clock lets tests swap
// in a quartz.Mock to drive the ping ticker deterministically instead of
// waiting on a real 54-second period.
func NewConnection(ws *websocket.Conn, logger *log.Logger, clock quartz.Clock, nick, tableID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ws:      ws,
		send:    make(chan []byte, 256),
		nick:    nick,
		tableID: tableID,
		logger:  logger.WithPrefix("conn").With("nick", nick),
		clock:   clock,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Nickname returns the seat nickname this connection authenticated as.
func (c *Connection) Nickname() string { return c.nick }

// TableID returns the table this connection is attached to.
func (c *Connection) TableID() string { return c.tableID }

// Start launches the read and write pumps. onMessage is invoked from the
// read pump for every successfully decoded inbound frame; malformed frames
// are silently dropped per spec.md §7 and never reach onMessage. onClose
// fires exactly once, when either pump exits.
func (c *Connection) Start(onMessage func(*Connection, protocol.Inbound), onClose func(*Connection)) {
	c.onMessage = onMessage
	c.onClose = onClose
	go c.writePump()
	go c.readPump()
}

// Close tears down the connection; safe to call more than once or
// concurrently with the pumps exiting on their own.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return err
}

// Send enqueues an outbound frame, dropping the connection if its buffer is
// full rather than blocking the broadcaster — per spec.md §4.4's "failed
// sends are dropped from the table's connection set within the same
// broadcast".
func (c *Connection) Send(frame protocol.Outbound) error {
	b, err := protocol.Encode(frame)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			// send on a channel already closed by a concurrent Close.
			c.logger.Debug("send on closed connection", "panic", r)
		}
	}()
	select {
	case c.send <- b:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return websocket.ErrCloseSent
	}
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(c.clock.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(c.clock.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		frame, err := protocol.Decode(payload)
		if err != nil {
			// Malformed frame: silently ignore, per spec.md §7.
			c.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		if c.onMessage != nil {
			c.onMessage(c, frame)
		}
	}
}

func (c *Connection) writePump() {
	ticker := c.clock.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(c.clock.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(c.clock.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
