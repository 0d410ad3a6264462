// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ManuGH/streamrelay/internal/metrics"
)

// ErrStreamClosed is returned when attaching to a stream whose delivery has
// been terminated.
var ErrStreamClosed = errors.New("stream delivery closed")

// chunkBuffer bounds how many chunks a slow client may fall behind before
// chunks are dropped.
const chunkBuffer = 64

// ClientConn is one downstream connection. A client (for example a player
// that reopens the stream while seeking) may hold several connections for a
// short overlap; each gets its own connection id so that cleanup of an old
// connection cannot tear down a newer one.
type ClientConn struct {
	ID       string // connection id, unique per attach
	ClientID string

	ch   chan []byte
	once sync.Once
}

// Chunks returns the delivery channel. It is closed when the connection is
// detached or the stream terminates.
func (c *ClientConn) Chunks() <-chan []byte { return c.ch }

func (c *ClientConn) close() {
	c.once.Do(func() { close(c.ch) })
}

// Fanout broadcasts upstream chunks to all attached downstream connections.
// It implements io.Writer so the origin connection can stream straight into
// it. Delivery pauses implicitly while the session is reconnecting (no bytes
// flow) and is terminated explicitly on terminal failure or stop.
type Fanout struct {
	mu     sync.Mutex
	active map[string]string      // client id -> active connection id
	conns  map[string]*ClientConn // connection id -> connection
	closed bool
}

func NewFanout() *Fanout {
	return &Fanout{
		active: make(map[string]string),
		conns:  make(map[string]*ClientConn),
	}
}

// Attach registers a new connection for the given client. A newer attach for
// the same client id supersedes the older connection as the active one; the
// older connection keeps receiving until it is detached with its own id.
func (f *Fanout) Attach(clientID string) (*ClientConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrStreamClosed
	}
	conn := &ClientConn{
		ID:       uuid.New().String(),
		ClientID: clientID,
		ch:       make(chan []byte, chunkBuffer),
	}
	f.conns[conn.ID] = conn
	f.active[clientID] = conn.ID
	return conn, nil
}

// Detach removes a connection. With a connection id, only that connection is
// removed, and the client's active binding is cleared only if it still points
// at that connection. With an empty connection id, every connection of the
// client is removed unconditionally (operator path).
func (f *Fanout) Detach(clientID, connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if connectionID == "" {
		for id, conn := range f.conns {
			if conn.ClientID == clientID {
				conn.close()
				delete(f.conns, id)
			}
		}
		delete(f.active, clientID)
		return
	}

	if conn, ok := f.conns[connectionID]; ok {
		conn.close()
		delete(f.conns, connectionID)
	}
	if f.active[clientID] == connectionID {
		delete(f.active, clientID)
	}
}

// Clients returns the number of clients with an active connection.
func (f *Fanout) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// Active reports the active connection id for a client, if any.
func (f *Fanout) Active(clientID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[clientID]
	return id, ok
}

// Write broadcasts one upstream chunk to every attached connection. Slow
// connections drop chunks instead of stalling the upstream read.
func (f *Fanout) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return len(p), nil
	}
	if len(f.conns) == 0 {
		return len(p), nil
	}
	// The origin read loop reuses its buffer; connections share one copy.
	chunk := make([]byte, len(p))
	copy(chunk, p)
	for _, conn := range f.conns {
		select {
		case conn.ch <- chunk:
		default:
			metrics.IncFanoutDrop("slow_client")
		}
	}
	return len(p), nil
}

// CloseAll terminates delivery for every connection and rejects future
// attaches.
func (f *Fanout) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, conn := range f.conns {
		conn.close()
		delete(f.conns, id)
	}
	f.active = make(map[string]string)
}
