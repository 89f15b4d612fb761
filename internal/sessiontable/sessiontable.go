// Package sessiontable implements the server's session state: a bounded
// table of authenticated clients keyed by server-issued session id, per
// spec.md §3/§4.3. Per spec.md §6 the concrete hash-table and slab
// allocator of the original source are out-of-core collaborators; any
// container with the stated semantics suffices, so this package uses a
// plain Go map guarded by a mutex instead — see DESIGN.md.
package sessiontable

import (
	"fmt"
	"sync"

	"github.com/marmos91/urpc/internal/primitives"
)

// State is a session's position in the login handshake (spec.md §3).
type State int

const (
	// GotSessionID is the state immediately after LOGIN, before the
	// first subsequent authenticated message.
	GotSessionID State = iota
	// Connected is the state after the first authenticated message
	// following LOGIN.
	Connected
)

// Session is one server-side client record.
type Session struct {
	ID    uint32
	State State

	// Activity is started when the session is created; the core dispatch
	// loop neither resets nor reads it. Grounded on the original source's
	// per-session urpc_timer.
	Activity *primitives.Timer

	// Socket identifies the owning TCP connection. It is nil for
	// UDP/SHM sessions, which have no persistent per-client socket.
	Socket any
}

// Table is the server's bounded, mutable session table.
type Table struct {
	mu         sync.Mutex
	sessions   map[uint32]*Session
	maxClients int
	lastID     uint32
}

// New creates an empty table bounded at maxClients concurrent sessions.
func New(maxClients int) *Table {
	return &Table{
		sessions:   make(map[uint32]*Session),
		maxClients: maxClients,
	}
}

// ErrTooManyConnections is returned by Create when the table is already
// at capacity.
var ErrTooManyConnections = fmt.Errorf("sessiontable: at capacity")

// Create allocates a new session with a fresh non-zero id not currently
// in the table, generated by linear probing from lastID+1 (spec.md
// §4.3), and inserts it. It returns ErrTooManyConnections if the table
// is already at maxClients.
func (t *Table) Create(socket any) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sessions) >= t.maxClients {
		return nil, ErrTooManyConnections
	}

	id := t.lastID
	for {
		id++
		if id == 0 {
			continue
		}
		if _, exists := t.sessions[id]; !exists {
			break
		}
	}
	t.lastID = id

	s := &Session{
		ID:       id,
		State:    GotSessionID,
		Activity: primitives.NewTimer(),
		Socket:   socket,
	}
	t.sessions[id] = s
	return s, nil
}

// Lookup returns the session for id, or nil and false if there is none.
func (t *Table) Lookup(id uint32) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

// MarkConnected transitions a GotSessionID session to Connected, the
// first-authenticated-message transition from spec.md §4.3. It is a
// no-op if the session is already Connected.
func (t *Table) MarkConnected(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok && s.State == GotSessionID {
		s.State = Connected
	}
}

// Remove evicts a session, e.g. on LOGOUT or transport disconnect.
func (t *Table) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Size returns the current number of sessions.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// RemoveBySocket evicts whichever session (if any) owns socket, used by
// the server when it disconnects a TCP client after LOGOUT or a non-OK
// reply.
func (t *Table) RemoveBySocket(socket any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.sessions {
		if s.Socket == socket {
			delete(t.sessions, id)
			return
		}
	}
}
