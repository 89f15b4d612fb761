package server

import (
	"fmt"
	"sync"

	"github.com/marmos91/urpc/internal/databuf"
)

// Handler is a registered procedure's implementation. It receives the
// authenticated session id and the request/reply buffer (mutating it
// in place to produce the reply), the opaque context passed to AddProc,
// and returns a non-nil error to produce a FAIL status — matching
// spec.md §4.3's "status is OK iff the handler returns 0".
type Handler func(sessionID uint32, data *databuf.Buffer, ctx any) error

// ProcTable is the server's procedure registry: two parallel maps keyed
// by proc id (handler, context), frozen after Bind, per spec.md §3/§4.3.
// Grounded on the teacher's internal/adapter/nfs/dispatch.go
// NfsDispatchTable/MountDispatchTable pattern of a dispatch table built
// once; here every Lookup still takes the table's mutex.
type ProcTable struct {
	mu     sync.Mutex
	procs  map[uint32]Handler
	ctxs   map[uint32]any
	frozen bool
}

// NewProcTable creates an empty, unfrozen procedure table.
func NewProcTable() *ProcTable {
	return &ProcTable{
		procs: make(map[uint32]Handler),
		ctxs:  make(map[uint32]any),
	}
}

// Add registers fn at procID with the given opaque context. It fails if
// the table is already frozen (Bind has been called) or procID is
// already registered, per spec.md §4.3.
func (t *ProcTable) Add(procID uint32, fn Handler, ctx any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return fmt.Errorf("server: cannot add procedure 0x%08x after bind", procID)
	}
	if _, exists := t.procs[procID]; exists {
		return fmt.Errorf("server: procedure 0x%08x already registered", procID)
	}
	t.procs[procID] = fn
	t.ctxs[procID] = ctx
	return nil
}

// Freeze prevents any further registration; called once by Bind.
func (t *ProcTable) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Lookup returns the handler and context registered for procID, or
// (nil, nil, false). It takes the table's mutex on every call, before
// and after Freeze.
func (t *ProcTable) Lookup(procID uint32) (Handler, any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn, ok := t.procs[procID]
	if !ok {
		return nil, nil, false
	}
	return fn, t.ctxs[procID], true
}
