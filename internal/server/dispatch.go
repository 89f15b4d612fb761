package server

import (
	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/sessiontable"
	"github.com/marmos91/urpc/internal/wire"
)

// dispatchResult carries everything the worker loop needs to finish a
// request after dispatch has run: the status to report, the session id
// to echo in the reply header, and the procedure id that was requested
// (needed by the TCP worker to decide whether to disconnect after
// LOGOUT, per spec.md §4.3).
type dispatchResult struct {
	status    wire.Status
	sessionID uint32
	procID    uint32
}

// dispatch implements the request side of spec.md §4.3's worker loop:
// version check, pre-auth GET_CAP/LOGIN, session lookup, LOGOUT, and
// user procedure invocation. It is grounded on
// original_source/urpc/urpc-server.c's urpc_server_func, restructured as
// a single function returning its result instead of the source's
// goto-to-a-trailing-reply-block.
//
// header is the already-parsed request header; buf is the worker's
// buffer with the request already unpacked into its Input region.
// socket is the transport's opaque handle for the connection the
// request arrived on (a net.Conn for TCP, nil for UDP/SHM), recorded on
// the session created by LOGIN so a later failure can be mapped back to
// the socket to disconnect (sessiontable.Table.RemoveBySocket).
func dispatch(header wire.Header, buf *databuf.Buffer, sessions *sessiontable.Table, procs *ProcTable, socket any) dispatchResult {
	if wire.VersionMajor(header.Version) != wire.VersionMajor(wire.Version) {
		return dispatchResult{status: wire.StatusVersionMismatch, sessionID: header.Session}
	}

	sessionID := header.Session

	if sessionID == 0 {
		procID, _ := buf.GetU32(databuf.Input, wire.ParamProc)

		switch procID {
		case wire.ProcGetCap:
			_ = buf.SetU32(databuf.Output, wire.ParamCap, 0)
			return dispatchResult{status: wire.StatusOK, procID: procID}

		case wire.ProcLogin:
			sess, err := sessions.Create(socket)
			if err != nil {
				if err == sessiontable.ErrTooManyConnections {
					return dispatchResult{status: wire.StatusTooManyConnections, procID: procID}
				}
				return dispatchResult{status: wire.StatusFail, procID: procID}
			}
			return dispatchResult{status: wire.StatusOK, sessionID: sess.ID, procID: procID}

		default:
			return dispatchResult{status: wire.StatusAuthError, procID: procID}
		}
	}

	sess, ok := sessions.Lookup(sessionID)
	if !ok {
		return dispatchResult{status: wire.StatusAuthError, sessionID: sessionID}
	}

	// TODO(auth): the original source marks this as the hook point for
	// authentication/decryption of the payload (spec.md §9); reserved,
	// not implemented, per spec.md §1's scope.
	sessions.MarkConnected(sess.ID)

	procID, _ := buf.GetU32(databuf.Input, wire.ParamProc)

	if procID == wire.ProcLogout {
		sessions.Remove(sessionID)
		return dispatchResult{status: wire.StatusOK, sessionID: sessionID, procID: procID}
	}

	handler, ctx, ok := procs.Lookup(procID)
	if !ok {
		return dispatchResult{status: wire.StatusFail, sessionID: sessionID, procID: procID}
	}

	status := wire.StatusFail
	if err := handler(sessionID, buf, ctx); err == nil {
		status = wire.StatusOK
	}

	// TODO(auth): the original source marks this as the hook point for
	// encryption of the reply payload (spec.md §9); reserved, not
	// implemented.
	return dispatchResult{status: status, sessionID: sessionID, procID: procID}
}
