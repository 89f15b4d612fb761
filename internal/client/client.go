// Package client implements the public uRPC client facade described in
// spec.md §4.2: a URI-resolved transport, a single DataBuffer shared
// across Lock/Exec/Unlock, and a mutex serializing that cycle so a
// client instance is safe to share between goroutines the same way the
// C source expects it shared between threads.
//
// Grounded on original_source/urpc/urpc-client.c's urpc_client_lock /
// urpc_client_exec / urpc_client_unlock, generalized to dispatch to
// whichever of the three transports the URI names.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/transport/urpcshm"
	"github.com/marmos91/urpc/internal/transport/urpctcp"
	"github.com/marmos91/urpc/internal/transport/urpcudp"
	"github.com/marmos91/urpc/internal/urpcuri"
	"github.com/marmos91/urpc/internal/wire"
)

// transport is the minimal set of operations Client needs from any of
// the three concrete transports.
type transport interface {
	Buffer() *databuf.Buffer
	Exchange() wire.Status
	Close() error
}

// tcpTransport and udpTransport adapt the TCP/UDP client types (which
// expose Buffer/Exchange/Close already, minus the session bookkeeping
// below) to the transport interface. SHM's client additionally requires Lock/Unlock around
// each exchange to claim and release a shared buffer, handled
// separately in Lock/Unlock below.
type tcpTransport struct{ c *urpctcp.Client }

func (t *tcpTransport) Buffer() *databuf.Buffer { return t.c.Buffer() }
func (t *tcpTransport) Exchange() wire.Status   { return t.c.Exchange() }
func (t *tcpTransport) Close() error            { return t.c.Close() }

type udpTransport struct{ c *urpcudp.Client }

func (t *udpTransport) Buffer() *databuf.Buffer { return t.c.Buffer() }
func (t *udpTransport) Exchange() wire.Status   { return t.c.Exchange() }
func (t *udpTransport) Close() error            { return t.c.Close() }

// shmTransport additionally locks/unlocks a shared slot around every
// exchange, since SHM buffers are claimed from a pool rather than
// owned outright by the client.
type shmTransport struct {
	c   *urpcshm.Client
	buf *databuf.Buffer
}

func (t *shmTransport) Buffer() *databuf.Buffer { return t.buf }
func (t *shmTransport) Exchange() wire.Status   { return t.c.Exchange() }
func (t *shmTransport) Close() error            { return t.c.Close() }

// Client is the uRPC client facade.
type Client struct {
	mu        sync.Mutex
	transport transport
	sessionID uint32
	timeout   time.Duration
}

// Dial resolves uri and connects the matching transport. maxDataSize
// bounds the parameter payload (header-exclusive) for tcp:// and udp://;
// shm:// ignores it and uses the buffer size the server publishes.
// timeout bounds the per-exchange wait.
func Dial(uri string, maxDataSize int, timeout time.Duration) (*Client, error) {
	if timeout < time.Duration(wire.MinTimeoutSeconds*float64(time.Second)) {
		timeout = time.Duration(wire.MinTimeoutSeconds * float64(time.Second))
	}

	endpoint, err := urpcuri.Parse(uri)
	if err != nil {
		return nil, err
	}

	switch endpoint.Scheme {
	case urpcuri.SchemeTCP:
		c, err := urpctcp.Dial(endpoint.HostPort, maxDataSize, timeout)
		if err != nil {
			return nil, err
		}
		return &Client{transport: &tcpTransport{c: c}, timeout: timeout}, nil

	case urpcuri.SchemeUDP:
		c, err := urpcudp.Dial(endpoint.HostPort, maxDataSize, timeout)
		if err != nil {
			return nil, err
		}
		return &Client{transport: &udpTransport{c: c}, timeout: timeout}, nil

	case urpcuri.SchemeSHM:
		c, err := urpcshm.Dial(endpoint.Name, timeout)
		if err != nil {
			return nil, err
		}
		return &Client{transport: &shmTransport{c: c}, timeout: timeout}, nil

	default:
		return nil, fmt.Errorf("client: unsupported scheme %q", endpoint.Scheme)
	}
}

// Lock acquires the client's mutex and returns the DataBuffer to pack
// the next request's parameters into. It must be paired with a later
// Unlock, with exactly one Exec in between.
func (c *Client) Lock() (*databuf.Buffer, error) {
	c.mu.Lock()

	if shm, ok := c.transport.(*shmTransport); ok {
		buf, err := shm.c.Lock()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		shm.buf = buf
	}

	return c.transport.Buffer(), nil
}

// Exec fills in the header fields the caller doesn't set directly
// (magic, version, session, total size), stages procID into the PROC
// parameter, runs the exchange, and validates the reply per spec.md
// §4.2: MAJOR version must match and, unless this is the LOGIN call
// itself, the echoed session must match what was sent.
func (c *Client) Exec(procID uint32) wire.Status {
	buf := c.transport.Buffer()

	if err := buf.SetU32(databuf.Output, wire.ParamProc, procID); err != nil {
		return wire.StatusFail
	}

	header := wire.Header{
		Magic:   wire.Magic,
		Version: wire.Version,
		Session: c.sessionID,
		Size:    uint32(wire.HeaderSize + buf.DataSize(databuf.Output)),
	}
	header.Marshal(buf.HeaderBytes(databuf.Output))

	status := c.transport.Exchange()
	if status != wire.StatusOK {
		return status
	}

	if err := buf.Validate(databuf.Input); err != nil {
		return wire.StatusTransportError
	}

	replyHeader, err := wire.Unmarshal(buf.HeaderBytes(databuf.Input))
	if err != nil {
		return wire.StatusTransportError
	}
	if wire.VersionMajor(replyHeader.Version) != wire.VersionMajor(wire.Version) {
		return wire.StatusVersionMismatch
	}

	if procID == wire.ProcLogin {
		c.sessionID = replyHeader.Session
	} else if replyHeader.Session != c.sessionID {
		return wire.StatusAuthError
	}

	if procID == wire.ProcLogout {
		c.sessionID = 0
	}

	replyStatus, ok := buf.GetU32(databuf.Input, wire.ParamStatus)
	if !ok {
		return wire.StatusTransportError
	}

	return wire.Status(replyStatus)
}

// Unlock releases the claimed buffer (for SHM, back to the shared
// pool) and the client mutex.
func (c *Client) Unlock() {
	if shm, ok := c.transport.(*shmTransport); ok {
		shm.c.Unlock()
		shm.buf = nil
	}
	c.mu.Unlock()
}

// SessionID returns the session id established by the last successful
// LOGIN call, or 0 if none has been made (or LOGOUT was called since).
func (c *Client) SessionID() uint32 {
	return c.sessionID
}

// Close releases the underlying transport's resources.
func (c *Client) Close() error {
	return c.transport.Close()
}
