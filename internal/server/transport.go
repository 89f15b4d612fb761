package server

import (
	"context"

	"github.com/marmos91/urpc/internal/databuf"
)

// Transport is what the worker dispatch loop needs from any of the three
// concrete transports (UDP, TCP, SHM), per spec.md §4.3/§4.4/§4.5/§4.6.
//
// Recv blocks for up to the transport's own internal poll cadence (the
// 500ms waits spec.md §4.3/§5 describe) and returns (nil, nil) when no
// request arrived in that window, so the worker loop can re-check its
// shutdown flag; this bounds shutdown latency without the transport
// needing to know about cancellation itself.
type Transport interface {
	// Recv waits for the next request addressed to the given worker
	// slot. A nil buffer with a nil error means "no request this tick".
	Recv(ctx context.Context, threadID int) (*databuf.Buffer, error)

	// Send transmits the reply staged in threadID's buffer.
	Send(threadID int) error

	// ClientHandle identifies the connection currently assigned to
	// threadID, for transports with a persistent per-client connection
	// (TCP). It returns nil for UDP and SHM, which have no such
	// concept.
	ClientHandle(threadID int) any

	// Disconnect tears down a client connection by handle. It is a
	// no-op for transports without persistent connections.
	Disconnect(handle any)

	// ThreadsNum reports how many worker slots this transport was
	// configured with.
	ThreadsNum() int

	// Close releases all transport resources.
	Close() error

	// Name identifies the transport kind ("tcp", "udp", "shm") for
	// logging and metrics labels.
	Name() string
}
