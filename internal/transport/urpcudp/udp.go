// Package urpcudp implements the UDP transport: one shared datagram
// socket read concurrently by every worker thread, with weak
// reply-matching left to the caller (there is no session/sequence
// number carried at this layer beyond what the wire header itself
// provides), per spec.md §4.4.
//
// Grounded on original_source/urpc/urpc-udp-server.c / urpc-udp-client.c.
// Each worker thread owns its own receive buffer exactly as the source
// does (per-thread uRpcData); Go's net.UDPConn already supports
// concurrent ReadFromUDP calls from multiple goroutines, so no
// select()-style demultiplexing is needed to let several threads share
// one socket.
package urpcudp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/wire"
)

// Server is the uRPC UDP transport's server side.
type Server struct {
	conn        *net.UDPConn
	threadsNum  int
	maxDataSize int

	bufs    []*databuf.Buffer
	peers   []*net.UDPAddr
}

// Listen binds hostPort for UDP and allocates one receive buffer per
// worker thread.
func Listen(hostPort string, threadsNum, maxDataSize int) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("urpcudp: resolve %s: %w", hostPort, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("urpcudp: listen %s: %w", hostPort, err)
	}

	s := &Server{
		conn:        conn,
		threadsNum:  threadsNum,
		maxDataSize: maxDataSize,
		bufs:        make([]*databuf.Buffer, threadsNum),
		peers:       make([]*net.UDPAddr, threadsNum),
	}
	for i := range s.bufs {
		buf, err := databuf.New(maxDataSize+wire.HeaderSize, wire.HeaderSize, false)
		if err != nil {
			conn.Close()
			return nil, err
		}
		s.bufs[i] = buf
	}

	return s, nil
}

// Recv implements server.Transport: it reads one datagram into
// threadID's buffer, validating the header's declared size matches the
// datagram length exactly (spec.md §4.4's "malformed datagrams are
// silently dropped").
func (s *Server) Recv(ctx context.Context, threadID int) (*databuf.Buffer, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
		return nil, err
	}

	buf := s.bufs[threadID]
	raw := buf.Raw(databuf.Input)

	n, peer, err := s.conn.ReadFromUDP(raw)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, nil
	}

	if n < wire.HeaderSize {
		return nil, nil
	}
	header, err := wire.Unmarshal(raw[:wire.HeaderSize])
	if err != nil || header.Magic != wire.Magic || int(header.Size) != n {
		return nil, nil
	}

	if err := buf.SetData(databuf.Input, raw[wire.HeaderSize:n]); err != nil {
		return nil, nil
	}

	s.peers[threadID] = peer
	return buf, nil
}

// Send implements server.Transport: it writes threadID's staged Output
// region back to whichever peer address its last Recv call recorded.
func (s *Server) Send(threadID int) error {
	peer := s.peers[threadID]
	if peer == nil {
		return fmt.Errorf("urpcudp: no peer recorded for thread %d", threadID)
	}
	buf := s.bufs[threadID]
	size := wire.HeaderSize + buf.DataSize(databuf.Output)
	_, err := s.conn.WriteToUDP(buf.Raw(databuf.Output)[:size], peer)
	return err
}

// ClientHandle implements server.Transport; UDP has no persistent
// per-client connection, so it always returns nil.
func (s *Server) ClientHandle(threadID int) any { return nil }

// Disconnect implements server.Transport; a no-op for UDP.
func (s *Server) Disconnect(handle any) {}

// ThreadsNum implements server.Transport.
func (s *Server) ThreadsNum() int { return s.threadsNum }

// Name implements server.Transport.
func (s *Server) Name() string { return "udp" }

// Close implements server.Transport.
func (s *Server) Close() error {
	return s.conn.Close()
}
