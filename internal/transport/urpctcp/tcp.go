// Package urpctcp implements the TCP transport: a length-delimited
// framing of the uRPC wire format over a persistent per-client
// connection, per spec.md §4.5.
//
// Grounded on original_source/urpc/urpc-tcp-server.c /
// urpc-tcp-client.c, reworked from the source's select()-driven
// thread-to-socket binding into a channel-based dispatcher: each
// accepted connection runs its own read loop and hands completed
// requests to whichever worker calls Recv next, which is the Go-idiomatic
// equivalent of "a worker claims whichever ready socket isn't already
// claimed" without a shared fd_set. Per-chunk timeout-reset-on-progress
// is reproduced with conn.SetReadDeadline before every individual Read.
package urpctcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/logger"
	"github.com/marmos91/urpc/internal/wire"
)

// request is one fully-received frame handed from a connection's read
// loop to a worker, plus the channel the worker closes once it has
// written (or failed to write) the reply, letting the read loop proceed
// to the connection's next frame.
type request struct {
	conn net.Conn
	buf  *databuf.Buffer
	done chan struct{}
}

// Server is the uRPC TCP transport's server side.
type Server struct {
	ln          net.Listener
	maxClients  int
	maxDataSize int
	timeout     time.Duration
	threadsNum  int

	requests chan request
	closed   chan struct{}
	closeMu  sync.Once

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	curConn    map[int]net.Conn
	pending    map[int]request
	wg         sync.WaitGroup
}

// Listen binds hostPort and starts accepting connections, up to
// maxClients concurrently. maxDataSize bounds the parameter-record
// payload (header-exclusive); timeout bounds both idle-chunk waits and
// the per-send/recv stall window, per spec.md §4.5/§6.
func Listen(hostPort string, threadsNum, maxClients, maxDataSize int, timeout time.Duration) (*Server, error) {
	ln, err := net.Listen("tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("urpctcp: listen %s: %w", hostPort, err)
	}

	s := &Server{
		ln:          ln,
		maxClients:  maxClients,
		maxDataSize: maxDataSize,
		timeout:     timeout,
		threadsNum:  threadsNum,
		requests:    make(chan request),
		closed:      make(chan struct{}),
		conns:       make(map[net.Conn]struct{}),
		curConn:     make(map[int]net.Conn),
		pending:     make(map[int]request),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				logger.Warn("urpctcp: accept failed", "error", err)
				return
			}
		}

		s.mu.Lock()
		full := len(s.conns) >= s.maxClients
		if !full {
			s.conns[conn] = struct{}{}
		}
		s.mu.Unlock()

		if full {
			conn.Close()
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		s.wg.Add(1)
		go s.connLoop(conn)
	}
}

func (s *Server) connLoop(conn net.Conn) {
	defer s.wg.Done()
	defer s.dropConn(conn)

	buf, err := databuf.New(s.maxDataSize+wire.HeaderSize, wire.HeaderSize, false)
	if err != nil {
		logger.Error("urpctcp: failed to allocate connection buffer", "error", err)
		return
	}

	for {
		if err := s.readRequest(conn, buf); err != nil {
			return
		}

		done := make(chan struct{})
		select {
		case s.requests <- request{conn: conn, buf: buf, done: done}:
		case <-s.closed:
			return
		}

		select {
		case <-done:
		case <-s.closed:
			return
		}
	}
}

// readFull reads exactly len(p) bytes from conn, resetting the read
// deadline to timeout before every individual Read so a connection that
// keeps making forward progress is never cut off, but one that stalls
// for a full timeout window is, per spec.md §4.5.
func readFull(conn net.Conn, p []byte, timeout time.Duration) error {
	read := 0
	for read < len(p) {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		n, err := conn.Read(p[read:])
		read += n
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFull(conn net.Conn, p []byte, timeout time.Duration) error {
	written := 0
	for written < len(p) {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		n, err := conn.Write(p[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) readRequest(conn net.Conn, buf *databuf.Buffer) error {
	header := buf.HeaderBytes(databuf.Input)
	if err := readFull(conn, header, s.timeout); err != nil {
		return err
	}

	h, err := wire.Unmarshal(header)
	if err != nil {
		return err
	}
	if h.Magic != wire.Magic {
		return fmt.Errorf("urpctcp: bad magic 0x%08x", h.Magic)
	}
	if h.Size < wire.HeaderSize || int(h.Size)-wire.HeaderSize > buf.Capacity(databuf.Input) {
		return fmt.Errorf("urpctcp: request size %d exceeds buffer", h.Size)
	}

	bodySize := int(h.Size) - wire.HeaderSize
	raw := buf.Raw(databuf.Input)
	body := raw[wire.HeaderSize : wire.HeaderSize+bodySize]
	if bodySize > 0 {
		if err := readFull(conn, body, s.timeout); err != nil {
			return err
		}
	}
	return buf.SetData(databuf.Input, body)
}

func (s *Server) dropConn(conn net.Conn) {
	s.mu.Lock()
	_, existed := s.conns[conn]
	delete(s.conns, conn)
	s.mu.Unlock()
	if existed {
		conn.Close()
	}
}

// Recv implements server.Transport.
func (s *Server) Recv(ctx context.Context, threadID int) (*databuf.Buffer, error) {
	select {
	case req := <-s.requests:
		s.mu.Lock()
		s.curConn[threadID] = req.conn
		s.pending[threadID] = req
		s.mu.Unlock()
		return req.buf, nil
	case <-time.After(500 * time.Millisecond):
		return nil, nil
	case <-s.closed:
		return nil, nil
	}
}

// Send implements server.Transport.
func (s *Server) Send(threadID int) error {
	s.mu.Lock()
	req, ok := s.pending[threadID]
	delete(s.pending, threadID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("urpctcp: no pending request for thread %d", threadID)
	}

	size := wire.HeaderSize + req.buf.DataSize(databuf.Output)
	err := writeFull(req.conn, req.buf.Raw(databuf.Output)[:size], s.timeout)
	close(req.done)
	if err != nil {
		s.dropConn(req.conn)
	}
	return err
}

// ClientHandle implements server.Transport.
func (s *Server) ClientHandle(threadID int) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.curConn[threadID]
	if !ok {
		return nil
	}
	return conn
}

// Disconnect implements server.Transport.
func (s *Server) Disconnect(handle any) {
	conn, ok := handle.(net.Conn)
	if !ok {
		return
	}
	s.dropConn(conn)
}

// ThreadsNum implements server.Transport.
func (s *Server) ThreadsNum() int {
	return s.threadsNum
}

// Name implements server.Transport.
func (s *Server) Name() string {
	return "tcp"
}

// Addr returns the listener's bound address, useful when Listen was
// called with a ":0" port.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close implements server.Transport.
func (s *Server) Close() error {
	s.closeMu.Do(func() {
		close(s.closed)
	})
	err := s.ln.Close()

	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.dropConn(c)
	}

	s.wg.Wait()
	return err
}
