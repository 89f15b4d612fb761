// Package server implements the uRPC server engine: the procedure
// table, session table, and worker-thread dispatch loop described in
// spec.md §4.3, multiplexed across whichever Transport (UDP, TCP, or
// SHM) the server was bound to.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/logger"
	"github.com/marmos91/urpc/internal/metrics"
	"github.com/marmos91/urpc/internal/sessiontable"
	"github.com/marmos91/urpc/internal/wire"
)

// Config bounds a Server's resources, mirroring the parameters to the
// source's urpc_server_create: the number of worker threads, maximum
// concurrent clients, maximum request/response size, and per-exchange
// timeout.
type Config struct {
	ThreadsNum  int
	MaxClients  int
	MaxDataSize int
	Timeout     time.Duration
}

// DefaultConfig returns the spec's documented defaults (spec.md §6).
func DefaultConfig() Config {
	return Config{
		ThreadsNum:  4,
		MaxClients:  64,
		MaxDataSize: 64 * 1024,
		Timeout:     time.Duration(wire.DefaultServerTimeoutSeconds * float64(time.Second)),
	}
}

// Server is the uRPC server engine. Its lifecycle is create -> AddProc*
// -> Bind -> (serve) -> Shutdown, per spec.md §3.
type Server struct {
	cfg      Config
	procs    *ProcTable
	sessions *sessiontable.Table
	metrics  *metrics.Metrics

	mu        sync.Mutex
	transport Transport
	wg        sync.WaitGroup
	shutdown  bool
	bound     bool
}

// New creates a Server bounded by cfg. cfg.ThreadsNum is clamped to
// [1, wire.MaxThreadsNum]; cfg.Timeout is clamped to at least
// wire.MinTimeoutSeconds, per spec.md §6.
func New(cfg Config, m *metrics.Metrics) *Server {
	if cfg.ThreadsNum < 1 {
		cfg.ThreadsNum = 1
	}
	if cfg.ThreadsNum > wire.MaxThreadsNum {
		cfg.ThreadsNum = wire.MaxThreadsNum
	}
	minTimeout := time.Duration(wire.MinTimeoutSeconds * float64(time.Second))
	if cfg.Timeout < minTimeout {
		cfg.Timeout = minTimeout
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Server{
		cfg:      cfg,
		procs:    NewProcTable(),
		sessions: sessiontable.New(cfg.MaxClients),
		metrics:  m,
	}
}

// AddProc registers procID's handler. It fails if Bind has already run
// or procID is already registered, per spec.md §4.3.
func (s *Server) AddProc(procID uint32, fn Handler, ctx any) error {
	return s.procs.Add(procID, fn, ctx)
}

// Bind instantiates transport and spawns cfg.ThreadsNum workers running
// the dispatch loop, blocking until every worker has signalled ready.
func (s *Server) Bind(transport Transport) error {
	s.mu.Lock()
	if s.bound {
		s.mu.Unlock()
		return fmt.Errorf("server: already bound")
	}
	s.bound = true
	s.transport = transport
	s.mu.Unlock()

	s.procs.Freeze()

	ready := make(chan struct{}, s.cfg.ThreadsNum)
	for i := 0; i < s.cfg.ThreadsNum; i++ {
		s.wg.Add(1)
		go s.workerLoop(i, ready)
	}
	for i := 0; i < s.cfg.ThreadsNum; i++ {
		<-ready
	}
	return nil
}

// Shutdown sets the shutdown flag and waits for every worker to return,
// then tears down the transport, per spec.md §4.3's destruction
// sequence. Workers observe shutdown within 500ms per spec.md §5.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.shutdown = true
	transport := s.transport
	s.mu.Unlock()

	s.wg.Wait()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

func (s *Server) workerLoop(threadID int, ready chan<- struct{}) {
	defer s.wg.Done()

	ready <- struct{}{}

	ctx := context.Background()

	for {
		s.mu.Lock()
		down := s.shutdown
		transport := s.transport
		s.mu.Unlock()
		if down {
			return
		}

		buf, err := transport.Recv(ctx, threadID)
		if err != nil {
			logger.Debug("worker recv error", "thread", threadID, "error", err)
			continue
		}
		if buf == nil {
			continue
		}

		lc := logger.NewLogContext(transport.Name(), clientAddrString(transport.ClientHandle(threadID)), threadID)
		reqCtx := logger.WithContext(ctx, lc)

		s.handleRequest(reqCtx, threadID, transport, buf)
	}
}

// remoteAddresser is satisfied by net.Conn, the handle TCP hands back
// from ClientHandle; UDP and SHM return nil, for which addr stays "".
type remoteAddresser interface {
	RemoteAddr() net.Addr
}

// clientAddrString renders a transport's opaque client handle for logging.
func clientAddrString(handle any) string {
	if ra, ok := handle.(remoteAddresser); ok {
		return ra.RemoteAddr().String()
	}
	if handle == nil {
		return ""
	}
	return fmt.Sprintf("%v", handle)
}

func (s *Server) handleRequest(ctx context.Context, threadID int, transport Transport, buf *databuf.Buffer) {
	start := time.Now()

	header, err := wire.Unmarshal(buf.HeaderBytes(databuf.Input))
	if err != nil {
		logger.WarnCtx(ctx, "malformed request header", "error", err)
		buf.Clear(databuf.Input)
		buf.Clear(databuf.Output)
		return
	}

	if err := buf.Validate(databuf.Input); err != nil {
		logger.WarnCtx(ctx, "malformed request body", "error", err)
		_ = buf.SetU32(databuf.Output, wire.ParamStatus, uint32(wire.StatusFail))
		s.reply(ctx, threadID, transport, header.Session, wire.StatusFail, buf, 0)
		buf.Clear(databuf.Input)
		buf.Clear(databuf.Output)
		return
	}

	procID, _ := buf.GetU32(databuf.Input, wire.ParamProc)
	lc := logger.FromContext(ctx).WithProc(procID, header.Session)
	ctx = logger.WithContext(ctx, lc)

	handle := transport.ClientHandle(threadID)
	s.metrics.SetWorkerBusy(threadID, true)
	result := dispatch(header, buf, s.sessions, s.procs, handle)
	s.metrics.SetWorkerBusy(threadID, false)

	s.metrics.ObserveRequest(result.procID, result.status, time.Since(start))
	s.metrics.SetActiveSessions(s.sessions.Size())

	logger.DebugCtx(ctx, "request handled", "status", result.status.String(), "duration_ms", lc.DurationMs())

	s.reply(ctx, threadID, transport, result.sessionID, result.status, buf, result.procID)

	if handle != nil {
		if result.status != wire.StatusOK || result.procID == wire.ProcLogout {
			s.sessions.RemoveBySocket(handle)
			transport.Disconnect(handle)
		}
	}

	buf.Clear(databuf.Input)
	buf.Clear(databuf.Output)
}

func (s *Server) reply(ctx context.Context, threadID int, transport Transport, sessionID uint32, status wire.Status, buf *databuf.Buffer, procID uint32) {
	_ = buf.SetU32(databuf.Output, wire.ParamStatus, uint32(status))

	header := wire.Header{
		Magic:   wire.Magic,
		Version: wire.Version,
		Session: sessionID,
		Size:    uint32(wire.HeaderSize + buf.DataSize(databuf.Output)),
	}
	header.Marshal(buf.HeaderBytes(databuf.Output))

	if err := transport.Send(threadID); err != nil {
		logger.WarnCtx(ctx, "worker send failed", "proc", fmt.Sprintf("0x%08x", procID), "error", err)
	}
}
