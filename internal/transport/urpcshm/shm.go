// Package urpcshm implements the shared-memory transport: a control
// segment describing the server, a transport segment holding one
// input/output buffer pair per worker thread, and three named
// semaphores per thread (start/stop/used) plus one process-wide access
// semaphore coordinating handoff between client and server, per
// spec.md §4.6.
//
// Grounded on original_source/urpc/urpc-shm-server.c and
// urpc-shm-client.c. Go reuses the source's named-OS-object design
// as-is (primitives.NamedSHM / primitives.NamedSemaphore wrap the
// POSIX shm_open/sem_open calls the C source makes directly) rather
// than replacing it with an in-process mechanism, since the whole
// point of this transport is cross-process communication without a
// socket.
package urpcshm

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/primitives"
	"github.com/marmos91/urpc/internal/wire"
)

// controlSize is the wire layout of the control segment: pid(int32) /
// size(uint32) / threads_num(uint32), matching uRpcSHMControl.
const controlSize = 12

type slot struct {
	buf         *databuf.Buffer
	start, stop *primitives.NamedSemaphore
	used        *primitives.NamedSemaphore
}

// Server is the uRPC SHM transport's server side.
type Server struct {
	name        string
	threadsNum  int
	maxDataSize int // includes header

	control   *primitives.NamedSHM
	transport *primitives.NamedSHM
	access    *primitives.NamedSemaphore

	slots []*slot
}

func segName(name, suffix string) string {
	return fmt.Sprintf("%s.%s", name, suffix)
}

// freshSemaphore unlinks any semaphore left over from a previous,
// possibly crashed, server instance before creating a new one with the
// given initial value, matching the source's urpc_sem_remove followed
// by urpc_sem_create for every semaphore it owns.
func freshSemaphore(name string, value uint32) (*primitives.NamedSemaphore, error) {
	if stale, err := primitives.OpenNamedSemaphore(name, value); err == nil {
		stale.Close()
		stale.Unlink()
	}
	return primitives.OpenNamedSemaphore(name, value)
}

// Listen creates the control and transport segments and per-thread
// semaphores for name. If a control segment already exists and names a
// live pid, Listen fails rather than stealing the address out from
// under a running server (spec.md §4.6's stale-segment guard,
// grounded on the source's kill(control->pid, 0) check).
func Listen(name string, threadsNum, maxDataSize int) (*Server, error) {
	if threadsNum > wire.MaxThreadsNum {
		threadsNum = wire.MaxThreadsNum
	}
	totalDataSize := maxDataSize + wire.HeaderSize

	controlName := segName(name, "control")
	if existing, err := primitives.CreateNamedSHM(controlName, controlSize); err == nil {
		pid := int32(binary.BigEndian.Uint32(existing.Bytes()[0:4]))
		alive := primitives.ProcessAlive(int(pid))
		existing.Close()
		if alive {
			return nil, fmt.Errorf("urpcshm: server already running for %q (pid %d)", name, pid)
		}
		if err := existing.Unlink(); err != nil {
			return nil, err
		}
	}

	control, err := primitives.CreateNamedSHM(controlName, controlSize)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(control.Bytes()[0:4], uint32(os.Getpid()))
	binary.BigEndian.PutUint32(control.Bytes()[4:8], uint32(totalDataSize))
	binary.BigEndian.PutUint32(control.Bytes()[8:12], uint32(threadsNum))

	accessName := segName(name, "access")
	access, err := freshSemaphore(accessName, uint32(threadsNum))
	if err != nil {
		control.Close()
		control.Unlink()
		return nil, err
	}

	transportName := segName(name, "transport")
	if stale, err := primitives.CreateNamedSHM(transportName, controlSize); err == nil {
		stale.Close()
		stale.Unlink()
	}
	transportSize := 2 * totalDataSize * threadsNum
	transportSHM, err := primitives.CreateNamedSHM(transportName, transportSize)
	if err != nil {
		control.Close()
		control.Unlink()
		access.Close()
		access.Unlink()
		return nil, err
	}

	s := &Server{
		name:        name,
		threadsNum:  threadsNum,
		maxDataSize: totalDataSize,
		control:     control,
		transport:   transportSHM,
		access:      access,
		slots:       make([]*slot, threadsNum),
	}

	mem := transportSHM.Bytes()
	for i := 0; i < threadsNum; i++ {
		ibuf := mem[i*2*totalDataSize : i*2*totalDataSize+totalDataSize]
		obuf := mem[i*2*totalDataSize+totalDataSize : (i+1)*2*totalDataSize]

		buf, err := databuf.NewFromSlices(ibuf, obuf, wire.HeaderSize, false)
		if err != nil {
			s.Close()
			return nil, err
		}

		start, err := freshSemaphore(segName(name, fmt.Sprintf("transport.%d.start", i)), 0)
		if err != nil {
			s.Close()
			return nil, err
		}
		stop, err := freshSemaphore(segName(name, fmt.Sprintf("transport.%d.stop", i)), 0)
		if err != nil {
			s.Close()
			return nil, err
		}
		used, err := freshSemaphore(segName(name, fmt.Sprintf("transport.%d.used", i)), 1)
		if err != nil {
			s.Close()
			return nil, err
		}

		s.slots[i] = &slot{buf: buf, start: start, stop: stop, used: used}
	}

	return s, nil
}

// Recv implements server.Transport: it waits up to 500ms for the
// client to signal threadID's start semaphore, matching the source's
// urpc_sem_timedlock(..., 0.5).
func (s *Server) Recv(ctx context.Context, threadID int) (*databuf.Buffer, error) {
	sl := s.slots[threadID]
	if !sl.start.WaitTimeout(500 * time.Millisecond) {
		return nil, nil
	}

	header, err := wire.Unmarshal(sl.buf.HeaderBytes(databuf.Input))
	if err != nil || header.Magic != wire.Magic {
		return nil, nil
	}
	if int(header.Size) < wire.HeaderSize || int(header.Size)-wire.HeaderSize > sl.buf.Capacity(databuf.Input) {
		return nil, nil
	}

	bodySize := int(header.Size) - wire.HeaderSize
	raw := sl.buf.Raw(databuf.Input)
	if err := sl.buf.SetData(databuf.Input, raw[wire.HeaderSize:wire.HeaderSize+bodySize]); err != nil {
		return nil, nil
	}

	return sl.buf, nil
}

// Send implements server.Transport: it signals threadID's stop
// semaphore, waking the client out of its exchange wait.
func (s *Server) Send(threadID int) error {
	return s.slots[threadID].stop.Post()
}

// ClientHandle implements server.Transport; SHM has no persistent
// per-client connection, so it always returns nil.
func (s *Server) ClientHandle(threadID int) any { return nil }

// Disconnect implements server.Transport; a no-op for SHM.
func (s *Server) Disconnect(handle any) {}

// ThreadsNum implements server.Transport.
func (s *Server) ThreadsNum() int { return s.threadsNum }

// Name implements server.Transport.
func (s *Server) Name() string { return "shm" }

// Close implements server.Transport: it tears down every semaphore and
// shared memory segment this server created.
func (s *Server) Close() error {
	for _, sl := range s.slots {
		if sl == nil {
			continue
		}
		if sl.start != nil {
			sl.start.Close()
			sl.start.Unlink()
		}
		if sl.stop != nil {
			sl.stop.Close()
			sl.stop.Unlink()
		}
		if sl.used != nil {
			sl.used.Close()
			sl.used.Unlink()
		}
	}
	if s.transport != nil {
		s.transport.Close()
		s.transport.Unlink()
	}
	if s.access != nil {
		s.access.Close()
		s.access.Unlink()
	}
	if s.control != nil {
		s.control.Close()
		s.control.Unlink()
	}
	return nil
}
