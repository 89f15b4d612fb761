package urpcshm

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/primitives"
	"github.com/marmos91/urpc/internal/wire"
)

type clientSlot struct {
	buf         *databuf.Buffer
	start, stop *primitives.NamedSemaphore
	used        *primitives.NamedSemaphore
}

// Client is the uRPC SHM transport's client side: it attaches to an
// already-running server's control/transport segments, claims one free
// per-thread buffer for the duration of an exchange, and releases it
// afterward. Grounded on original_source/urpc/urpc-shm-client.c.
type Client struct {
	name        string
	threadsNum  int
	maxDataSize int

	transport *primitives.NamedSHM
	access    *primitives.NamedSemaphore
	slots     []*clientSlot

	timeout time.Duration
	current *clientSlot
}

// Dial attaches to the SHM server named name. The server must already
// be running: Dial reads threads_num and buffer size from its control
// segment rather than taking them as parameters.
func Dial(name string, timeout time.Duration) (*Client, error) {
	controlName := segName(name, "control")
	control, err := primitives.CreateNamedSHM(controlName, controlSize)
	if err != nil {
		return nil, fmt.Errorf("urpcshm: no server at %q: %w", name, err)
	}
	totalDataSize := int(binary.BigEndian.Uint32(control.Bytes()[4:8]))
	threadsNum := int(binary.BigEndian.Uint32(control.Bytes()[8:12]))
	control.Close()

	accessName := segName(name, "access")
	access, err := primitives.OpenNamedSemaphore(accessName, 0)
	if err != nil {
		return nil, err
	}

	transportName := segName(name, "transport")
	transportSHM, err := primitives.CreateNamedSHM(transportName, 2*totalDataSize*threadsNum)
	if err != nil {
		access.Close()
		return nil, err
	}

	c := &Client{
		name:        name,
		threadsNum:  threadsNum,
		maxDataSize: totalDataSize,
		transport:   transportSHM,
		access:      access,
		slots:       make([]*clientSlot, threadsNum),
		timeout:     timeout,
	}

	mem := transportSHM.Bytes()
	for i := 0; i < threadsNum; i++ {
		// The client's buffers are the mirror of the server's: what the
		// server writes as its input half is what the client reads as
		// its output half, and vice versa.
		obuf := mem[i*2*totalDataSize : i*2*totalDataSize+totalDataSize]
		ibuf := mem[i*2*totalDataSize+totalDataSize : (i+1)*2*totalDataSize]

		buf, err := databuf.NewFromSlices(ibuf, obuf, wire.HeaderSize, false)
		if err != nil {
			c.Close()
			return nil, err
		}

		start, err := primitives.OpenNamedSemaphore(segName(name, fmt.Sprintf("transport.%d.start", i)), 0)
		if err != nil {
			c.Close()
			return nil, err
		}
		stop, err := primitives.OpenNamedSemaphore(segName(name, fmt.Sprintf("transport.%d.stop", i)), 0)
		if err != nil {
			c.Close()
			return nil, err
		}
		used, err := primitives.OpenNamedSemaphore(segName(name, fmt.Sprintf("transport.%d.used", i)), 1)
		if err != nil {
			c.Close()
			return nil, err
		}

		c.slots[i] = &clientSlot{buf: buf, start: start, stop: stop, used: used}
	}

	return c, nil
}

// Lock blocks until the server admits another concurrent client, then
// claims whichever per-thread buffer is currently free.
func (c *Client) Lock() (*databuf.Buffer, error) {
	if !c.access.WaitTimeout(c.timeout) {
		return nil, fmt.Errorf("urpcshm: timed out waiting for server access")
	}

	for _, sl := range c.slots {
		if sl.used.TryLock() {
			c.current = sl
			return sl.buf, nil
		}
	}

	c.access.Post()
	return nil, fmt.Errorf("urpcshm: no free transport buffer")
}

// Exchange signals the claimed slot's start semaphore and waits for the
// server to signal stop, per the source's urpc_shm_client_exchange.
func (c *Client) Exchange() wire.Status {
	if c.current == nil {
		return wire.StatusFail
	}

	if err := c.current.start.Post(); err != nil {
		return wire.StatusTransportError
	}

	if !c.current.stop.WaitTimeout(c.timeout) {
		return wire.StatusTimeout
	}

	header, err := wire.Unmarshal(c.current.buf.HeaderBytes(databuf.Input))
	if err != nil || header.Magic != wire.Magic {
		return wire.StatusTransportError
	}
	if int(header.Size) < wire.HeaderSize || int(header.Size)-wire.HeaderSize > c.current.buf.Capacity(databuf.Input) {
		return wire.StatusTransportError
	}

	bodySize := int(header.Size) - wire.HeaderSize
	raw := c.current.buf.Raw(databuf.Input)
	if err := c.current.buf.SetData(databuf.Input, raw[wire.HeaderSize:wire.HeaderSize+bodySize]); err != nil {
		return wire.StatusTransportError
	}

	return wire.StatusOK
}

// Unlock releases the claimed buffer and the server access slot.
func (c *Client) Unlock() {
	if c.current == nil {
		return
	}
	c.current.used.Post()
	c.access.Post()
	c.current = nil
}

// Close detaches from the server's segments and semaphores without
// removing them (the server owns their lifetime).
func (c *Client) Close() error {
	for _, sl := range c.slots {
		if sl == nil {
			continue
		}
		if sl.start != nil {
			sl.start.Close()
		}
		if sl.stop != nil {
			sl.stop.Close()
		}
		if sl.used != nil {
			sl.used.Close()
		}
	}
	if c.transport != nil {
		c.transport.Close()
	}
	if c.access != nil {
		c.access.Close()
	}
	return nil
}
