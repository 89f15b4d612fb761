package urpcudp

import (
	"fmt"
	"net"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/wire"
)

// Client is the uRPC UDP transport's client side: a connected datagram
// socket, one request/reply buffer, and a best-effort exchange that
// polls for the reply until timeout, per spec.md §4.4. Grounded on
// original_source/urpc/urpc-udp-client.c's urpc_udp_client_exchange.
type Client struct {
	conn    *net.UDPConn
	buf     *databuf.Buffer
	timeout time.Duration
}

// Dial connects to hostPort over UDP and allocates the request/reply
// buffer.
func Dial(hostPort string, maxDataSize int, timeout time.Duration) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("urpcudp: resolve %s: %w", hostPort, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("urpcudp: dial %s: %w", hostPort, err)
	}

	buf, err := databuf.New(maxDataSize+wire.HeaderSize, wire.HeaderSize, false)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{conn: conn, buf: buf, timeout: timeout}, nil
}

// Buffer returns the client's single request/reply buffer.
func (c *Client) Buffer() *databuf.Buffer {
	return c.buf
}

// Exchange sends the staged Output buffer as a single datagram and
// polls for the reply until c.timeout elapses, returning
// StatusTimeout if none arrives. Datagrams that fail the magic/size
// check are silently discarded and polling continues, matching the
// source's recv-loop (a stray or truncated reply from an earlier,
// already-abandoned exchange must not be mistaken for this one's).
func (c *Client) Exchange() wire.Status {
	sendSize := wire.HeaderSize + c.buf.DataSize(databuf.Output)
	if _, err := c.conn.Write(c.buf.Raw(databuf.Output)[:sendSize]); err != nil {
		return wire.StatusTransportError
	}

	deadline := time.Now().Add(c.timeout)
	raw := c.buf.Raw(databuf.Input)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return wire.StatusTimeout
		}
		wait := 100 * time.Millisecond
		if remaining < wait {
			wait = remaining
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return wire.StatusTransportError
		}

		n, err := c.conn.Read(raw)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return wire.StatusTransportError
		}

		if n < wire.HeaderSize {
			continue
		}
		h, err := wire.Unmarshal(raw[:wire.HeaderSize])
		if err != nil || h.Magic != wire.Magic || int(h.Size) != n {
			continue
		}

		if err := c.buf.SetData(databuf.Input, raw[wire.HeaderSize:n]); err != nil {
			return wire.StatusTransportError
		}

		return wire.StatusOK
	}
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
