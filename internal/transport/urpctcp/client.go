package urpctcp

import (
	"fmt"
	"net"
	"time"

	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/wire"
)

// Client is the uRPC TCP transport's client side: one persistent
// connection, one in-flight exchange at a time, per spec.md §4.5.
// Grounded on original_source/urpc/urpc-tcp-client.c's
// urpc_tcp_client_exchange.
type Client struct {
	conn    net.Conn
	buf     *databuf.Buffer
	timeout time.Duration
	failed  bool
}

// Dial connects to hostPort and allocates the request/reply buffer.
func Dial(hostPort string, maxDataSize int, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", hostPort, timeout)
	if err != nil {
		return nil, fmt.Errorf("urpctcp: dial %s: %w", hostPort, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
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

// Exchange sends the staged Output buffer and blocks for the reply,
// returning StatusTransportError (and latching failed) on any I/O
// error, the same "once failed, always failed" contract as the source's
// urpc_tcp_client's fail flag.
func (c *Client) Exchange() wire.Status {
	if c.failed {
		return wire.StatusTransportError
	}

	sendSize := wire.HeaderSize + c.buf.DataSize(databuf.Output)
	if err := writeFull(c.conn, c.buf.Raw(databuf.Output)[:sendSize], c.timeout); err != nil {
		c.failed = true
		return wire.StatusTransportError
	}

	header := c.buf.HeaderBytes(databuf.Input)
	if err := readFull(c.conn, header, c.timeout); err != nil {
		c.failed = true
		return wire.StatusTransportError
	}

	h, err := wire.Unmarshal(header)
	if err != nil || h.Magic != wire.Magic {
		c.failed = true
		return wire.StatusTransportError
	}
	if h.Size < wire.HeaderSize || int(h.Size)-wire.HeaderSize > c.buf.Capacity(databuf.Input) {
		c.failed = true
		return wire.StatusTransportError
	}

	bodySize := int(h.Size) - wire.HeaderSize
	raw := c.buf.Raw(databuf.Input)
	body := raw[wire.HeaderSize : wire.HeaderSize+bodySize]
	if bodySize > 0 {
		if err := readFull(c.conn, body, c.timeout); err != nil {
			c.failed = true
			return wire.StatusTransportError
		}
	}
	if err := c.buf.SetData(databuf.Input, body); err != nil {
		c.failed = true
		return wire.StatusTransportError
	}

	return wire.StatusOK
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
