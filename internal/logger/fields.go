package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging, kept small and specific to
// the uRPC wire protocol rather than any particular procedure's payload.
// Use these keys consistently across all log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // correlation id for a single request/reply exchange
	KeySpanID  = "span_id"  // sub-operation id within a request

	// ========================================================================
	// uRPC Protocol
	// ========================================================================
	KeyTransport  = "transport"  // transport in use: udp, tcp, shm
	KeyProcedure  = "proc"       // requested procedure id, formatted as 0x%08x
	KeySessionID  = "session_id" // session id from the wire header, 0 before LOGIN
	KeyThreadID   = "thread_id"  // worker goroutine index handling the request
	KeyStatus     = "status"     // uRPC status code name (OK, FAIL, TIMEOUT, ...)
	KeyStatusCode = "status_code"

	// ========================================================================
	// Client identity
	// ========================================================================
	KeyClientAddr   = "client_addr" // client's address for this transport
	KeyConnectionID = "connection_id"

	// ========================================================================
	// Timing & errors
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// TraceID returns a trace id attribute.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a span id attribute.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Transport returns a transport name attribute.
func Transport(name string) slog.Attr {
	return slog.String(KeyTransport, name)
}

// Procedure returns a procedure id attribute, formatted as hex.
func Procedure(procID uint32) slog.Attr {
	return slog.String(KeyProcedure, fmt.Sprintf("0x%08x", procID))
}

// SessionID returns a session id attribute.
func SessionID(id uint32) slog.Attr {
	return slog.Uint64(KeySessionID, uint64(id))
}

// ThreadID returns a worker thread index attribute.
func ThreadID(id int) slog.Attr {
	return slog.Int(KeyThreadID, id)
}

// Status returns a status name attribute.
func Status(name string) slog.Attr {
	return slog.String(KeyStatus, name)
}

// StatusCode returns a raw status code attribute.
func StatusCode(code uint32) slog.Attr {
	return slog.String(KeyStatusCode, fmt.Sprintf("0x%08x", code))
}

// ClientAddr returns a client address attribute.
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// ConnectionID returns a connection id attribute.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DurationMs returns an operation duration attribute, in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns an error attribute, or a no-op attribute if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns an error code attribute.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}
