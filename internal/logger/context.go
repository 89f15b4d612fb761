package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single uRPC
// exchange: which transport carried it, which worker is handling it, and
// the session/procedure it addresses.
type LogContext struct {
	TraceID    string
	SpanID     string
	ConnID     string // random id assigned fresh by each NewLogContext call (the server makes one per request)
	Transport  string // udp, tcp, shm
	ProcID     uint32
	SessionID  uint32
	ThreadID   int
	ClientAddr string
	StartTime  time.Time
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a request arriving over
// transport from clientAddr on worker threadID. ConnID is assigned fresh
// here so reconnects from the same ClientAddr (e.g. behind NAT, or a
// client that redials after a timeout) don't collide in log correlation.
func NewLogContext(transport, clientAddr string, threadID int) *LogContext {
	return &LogContext{
		ConnID:     uuid.NewString(),
		Transport:  transport,
		ClientAddr: clientAddr,
		ThreadID:   threadID,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithProc returns a copy with the procedure and session id set.
func (lc *LogContext) WithProc(procID, sessionID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ProcID = procID
		clone.SessionID = sessionID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
