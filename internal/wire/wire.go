// Package wire defines the uRPC wire format: the fixed 16-byte header,
// reserved parameter and procedure identifiers, and status codes shared
// by every transport.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a uRPC packet on the wire: the ASCII bytes "uRPC".
const Magic uint32 = 0x75525043

// Version is the current protocol version: major 3, minor 0.
const Version uint32 = 0x00030000

// VersionMajor returns the major half of a version value.
func VersionMajor(v uint32) uint32 { return v >> 16 }

// HeaderSize is the fixed size, in bytes, of the wire header.
const HeaderSize = 16

// Header is the fixed 16-byte, big-endian packet header shared by every
// transport: magic, version, session, and total packet size.
type Header struct {
	Magic   uint32
	Version uint32
	Session uint32
	Size    uint32
}

// Marshal writes the header, big-endian, to buf[0:16]. It panics if buf is
// shorter than HeaderSize, the same contract as encoding/binary.Write
// against a fixed-size buffer.
func (h Header) Marshal(buf []byte) {
	_ = buf[HeaderSize-1]
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.Session)
	binary.BigEndian.PutUint32(buf[12:16], h.Size)
}

// Unmarshal reads a header from buf[0:16].
func Unmarshal(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("wire: short header: %d bytes", len(buf))
	}
	return Header{
		Magic:   binary.BigEndian.Uint32(buf[0:4]),
		Version: binary.BigEndian.Uint32(buf[4:8]),
		Session: binary.BigEndian.Uint32(buf[8:12]),
		Size:    binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// Reserved parameter identifiers (spec.md §6).
const (
	ParamProc   uint32 = 0x00010000
	ParamStatus uint32 = 0x00020000
	ParamCap    uint32 = 0x00030000
)

// UserParamBase is the first identifier available to user parameters.
const UserParamBase uint32 = 0x20000000

// Reserved procedure identifiers (spec.md §6).
const (
	ProcGetCap uint32 = 0x00010000
	ProcLogin  uint32 = 0x00020000
	ProcLogout uint32 = 0x00030000
)

// UserProcBase is the first identifier available to user procedures.
const UserProcBase uint32 = 0x20000000

// Status is the u32 result code carried in the STATUS parameter and
// returned from a client Exec call.
type Status uint32

// Status codes (spec.md §6).
const (
	StatusOK                 Status = 0x00010000
	StatusFail               Status = 0x00020000
	StatusTimeout            Status = 0x00030000
	StatusTransportError     Status = 0x00040000
	StatusVersionMismatch    Status = 0x00050000
	StatusTooManyConnections Status = 0x00060000
	StatusAuthError          Status = 0x00070000
)

// String returns a short human-readable name for the status, used in logs
// and error messages.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusTransportError:
		return "TRANSPORT_ERROR"
	case StatusVersionMismatch:
		return "VERSION_MISMATCH"
	case StatusTooManyConnections:
		return "TOO_MANY_CONNECTIONS"
	case StatusAuthError:
		return "AUTH_ERROR"
	default:
		return fmt.Sprintf("STATUS(0x%08x)", uint32(s))
	}
}

// Limits from spec.md §6.
const (
	MaxDataSize                 = 16 << 20 // 16 MiB
	MaxUDPPayload               = 65000
	MaxThreadsNum               = 32
	MinTimeoutSeconds           = 0.1
	DefaultClientTimeoutSeconds = 5.0
	DefaultServerTimeoutSeconds = 2.0
)
