package databuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Scalar helpers convert Go values to/from the big-endian wire
// representation spec.md §3 requires, calling Set/Get under the hood.
// Strings are stored with a terminating null byte, per spec.md §4.1.

func (b *Buffer) SetU32(dir Direction, id uint32, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return b.Set(dir, id, buf[:])
}

func (b *Buffer) GetU32(dir Direction, id uint32) (uint32, bool) {
	v, ok := b.Get(dir, id)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

func (b *Buffer) SetI32(dir Direction, id uint32, v int32) error {
	return b.SetU32(dir, id, uint32(v))
}

func (b *Buffer) GetI32(dir Direction, id uint32) (int32, bool) {
	v, ok := b.GetU32(dir, id)
	return int32(v), ok
}

func (b *Buffer) SetU64(dir Direction, id uint32, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return b.Set(dir, id, buf[:])
}

func (b *Buffer) GetU64(dir Direction, id uint32) (uint64, bool) {
	v, ok := b.Get(dir, id)
	if !ok || len(v) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

func (b *Buffer) SetI64(dir Direction, id uint32, v int64) error {
	return b.SetU64(dir, id, uint64(v))
}

func (b *Buffer) GetI64(dir Direction, id uint32) (int64, bool) {
	v, ok := b.GetU64(dir, id)
	return int64(v), ok
}

// SetF32 transmits v as the big-endian bit pattern of its IEEE-754
// representation, per spec.md §3.
func (b *Buffer) SetF32(dir Direction, id uint32, v float32) error {
	return b.SetU32(dir, id, math.Float32bits(v))
}

func (b *Buffer) GetF32(dir Direction, id uint32) (float32, bool) {
	bits, ok := b.GetU32(dir, id)
	if !ok {
		return 0, false
	}
	return math.Float32frombits(bits), true
}

func (b *Buffer) SetF64(dir Direction, id uint32, v float64) error {
	return b.SetU64(dir, id, math.Float64bits(v))
}

func (b *Buffer) GetF64(dir Direction, id uint32) (float64, bool) {
	bits, ok := b.GetU64(dir, id)
	if !ok {
		return 0, false
	}
	return math.Float64frombits(bits), true
}

// SetString stores s with a terminating null byte.
func (b *Buffer) SetString(dir Direction, id uint32, s string) error {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return b.Set(dir, id, buf)
}

// GetString returns s without its terminating null byte. It fails if the
// stored value does not end in a 0 byte, per spec.md §4.1.
func (b *Buffer) GetString(dir Direction, id uint32) (string, error) {
	v, ok := b.Get(dir, id)
	if !ok {
		return "", fmt.Errorf("databuf: no value for id 0x%08x", id)
	}
	if len(v) == 0 || v[len(v)-1] != 0 {
		return "", fmt.Errorf("databuf: id 0x%08x is not a null-terminated string", id)
	}
	return string(v[:len(v)-1]), nil
}
