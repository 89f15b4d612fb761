//go:build !linux

package primitives

import (
	"fmt"
	"runtime"
	"time"
)

// NamedSemaphore is unavailable outside Linux in this build; the SHM
// transport reports ErrUnsupportedPlatform instead of silently no-op'ing
// (spec.md §6 reserves these as named OS objects the host platform must
// provide; the original source has a parallel Win32 implementation we do
// not reproduce here, see SPEC_FULL.md §14).
type NamedSemaphore struct{}

var ErrUnsupportedPlatform = fmt.Errorf("primitives: SHM transport is not supported on %s", runtime.GOOS)

func OpenNamedSemaphore(name string, value uint32) (*NamedSemaphore, error) {
	return nil, ErrUnsupportedPlatform
}

func (s *NamedSemaphore) WaitTimeout(d time.Duration) bool { return false }
func (s *NamedSemaphore) TryLock() bool                    { return false }
func (s *NamedSemaphore) Post() error                       { return ErrUnsupportedPlatform }
func (s *NamedSemaphore) Close() error                      { return ErrUnsupportedPlatform }
func (s *NamedSemaphore) Unlink() error                     { return ErrUnsupportedPlatform }
