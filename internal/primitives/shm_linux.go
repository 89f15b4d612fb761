//go:build linux

package primitives

/*
#include <sys/mman.h>
#include <fcntl.h>
#include <unistd.h>
#include <sys/stat.h>
#include <stdlib.h>
#include <errno.h>

static int shm_open_rw(const char *name) {
	return shm_open(name, O_CREAT | O_RDWR, 0600);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NamedSHM is a POSIX named shared memory segment, used by the SHM
// transport for its control segment and its 2*max_data_size*threads_num
// byte transport segment (spec.md §4.6, §6).
type NamedSHM struct {
	name string
	fd   int
	size int
	mem  []byte
}

// CreateNamedSHM creates (or attaches to) a named shared memory segment
// of the given size and maps it into this process's address space.
func CreateNamedSHM(name string, size int) (*NamedSHM, error) {
	cname := C.CString(posixName(name))
	defer C.free(unsafe.Pointer(cname))

	fd := int(C.shm_open_rw(cname))
	if fd < 0 {
		return nil, fmt.Errorf("primitives: shm_open %q failed", name)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("primitives: ftruncate %q to %d: %w", name, size, err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("primitives: mmap %q: %w", name, err)
	}
	return &NamedSHM{name: name, fd: fd, size: size, mem: mem}, nil
}

// Bytes returns the mapped memory region.
func (s *NamedSHM) Bytes() []byte { return s.mem }

// Close unmaps the segment and closes this process's handle, without
// removing the segment from the system.
func (s *NamedSHM) Close() error {
	if err := unix.Munmap(s.mem); err != nil {
		return fmt.Errorf("primitives: munmap %q: %w", s.name, err)
	}
	return unix.Close(s.fd)
}

// Unlink removes the named segment from the system.
func (s *NamedSHM) Unlink() error {
	cname := C.CString(posixName(s.name))
	defer C.free(unsafe.Pointer(cname))
	if C.shm_unlink(cname) != 0 {
		return fmt.Errorf("primitives: shm_unlink %q failed", s.name)
	}
	return nil
}

// ProcessAlive reports whether pid names a live process, used by the SHM
// server's stale-segment survival guard (spec.md §4.6: "before
// overwriting the control segment, attempt to open any existing one and
// check if the stored pid is a live process").
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
