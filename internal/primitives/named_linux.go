//go:build linux

package primitives

/*
#include <semaphore.h>
#include <fcntl.h>
#include <sys/mman.h>
#include <sys/stat.h>
#include <unistd.h>
#include <errno.h>
#include <time.h>
#include <string.h>
#include <stdlib.h>

static sem_t *named_sem_open(const char *name, unsigned int value) {
	return sem_open(name, O_CREAT, 0600, value);
}

static int named_sem_timedwait(sem_t *sem, long sec, long nsec) {
	struct timespec ts;
	if (clock_gettime(CLOCK_REALTIME, &ts) != 0) return -1;
	ts.tv_sec += sec;
	ts.tv_nsec += nsec;
	if (ts.tv_nsec >= 1000000000L) { ts.tv_sec += 1; ts.tv_nsec -= 1000000000L; }
	return sem_timedwait(sem, &ts);
}
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"
)

// NamedSemaphore wraps a POSIX named semaphore (sem_open/sem_post/
// sem_timedwait), used by the SHM transport for the per-slot
// start/stop/used semaphores and the global access semaphore named
// <uri>.{transport.<i>.{start,stop,used},access} per spec.md §6.
type NamedSemaphore struct {
	name string
	sem  *C.sem_t
}

// OpenNamedSemaphore creates or opens a named semaphore with the given
// initial value. Names are translated to a leading "/" per POSIX
// sem_open convention.
func OpenNamedSemaphore(name string, value uint32) (*NamedSemaphore, error) {
	cname := C.CString(posixName(name))
	defer C.free(unsafe.Pointer(cname))

	sem := C.named_sem_open(cname, C.uint(value))
	if sem == nil {
		return nil, fmt.Errorf("primitives: sem_open %q failed", name)
	}
	return &NamedSemaphore{name: name, sem: sem}, nil
}

func posixName(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name
	}
	return "/" + name
}

// WaitTimeout blocks until the semaphore is posted or d elapses,
// returning false on timeout. Used for the SHM server's 500ms timed
// wait on the start semaphore (spec.md §4.6, §5).
func (s *NamedSemaphore) WaitTimeout(d time.Duration) bool {
	sec := C.long(d / time.Second)
	nsec := C.long(d % time.Second)
	ret := C.named_sem_timedwait(s.sem, sec, nsec)
	return ret == 0
}

// TryLock attempts a non-blocking wait, used by the SHM client to scan
// slots for one it can claim.
func (s *NamedSemaphore) TryLock() bool {
	ret := C.sem_trywait(s.sem)
	return ret == 0
}

// Post releases the semaphore.
func (s *NamedSemaphore) Post() error {
	if C.sem_post(s.sem) != 0 {
		return fmt.Errorf("primitives: sem_post %q failed", s.name)
	}
	return nil
}

// Close releases this process's handle to the semaphore without
// removing it from the system.
func (s *NamedSemaphore) Close() error {
	if C.sem_close(s.sem) != 0 {
		return fmt.Errorf("primitives: sem_close %q failed", s.name)
	}
	return nil
}

// Unlink removes the named semaphore from the system once no process
// still has it open.
func (s *NamedSemaphore) Unlink() error {
	cname := C.CString(posixName(s.name))
	defer C.free(unsafe.Pointer(cname))
	if C.sem_unlink(cname) != 0 {
		return fmt.Errorf("primitives: sem_unlink %q failed", s.name)
	}
	return nil
}
