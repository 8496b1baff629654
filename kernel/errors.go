package kernel

import "github.com/pkg/errors"

// FID identifies an open file handle (pipe half, socket, process-info
// cursor). It indexes the kernel's fdTable.
type FID int

// ThreadID is an opaque, stable handle to a PTCB. It indexes the kernel's
// thread table rather than exposing a raw pointer, so a use-after-free of
// a joined, detached thread is impossible: a stale ThreadID misses in the
// table instead of dereferencing freed memory, until a later thread reuses
// its slot.
type ThreadID int

// Pid identifies a process control block by its slot in the process table.
type Pid int

// ShutdownMode selects which half of a peer socket ShutDown closes.
type ShutdownMode int

const (
	ShutRead ShutdownMode = iota
	ShutWrite
	ShutBoth
)

// Sentinel values, per spec §6.
const (
	NOFILE   FID      = -1
	NOPROC   Pid      = -1
	NOTHREAD ThreadID = -1
	NOPORT   int      = 0
)

// NoTimeout means "wait indefinitely" when passed to Connect.
const NoTimeout = -1

// fatal panics with a wrapped, descriptive error. Reserved for conditions
// spec §7 calls out as halting the kernel (e.g. pid 0 is not the idle
// process at boot) — never used for ordinary syscall failure, which is
// always reported to the caller as a sentinel return value instead.
func fatal(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
