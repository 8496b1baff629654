package kernel

import "sync"

// Limits bounds the fixed-size tables spec §3 requires: the process
// table (MaxProc), each process's fd table (MaxFileID), the port map
// (MaxPort), a pipe's cyclic buffer capacity (PipeBufferSize), and how
// many bytes of a process's argv OpenInfo will copy out per record
// (ProcInfoMaxArgsSize).
type Limits struct {
	MaxProc             int
	MaxFileID           int
	MaxPort             int
	PipeBufferSize      int
	ProcInfoMaxArgsSize int
}

// DefaultLimits mirrors the sizes a small teaching kernel would boot
// with; callers needing different bounds build their own Limits.
func DefaultLimits() Limits {
	return Limits{
		MaxProc:             256,
		MaxFileID:           64,
		MaxPort:             1024,
		PipeBufferSize:      512,
		ProcInfoMaxArgsSize: 256,
	}
}

// Kernel is the whole concurrency core and IPC fabric of spec §1: one
// mutex, one process table, one port map, one thread table, serving every
// syscall in this package. There is exactly one Kernel per simulated
// machine; Boot must run once before any other syscall.
type Kernel struct {
	mu     sync.Mutex
	limits Limits
	sched  Scheduler

	threads *threadTable

	procs    []*pcb
	freePids []Pid

	idleProc *pcb
	initProc *pcb

	portMap []*socket

	metrics *Snmp
}

// New constructs a Kernel around the given Limits and Scheduler. sched
// may be nil, in which case the goroutine-backed scheduler (scheduler.go)
// is used. Boot must be called before any syscall.
func New(limits Limits, sched Scheduler) *Kernel {
	if sched == nil {
		sched = newGoroutineScheduler()
	}
	k := &Kernel{
		limits:  limits,
		sched:   sched,
		threads: newThreadTable(),
		procs:   make([]*pcb, limits.MaxProc),
		portMap: make([]*socket, limits.MaxPort+1),
		metrics: newSnmp(),
	}
	k.freePids = make([]Pid, limits.MaxProc)
	for i := 0; i < limits.MaxProc; i++ {
		k.freePids[i] = Pid(i)
	}
	return k
}

// IdleThread returns the parked main thread of the idle process (pid 0)
// created by Boot. It exists so a driver program has some legitimate
// ThreadID to pass as self when it wants to Exec its very first process,
// before any process of its own is running.
func (k *Kernel) IdleThread() ThreadID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.idleProc.mainTID
}

// Read dispatches to whichever streamOps implementation owns fid in the
// calling thread's process: spec's Component Design table entry "Stream
// dispatch glue" — the same shape a pipe end, a peer socket, or the
// process-info cursor all satisfy.
func (k *Kernel) Read(self ThreadID, fid FID, buf []byte) (int, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	f := k.procOf(self).fds.get(fid)
	if f == nil {
		return 0, false
	}
	return f.ops.read(buf)
}

// Write dispatches to whichever streamOps implementation owns fid in the
// calling thread's process.
func (k *Kernel) Write(self ThreadID, fid FID, buf []byte) (int, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	f := k.procOf(self).fds.get(fid)
	if f == nil {
		return 0, false
	}
	return f.ops.write(buf)
}

// Close releases the calling thread's handle on fid, closing the
// underlying stream once no other process's fd table still shares it.
func (k *Kernel) Close(self ThreadID, fid FID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.procOf(self).fds.closeFID(fid)
}
