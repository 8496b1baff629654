package kernel

// ThreadFunc is a thread's task entry point. It receives its own stable
// ThreadID (so it can pass itself to Join/Detach targets, or simply know
// who it is) and its argument bytes (for a process's main thread, the
// fresh copy Exec made of argv), and returns the value that
// becomes its exit value, exactly as if it had called Exit(self, retval)
// as its last act — spec §4.2's "entry trampoline ... eventually calls
// exit."
type ThreadFunc func(self ThreadID, arg []byte) int

// ptcb is the thread control block: spec §3's PTCB.
type ptcb struct {
	id       ThreadID
	proc     *pcb
	arg      []byte
	exitval  int
	exited   bool
	detached bool
	exitCond *CondVar
	refcount int
}

// threadTable maps ThreadID to *ptcb. It is the handle table spec §9's
// redesign note asks for in place of exposing raw PTCB pointers as thread
// ids: a stale ThreadID fails to resolve while its slot is free, rather
// than risking a use-after-free. Freed slots are reused by later threads,
// after which the old ThreadID resolves to the new occupant.
type threadTable struct {
	slots []*ptcb
	free  []ThreadID
}

func newThreadTable() *threadTable {
	return &threadTable{}
}

func (t *threadTable) alloc(p *ptcb) ThreadID {
	var id ThreadID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[id] = p
	} else {
		id = ThreadID(len(t.slots))
		t.slots = append(t.slots, p)
	}
	p.id = id
	return id
}

func (t *threadTable) get(id ThreadID) *ptcb {
	if id < 0 || int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

func (t *threadTable) release(id ThreadID) {
	t.slots[id] = nil
	t.free = append(t.free, id)
}

// spawnThread allocates a ptcb under proc, links it into proc's thread
// list, and starts its goroutine via the Scheduler. It is the shared
// machinery behind CreateThread and a process's main thread (see Exec in
// process.go); task may be nil only for the idle and init processes
// created at Boot.
func (k *Kernel) spawnThread(proc *pcb, task ThreadFunc, arg []byte) ThreadID {
	t := &ptcb{proc: proc, arg: arg, exitCond: NewCondVar()}
	id := k.threads.alloc(t)
	proc.threads[id] = t
	proc.threadCount++

	if task != nil {
		k.sched.SpawnThread(func() {
			exitval := task(id, arg)
			k.threadExit(id, exitval)
		})
	}
	return id
}

// CreateThread implements the CreateThread syscall: spec §4.2. The only
// documented failure is a nil task; self must resolve to a live thread of
// some process (a precondition of the syscall interface, not a
// recoverable error — an invalid self means the caller misused the API).
func (k *Kernel) CreateThread(self ThreadID, task ThreadFunc, arg []byte) (ThreadID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if task == nil {
		return NOTHREAD, false
	}
	caller := k.threads.get(self)
	if caller == nil {
		fatal("CreateThread: invalid self thread id %d", self)
	}

	id := k.spawnThread(caller.proc, task, arg)
	k.metrics.threadsCreated++
	return id, true
}

// ThreadSelf implements the ThreadSelf syscall: spec §4.2. Since every
// kernel operation already receives the calling thread's handle
// explicitly (see scheduler.go's CurThread doc comment), this is an
// identity function provided for API symmetry with the syscall surface.
func (k *Kernel) ThreadSelf(self ThreadID) ThreadID {
	return self
}

// ThreadJoin implements the Join syscall: spec §4.2.
func (k *Kernel) ThreadJoin(self ThreadID, target ThreadID) (exitval int, ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	caller := k.threads.get(self)
	if caller == nil {
		fatal("ThreadJoin: invalid self thread id %d", self)
	}
	if target == NOTHREAD || target == self {
		return 0, false
	}
	t := k.threads.get(target)
	if t == nil || t.proc != caller.proc {
		return 0, false
	}
	if t.detached {
		return 0, false
	}

	t.refcount++
	for !t.exited && !t.detached {
		k.sched.Wait(t.exitCond, ReasonUser, &k.mu)
	}

	if t.detached {
		exitval, ok = 0, false
	} else {
		exitval, ok = t.exitval, true
	}

	t.refcount--
	if t.refcount == 0 && t.exited {
		delete(t.proc.threads, target)
		k.threads.release(target)
	}
	if ok {
		k.metrics.threadsJoined++
	}
	return exitval, ok
}

// ThreadDetach implements the Detach syscall: spec §4.2.
func (k *Kernel) ThreadDetach(self ThreadID, target ThreadID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	caller := k.threads.get(self)
	if caller == nil {
		fatal("ThreadDetach: invalid self thread id %d", self)
	}
	t := k.threads.get(target)
	if t == nil || t.proc != caller.proc || t.exited {
		return false
	}

	t.detached = true
	k.sched.Broadcast(t.exitCond)
	return true
}

// ThreadExit implements the Exit syscall at thread scope: spec §4.2. It is
// also what every ThreadFunc's trampoline invokes automatically on
// return (spawnThread), and what a process's own Exit (process.go) routes
// through for its calling thread.
func (k *Kernel) ThreadExit(self ThreadID, exitval int) {
	k.threadExit(self, exitval)
}

// threadExit holds the kernel lock for the whole exit sequence: record the
// exit value as the process's status if this is its main thread, decrement
// the process's thread count, perform process-level reaping if this was
// the last thread (process.go's onLastThreadExit), then mark the ptcb
// exited, broadcast, and free it immediately if nobody is joined on it.
func (k *Kernel) threadExit(id ThreadID, exitval int) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.threads.get(id)
	if t == nil {
		fatal("ThreadExit: invalid thread id %d", id)
	}
	proc := t.proc
	if id == proc.mainTID {
		proc.exitval = exitval
	}
	proc.threadCount--
	if proc.threadCount == 0 {
		k.onLastThreadExit(proc)
	}

	t.exited = true
	t.exitval = exitval
	k.sched.Broadcast(t.exitCond)

	if t.refcount == 0 {
		delete(proc.threads, id)
		k.threads.release(id)
	}
	k.metrics.threadsExited++
	k.sched.Sleep(ReasonUser)
}
