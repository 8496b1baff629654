package kernel

import "github.com/golang/snappy"

type pcbState int

const (
	pcbFree pcbState = iota
	pcbAlive
	pcbZombie
)

// pcb is the process control block: spec §3's PCB. Argument bytes are
// stored snappy-compressed (argz) rather than as a raw copy — the
// SPEC_FULL §3 feature grounded on std/comp.go's CompStream, which wraps
// a net.Conn's payload the same way. args() decompresses on demand.
type pcb struct {
	pid   Pid
	state pcbState

	parent         *pcb
	children       map[Pid]*pcb // ALIVE children, keyed by pid
	exitedChildren []*pcb       // ZOMBIE children pending reap, newest first
	childExit      *CondVar

	fds *fdTable

	threads     map[ThreadID]*ptcb
	threadCount int
	mainTID     ThreadID

	argz   []byte // snappy-compressed argv
	arglen int    // original, uncompressed length

	exitval int
}

func (p *pcb) setArgs(argv []byte) {
	p.arglen = len(argv)
	if len(argv) == 0 {
		p.argz = nil
		return
	}
	p.argz = snappy.Encode(nil, argv)
}

func (p *pcb) args() []byte {
	if p.arglen == 0 {
		return nil
	}
	out, err := snappy.Decode(nil, p.argz)
	if err != nil {
		fatal("pid %d: corrupt argument storage: %v", p.pid, err)
	}
	return out
}

func (p *pcb) releaseArgs() {
	p.argz = nil
	p.arglen = 0
}

// procOf resolves self to its owning process. An invalid self is a misuse
// of the API (every legitimate caller is itself a running thread), not a
// recoverable syscall failure, so it panics rather than returning a
// sentinel.
func (k *Kernel) procOf(self ThreadID) *pcb {
	t := k.threads.get(self)
	if t == nil {
		fatal("invalid thread id %d", self)
	}
	return t.proc
}

// allocPCB pops the next free pid and initializes a fresh, empty PCB for
// it, or returns nil if the process table is exhausted (NOPROC per spec
// §4.3's Exec).
func (k *Kernel) allocPCB() *pcb {
	if len(k.freePids) == 0 {
		return nil
	}
	pid := k.freePids[0]
	k.freePids = k.freePids[1:]

	p := &pcb{
		pid:       pid,
		children:  make(map[Pid]*pcb),
		threads:   make(map[ThreadID]*ptcb),
		childExit: NewCondVar(),
		fds:       newFDTable(k.limits.MaxFileID),
		mainTID:   NOTHREAD,
	}
	k.procs[pid] = p
	return p
}

func (k *Kernel) freePCB(p *pcb) {
	p.state = pcbFree
	p.parent = nil
	p.children = nil
	p.exitedChildren = nil
	p.threads = nil
	p.fds = nil
	k.procs[p.pid] = nil
	k.freePids = append(k.freePids, p.pid)
}

// Boot creates the idle process (pid 0, no parent) and the init process
// (pid 1, no parent, adopts orphans): spec §3/§4.3 and §7's fatal
// condition ("pid 0 is not the idle process at boot"). Boot may be called
// exactly once per Kernel.
func (k *Kernel) Boot() (idle Pid, init Pid) {
	k.mu.Lock()
	defer k.mu.Unlock()

	idleProc := k.allocPCB()
	if idleProc == nil || idleProc.pid != 0 {
		fatal("pid 0 is not the idle process at boot")
	}
	idleProc.state = pcbAlive
	idleProc.mainTID = k.spawnThread(idleProc, nil, nil)

	initProc := k.allocPCB()
	if initProc == nil || initProc.pid != 1 {
		fatal("pid 1 is not the init process at boot")
	}
	initProc.state = pcbAlive
	initProc.mainTID = k.spawnThread(initProc, nil, nil)

	k.idleProc = idleProc
	k.initProc = initProc
	return idleProc.pid, initProc.pid
}

// Exec implements the Exec syscall: spec §4.3. The new process's parent
// is the calling thread's process; it inherits that process's fd table
// (spec: "each inherited handle has its refcount incremented") and a
// fresh copy of argv, then spawns task as its main thread. A nil task is
// rejected the same way CreateThread rejects one — pid 0/1's threadless
// boot is internal to Boot, which builds its PCBs directly rather than
// going through Exec, so there is no legitimate "exec with no runnable
// code" on this syscall surface.
func (k *Kernel) Exec(self ThreadID, task ThreadFunc, argv []byte) (Pid, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if task == nil {
		return NOPROC, false
	}

	parent := k.procOf(self)
	proc := k.allocPCB()
	if proc == nil {
		return NOPROC, false
	}

	proc.parent = parent
	parent.children[proc.pid] = proc
	proc.fds.inherit(parent.fds)
	proc.setArgs(argv)

	proc.state = pcbAlive
	proc.mainTID = k.spawnThread(proc, task, proc.args())

	k.metrics.processesCreated++
	return proc.pid, true
}

// Exit implements the process-scope Exit syscall of spec §6's surface. It
// is the same operation as ThreadExit: a thread exits, and if it was the
// last thread of its process, process-level reaping (onLastThreadExit)
// follows in the same locked sequence.
func (k *Kernel) Exit(self ThreadID, status int) {
	k.threadExit(self, status)
}

// GetPid implements the GetPid syscall.
func (k *Kernel) GetPid(self ThreadID) Pid {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.procOf(self).pid
}

// GetPPid implements the GetPPid syscall. Returns NOPROC for a process
// with no parent (pid 0 and pid 1).
func (k *Kernel) GetPPid(self ThreadID) Pid {
	k.mu.Lock()
	defer k.mu.Unlock()
	proc := k.procOf(self)
	if proc.parent == nil {
		return NOPROC
	}
	return proc.parent.pid
}

// WaitChild implements the WaitChild syscall: spec §4.3.
func (k *Kernel) WaitChild(self ThreadID, cpid Pid) (pid Pid, status int, ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	caller := k.procOf(self)

	if cpid == NOPROC {
		if len(caller.children) == 0 && len(caller.exitedChildren) == 0 {
			return NOPROC, 0, false
		}
		for len(caller.children) > 0 && len(caller.exitedChildren) == 0 {
			k.sched.Wait(caller.childExit, ReasonUser, &k.mu)
		}
		if len(caller.exitedChildren) == 0 {
			return NOPROC, 0, false
		}
		return k.reapFront(caller)
	}

	if cpid < 0 || int(cpid) >= len(k.procs) {
		return NOPROC, 0, false
	}
	target := k.procs[cpid]
	if target == nil || target.parent != caller {
		return NOPROC, 0, false
	}
	for target.state == pcbAlive {
		k.sched.Wait(caller.childExit, ReasonUser, &k.mu)
	}
	return k.reapSpecific(caller, target)
}

func (k *Kernel) reapFront(caller *pcb) (Pid, int, bool) {
	child := caller.exitedChildren[0]
	caller.exitedChildren = caller.exitedChildren[1:]
	return k.finishReap(child)
}

func (k *Kernel) reapSpecific(caller *pcb, target *pcb) (Pid, int, bool) {
	for i, c := range caller.exitedChildren {
		if c == target {
			caller.exitedChildren = append(caller.exitedChildren[:i], caller.exitedChildren[i+1:]...)
			break
		}
	}
	return k.finishReap(target)
}

func (k *Kernel) finishReap(child *pcb) (Pid, int, bool) {
	pid, status := child.pid, child.exitval
	k.freePCB(child)
	k.metrics.zombiesReaped++
	return pid, status, true
}

// zombify unlinks proc from its parent's ALIVE children and links it into
// the exited-children list (front-insertion: spec §5's "newest-first
// reaping, which the spec accepts"), then wakes the parent. A process
// with no parent (pid 0, pid 1) simply has nowhere to be linked.
func (k *Kernel) zombify(proc *pcb) {
	proc.state = pcbZombie
	parent := proc.parent
	if parent == nil {
		return
	}
	delete(parent.children, proc.pid)
	parent.exitedChildren = append([]*pcb{proc}, parent.exitedChildren...)
	k.sched.Broadcast(parent.childExit)
}

// reparentOrphansToInit moves every ALIVE and exited child of proc to
// init, per spec §4.2's Exit step 2.
func (k *Kernel) reparentOrphansToInit(proc *pcb) {
	init := k.initProc
	for pid, child := range proc.children {
		child.parent = init
		init.children[pid] = child
	}
	proc.children = make(map[Pid]*pcb)

	if len(proc.exitedChildren) > 0 {
		for _, c := range proc.exitedChildren {
			c.parent = init
		}
		init.exitedChildren = append(proc.exitedChildren, init.exitedChildren...)
		proc.exitedChildren = nil
		k.sched.Broadcast(init.childExit)
	}
}

// onLastThreadExit implements spec §4.2's Exit steps 1-3, invoked by
// threadExit (thread.go) once a process's thread count reaches zero.
func (k *Kernel) onLastThreadExit(proc *pcb) {
	if proc == k.initProc {
		for len(proc.children) > 0 || len(proc.exitedChildren) > 0 {
			for len(proc.children) > 0 && len(proc.exitedChildren) == 0 {
				k.sched.Wait(proc.childExit, ReasonUser, &k.mu)
			}
			if len(proc.exitedChildren) > 0 {
				k.reapFront(proc)
			}
		}
	} else {
		k.reparentOrphansToInit(proc)
		k.zombify(proc)
	}

	proc.releaseArgs()
	for fid, f := range proc.fds.slots {
		if f != nil {
			proc.fds.closeFID(FID(fid))
		}
	}
	proc.mainTID = NOTHREAD
	proc.state = pcbZombie
}
