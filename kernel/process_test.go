package kernel

import "testing"

func TestExecGetPidGetPPid(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		parentPid := k.GetPid(self)

		childDone := make(chan Pid, 1)
		_, ok := k.Exec(self, func(cself ThreadID, _ []byte) int {
			childDone <- k.GetPid(cself)
			if ppid := k.GetPPid(cself); ppid != parentPid {
				t.Errorf("child GetPPid = %d; want %d", ppid, parentPid)
			}
			return 5
		}, nil)
		if !ok {
			t.Fatalf("Exec failed")
		}

		childPid := <-childDone
		pid, status, ok := k.WaitChild(self, childPid)
		if !ok || pid != childPid || status != 5 {
			t.Fatalf("WaitChild = %d, %d, %v; want %d, 5, true", pid, status, ok, childPid)
		}
		return 0
	})
}

func TestWaitChildAnyAndNoChildren(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		if _, _, ok := k.WaitChild(self, NOPROC); ok {
			t.Fatalf("WaitChild(NOPROC) with no children unexpectedly succeeded")
		}

		for i := 0; i < 3; i++ {
			retval := i
			k.Exec(self, func(cself ThreadID, _ []byte) int { return retval }, nil)
		}

		seen := map[int]bool{}
		for i := 0; i < 3; i++ {
			_, status, ok := k.WaitChild(self, NOPROC)
			if !ok {
				t.Fatalf("WaitChild(NOPROC) #%d failed", i)
			}
			seen[status] = true
		}
		for i := 0; i < 3; i++ {
			if !seen[i] {
				t.Fatalf("never reaped a child exiting with status %d", i)
			}
		}

		if _, _, ok := k.WaitChild(self, NOPROC); ok {
			t.Fatalf("WaitChild(NOPROC) with no remaining children unexpectedly succeeded")
		}
		return 0
	})
}

// TestOrphanReparentedToInit exercises spec §4.2 Exit step 2: a process
// exiting while it still has an ALIVE child re-parents that child to
// init, and init's children list gains it.
func TestOrphanReparentedToInit(t *testing.T) {
	k := newTestKernel(t)

	grandchildSpawned := make(chan Pid, 1)
	releaseGrandchild := make(chan struct{})

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		k.Exec(self, func(cself ThreadID, _ []byte) int {
			_, ok := k.Exec(cself, func(gself ThreadID, _ []byte) int {
				grandchildSpawned <- k.GetPid(gself)
				<-releaseGrandchild
				return 0
			}, nil)
			if !ok {
				t.Errorf("nested Exec failed")
			}
			return 3
		}, nil)

		gpid := <-grandchildSpawned

		// reap the child (its only thread already returned 3 and exited,
		// re-parenting gpid to init along the way).
		_, status, ok := k.WaitChild(self, NOPROC)
		if !ok || status != 3 {
			t.Fatalf("WaitChild(child) = %d, %v; want 3, true", status, ok)
		}

		k.mu.Lock()
		g := k.procs[gpid]
		isInitsChild := g != nil && g.parent == k.initProc
		k.mu.Unlock()
		if !isInitsChild {
			t.Fatalf("grandchild pid %d was not re-parented to init", gpid)
		}

		close(releaseGrandchild)
		return 0
	})
}
