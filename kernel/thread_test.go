package kernel

import (
	"testing"
	"time"
)

// TestThreadJoinReturnsExitval is spec §8 scenario 3.
func TestThreadJoinReturnsExitval(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		tid, ok := k.CreateThread(self, func(_ ThreadID, _ []byte) int { return 42 }, nil)
		if !ok {
			t.Fatalf("CreateThread failed")
		}

		exitval, ok := k.ThreadJoin(self, tid)
		if !ok || exitval != 42 {
			t.Fatalf("join = %d, %v; want 42, true", exitval, ok)
		}

		if _, ok := k.ThreadJoin(self, tid); ok {
			t.Fatalf("second join on a freed thread id unexpectedly succeeded")
		}
		return 0
	})
}

// TestDetachRacesExit is spec §8 scenario 4.
func TestDetachRacesExit(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		release := make(chan struct{})
		tid, ok := k.CreateThread(self, func(_ ThreadID, _ []byte) int {
			<-release
			return 7
		}, nil)
		if !ok {
			t.Fatalf("CreateThread failed")
		}

		if ok := k.ThreadDetach(self, tid); !ok {
			t.Fatalf("Detach failed")
		}
		close(release)

		if _, ok := k.ThreadJoin(self, tid); ok {
			t.Fatalf("join on a detached thread unexpectedly succeeded")
		}

		// wait for the detached thread to exit and its PTCB to be freed
		deadline := time.After(time.Second)
		for {
			k.mu.Lock()
			freed := k.threads.get(tid) == nil
			k.mu.Unlock()
			if freed {
				break
			}
			select {
			case <-deadline:
				t.Fatalf("detached thread's PTCB was never freed after its exit")
			case <-time.After(time.Millisecond):
			}
		}
		if ok := k.ThreadDetach(self, tid); ok {
			t.Fatalf("re-detach unexpectedly succeeded")
		}
		return 0
	})
}

func TestJoinSelfFails(t *testing.T) {
	k := newTestKernel(t)
	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		if _, ok := k.ThreadJoin(self, self); ok {
			t.Fatalf("joining self unexpectedly succeeded")
		}
		return 0
	})
}

func TestCreateThreadNilTaskFails(t *testing.T) {
	k := newTestKernel(t)
	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		if _, ok := k.CreateThread(self, nil, nil); ok {
			t.Fatalf("CreateThread with nil task unexpectedly succeeded")
		}
		return 0
	})
}
