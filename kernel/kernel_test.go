package kernel

import "testing"

// testLimits keeps tables small so index-out-of-range bugs surface fast.
func testLimits() Limits {
	return Limits{
		MaxProc:             16,
		MaxFileID:           16,
		MaxPort:             512,
		PipeBufferSize:      512,
		ProcInfoMaxArgsSize: 64,
	}
}

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(testLimits(), nil)
	idle, init := k.Boot()
	if idle != 0 {
		t.Fatalf("idle process got pid %d, want 0", idle)
	}
	if init != 1 {
		t.Fatalf("init process got pid %d, want 1", init)
	}
	return k
}

// runInNewProcess execs task as a fresh process's main thread and blocks
// until it returns, yielding the thread's exit value.
func runInNewProcess(t *testing.T, k *Kernel, task ThreadFunc) int {
	t.Helper()
	done := make(chan int, 1)
	wrapped := func(self ThreadID, arg []byte) int {
		v := task(self, arg)
		done <- v
		return v
	}
	if _, ok := k.Exec(k.IdleThread(), wrapped, nil); !ok {
		t.Fatalf("exec failed")
	}
	return <-done
}
