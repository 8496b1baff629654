package kernel

import (
	"sync"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Pipe is a bounded single-producer/single-consumer byte pipe: spec
// §3/§4.1. Its cyclic buffer is backed by kcp.RingBuffer[byte] — a real
// teacher dependency — sized one larger than the configured capacity,
// since RingBuffer reserves one slot to distinguish full from empty
// (MaxLen() == len(elements)-1). write never calls Push while IsFull(), so
// the ring's auto-grow path is never exercised and the pipe's capacity
// stays fixed at B bytes, preserving 0 ≤ count ≤ B.
//
// Per spec §9's redesign note, the two sides track their own liveness as
// independent booleans rather than through a shared FCB: ShutDown and the
// fdTable's close path flip readerClosed/writerClosed directly.
type Pipe struct {
	mu       *sync.Mutex
	buf      *kcp.RingBuffer[byte]
	hasSpace *CondVar
	hasData  *CondVar
	sched    Scheduler
	metrics  *Snmp

	readerClosed bool
	writerClosed bool
}

func newPipe(k *Kernel) *Pipe {
	return &Pipe{
		mu:       &k.mu,
		buf:      kcp.NewRingBuffer[byte](k.limits.PipeBufferSize + 1),
		hasSpace: NewCondVar(),
		hasData:  NewCondVar(),
		sched:    k.sched,
		metrics:  k.metrics,
	}
}

// write copies up to len(p) bytes from buf into the pipe. See spec
// §4.1's write contract. Returns ok=false only for the precondition
// violation of writing with the reader already gone or the writer already
// closed; a reader that closes mid-write instead yields a successful
// short (possibly zero) count, per spec §9 open question (a).
func (p *Pipe) write(buf []byte) (n int, ok bool) {
	if p.writerClosed || p.readerClosed {
		return 0, false
	}

	for n < len(buf) {
		if p.buf.IsFull() {
			p.sched.Broadcast(p.hasData) // wake a reader waiting for the first byte
			p.sched.Wait(p.hasSpace, ReasonPipe, p.mu)
			if p.readerClosed {
				break
			}
			continue
		}
		p.buf.Push(buf[n])
		n++
	}

	p.sched.Broadcast(p.hasData)
	p.metrics.bytesPipedTotal += uint64(n)
	return n, true
}

// read copies up to len(buf) bytes out of the pipe. See spec §4.1's read
// contract: ok=false only if the reader side is already closed; EOF (a
// closed writer with a drained buffer) is a successful zero-or-short
// count, not a failure. It also returns as soon as it has delivered at
// least one byte and the buffer runs dry, rather than suspending for
// more — a reader that already has data must not stall waiting for the
// next write, per spec §8 scenario 1.
func (p *Pipe) read(buf []byte) (n int, ok bool) {
	if p.readerClosed {
		return 0, false
	}

	for n < len(buf) {
		if p.buf.IsEmpty() {
			if p.writerClosed || n > 0 {
				break
			}
			p.sched.Broadcast(p.hasSpace) // wake a writer waiting for room
			p.sched.Wait(p.hasData, ReasonPipe, p.mu)
			continue
		}
		b, _ := p.buf.Pop()
		buf[n] = b
		n++
	}

	p.sched.Broadcast(p.hasSpace)
	return n, true
}

// writerClose half-closes the write side. Re-closing fails.
func (p *Pipe) writerClose() bool {
	if p.writerClosed {
		return false
	}
	p.writerClosed = true
	p.sched.Broadcast(p.hasData)
	return true
}

// readerClose half-closes the read side. Re-closing fails.
func (p *Pipe) readerClose() bool {
	if p.readerClosed {
		return false
	}
	p.readerClosed = true
	p.sched.Broadcast(p.hasSpace)
	return true
}

// pipeReadEnd and pipeWriteEnd adapt the two halves of a Pipe to streamOps
// so each can be dispatched through an independent fdTable slot; the
// unsupported direction on each half simply fails, the streamOps analogue
// of a null function pointer in spec §6's FCB vector.
type pipeReadEnd struct{ p *Pipe }

func (e *pipeReadEnd) read(buf []byte) (int, bool)  { return e.p.read(buf) }
func (e *pipeReadEnd) write(buf []byte) (int, bool) { return 0, false }
func (e *pipeReadEnd) closeStream() bool            { return e.p.readerClose() }

type pipeWriteEnd struct{ p *Pipe }

func (e *pipeWriteEnd) read(buf []byte) (int, bool)  { return 0, false }
func (e *pipeWriteEnd) write(buf []byte) (int, bool) { return e.p.write(buf) }
func (e *pipeWriteEnd) closeStream() bool            { return e.p.writerClose() }

// Pipe implements the Pipe syscall: it creates a pipe and returns its two
// freshly reserved handles in the calling thread's process.
func (k *Kernel) Pipe(self ThreadID) (readFID, writeFID FID, ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	proc := k.procOf(self)
	p := newPipe(k)
	fids, ok := proc.fds.reserve([]streamOps{&pipeReadEnd{p}, &pipeWriteEnd{p}})
	if !ok {
		return NOFILE, NOFILE, false
	}
	k.metrics.pipesCreated++
	return fids[0], fids[1], true
}
