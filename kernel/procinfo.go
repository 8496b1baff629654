package kernel

import "encoding/binary"

// procInfoHeader is the fixed-width prefix of every OpenInfo record,
// laid out the way smux/frame.go lays out its wire header: named byte
// offsets, a little-endian binary.LittleEndian codec, no struct padding
// surprises to worry about since we encode field by field.
const (
	infoOffPid         = 0
	infoOffPPid        = 4
	infoOffAlive       = 8
	infoOffThreadCount = 9
	infoOffMainTID     = 13
	infoOffArgLen      = 17
	infoHeaderSize     = 21
)

// procInfoCursor is spec §4.5's read-only cursor over the process table.
// Each read() call advances past FREE slots and returns one encoded
// record, or n=0 once the table is exhausted.
type procInfoCursor struct {
	k    *Kernel
	next Pid
}

// OpenInfo implements the OpenInfo syscall, returning a fresh handle in
// the calling thread's process.
func (k *Kernel) OpenInfo(self ThreadID) (FID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	c := &procInfoCursor{k: k}
	fids, ok := k.procOf(self).fds.reserve([]streamOps{c})
	if !ok {
		return NOFILE, false
	}
	return fids[0], true
}

func (c *procInfoCursor) read(buf []byte) (int, bool) {
	for int(c.next) < len(c.k.procs) {
		p := c.k.procs[c.next]
		c.next++
		if p == nil {
			continue
		}
		return copy(buf, encodeProcInfo(p, c.k.limits.ProcInfoMaxArgsSize)), true
	}
	return 0, true
}

func (c *procInfoCursor) write(buf []byte) (int, bool) { return 0, false }
func (c *procInfoCursor) closeStream() bool            { return true }

// encodeProcInfo formats one snapshot record: pid, ppid (NOPROC if none),
// an alive flag, thread count, main-thread handle, the argument length,
// and up to maxArgs decompressed argument bytes.
func encodeProcInfo(p *pcb, maxArgs int) []byte {
	args := p.args()
	if len(args) > maxArgs {
		args = args[:maxArgs]
	}

	rec := make([]byte, infoHeaderSize+len(args))
	binary.LittleEndian.PutUint32(rec[infoOffPid:], uint32(p.pid))
	ppid := NOPROC
	if p.parent != nil {
		ppid = p.parent.pid
	}
	binary.LittleEndian.PutUint32(rec[infoOffPPid:], uint32(ppid))
	if p.state == pcbAlive {
		rec[infoOffAlive] = 1
	}
	binary.LittleEndian.PutUint32(rec[infoOffThreadCount:], uint32(p.threadCount))
	binary.LittleEndian.PutUint32(rec[infoOffMainTID:], uint32(p.mainTID))
	binary.LittleEndian.PutUint32(rec[infoOffArgLen:], uint32(p.arglen))
	copy(rec[infoHeaderSize:], args)
	return rec
}
