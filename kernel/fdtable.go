package kernel

// streamOps is the per-handle operation vector spec §6's file-handle
// interface describes: "each FCB carries a pointer to a stream object plus
// a function vector {open, read, write, close}". Pipes, peer sockets and
// the process-info cursor all implement it, so the dispatch glue (spec's
// Component Design table, "Stream dispatch glue") binds one shape
// regardless of which subsystem owns the handle — grounded on smux
// dispatching stream.Read/.Write/.Close identically no matter which
// Session a stream belongs to.
//
// A method that always fails on a given implementation stands in for
// spec §6's "nulls mean unsupported on this half" (e.g. a pipe's read end
// never supports write).
type streamOps interface {
	read(buf []byte) (n int, ok bool)
	write(buf []byte) (n int, ok bool)
	closeStream() (ok bool)
}

// fcb is a file control block: a refcounted handle onto a stream object,
// spec §3/§6. Unlike a process's fd table, an fcb is shared: exec
// inheritance points a child's fd table entry at the very same fcb its
// parent has open and bumps this refcount, exactly as spec §4.3 describes
// ("each inherited handle has its refcount incremented").
type fcb struct {
	ops      streamOps
	refcount int
}

// fdTable is one process's fixed-width file-descriptor table, spec §3's
// PCB attribute "a fixed-width file-descriptor table of size MAX_FILEID".
// It is grounded on smux's Allocator (alloc.go) — a fixed table of
// reusable slots — generalized from pooled byte buffers to file
// descriptor entries. All methods run under the kernel's single mutex, so
// fdTable needs no lock of its own.
type fdTable struct {
	slots []*fcb
	free  []FID
}

func newFDTable(maxFileID int) *fdTable {
	t := &fdTable{slots: make([]*fcb, maxFileID)}
	t.free = make([]FID, maxFileID)
	for i := 0; i < maxFileID; i++ {
		t.free[maxFileID-1-i] = FID(i)
	}
	return t
}

// reserve atomically allocates len(ops) fresh fids in this table, each
// backed by a brand-new fcb with refcount 1. It fails without mutating
// the table if not enough fids are free.
func (t *fdTable) reserve(ops []streamOps) (fids []FID, ok bool) {
	if len(t.free) < len(ops) {
		return nil, false
	}
	fids = make([]FID, len(ops))
	for i, o := range ops {
		fid := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.slots[fid] = &fcb{ops: o, refcount: 1}
		fids[i] = fid
	}
	return fids, true
}

// inherit copies every occupied slot of src into t at the same fid,
// sharing the underlying fcb and incrementing its refcount — the
// fork-style fd table duplication spec §4.3's Exec performs. t must be a
// freshly created, empty table of at least the same size.
func (t *fdTable) inherit(src *fdTable) {
	for fid, f := range src.slots {
		if f == nil {
			continue
		}
		t.slots[fid] = f
		f.refcount++
		t.removeFree(FID(fid))
	}
}

func (t *fdTable) removeFree(fid FID) {
	for i, f := range t.free {
		if f == fid {
			t.free = append(t.free[:i], t.free[i+1:]...)
			return
		}
	}
}

// get returns the fcb at fid in this table, or nil if fid is out of range
// or unoccupied.
func (t *fdTable) get(fid FID) *fcb {
	if fid < 0 || int(fid) >= len(t.slots) {
		return nil
	}
	return t.slots[fid]
}

// closeFID drops this table's reference to fid. When the underlying fcb's
// refcount reaches zero (no other process's fd table still shares it) the
// stream is closed. Returns false if fid is not open in this table.
func (t *fdTable) closeFID(fid FID) bool {
	f := t.get(fid)
	if f == nil {
		return false
	}
	t.slots[fid] = nil
	t.free = append(t.free, fid)

	f.refcount--
	if f.refcount == 0 {
		f.ops.closeStream()
	}
	return true
}
