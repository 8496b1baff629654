package kernel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Snmp accumulates kernel-wide counters, grounded on kcp-go's DefaultSnmp
// (Header/ToSlice pattern) and wired to a CSV logger in the same shape as
// std/snmp.go's SnmpLogger. Every field is only ever touched while the
// Kernel's mutex is held, so no atomics are needed.
type Snmp struct {
	pipesCreated     uint64
	bytesPipedTotal  uint64
	processesCreated uint64
	zombiesReaped    uint64
	threadsCreated   uint64
	threadsJoined    uint64
	threadsExited    uint64
	socketsBound     uint64
	socketsAccepted  uint64
	connectTimeouts  uint64
	connectRefused   uint64
}

func newSnmp() *Snmp { return &Snmp{} }

func (s *Snmp) Header() []string {
	return []string{
		"PipesCreated", "BytesPipedTotal", "ProcessesCreated", "ZombiesReaped",
		"ThreadsCreated", "ThreadsJoined", "ThreadsExited",
		"SocketsBound", "SocketsAccepted", "ConnectTimeouts", "ConnectRefused",
	}
}

func (s *Snmp) ToSlice() []string {
	return []string{
		fmt.Sprint(s.pipesCreated), fmt.Sprint(s.bytesPipedTotal), fmt.Sprint(s.processesCreated), fmt.Sprint(s.zombiesReaped),
		fmt.Sprint(s.threadsCreated), fmt.Sprint(s.threadsJoined), fmt.Sprint(s.threadsExited),
		fmt.Sprint(s.socketsBound), fmt.Sprint(s.socketsAccepted), fmt.Sprint(s.connectTimeouts), fmt.Sprint(s.connectRefused),
	}
}

// Snapshot returns a point-in-time copy of every counter, keyed by the
// same names Header() reports, for callers that want the numbers without
// parsing CSV.
func (k *Kernel) Snapshot() map[string]uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.metrics
	return map[string]uint64{
		"PipesCreated":     s.pipesCreated,
		"BytesPipedTotal":  s.bytesPipedTotal,
		"ProcessesCreated": s.processesCreated,
		"ZombiesReaped":    s.zombiesReaped,
		"ThreadsCreated":   s.threadsCreated,
		"ThreadsJoined":    s.threadsJoined,
		"ThreadsExited":    s.threadsExited,
		"SocketsBound":     s.socketsBound,
		"SocketsAccepted":  s.socketsAccepted,
		"ConnectTimeouts":  s.connectTimeouts,
		"ConnectRefused":   s.connectRefused,
	}
}

// StartSnmpLogger periodically appends a CSV snapshot of k's metrics to
// path, exactly as std/snmp.go's SnmpLogger does for kcp.DefaultSnmp: the
// same filepath.Split/strftime-style filename formatting, the same
// header-on-first-write behavior, the same csv.Writer/time.Ticker
// machinery. It runs until the returned stop function is called.
func (k *Kernel) StartSnmpLogger(path string, intervalSeconds int) (stop func()) {
	if path == "" || intervalSeconds == 0 {
		return func() {}
	}
	done := make(chan struct{})
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				k.writeSnmpRecord(path)
			}
		}
	}()

	return func() { close(done) }
}

func (k *Kernel) writeSnmpRecord(path string) {
	logdir, logfile := filepath.Split(path)
	f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Println(err)
		return
	}
	defer f.Close()

	k.mu.Lock()
	row := append([]string{fmt.Sprint(time.Now().Unix())}, k.metrics.ToSlice()...)
	header := k.metrics.Header()
	k.mu.Unlock()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"Unix"}, header...)); err != nil {
			log.Println(err)
		}
	}
	if err := w.Write(row); err != nil {
		log.Println(err)
	}
	w.Flush()
}
