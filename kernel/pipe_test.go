package kernel

import (
	"bytes"
	"testing"
	"time"
)

// TestPipeLoopback is spec §8 scenario 1.
func TestPipeLoopback(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		rfid, wfid, ok := k.Pipe(self)
		if !ok {
			t.Fatalf("Pipe failed")
		}

		readerDone := make(chan struct{})
		var n1 int
		var buf1 [10]byte
		reader, _ := k.CreateThread(self, func(rself ThreadID, _ []byte) int {
			n1, _ = k.Read(rself, rfid, buf1[:])
			close(readerDone)
			return 0
		}, nil)

		n, ok := k.Write(self, wfid, []byte{0x41, 0x42, 0x43, 0x44})
		if !ok || n != 4 {
			t.Fatalf("write = %d, %v; want 4, true", n, ok)
		}
		<-readerDone
		k.ThreadJoin(self, reader)

		if n1 != 4 || !bytes.Equal(buf1[:4], []byte{0x41, 0x42, 0x43, 0x44}) {
			t.Fatalf("read = %d %v; want 4 [41 42 43 44]", n1, buf1[:n1])
		}

		if ok := k.Close(self, wfid); !ok {
			t.Fatalf("close writer failed")
		}
		buf2 := make([]byte, 10)
		n2, ok := k.Read(self, rfid, buf2)
		if !ok || n2 != 0 {
			t.Fatalf("post-close read = %d, %v; want 0, true", n2, ok)
		}
		k.Close(self, rfid)
		return 0
	})
}

// TestPipeBlocksThenDrains is spec §8 scenario 2.
func TestPipeBlocksThenDrains(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		rfid, wfid, ok := k.Pipe(self)
		if !ok {
			t.Fatalf("Pipe failed")
		}

		payload := bytes.Repeat([]byte{0xAA}, 600)
		writeDone := make(chan int, 1)
		writer, _ := k.CreateThread(self, func(wself ThreadID, _ []byte) int {
			n, _ := k.Write(wself, wfid, payload)
			writeDone <- n
			return n
		}, nil)

		// give the writer a chance to fill the 512-byte buffer and block
		time.Sleep(20 * time.Millisecond)

		first := make([]byte, 200)
		n, ok := k.Read(self, rfid, first)
		if !ok || n != 200 {
			t.Fatalf("first read = %d, %v; want 200, true", n, ok)
		}

		rest := make([]byte, 400)
		total := 0
		for total < 400 {
			n, ok := k.Read(self, rfid, rest[total:])
			if !ok {
				t.Fatalf("drain read failed")
			}
			total += n
		}

		written := <-writeDone
		k.ThreadJoin(self, writer)
		if written != 600 {
			t.Fatalf("writer delivered %d bytes; want 600", written)
		}
		k.Close(self, wfid)
		k.Close(self, rfid)
		return 0
	})
}

// TestPipeWriteExactCapacityDoesNotBlock covers spec §8's boundary
// behavior: writing exactly B bytes succeeds without the writer ever
// suspending, as long as the reader doesn't need to intervene.
func TestPipeWriteExactCapacityDoesNotBlock(t *testing.T) {
	k := newTestKernel(t)

	runInNewProcess(t, k, func(self ThreadID, _ []byte) int {
		rfid, wfid, ok := k.Pipe(self)
		if !ok {
			t.Fatalf("Pipe failed")
		}
		payload := bytes.Repeat([]byte{0x01}, 512)

		result := make(chan int, 1)
		go func() {
			n, _ := k.Write(self, wfid, payload)
			result <- n
		}()

		select {
		case n := <-result:
			if n != 512 {
				t.Fatalf("wrote %d bytes; want 512", n)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("write of exactly B bytes blocked")
		}
		k.Close(self, wfid)
		k.Close(self, rfid)
		return 0
	})
}
