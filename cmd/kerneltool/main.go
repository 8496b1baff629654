// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// kerneltool drives the kernel package interactively, the way kcptun's
// client/server main.go drive a tunnel: a urfave/cli app whose
// subcommands exercise one corner of the syscall surface each and report
// what happened in color.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/kerneltun/kernel"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "kerneltool"
	myApp.Usage = "exercise the kernel package's syscall surface"
	myApp.Version = VERSION
	myApp.Commands = []cli.Command{
		{
			Name:   "pipe-demo",
			Usage:  "boot a kernel, write and read through a pipe across two threads",
			Action: pipeDemo,
		},
		{
			Name:   "thread-demo",
			Usage:  "spawn a thread, join it, and print its exit value",
			Action: threadDemo,
		},
		{
			Name:   "socket-demo",
			Usage:  "listen, connect and accept, then exchange a ping/pong",
			Action: socketDemo,
		},
		{
			Name:   "procinfo-dump",
			Usage:  "boot a kernel and dump the process table via OpenInfo",
			Action: procInfoDump,
		},
	}

	if err := myApp.Run(os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func pipeDemo(c *cli.Context) error {
	k := kernel.New(kernel.DefaultLimits(), nil)
	k.Boot()

	done := make(chan int, 1)
	_, ok := k.Exec(k.IdleThread(), func(self kernel.ThreadID, _ []byte) int {
		rfid, wfid, ok := k.Pipe(self)
		if !ok {
			done <- 1
			return 1
		}

		reader, _ := k.CreateThread(self, func(rself kernel.ThreadID, _ []byte) int {
			buf := make([]byte, 16)
			n, ok := k.Read(rself, rfid, buf)
			fmt.Printf("read %d bytes, ok=%v: %q\n", n, ok, buf[:n])
			return n
		}, nil)

		n, ok := k.Write(self, wfid, []byte("ping"))
		color.Green("wrote %d bytes, ok=%v", n, ok)
		k.Close(self, wfid)
		k.ThreadJoin(self, reader)
		k.Close(self, rfid)
		done <- 0
		return 0
	}, nil)
	if !ok {
		return errors.New("exec failed")
	}
	<-done
	return nil
}

func threadDemo(c *cli.Context) error {
	k := kernel.New(kernel.DefaultLimits(), nil)
	k.Boot()

	done := make(chan int, 1)
	k.Exec(k.IdleThread(), func(self kernel.ThreadID, _ []byte) int {
		tid, ok := k.CreateThread(self, func(_ kernel.ThreadID, _ []byte) int { return 42 }, nil)
		if !ok {
			done <- 1
			return 1
		}
		exitval, ok := k.ThreadJoin(self, tid)
		color.Green("joined thread %d: exitval=%d ok=%v", tid, exitval, ok)
		done <- 0
		return 0
	}, nil)
	<-done
	return nil
}

func socketDemo(c *cli.Context) error {
	k := kernel.New(kernel.DefaultLimits(), nil)
	k.Boot()

	const port = 100
	done := make(chan int, 2)

	k.Exec(k.IdleThread(), func(self kernel.ThreadID, _ []byte) int {
		sfid, _ := k.Socket(self, port)
		k.Listen(self, sfid)
		srv, ok := k.Accept(self, sfid)
		if !ok {
			done <- 1
			return 1
		}
		buf := make([]byte, 4)
		n, _ := k.Read(self, srv, buf)
		color.Cyan("server read %q", buf[:n])
		k.Write(self, srv, []byte("pong"))
		done <- 0
		return 0
	}, nil)

	time.Sleep(10 * time.Millisecond)

	k.Exec(k.IdleThread(), func(self kernel.ThreadID, _ []byte) int {
		cfid, _ := k.Socket(self, kernel.NOPORT)
		if !k.Connect(self, cfid, port, -1) {
			done <- 1
			return 1
		}
		k.Write(self, cfid, []byte("ping"))
		buf := make([]byte, 4)
		n, _ := k.Read(self, cfid, buf)
		color.Cyan("client read %q", buf[:n])
		done <- 0
		return 0
	}, nil)

	<-done
	<-done
	return nil
}

func procInfoDump(c *cli.Context) error {
	k := kernel.New(kernel.DefaultLimits(), nil)
	k.Boot()

	done := make(chan int, 1)
	k.Exec(k.IdleThread(), func(self kernel.ThreadID, _ []byte) int {
		fid, ok := k.OpenInfo(self)
		if !ok {
			done <- 1
			return 1
		}
		buf := make([]byte, 512)
		for {
			n, ok := k.Read(self, fid, buf)
			if !ok || n == 0 {
				break
			}
			fmt.Printf("record: % x\n", buf[:n])
		}
		k.Close(self, fid)
		done <- 0
		return 0
	}, nil)
	<-done
	return nil
}

