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

// Package kernel implements the concurrency core and IPC fabric of a small
// educational operating system: processes with threads, ref-counted file
// handles, anonymous byte pipes, and stream sockets layered on pipes.
//
// Every exported operation serializes under a single kernel-wide mutex.
// Suspension points release that mutex and reacquire it on wakeup through
// CondVar, a channel-based condition variable — there is no preemption
// inside the kernel, only cooperative blocking at well-defined points.
//
// The preemptive thread scheduler, context switching and the low-level
// allocator are treated as external collaborators. This package ships a
// goroutine-backed Scheduler so the module is runnable and testable, but
// callers may supply their own implementation of the Scheduler interface.
package kernel
