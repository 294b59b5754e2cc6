/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package workerpool fans out goroutines for the concurrent load the
// pool package's tests and benchmarks drive Pool with. It is adapted
// from concurrency/gopool and used only from _test.go files — the
// core pool package has no dependency on it, by design: spec's
// concurrency contract is "whatever interleaving the caller's own
// goroutines produce", not anything this harness enforces.
package workerpool

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Option configures a Pool's worker lifecycle.
type Option struct {
	// MaxIdleWorkers is the max number of workers kept around waiting
	// for tasks; a worker started beyond this count exits as soon as
	// the queue is empty.
	MaxIdleWorkers int

	// WorkerMaxAge is the max age of an idle worker before it exits.
	WorkerMaxAge time.Duration

	// TaskChanBuffer is the task queue length; once full, Go falls
	// back to spawning a goroutine directly instead of queueing.
	TaskChanBuffer int
}

// DefaultOption returns reasonable defaults for stress-test fan-out.
func DefaultOption() *Option {
	return &Option{
		MaxIdleWorkers: 256,
		WorkerMaxAge:   time.Minute,
		TaskChanBuffer: 256,
	}
}

type task struct {
	ctx context.Context
	f   func()
}

// Pool is a simple worker pool managing goroutines for background
// tasks — used here to spawn the many concurrent goroutines spec's
// §8 stress scenario requires, without the test itself needing to
// reason about worker lifetimes.
type Pool struct {
	name string

	workers int32
	maxIdle int32
	maxage  int64 // milliseconds

	panicHandler func(ctx context.Context, r interface{})

	tasks     chan task
	pending   int32 // tasks submitted but not yet finished running
	unixMilli int64 // 0 when no aging ticker is currently running
}

// New creates a new Pool. A nil Option uses DefaultOption.
func New(name string, o *Option) *Pool {
	if o == nil {
		o = DefaultOption()
	}
	return &Pool{
		name:    name,
		tasks:   make(chan task, o.TaskChanBuffer),
		maxage:  o.WorkerMaxAge.Milliseconds(),
		maxIdle: int32(o.MaxIdleWorkers),
	}
}

// Go runs f in the background.
func (p *Pool) Go(f func()) {
	p.CtxGo(context.Background(), f)
}

// CtxGo runs f in the background, passing ctx to the panic handler if
// f panics.
func (p *Pool) CtxGo(ctx context.Context, f func()) {
	atomic.AddInt32(&p.pending, 1)
	select {
	case p.tasks <- task{ctx: ctx, f: f}:
	default:
		// queue full: fall back to a direct goroutine
		go p.runTask(ctx, f)
		return
	}
	if len(p.tasks) == 0 {
		return
	}
	go p.runWorker()
}

// SetPanicHandler overrides the default log.Printf-based handler.
func (p *Pool) SetPanicHandler(f func(ctx context.Context, r interface{})) {
	p.panicHandler = f
}

func (p *Pool) runTask(ctx context.Context, f func()) {
	defer atomic.AddInt32(&p.pending, -1)
	defer func() {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(ctx, r)
			} else {
				log.Printf("workerpool: panic in pool %s: %v: %s", p.name, r, debug.Stack())
			}
		}
	}()
	f()
}

// CurrentWorkers returns the number of goroutines currently running.
func (p *Pool) CurrentWorkers() int {
	return int(atomic.LoadInt32(&p.workers))
}

func (p *Pool) runWorker() {
	id := atomic.AddInt32(&p.workers, 1)
	defer atomic.AddInt32(&p.workers, -1)

	if id > p.maxIdle {
		for {
			select {
			case t := <-p.tasks:
				p.runTask(t.ctx, t.f)
			default:
				return
			}
		}
	}

	createdAt := time.Now().UnixMilli()
	for t := range p.tasks {
		p.runTask(t.ctx, t.f)

		now := atomic.LoadInt64(&p.unixMilli)
		if now == 0 {
			now = time.Now().UnixMilli()
			if atomic.CompareAndSwapInt64(&p.unixMilli, 0, now) {
				go p.runTicker()
			}
		}
		if now-createdAt > p.maxage {
			return
		}
	}
}

// noopTask wakes an idle worker up so it can re-check its own age
// without ever being handed real work.
var noopTask = task{f: func() {}}

func (p *Pool) runTicker() {
	defer atomic.StoreInt64(&p.unixMilli, 0)

	d := time.Duration(p.maxage) * time.Millisecond / 100
	if d < time.Millisecond {
		d = time.Millisecond
	}

	t := time.NewTicker(d)
	defer t.Stop()

	for now := range t.C {
		if p.CurrentWorkers() == 0 {
			return
		}
		atomic.StoreInt64(&p.unixMilli, now.UnixMilli())
		atomic.AddInt32(&p.pending, 1)
		p.tasks <- noopTask
	}
}

// Wait blocks until every task submitted so far — including ones that
// fell back to a direct goroutine under queue pressure — has finished
// running. Intended for tests that need a barrier after fanning out a
// fixed batch of work.
func (p *Pool) Wait() {
	for atomic.LoadInt32(&p.pending) > 0 {
		time.Sleep(time.Millisecond)
	}
}
