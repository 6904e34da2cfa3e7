package xpcom

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultQueueDepth is the initial main thread queue capacity used when
// none is given.
const DefaultQueueDepth = 256

// MainThread is the designated execution context for work that must not
// run on arbitrary goroutines, such as releasing certain native objects.
// Tasks run one at a time in submission order. Dispatch never blocks, so
// a task may queue further tasks, as when one release triggers another.
type MainThread struct {
	cond    *sync.Cond
	pending []func()
	done    chan struct{}
	onPanic func(any)
	ran     atomic.Uint64
	depth   int
	mu      sync.Mutex
	closed  bool
	stopped bool
}

// NewMainThread starts a main thread whose queue starts with room for
// depth tasks and grows past it. onPanic, if set, receives values
// recovered from panicking tasks.
func NewMainThread(depth int, onPanic func(any)) *MainThread {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	t := &MainThread{
		pending: make([]func(), 0, depth),
		done:    make(chan struct{}),
		onPanic: onPanic,
		depth:   depth,
	}
	t.cond = sync.NewCond(&t.mu)
	go t.loop()
	return t
}

func (t *MainThread) loop() {
	defer close(t.done)
	spare := make([]func(), 0, t.depth)
	for {
		t.mu.Lock()
		for len(t.pending) == 0 && !t.closed {
			t.cond.Wait()
		}
		if len(t.pending) == 0 {
			t.stopped = true
			t.mu.Unlock()
			return
		}
		batch := t.pending
		t.pending = spare[:0]
		t.mu.Unlock()

		for i, fn := range batch {
			t.run(fn)
			batch[i] = nil
		}
		spare = batch
	}
}

func (t *MainThread) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && t.onPanic != nil {
			t.onPanic(r)
		}
	}()
	fn()
	t.ran.Add(1)
}

// Dispatch queues fn. After Close has drained the queue, fn runs on the
// caller instead.
func (t *MainThread) Dispatch(fn func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		t.run(fn)
		return
	}
	t.pending = append(t.pending, fn)
	t.mu.Unlock()
	t.cond.Signal()
}

// ProxyRelease releases obj on the main thread.
func (t *MainThread) ProxyRelease(obj Object) {
	if obj == nil {
		return
	}
	t.Dispatch(func() { obj.Release() })
}

// Flush waits until every task queued before the call has run.
func (t *MainThread) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	t.Dispatch(func() { close(marker) })
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completed returns the number of tasks that have run to completion.
func (t *MainThread) Completed() uint64 {
	return t.ran.Load()
}

// Close stops accepting queued work and waits for the queue to drain.
// Tasks queued by draining tasks still run on the main thread.
func (t *MainThread) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cond.Broadcast()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
