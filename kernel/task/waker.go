package task

import (
	"gopherkern/kernel/sync"
	"sync/atomic"
)

// The wake state of a task. Only the transitions idle->queued (Wake),
// queued->idle (executor picks the task up) and any->done (task completed)
// are allowed.
const (
	stateIdle uint32 = iota
	stateQueued
	stateDone
)

// Waker schedules a task for polling. Wake may be called from interrupt
// handlers: it never blocks and never allocates.
//
// The zero Waker is a no-op waker.
type Waker struct {
	taskID ID
	queue  *sync.Queue
	state  uint32
}

func newWaker(taskID ID, queue *sync.Queue) *Waker {
	return &Waker{taskID: taskID, queue: queue, state: stateIdle}
}

// TaskID returns the ID of the task that this waker schedules.
func (w *Waker) TaskID() ID {
	return w.taskID
}

// Wake pushes the task ID to the executor's task queue. Waking a task that
// is already queued or that has already completed has no effect. A full task
// queue would lose the wake-up of a live task, so it halts the kernel.
func (w *Waker) Wake() {
	if w == nil || w.queue == nil {
		return
	}

	if !atomic.CompareAndSwapUint32(&w.state, stateIdle, stateQueued) {
		return
	}

	if !w.queue.Push(uint64(w.taskID)) {
		atomic.CompareAndSwapUint32(&w.state, stateQueued, stateIdle)
		panicFn(errTaskQueueFull)
	}
}

// markQueued is called when the executor enqueues the task itself.
func (w *Waker) markQueued() {
	atomic.StoreUint32(&w.state, stateQueued)
}

// markIdle is called right before the task is polled so that wake-ups that
// arrive while the task runs schedule it again.
func (w *Waker) markIdle() {
	atomic.CompareAndSwapUint32(&w.state, stateQueued, stateIdle)
}

// markDone turns every future wake-up into a no-op.
func (w *Waker) markDone() {
	atomic.StoreUint32(&w.state, stateDone)
}

// AtomicWaker is a single waker slot shared between a future (which
// registers the waker of the task polling it) and an interrupt handler
// (which wakes it). The zero value is ready to use.
type AtomicWaker struct {
	waker atomic.Pointer[Waker]
}

// Register stores w, replacing any previously registered waker.
func (aw *AtomicWaker) Register(w *Waker) {
	aw.waker.Store(w)
}

// Take removes and returns the registered waker, or nil if none is
// registered.
func (aw *AtomicWaker) Take() *Waker {
	return aw.waker.Swap(nil)
}

// Wake wakes and removes the registered waker, if any.
func (aw *AtomicWaker) Wake() {
	if w := aw.Take(); w != nil {
		w.Wake()
	}
}

// Yield returns a future that suspends the calling task once: the first poll
// wakes the task and returns Pending, the second returns Ready.
func Yield() Future {
	yielded := false
	return FutureFunc(func(ctx *Context) Poll {
		if yielded {
			return Ready
		}

		yielded = true
		ctx.Waker().Wake()
		return Pending
	})
}
