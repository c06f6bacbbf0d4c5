// Package task implements cooperative multitasking for the kernel. A Task
// wraps a Future; the Executor polls futures whose tasks have been woken and
// parks the CPU when nothing is runnable.
package task

import "sync/atomic"

// ID uniquely identifies a task for the lifetime of the kernel.
type ID uint64

// nextTaskID holds the ID that will be assigned to the next task.
var nextTaskID uint64

// nextID returns a fresh task ID. IDs are handed out in strictly increasing
// order starting from 0 and are never reused.
func nextID() ID {
	return ID(atomic.AddUint64(&nextTaskID, 1) - 1)
}

// Poll is the result of polling a Future.
type Poll uint8

const (
	// Pending indicates that the future cannot make progress until its
	// waker is invoked.
	Pending Poll = iota

	// Ready indicates that the future has completed.
	Ready
)

// String implements fmt.Stringer.
func (p Poll) String() string {
	if p == Ready {
		return "ready"
	}
	return "pending"
}

// Context is passed to Future.Poll and carries the waker of the task that is
// being polled.
type Context struct {
	waker *Waker
}

// NewContext returns a Context that hands out w.
func NewContext(w *Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker for the task being polled. A future that returns
// Pending must arrange for this waker to be invoked once it can make
// progress; otherwise it is never polled again.
func (ctx *Context) Waker() *Waker {
	return ctx.waker
}

// Future is a resumable computation. Poll advances the computation as far as
// possible without blocking and reports whether it has completed. A future
// must not be polled again after it returns Ready.
type Future interface {
	Poll(ctx *Context) Poll
}

// FutureFunc adapts a plain function to the Future interface.
type FutureFunc func(ctx *Context) Poll

// Poll implements Future.
func (fn FutureFunc) Poll(ctx *Context) Poll {
	return fn(ctx)
}

// Task is a unit of cooperative work: an ID plus the future that it drives.
// The task holds its future through a reference, so the future stays at the
// same address across suspensions.
type Task struct {
	id     ID
	future Future
}

// New wraps f in a task with a fresh ID.
func New(f Future) *Task {
	return &Task{id: nextID(), future: f}
}

// ID returns the task ID.
func (t *Task) ID() ID {
	return t.id
}

// Poll resumes the task's future.
func (t *Task) Poll(ctx *Context) Poll {
	return t.future.Poll(ctx)
}
