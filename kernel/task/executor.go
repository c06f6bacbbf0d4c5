package task

import (
	"gopherkern/kernel"
	"gopherkern/kernel/cpu"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/sync"
)

// TaskQueueCapacity is the number of task IDs that can be waiting for a
// poll at any time.
const TaskQueueCapacity = 100

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	disableInterruptsFn       = cpu.DisableInterrupts
	enableInterruptsFn        = cpu.EnableInterrupts
	enableInterruptsAndHaltFn = cpu.EnableInterruptsAndHalt
	panicFn                   = kfmt.Panic

	errDuplicateTaskID = &kernel.Error{Module: "task", Message: "task with same ID already in tasks"}
	errTaskQueueFull   = &kernel.Error{Module: "task", Message: "task queue full"}
)

// Executor runs tasks cooperatively. Tasks are polled in the order in which
// they were woken; a task that returns Pending is not polled again until its
// waker fires.
type Executor struct {
	tasks  map[ID]*Task
	wakers map[ID]*Waker
	queue  *sync.Queue
}

// NewExecutor returns an executor with an empty task registry.
func NewExecutor() *Executor {
	return &Executor{
		tasks:  make(map[ID]*Task),
		wakers: make(map[ID]*Waker),
		queue:  sync.NewQueue(TaskQueueCapacity),
	}
}

// Spawn registers t and schedules it for its first poll. Spawning a task
// whose ID is already registered or spawning into a full task queue halts
// the kernel.
func (e *Executor) Spawn(t *Task) {
	if _, exists := e.tasks[t.id]; exists {
		panicFn(errDuplicateTaskID)
		return
	}

	if !e.queue.Push(uint64(t.id)) {
		panicFn(errTaskQueueFull)
		return
	}

	waker := newWaker(t.id, e.queue)
	waker.markQueued()
	e.tasks[t.id] = t
	e.wakers[t.id] = waker
}

// Len returns the number of tasks that have not completed yet.
func (e *Executor) Len() int {
	return len(e.tasks)
}

// Run polls tasks forever, halting the CPU whenever no task is ready.
func (e *Executor) Run() {
	for {
		e.RunReady()
		e.sleepIfIdle()
	}
}

// RunReady polls every queued task until the task queue is empty. Tasks
// woken while RunReady runs are polled in the same call.
func (e *Executor) RunReady() {
	for {
		v, ok := e.queue.Pop()
		if !ok {
			return
		}

		taskID := ID(v)
		t, exists := e.tasks[taskID]
		if !exists {
			// task no longer exists
			continue
		}

		waker := e.wakers[taskID]
		waker.markIdle()

		ctx := Context{waker: waker}
		if t.Poll(&ctx) == Ready {
			waker.markDone()
			delete(e.tasks, taskID)
			delete(e.wakers, taskID)
		}
	}
}

// RunUntilIdle polls tasks until none is ready and returns the number of
// tasks that are still waiting to be woken.
func (e *Executor) RunUntilIdle() int {
	e.RunReady()
	return len(e.tasks)
}

// sleepIfIdle halts the CPU until the next interrupt if the task queue is
// empty. Interrupts are disabled while checking the queue; otherwise an
// interrupt that wakes a task between the check and the halt would leave the
// CPU asleep with work pending.
func (e *Executor) sleepIfIdle() {
	disableInterruptsFn()
	if e.queue.Empty() {
		enableInterruptsAndHaltFn()
		return
	}
	enableInterruptsFn()
}
