package task

import (
	"bytes"
	"gopherkern/kernel/cpu"
	"gopherkern/kernel/kfmt"
	"strings"
	gosync "sync"
	"testing"
)

func TestNextID(t *testing.T) {
	prev := New(FutureFunc(func(*Context) Poll { return Ready })).ID()
	for i := 0; i < 1000; i++ {
		id := New(FutureFunc(func(*Context) Poll { return Ready })).ID()
		if id <= prev {
			t.Fatalf("expected task IDs to be strictly increasing; got %d after %d", id, prev)
		}
		prev = id
	}

	t.Run("concurrent", func(t *testing.T) {
		var (
			wg   gosync.WaitGroup
			mu   gosync.Mutex
			seen = make(map[ID]bool)
		)

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					id := nextID()
					mu.Lock()
					if seen[id] {
						t.Errorf("task ID %d handed out twice", id)
					}
					seen[id] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	})
}

// suspendOnce returns a future that parks on its first poll, exposing its
// waker through wakerOut, and completes on the next poll.
func suspendOnce(name string, log *[]string, wakerOut **Waker) Future {
	polled := false
	return FutureFunc(func(ctx *Context) Poll {
		if !polled {
			polled = true
			*wakerOut = ctx.Waker()
			*log = append(*log, name+":pending")
			return Pending
		}

		*log = append(*log, name+":ready")
		return Ready
	})
}

func immediate(name string, log *[]string) Future {
	return FutureFunc(func(*Context) Poll {
		*log = append(*log, name+":ready")
		return Ready
	})
}

func TestExecutorRunsTasksToCompletion(t *testing.T) {
	var (
		log    []string
		waker  *Waker
		exec   = NewExecutor()
		parked = New(suspendOnce("parked", &log, &waker))
	)

	exec.Spawn(New(immediate("first", &log)))
	exec.Spawn(parked)
	exec.Spawn(New(immediate("second", &log)))

	if pending := exec.RunUntilIdle(); pending != 1 {
		t.Fatalf("expected 1 task waiting for a wake-up; got %d", pending)
	}

	exp := "first:ready parked:pending second:ready"
	if got := strings.Join(log, " "); got != exp {
		t.Fatalf("expected poll order %q; got %q", exp, got)
	}

	// Running again without a wake-up must not poll the parked task.
	exec.RunUntilIdle()
	if got := strings.Join(log, " "); got != exp {
		t.Fatalf("expected parked task not to be polled before its wake-up; got %q", got)
	}

	if waker.TaskID() != parked.ID() {
		t.Fatalf("expected waker for task %d; got %d", parked.ID(), waker.TaskID())
	}

	waker.Wake()
	if pending := exec.RunUntilIdle(); pending != 0 {
		t.Fatalf("expected all tasks to be complete; %d remaining", pending)
	}

	exp += " parked:ready"
	if got := strings.Join(log, " "); got != exp {
		t.Fatalf("expected poll order %q; got %q", exp, got)
	}
}

func TestExecutorStaleAndDuplicateWakes(t *testing.T) {
	var (
		log   []string
		waker *Waker
		exec  = NewExecutor()
	)

	exec.Spawn(New(suspendOnce("task", &log, &waker)))
	exec.RunUntilIdle()

	// Duplicate wake-ups enqueue the task once.
	waker.Wake()
	waker.Wake()
	waker.Wake()
	if got := exec.queue.Len(); got != 1 {
		t.Fatalf("expected duplicate wake-ups to enqueue the task once; queue length %d", got)
	}

	exec.RunUntilIdle()
	if exec.Len() != 0 {
		t.Fatal("expected task to be complete")
	}

	// The task is gone; waking it must have no observable effect.
	waker.Wake()
	if !exec.queue.Empty() {
		t.Fatal("expected stale wake-up not to enqueue anything")
	}

	exec.RunUntilIdle()
	if exp, got := "task:pending task:ready", strings.Join(log, " "); got != exp {
		t.Fatalf("expected poll log %q; got %q", exp, got)
	}
}

func TestExecutorSkipsUnknownIDs(t *testing.T) {
	var log []string
	exec := NewExecutor()

	exec.queue.Push(0xbadf00d)
	exec.Spawn(New(immediate("task", &log)))

	exec.RunReady()
	if exp, got := "task:ready", strings.Join(log, " "); got != exp {
		t.Fatalf("expected poll log %q; got %q", exp, got)
	}
}

func TestExecutorWakeDuringPoll(t *testing.T) {
	var (
		polls int
		exec  = NewExecutor()
	)

	// The task wakes itself while running; it must be polled again.
	exec.Spawn(New(FutureFunc(func(ctx *Context) Poll {
		polls++
		if polls < 3 {
			ctx.Waker().Wake()
			return Pending
		}
		return Ready
	})))

	if pending := exec.RunUntilIdle(); pending != 0 || polls != 3 {
		t.Fatalf("expected the task to complete after 3 polls; got %d polls, %d pending tasks", polls, pending)
	}

	// Yield behaves the same way.
	exec.Spawn(New(Yield()))
	if pending := exec.RunUntilIdle(); pending != 0 {
		t.Fatalf("expected Yield to complete; %d tasks pending", pending)
	}
}

func TestExecutorSpawnErrors(t *testing.T) {
	defer func() { panicFn = kfmt.Panic }()

	var panicErr interface{}
	panicFn = func(e interface{}) { panicErr = e }

	t.Run("duplicate ID", func(t *testing.T) {
		panicErr = nil
		exec := NewExecutor()
		dup := New(Yield())

		exec.Spawn(dup)
		exec.Spawn(dup)

		if panicErr != errDuplicateTaskID {
			t.Fatalf("expected kernel panic with errDuplicateTaskID; got %v", panicErr)
		}

		if exec.Len() != 1 {
			t.Fatalf("expected 1 registered task; got %d", exec.Len())
		}
	})

	t.Run("queue full", func(t *testing.T) {
		panicErr = nil
		exec := NewExecutor()

		for i := 0; i < TaskQueueCapacity; i++ {
			exec.Spawn(New(Yield()))
		}

		if panicErr != nil {
			t.Fatalf("unexpected kernel panic: %v", panicErr)
		}

		exec.Spawn(New(Yield()))
		if panicErr != errTaskQueueFull {
			t.Fatalf("expected kernel panic with errTaskQueueFull; got %v", panicErr)
		}

		if exp := TaskQueueCapacity; exec.Len() != exp {
			t.Fatalf("expected %d registered tasks; got %d", exp, exec.Len())
		}
	})
}

func TestWakeWithFullQueue(t *testing.T) {
	defer func() {
		panicFn = kfmt.Panic
		kfmt.SetOutputSink(nil)
	}()

	var (
		buf      bytes.Buffer
		panicErr interface{}
		wakers   [TaskQueueCapacity + 1]*Waker
		exec     = NewExecutor()
	)
	kfmt.SetOutputSink(&buf)
	panicFn = func(e interface{}) { panicErr = e }

	for i := range wakers {
		exec.tasks[ID(i)] = New(Yield())
		wakers[i] = newWaker(ID(i), exec.queue)
		exec.wakers[ID(i)] = wakers[i]
	}

	for _, w := range wakers[:TaskQueueCapacity] {
		w.Wake()
	}

	if panicErr != nil {
		t.Fatalf("unexpected kernel panic while the queue had room: %v", panicErr)
	}

	// Losing the wake-up of a live task is fatal.
	wakers[TaskQueueCapacity].Wake()
	if panicErr != errTaskQueueFull {
		t.Fatalf("expected a kernel panic with errTaskQueueFull; got %v", panicErr)
	}

	// Wake runs in interrupt context and must not write to the console.
	if buf.Len() != 0 {
		t.Fatalf("expected Wake not to produce any output; got %q", buf.String())
	}

	// With the panic mocked out the waker is left idle, so it can be
	// woken again once there is room.
	exec.queue.Pop()
	wakers[TaskQueueCapacity].Wake()
	if got := exec.queue.Len(); got != TaskQueueCapacity {
		t.Fatalf("expected retried wake-up to be queued; queue length %d", got)
	}
}

func TestSleepIfIdle(t *testing.T) {
	defer func() {
		disableInterruptsFn = cpu.DisableInterrupts
		enableInterruptsFn = cpu.EnableInterrupts
		enableInterruptsAndHaltFn = cpu.EnableInterruptsAndHalt
	}()

	var calls []string
	disableInterruptsFn = func() { calls = append(calls, "cli") }
	enableInterruptsFn = func() { calls = append(calls, "sti") }
	enableInterruptsAndHaltFn = func() { calls = append(calls, "sti;hlt") }

	exec := NewExecutor()
	exec.sleepIfIdle()
	if exp, got := "cli sti;hlt", strings.Join(calls, " "); got != exp {
		t.Fatalf("expected idle executor to halt: %q; got %q", exp, got)
	}

	calls = calls[:0]
	exec.Spawn(New(Yield()))
	exec.sleepIfIdle()
	if exp, got := "cli sti", strings.Join(calls, " "); got != exp {
		t.Fatalf("expected busy executor not to halt: %q; got %q", exp, got)
	}
}

func TestSimpleExecutor(t *testing.T) {
	var (
		log   []string
		waker *Waker
		exec  = NewSimpleExecutor()
	)

	exec.Spawn(New(suspendOnce("parked", &log, &waker)))
	exec.Spawn(New(immediate("immediate", &log)))
	exec.Run()

	if exp, got := "parked:pending immediate:ready parked:ready", strings.Join(log, " "); got != exp {
		t.Fatalf("expected poll log %q; got %q", exp, got)
	}

	// the no-op waker must be safe to call
	waker.Wake()
}

func TestAtomicWaker(t *testing.T) {
	var (
		aw    AtomicWaker
		exec  = NewExecutor()
		polls int
	)

	aw.Wake()

	exec.Spawn(New(FutureFunc(func(ctx *Context) Poll {
		polls++
		if polls == 1 {
			aw.Register(ctx.Waker())
			return Pending
		}
		return Ready
	})))

	exec.RunUntilIdle()
	if polls != 1 {
		t.Fatalf("expected 1 poll; got %d", polls)
	}

	aw.Wake()
	if aw.Take() != nil {
		t.Fatal("expected Wake to clear the registered waker")
	}

	exec.RunUntilIdle()
	if polls != 2 || exec.Len() != 0 {
		t.Fatalf("expected task to complete after its wake-up; polls %d, pending %d", polls, exec.Len())
	}

	if Ready.String() != "ready" || Pending.String() != "pending" {
		t.Fatal("unexpected Poll string values")
	}
}
