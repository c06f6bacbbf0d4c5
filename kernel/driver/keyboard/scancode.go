// Package keyboard turns the raw scancodes delivered by the keyboard
// interrupt into a stream that tasks can consume.
package keyboard

import (
	"gopherkern/kernel"
	"gopherkern/kernel/cpu"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/sync"
	"gopherkern/kernel/task"
	"sync/atomic"
)

const (
	// QueueCapacity is the number of scancodes buffered between the
	// interrupt handler and the task consuming them.
	QueueCapacity = 100

	// dataPort is the PS/2 controller data port.
	dataPort uint16 = 0x60
)

var (
	// the following functions are mocked by tests.
	panicFn        = kfmt.Panic
	portReadByteFn = cpu.PortReadByte

	// scancodeQueue is set up by NewScancodeStream. Until then AddScancode
	// drops its input.
	scancodeQueue *sync.Queue
	waker         task.AtomicWaker

	// droppedScancodes counts the scancodes that AddScancode could not
	// queue. It is reported by the task draining the stream.
	droppedScancodes uint32

	errStreamExists = &kernel.Error{Module: "keyboard", Message: "NewScancodeStream should only be called once"}
)

// AddScancode is called by the keyboard interrupt handler. It must not block,
// allocate or print: the scancode is pushed to a lock-free queue and the task
// waiting on the stream, if any, is woken. Scancodes that arrive before the
// stream exists or while the queue is full are counted and dropped.
func AddScancode(scancode byte) {
	if scancodeQueue == nil || !scancodeQueue.Push(uint64(scancode)) {
		atomic.AddUint32(&droppedScancodes, 1)
		return
	}

	waker.Wake()
}

// reportDroppedScancodes logs the scancodes dropped since the last call. It
// runs in task context where writing to the console is safe.
func reportDroppedScancodes() {
	if n := atomic.SwapUint32(&droppedScancodes, 0); n != 0 {
		kfmt.Printf("[keyboard] WARNING: dropped %d scancodes; queue uninitialized or full\n", n)
	}
}

// HandleInterrupt reads the pending scancode from the PS/2 controller and
// queues it. It is meant to be invoked by the keyboard IRQ handler; the
// handler is responsible for acknowledging the interrupt.
func HandleInterrupt() {
	AddScancode(portReadByteFn(dataPort))
}

// ScancodeStream yields the scancodes passed to AddScancode in the order in
// which they arrived.
type ScancodeStream struct {
	queue *sync.Queue
}

// NewScancodeStream sets up the scancode queue and returns the stream that
// drains it. There can only be one stream; a second call halts the kernel.
func NewScancodeStream() *ScancodeStream {
	if scancodeQueue != nil {
		panicFn(errStreamExists)
		return nil
	}

	scancodeQueue = sync.NewQueue(QueueCapacity)
	return &ScancodeStream{queue: scancodeQueue}
}

// PollNext returns the next scancode if one is available. Otherwise it
// registers the waker of the polling task and returns task.Pending; the task
// is woken by the next call to AddScancode.
func (s *ScancodeStream) PollNext(ctx *task.Context) (byte, task.Poll) {
	reportDroppedScancodes()

	// fast path
	if v, ok := s.queue.Pop(); ok {
		return byte(v), task.Ready
	}

	waker.Register(ctx.Waker())

	// A scancode may have arrived before the waker was registered.
	if v, ok := s.queue.Pop(); ok {
		waker.Take()
		return byte(v), task.Ready
	}

	return 0, task.Pending
}

// Next returns a future that completes with the next scancode.
func (s *ScancodeStream) Next() *ScancodeFuture {
	return &ScancodeFuture{stream: s}
}

// ScancodeFuture is a future that resolves to the next scancode in a
// ScancodeStream. Once Poll returns task.Ready, the scancode is available
// in the Scancode field.
type ScancodeFuture struct {
	stream   *ScancodeStream
	Scancode byte
}

// Poll implements task.Future.
func (f *ScancodeFuture) Poll(ctx *task.Context) task.Poll {
	scancode, res := f.stream.PollNext(ctx)
	if res == task.Ready {
		f.Scancode = scancode
	}
	return res
}
