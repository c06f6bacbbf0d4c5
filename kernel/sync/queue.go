package sync

import "sync/atomic"

// queueSlot holds a single queued value. seq tells producers and consumers
// whose turn it is to touch the slot.
type queueSlot struct {
	seq   uint64
	value uint64
}

// Queue is a bounded, lock-free FIFO of uint64 values. Push and Pop never
// block and never take a lock, so a Queue can be shared between interrupt
// handlers (producers) and the executor (consumer) without masking
// interrupts. All storage is allocated by NewQueue.
type Queue struct {
	slots    []queueSlot
	capacity uint64

	enqueuePos uint64
	dequeuePos uint64
}

// NewQueue returns a queue that can hold up to capacity values. The
// capacity is raised to 2 if smaller; the slot sequencing needs at least two
// slots to tell a full queue from an empty one.
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}

	q := &Queue{
		slots:    make([]queueSlot, capacity),
		capacity: uint64(capacity),
	}

	for i := range q.slots {
		q.slots[i].seq = uint64(i)
	}

	return q
}

// Push appends v to the queue. It returns false if the queue is full.
func (q *Queue) Push(v uint64) bool {
	pos := atomic.LoadUint64(&q.enqueuePos)
	for {
		slot := &q.slots[pos%q.capacity]
		seq := atomic.LoadUint64(&slot.seq)

		switch diff := int64(seq - pos); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.enqueuePos, pos, pos+1) {
				slot.value = v
				atomic.StoreUint64(&slot.seq, pos+1)
				return true
			}
			pos = atomic.LoadUint64(&q.enqueuePos)
		case diff < 0:
			// The slot still holds a value from the previous lap.
			return false
		default:
			pos = atomic.LoadUint64(&q.enqueuePos)
		}
	}
}

// Pop removes and returns the value at the head of the queue. The second
// return value is false if the queue is empty.
func (q *Queue) Pop() (uint64, bool) {
	pos := atomic.LoadUint64(&q.dequeuePos)
	for {
		slot := &q.slots[pos%q.capacity]
		seq := atomic.LoadUint64(&slot.seq)

		switch diff := int64(seq - (pos + 1)); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.dequeuePos, pos, pos+1) {
				v := slot.value
				atomic.StoreUint64(&slot.seq, pos+q.capacity)
				return v, true
			}
			pos = atomic.LoadUint64(&q.dequeuePos)
		case diff < 0:
			return 0, false
		default:
			pos = atomic.LoadUint64(&q.dequeuePos)
		}
	}
}

// Len returns the number of queued values. The result is only a snapshot
// when producers run concurrently.
func (q *Queue) Len() int {
	enq := atomic.LoadUint64(&q.enqueuePos)
	deq := atomic.LoadUint64(&q.dequeuePos)
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}

// Empty returns true if the queue holds no values.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return int(q.capacity)
}
