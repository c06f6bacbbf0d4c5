package sync

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(3)

	if _, ok := q.Pop(); ok {
		t.Fatal("expected Pop on an empty queue to fail")
	}

	for i := uint64(1); i <= 3; i++ {
		if !q.Push(i) {
			t.Fatalf("expected Push(%d) to succeed", i)
		}
	}

	if q.Push(4) {
		t.Fatal("expected Push on a full queue to fail")
	}

	if exp, got := 3, q.Len(); got != exp {
		t.Fatalf("expected Len to return %d; got %d", exp, got)
	}

	// Interleave pushes and pops so the slots wrap around several times.
	next := uint64(4)
	for exp := uint64(1); exp <= 20; exp++ {
		got, ok := q.Pop()
		if !ok || got != exp {
			t.Fatalf("expected Pop to return (%d, true); got (%d, %t)", exp, got, ok)
		}

		if next <= 20 {
			if !q.Push(next) {
				t.Fatalf("expected Push(%d) to succeed", next)
			}
			next++
		}
	}

	if !q.Empty() {
		t.Fatalf("expected queue to be empty; Len() = %d", q.Len())
	}
}

func TestQueueMinCapacity(t *testing.T) {
	q := NewQueue(0)
	if exp, got := 2, q.Cap(); got != exp {
		t.Fatalf("expected capacity to be raised to %d; got %d", exp, got)
	}

	q.Push(1)
	q.Push(2)
	if q.Push(3) {
		t.Fatal("expected Push on a full queue to fail")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	var (
		q            = NewQueue(1024)
		wg           sync.WaitGroup
		numProducers = 8
		perProducer  = 100
	)

	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.Push(uint64(p*perProducer + i)) {
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	lastPerProducer := make(map[int]int)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}

		if seen[v] {
			t.Fatalf("value %d popped twice", v)
		}
		seen[v] = true

		// values pushed by the same producer must come out in order
		p, i := int(v)/perProducer, int(v)%perProducer
		if last, found := lastPerProducer[p]; found && i <= last {
			t.Fatalf("producer %d: value %d popped after %d", p, i, last)
		}
		lastPerProducer[p] = i
	}

	if exp := numProducers * perProducer; len(seen) != exp {
		t.Fatalf("expected to pop %d values; got %d", exp, len(seen))
	}
}
