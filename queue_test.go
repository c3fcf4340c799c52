package lockfree

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestQueueFIFOSequential(t *testing.T) {
	q := NewQueue[int]()

	if _, ok := q.Dequeue(); ok {
		t.Fatalf("expected empty dequeue to report false")
	}

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	for _, want := range []int{1, 2, 3} {
		v, ok := q.Dequeue()
		if !ok {
			t.Fatalf("queue unexpectedly empty, wanted %d", want)
		}
		if v != want {
			t.Fatalf("expected %d, got %d (FIFO violated)", want, v)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Fatalf("expected queue to be empty at the end")
	}
}

func TestQueueConcurrentEnqueueThenDrain(t *testing.T) {
	q := NewQueue[int]()

	goroutines := max(2*runtime.GOMAXPROCS(0), 4)
	const perGoroutine = 10000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				q.Enqueue(worker*perGoroutine + i)
			}
		}(g)
	}
	wg.Wait()

	seen := make(map[int]bool, goroutines*perGoroutine)
	lastPerWorker := make(map[int]int)
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("value %d dequeued twice", v)
		}
		seen[v] = true

		// FIFO must hold among each producer's own elements.
		worker := v / perGoroutine
		seq := v % perGoroutine
		if last, ok := lastPerWorker[worker]; ok && seq <= last {
			t.Fatalf("per-producer order violated for worker %d: %d after %d", worker, seq, last)
		}
		lastPerWorker[worker] = seq
	}

	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d distinct elements, drained %d", goroutines*perGoroutine, len(seen))
	}
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := NewQueue[uint64]()

	producers := max(runtime.GOMAXPROCS(0), 2)
	consumers := max(runtime.GOMAXPROCS(0)/2, 2)
	const perProducer = 20000
	total := producers * perProducer

	var consumed atomic.Int64
	results := make([]map[uint64]bool, consumers)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(uint64(worker)<<32 | uint64(i))
			}
		}(p)
	}

	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		results[c] = make(map[uint64]bool)
		go func(idx int) {
			defer cwg.Done()
			last := make(map[uint64]int64)
			for consumed.Load() < int64(total) {
				v, ok := q.Dequeue()
				if !ok {
					runtime.Gosched()
					continue
				}
				consumed.Add(1)
				if results[idx][v] {
					t.Errorf("value %d dequeued twice by consumer %d", v, idx)
					return
				}
				results[idx][v] = true

				// Per-producer order must be increasing within one consumer.
				worker := v >> 32
				seq := int64(v & 0xffffffff)
				if prev, ok := last[worker]; ok && seq <= prev {
					t.Errorf("per-producer order violated: producer %d seq %d after %d", worker, seq, prev)
					return
				}
				last[worker] = seq
			}
		}(c)
	}

	wg.Wait()
	cwg.Wait()

	all := make(map[uint64]bool, total)
	for c := 0; c < consumers; c++ {
		for v := range results[c] {
			if all[v] {
				t.Fatalf("value %d consumed by two consumers", v)
			}
			all[v] = true
		}
	}
	if len(all) != total {
		t.Fatalf("expected %d distinct elements, consumed %d", total, len(all))
	}
}

func TestQueueHelpAdvanceRepairsLaggingTail(t *testing.T) {
	q := NewQueue[int]()

	// Interleave enqueues and dequeues so the best-effort tail swing is
	// exercised from both operations.
	for round := 0; round < 100; round++ {
		q.Enqueue(round * 2)
		q.Enqueue(round*2 + 1)
		if v, ok := q.Dequeue(); !ok || v != round*2 {
			t.Fatalf("round %d: expected %d, got %d ok=%t", round, round*2, v, ok)
		}
		if v, ok := q.Dequeue(); !ok || v != round*2+1 {
			t.Fatalf("round %d: expected %d, got %d ok=%t", round, round*2+1, v, ok)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("expected queue to be empty")
	}
}
