package lockfree

import (
	"runtime"
	"sync"
	"testing"

	"github.com/valyala/fastrand"
)

func TestStackLIFOSequential(t *testing.T) {
	s := NewStack[string]()

	if _, ok := s.Pop(); ok {
		t.Fatalf("expected empty pop to report false")
	}

	s.Push("a")
	s.Push("b")

	if v, ok := s.Pop(); !ok || v != "b" {
		t.Fatalf("expected pop to return b, got %q ok=%t", v, ok)
	}
	if v, ok := s.Pop(); !ok || v != "a" {
		t.Fatalf("expected pop to return a, got %q ok=%t", v, ok)
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("expected stack to be empty")
	}
}

func TestStackConcurrentPushThenDrain(t *testing.T) {
	s := NewStack[int]()

	goroutines := max(2*runtime.GOMAXPROCS(0), 4)
	const perGoroutine = 10000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				s.Push(worker*perGoroutine + i)
			}
		}(g)
	}
	wg.Wait()

	// A single-threaded full drain must yield exactly N*M elements, each
	// exactly once.
	seen := make(map[int]bool, goroutines*perGoroutine)
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("value %d popped twice", v)
		}
		seen[v] = true
	}

	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d distinct elements, drained %d", goroutines*perGoroutine, len(seen))
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("expected stack to be empty after drain")
	}
}

func TestStackConcurrentMixedStorm(t *testing.T) {
	s := NewStack[uint64]()

	goroutines := max(2*runtime.GOMAXPROCS(0), 4)
	const opsPerGoroutine = 20000

	pushed := make([]map[uint64]bool, goroutines)
	popped := make([]map[uint64]bool, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		pushed[g] = make(map[uint64]bool)
		popped[g] = make(map[uint64]bool)
		go func(worker int) {
			defer wg.Done()
			var rng fastrand.RNG
			rng.Seed(uint32(worker + 1))
			var seq uint64
			for rangeIdx91 := 0; rangeIdx91 < opsPerGoroutine; rangeIdx91++ {
				if rng.Uint32n(2) == 0 {
					v := uint64(worker)<<32 | seq
					seq++
					s.Push(v)
					pushed[worker][v] = true
				} else {
					if v, ok := s.Pop(); ok {
						if popped[worker][v] {
							t.Errorf("value %d popped twice by worker %d", v, worker)
							return
						}
						popped[worker][v] = true
					}
				}
			}
		}(g)
	}
	wg.Wait()

	all := make(map[uint64]bool)
	for g := 0; g < goroutines; g++ {
		for v := range pushed[g] {
			all[v] = true
		}
	}

	drained := 0
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		if !all[v] {
			t.Fatalf("drained value %d was never pushed or already consumed", v)
		}
		delete(all, v)
		drained++
	}

	// Every pushed value must be accounted for exactly once, either by a
	// storm pop or by the drain.
	for g := 0; g < goroutines; g++ {
		for v := range popped[g] {
			delete(all, v)
		}
	}
	if len(all) != 0 {
		t.Fatalf("%d pushed values were lost", len(all))
	}
}

func TestStackLenAdvisory(t *testing.T) {
	s := NewStack[int]()
	for i := 0; i < 100; i++ {
		s.Push(i)
	}
	if got := s.Len(); got != 100 {
		t.Fatalf("expected advisory length 100, got %d", got)
	}
	for rangeIdx151 := 0; rangeIdx151 < 40; rangeIdx151++ {
		s.Pop()
	}
	if got := s.Len(); got != 60 {
		t.Fatalf("expected advisory length 60, got %d", got)
	}
}
