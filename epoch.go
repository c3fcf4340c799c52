package lockfree

import (
	"runtime"
	"sync/atomic"
)

// collectEvery bounds how often Retire attempts an epoch advance and a
// collection pass. Collection cost is amortized across retirements.
const collectEvery = 64

type reclaimSlot struct {
	// epoch pinned by an active guard, 0 when the slot is free.
	epoch atomic.Uint64
	_     [56]byte
}

// retiredNode defers a release callback until no guard can still hold a
// reference obtained before the owning node was unlinked.
type retiredNode struct {
	next  *retiredNode
	epoch uint64
	free  func()
}

// Reclaimer implements epoch-based reclamation. Go's collector already
// rules out use-after-free, but recycling unlinked nodes through pools
// reintroduces ABA and torn reads unless a grace period separates unlink
// from reuse. Every container operation runs inside a guard; a retired
// node's release callback fires only after every guard that was active at
// retire time has exited.
//
// The scheme never takes a lock: guards claim reservation slots by CAS,
// retirements push onto a Treiber list, and collection swaps the whole
// list out atomically.
type Reclaimer struct {
	global atomic.Uint64
	_      [56]byte

	slots []reclaimSlot
	_     [56]byte

	retired     atomic.Pointer[retiredNode]
	retireCount atomic.Uint64
	rng         *RNG
}

// NewReclaimer returns a reclaimer sized for the current GOMAXPROCS.
func NewReclaimer() *Reclaimer {
	slots := nextPowerOfTwo(4 * runtime.GOMAXPROCS(0))
	if slots < 16 {
		slots = 16
	}
	r := &Reclaimer{
		slots: make([]reclaimSlot, slots),
		rng:   newRNG(),
	}
	r.global.Store(1)
	return r
}

// Guard pins the epoch observed at Enter. Guards are short-lived: one
// container operation per guard. A Guard must not outlive the goroutine
// turn that created it.
type Guard struct {
	r     *Reclaimer
	slot  *reclaimSlot
	epoch uint64
}

// Enter pins the current epoch and returns the guard. It spins when every
// reservation slot is taken; slot holders are themselves mid-operation, so
// system-wide progress is preserved.
func (r *Reclaimer) Enter() Guard {
	mask := uint64(len(r.slots) - 1)
	start := r.rng.nextRandom64()
	var spins uint32
	for {
		e := r.global.Load()
		for i := uint64(0); i <= mask; i++ {
			slot := &r.slots[(start+i)&mask]
			if slot.epoch.Load() != 0 {
				continue
			}
			if slot.epoch.CompareAndSwap(0, e) {
				return Guard{r: r, slot: slot, epoch: e}
			}
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Exit releases the guard's reservation. It must be called exactly once.
func (g Guard) Exit() {
	g.slot.epoch.Store(0)
}

// Retire schedules a release callback for a node the caller has just
// unlinked. Retire must be called while the guard that performed the
// unlink is still active.
func (g Guard) Retire(free func()) {
	r := g.r
	n := &retiredNode{epoch: g.epoch, free: free}
	for {
		head := r.retired.Load()
		n.next = head
		if r.retired.CompareAndSwap(head, n) {
			break
		}
	}
	if r.retireCount.Add(1)%collectEvery == 0 {
		r.tryAdvance()
		r.collect()
	}
}

// tryAdvance bumps the global epoch when every active guard has observed
// the current one. A guard pinning an older epoch blocks the advance, so
// the epoch can outrun any pin by at most one step per scan.
func (r *Reclaimer) tryAdvance() {
	e := r.global.Load()
	for i := range r.slots {
		v := r.slots[i].epoch.Load()
		if v != 0 && v != e {
			return
		}
	}
	r.global.CompareAndSwap(e, e+1)
}

// collect swaps out the retired list and releases every node whose retire
// epoch is at least three advances old. A node retired at epoch x can be
// referenced only by guards pinned at x+1 or earlier, and the epoch
// reaches x+3 only after all such guards have exited. Younger nodes are
// pushed back for a later pass.
func (r *Reclaimer) collect() {
	limit := r.global.Load()
	head := r.retired.Swap(nil)

	var keep *retiredNode
	for n := head; n != nil; {
		next := n.next
		if n.epoch+3 <= limit {
			n.free()
		} else {
			n.next = keep
			keep = n
		}
		n = next
	}

	for keep != nil {
		next := keep.next
		for {
			cur := r.retired.Load()
			keep.next = cur
			if r.retired.CompareAndSwap(cur, keep) {
				break
			}
		}
		keep = next
	}
}

// Drain forces advances and collection passes until the retired list is
// empty or progress stalls on an active guard. Intended for tests and
// teardown paths where no operations are in flight.
func (r *Reclaimer) Drain() {
	for i := 0; i < 4; i++ {
		r.tryAdvance()
		r.collect()
		if r.retired.Load() == nil {
			return
		}
	}
}
