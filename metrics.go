package lockfree

import (
	"math/bits"
	"runtime"
	"sync/atomic"
)

type metricShard struct {
	casRetries   atomic.Int64
	casSuccesses atomic.Int64
	length       atomic.Int64
	// Pad to cache line size to prevent false sharing.
	_ [40]byte
}

// Metrics aggregates contention counters for a single container. Counters
// are sharded so that hot paths do not serialize on one atomic word.
type Metrics struct {
	shards []metricShard
	mask   uint32
	rng    *RNG
}

func newMetrics(rng *RNG) *Metrics {
	shardCount := 1
	if rng != nil {
		shardCount = runtime.GOMAXPROCS(0)
		if shardCount < 1 {
			shardCount = 1
		}
		shardCount = nextPowerOfTwo(shardCount)
	}
	return &Metrics{
		shards: make([]metricShard, shardCount),
		mask:   uint32(shardCount - 1),
		rng:    rng,
	}
}

func nextPowerOfTwo(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func (m *Metrics) shard() *metricShard {
	if len(m.shards) == 1 || m.rng == nil {
		return &m.shards[0]
	}
	idx := uint32(m.rng.nextRandom64()) & m.mask
	return &m.shards[idx]
}

func (m *Metrics) IncCASRetry() {
	m.shard().casRetries.Add(1)
}

func (m *Metrics) IncCASSuccess() {
	m.shard().casSuccesses.Add(1)
}

func (m *Metrics) AddLen(d int64) {
	m.shard().length.Add(d)
}

func (m *Metrics) Len() int64 {
	var total int64
	for i := range m.shards {
		total += m.shards[i].length.Load()
	}
	return total
}

// CASStats reports the total number of CAS retries and successes recorded
// for the owning container. The counters enable contention analysis in
// benchmarks; they are advisory and never gate correctness decisions.
func (m *Metrics) CASStats() (retries, successes int64) {
	for i := range m.shards {
		retries += m.shards[i].casRetries.Load()
		successes += m.shards[i].casSuccesses.Load()
	}
	return retries, successes
}
