// Package lockfree provides non-blocking concurrent containers: a Treiber
// stack, a Michael-Scott queue, a concurrent skip list, and bounded ring
// buffers. Every shared field is accessed exclusively through atomic
// read/CAS; no operation acquires a lock or blocks the caller.
//
// Each structure is linearizable at the point of its winning CAS and
// provides lock-freedom: the system as a whole always makes progress,
// though an individual goroutine may retry indefinitely under contention.
//
// Unlinked nodes are recycled through per-structure pools. Because a
// recycled node can be observed by an in-flight reader, recycling is
// deferred through epoch-based reclamation (see Reclaimer): a node
// re-enters its pool only after every guard active at retire time has
// exited.
package lockfree

// Less is a function that returns true if a is less than b.
type Less[K comparable] func(a, b K) bool
