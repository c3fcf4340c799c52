package lockfree

// Test hooks (kept separate so instrumentation doesn't clutter logic).
// They must not perform blocking or mutating operations that affect
// production correctness.
var (
	getAfterFindHook func(node any) bool
	ensureMarkerHook func(node any)
	putLevelCASHook  func(level int, pred any, expected any, newNodePtr any)
)
