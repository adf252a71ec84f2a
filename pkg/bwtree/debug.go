// pkg/bwtree/debug.go
package bwtree

// debugEnabled gates invariant assertions and CAS tracing. It is false in
// normal builds; the bwtree_debug build tag (see debug_enabled.go) flips it
// on for development and test runs, where the extra materialize-and-check
// cost on every hot path is acceptable.
var debugEnabled = false

// assertInvariant checks cond when debugEnabled and logs and panics if
// violated. id names the invariant per the embedder contract: I1 ordering
// within a base page, I2 separator/lbound agreement, I3 nextID chain
// continuity, I4 first-split-wins, I5 value-set non-emptiness after replay,
// I6 NodeID uniqueness, I7 delta depth monotonicity.
func (t *Tree[K, V]) assertInvariant(id string, cond bool, msg string, kv ...any) {
	if !debugEnabled || cond {
		return
	}
	t.cfg.Logger.Error(nil, "invariant violated: "+id+": "+msg, kv...)
	panic("bwtree: invariant " + id + " violated: " + msg)
}

// traceCAS logs a CAS attempt at V(2) when debugEnabled, keyed by the node
// and delta kind involved, so a help-along sequence can be reconstructed
// after the fact without leaving the cost in production builds.
func (t *Tree[K, V]) traceCAS(id NodeID, k kind, ok bool) {
	if !debugEnabled {
		return
	}
	t.cfg.Logger.V(2).Info("cas", "node", id, "kind", k.String(), "ok", ok)
}
