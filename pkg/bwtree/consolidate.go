// pkg/bwtree/consolidate.go
package bwtree

// maybeConsolidate folds a chain that has reached DeltaChainThreshold
// into a fresh base page (C7), then retires the old chain into the current
// epoch. A chain with a pending SMO delta at its top is left alone --
// consolidating through a Split, Merge, Remove, or Abort would either lose
// the pending change or race the help-along protocol that is about to
// resolve it, so that resolution always takes priority.
func (t *Tree[K, V]) maybeConsolidate(id NodeID, head *page[K, V]) *page[K, V] {
	if head.k.isSplit() || head.k.isMerge() || head.k.isRemove() || head.k.isAbort() {
		return head
	}
	ln := materialize(t, head)
	var fresh *page[K, V]
	if ln.isLeaf {
		items := make([]leafItem[K, V], len(ln.items))
		copy(items, ln.items)
		fresh = &page[K, V]{k: kindLeafBase, lbound: ln.lbound, ubound: ln.ubound, nextID: ln.nextID, items: items}
	} else {
		seps := make([]sep[K], len(ln.seps))
		copy(seps, ln.seps)
		fresh = &page[K, V]{k: kindInnerBase, lbound: ln.lbound, ubound: ln.ubound, nextID: ln.nextID, seps: seps}
	}
	ok := t.table.cas(id, head, fresh)
	t.traceCAS(id, fresh.k, ok)
	if !ok {
		return head
	}
	t.epoch.Retire(head)
	return fresh
}
