// pkg/bwtree/iterator.go
package bwtree

// Iterator walks keys in ascending order starting from the position it was
// created at. It holds an epoch guard for its entire lifetime, so a
// long-lived Iterator delays reclamation of everything retired after it
// started; callers should Close it once done rather than letting it be
// collected.
//
// The iterator follows the leaf sibling chain (nextID) directly rather than
// re-descending from the root on every step. That chain stays valid across
// concurrent splits -- a split's new sibling is spliced into nextID before
// the split is visible to any other thread -- but a leaf that has been
// merged away keeps its pre-removal content reachable through the Remove
// delta materialize() walks transparently. An iterator already positioned
// on such a leaf yields that stale snapshot instead of failing over to the
// sibling that absorbed it. This is a deliberate trade of rare staleness on
// a racing remove for O(1) step cost instead of O(log n) per Next.
type Iterator[K any, V any] struct {
	t     *Tree[K, V]
	guard *epochGuard[K, V]

	ln      logicalNode[K, V]
	idx     int
	started bool
	done    bool
	err     error
}

// Iter returns an iterator positioned before the smallest key in the tree.
func (t *Tree[K, V]) Iter() *Iterator[K, V] {
	return t.iterFrom(negInf[K]())
}

// IterFrom returns an iterator positioned at the first key >= key.
func (t *Tree[K, V]) IterFrom(key K) *Iterator[K, V] {
	return t.iterFrom(rawKey(key))
}

func (t *Tree[K, V]) iterFrom(key extKey[K]) *Iterator[K, V] {
	it := &Iterator[K, V]{t: t}
	if t.closed.Load() {
		it.err = ErrClosed
		it.done = true
		return it
	}
	it.guard = t.epoch.Enter()
	tr := t.newTraversal(key, it.guard)
	t.descendToLeaf(tr)
	it.ln = materialize(t, tr.top().head)
	it.idx, _ = it.ln.findLeafItem(t.cmp, key)
	return it
}

// Next advances the iterator and reports whether a key is now available.
// Call Next before the first Key/Values, matching the bufio.Scanner idiom.
func (it *Iterator[K, V]) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
	} else {
		it.idx++
	}
	for it.idx >= len(it.ln.items) {
		if it.ln.nextID == InvalidNodeID {
			it.done = true
			return false
		}
		head := it.t.table.read(it.ln.nextID)
		if head == nil {
			it.done = true
			return false
		}
		it.ln = materialize(it.t, head)
		it.idx = 0
	}
	return true
}

// Key returns the current position's key. Valid only after Next returns true.
func (it *Iterator[K, V]) Key() K {
	return it.ln.items[it.idx].key.raw
}

// Values returns an independent snapshot of the current position's value set.
func (it *Iterator[K, V]) Values() []V {
	return it.ln.items[it.idx].values.snapshot()
}

// Err reports any error that prevented iteration from starting.
func (it *Iterator[K, V]) Err() error {
	return it.err
}

// Close releases the iterator's epoch membership. Safe to call more than
// once.
func (it *Iterator[K, V]) Close() {
	if it.guard != nil {
		it.guard.Leave()
		it.guard = nil
	}
}
