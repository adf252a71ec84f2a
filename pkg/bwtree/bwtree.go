// Package bwtree implements a lock-free, latch-free, ordered, concurrent
// multi-value index: a mapping table of delta-chain pages installed by
// compare-and-swap, traversed with a help-along protocol that lets any
// thread complete a structural modification it happens to observe
// in-flight, and reclaimed with an epoch scheme so a page is only ever
// freed once no thread can still be reading it.
//
// A Tree owns no durability, no transaction isolation, and no locking
// beyond what is implied by "lock-free": callers that need write-ahead
// logging, crash recovery, or multi-key atomicity build it on top, the way
// an index is one collaborator inside a larger storage engine rather than
// the engine itself.
package bwtree

import "sync/atomic"

// Tree is a concurrent ordered multi-value map keyed by K, every key
// holding a set of V deduplicated by the Config's ValueEqual/ValueHash
// functors. All methods are safe for concurrent use by multiple goroutines
// without external synchronization.
type Tree[K any, V any] struct {
	cfg      Config[K, V]
	cmp      comparator[K]
	valueFns valueFuncs[V]
	table    *mappingTable[K, V]
	epoch    *epochManager[K, V]
	closed   atomic.Bool
}

// New constructs a Tree with a single empty leaf: the initial state is a
// root InnerBase at NodeID 0 holding one separator (-inf, leaf), and an
// empty LeafBase at NodeID 1.
func New[K any, V any](cfg Config[K, V]) (*Tree[K, V], error) {
	if cfg.KeyLess == nil || cfg.KeyEqual == nil || cfg.ValueEqual == nil || cfg.ValueHash == nil {
		return nil, ErrInvalidConfig
	}
	cfg.setDefaults()

	t := &Tree[K, V]{
		cfg:      cfg,
		cmp:      comparator[K]{lessFn: cfg.KeyLess, equalFn: cfg.KeyEqual},
		valueFns: valueFuncs[V]{equal: cfg.ValueEqual, hash: cfg.ValueHash},
		table:    newMappingTable[K, V](cfg.MappingTableCapacity),
		epoch:    newEpochManager[K, V](cfg.GCPeriod, cfg.Logger),
	}

	rootID := t.table.allocID()
	leafID := t.table.allocID()

	leaf := &page[K, V]{k: kindLeafBase, lbound: negInf[K](), ubound: posInf[K](), nextID: InvalidNodeID}
	if !t.table.installFresh(leafID, leaf) {
		return nil, ErrInvalidConfig
	}
	root := &page[K, V]{
		k: kindInnerBase, lbound: negInf[K](), ubound: posInf[K](), nextID: InvalidNodeID,
		seps: []sep[K]{{key: negInf[K](), child: leafID}},
	}
	if !t.table.installFresh(rootID, root) {
		return nil, ErrInvalidConfig
	}
	t.table.initRoot(rootID)

	t.epoch.start()
	t.cfg.Logger.V(1).Info("bwtree opened", "rootID", rootID, "leafID", leafID)
	return t, nil
}

// Close stops the background reclaimer and frees any garbage still
// awaiting an epoch boundary. Close is idempotent; a second call returns
// ErrClosed. Operations already in flight are not cancelled, but no new
// operation may begin once Close has been called.
func (t *Tree[K, V]) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	t.epoch.close()
	return nil
}

// Lookup returns every value currently associated with key. It reports
// ErrNotFound if key has no values (never present, or fully deleted).
func (t *Tree[K, V]) Lookup(key K) ([]V, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	guard := t.epoch.Enter()
	defer guard.Leave()

	tr := t.newTraversal(rawKey(key), guard)
	t.descendToLeaf(tr)
	ln := materialize(t, tr.top().head)
	idx, found := ln.findLeafItem(t.cmp, tr.key)
	if !found {
		return nil, ErrNotFound
	}
	return ln.items[idx].values.snapshot(), nil
}

// Contains reports whether value is currently associated with key.
func (t *Tree[K, V]) Contains(key K, value V) (bool, error) {
	values, err := t.Lookup(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, v := range values {
		if t.cfg.ValueEqual(v, value) {
			return true, nil
		}
	}
	return false, nil
}

// Insert adds value to key's value set, reporting false instead of an error
// when (key, value) is already present (a semantic failure per the
// embedder contract, not a fault). Under AllowDuplicateValuesPerKey, the
// value set is a counted multiset and Insert always succeeds.
func (t *Tree[K, V]) Insert(key K, value V) (bool, error) {
	k := rawKey(key)
	return t.mutateLeaf(k, func(head *page[K, V], ln *logicalNode[K, V]) mutateResult[K, V] {
		if !t.cfg.AllowDuplicateValuesPerKey {
			if idx, found := ln.findLeafItem(t.cmp, k); found && ln.items[idx].values.contains(value) {
				return mutateResult[K, V]{ok: false}
			}
		}
		d := newDelta[K, V](kindLeafInsert, head)
		d.key = k
		d.value = value
		return mutateResult[K, V]{delta: d, cas: true, ok: true}
	})
}

// ConditionalInsert evaluates predicate against each value currently
// present for key; if any returns true, the insert is withheld and
// predicateSatisfied reports true. Otherwise it behaves like Insert.
// Because the tree is lock-free, predicate may be invoked more than once if
// a concurrent mutation forces a retry; it must be a pure function of its
// argument.
func (t *Tree[K, V]) ConditionalInsert(key K, value V, predicate func(existing V) bool) (inserted bool, predicateSatisfied bool, err error) {
	k := rawKey(key)
	inserted, err = t.mutateLeaf(k, func(head *page[K, V], ln *logicalNode[K, V]) mutateResult[K, V] {
		predicateSatisfied = false
		if idx, found := ln.findLeafItem(t.cmp, k); found {
			sat := false
			ln.items[idx].values.forEach(func(v V) {
				if predicate(v) {
					sat = true
				}
			})
			if sat {
				predicateSatisfied = true
				return mutateResult[K, V]{ok: false}
			}
			if !t.cfg.AllowDuplicateValuesPerKey && ln.items[idx].values.contains(value) {
				return mutateResult[K, V]{ok: false}
			}
		}
		d := newDelta[K, V](kindLeafInsert, head)
		d.key = k
		d.value = value
		return mutateResult[K, V]{delta: d, cas: true, ok: true}
	})
	return inserted, predicateSatisfied, err
}

// Delete removes value from key's value set, reporting false if it was
// absent.
func (t *Tree[K, V]) Delete(key K, value V) (bool, error) {
	k := rawKey(key)
	return t.mutateLeaf(k, func(head *page[K, V], ln *logicalNode[K, V]) mutateResult[K, V] {
		idx, found := ln.findLeafItem(t.cmp, k)
		if !found || !ln.items[idx].values.contains(value) {
			return mutateResult[K, V]{ok: false}
		}
		d := newDelta[K, V](kindLeafDelete, head)
		d.key = k
		d.value = value
		return mutateResult[K, V]{delta: d, cas: true, ok: true}
	})
}

// Update atomically replaces oldValue with newValue in key's value set, as
// a single delta rather than a separate Delete followed by an Insert: a
// concurrent reader can never observe a state with neither value present.
// It reports false if oldValue is absent, or if newValue is already
// present and duplicates are not allowed.
func (t *Tree[K, V]) Update(key K, oldValue, newValue V) (bool, error) {
	k := rawKey(key)
	return t.mutateLeaf(k, func(head *page[K, V], ln *logicalNode[K, V]) mutateResult[K, V] {
		idx, found := ln.findLeafItem(t.cmp, k)
		if !found || !ln.items[idx].values.contains(oldValue) {
			return mutateResult[K, V]{ok: false}
		}
		if !t.cfg.AllowDuplicateValuesPerKey && ln.items[idx].values.contains(newValue) {
			return mutateResult[K, V]{ok: false}
		}
		d := newDelta[K, V](kindLeafUpdate, head)
		d.key = k
		d.oldValue = oldValue
		d.newValue = newValue
		return mutateResult[K, V]{delta: d, cas: true, ok: true}
	})
}

// mutateResult is build's verdict within mutateLeaf: ok is the semantic
// result handed back to the caller; delta/cas say whether (and what) to
// install to make that result durable.
type mutateResult[K any, V any] struct {
	delta *page[K, V]
	cas   bool
	ok    bool
}

// mutateLeaf is the shared retry loop behind every write operation: descend
// to the owning leaf, materialize it, let build decide the delta to
// install (or decline to act at all), and CAS it on. A lost race redescends
// and retries against whatever the tree looks like now, since the leaf that
// owns key may have changed out from under a stale frame.
func (t *Tree[K, V]) mutateLeaf(key extKey[K], build func(head *page[K, V], ln *logicalNode[K, V]) mutateResult[K, V]) (bool, error) {
	if t.closed.Load() {
		return false, ErrClosed
	}
	guard := t.epoch.Enter()
	defer guard.Leave()

	tr := t.newTraversal(key, guard)
	for {
		t.descendToLeaf(tr)
		f := tr.top()
		ln := materialize(t, f.head)
		res := build(f.head, &ln)
		if !res.cas {
			return res.ok, nil
		}
		if t.table.cas(f.id, f.head, res.delta) {
			return res.ok, nil
		}
	}
}
