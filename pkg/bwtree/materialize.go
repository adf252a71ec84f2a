// pkg/bwtree/materialize.go
package bwtree

// logicalNode is the in-memory materialization of a delta chain, used for
// navigation, consolidation, and SMO sizing decisions (C4).
type logicalNode[K any, V any] struct {
	isLeaf bool
	lbound extKey[K]
	ubound extKey[K]
	nextID NodeID

	// leaf view
	items []leafItem[K, V]
	// inner view
	seps []sep[K]
}

func (n *logicalNode[K, V]) size() int {
	if n.isLeaf {
		return len(n.items)
	}
	return len(n.seps)
}

// findLeafItem returns the index of key in items and true, or the index at
// which key would be inserted and false.
func (n *logicalNode[K, V]) findLeafItem(cmp comparator[K], key extKey[K]) (int, bool) {
	lo, hi := 0, len(n.items)
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp.Less(n.items[mid].key, key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.items) && cmp.Equal(n.items[lo].key, key) {
		return lo, true
	}
	return lo, false
}

// findSep returns the separator governing key: the rightmost separator with
// key <= the search key.
func (n *logicalNode[K, V]) findSep(cmp comparator[K], key extKey[K]) (sep[K], bool) {
	lo, hi := 0, len(n.seps)
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp.LessEq(n.seps[mid].key, key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return sep[K]{}, false
	}
	return n.seps[lo-1], true
}

// findSepExact returns the separator whose key equals k exactly, or (_, false).
func (n *logicalNode[K, V]) findSepExact(cmp comparator[K], k extKey[K]) (sep[K], int, bool) {
	lo, hi := 0, len(n.seps)
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp.Less(n.seps[mid].key, k) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.seps) && cmp.Equal(n.seps[lo].key, k) {
		return n.seps[lo], lo, true
	}
	return sep[K]{}, -1, false
}

// nextSepKey returns the smallest separator key strictly greater than k, or
// ubound if none exists. Used by the split help-along to compute an
// InnerInsert's next_key (4.3).
func (n *logicalNode[K, V]) nextSepKey(cmp comparator[K], k extKey[K]) extKey[K] {
	for _, s := range n.seps {
		if cmp.Less(k, s.key) {
			return s.key
		}
	}
	return n.ubound
}

// metaOnly builds only (lbound, ubound, nextID, isLeaf) without replaying
// any data deltas or seeding the base contents -- the "metadata only"
// variant referenced in 4.4 step 6, used by the SMO engine when it only
// needs bounds, not contents.
func metaOnly[K any, V any](t *Tree[K, V], head *page[K, V]) logicalNode[K, V] {
	return materializeBounded(t, head, posInf[K](), InvalidNodeID, false, true)
}

// materialize folds a delta chain into its full logical view (4.4).
func materialize[K any, V any](t *Tree[K, V], head *page[K, V]) logicalNode[K, V] {
	return materializeBounded(t, head, posInf[K](), InvalidNodeID, false, false)
}

// materializeBounded is the recursive fold described by 4.4. hasUbound
// tracks whether an enclosing Split has already tightened ubound (the first
// Split seen while walking down from the top wins, since higher split
// deltas are more recent per I4); ubound holds that tightened bound and
// nextOverride holds the split's sibling once hasUbound is true -- per 4.4
// step 4, next_id comes from the base "only if no split narrowed it."
func materializeBounded[K any, V any](t *Tree[K, V], head *page[K, V], ubound extKey[K], nextOverride NodeID, hasUbound, metadataOnly bool) logicalNode[K, V] {
	cmp := t.cmp
	var deltas []*page[K, V] // accumulated top-to-bottom (newest first)

	cur := head
	for {
		switch {
		case cur.k.isSplit():
			if !hasUbound {
				ubound = cur.splitKey
				nextOverride = cur.sibling
				hasUbound = true
			}
			cur = cur.child

		case cur.k.isMerge():
			left := materializeBounded(t, cur.child, ubound, nextOverride, hasUbound, metadataOnly)
			right := materializeBounded(t, cur.right, ubound, nextOverride, hasUbound, metadataOnly)
			merged := mergeLogical(cmp, left, right, cur.splitKey, metadataOnly)
			return t.replayOnto(merged, deltas, metadataOnly)

		case cur.k.isRemove(), cur.k.isAbort():
			// Transparent to navigation and materialization: a nested
			// materialize (e.g. from within a merge) may still observe
			// one even though live traversal already helped it along.
			cur = cur.child

		case cur.k == kindLeafInsert || cur.k == kindLeafDelete || cur.k == kindLeafUpdate ||
			cur.k == kindInnerInsert || cur.k == kindInnerDelete:
			if !metadataOnly {
				keep := !(hasUbound && !cmp.Less(cur.key, ubound))
				if keep {
					deltas = append(deltas, cur)
				}
			}
			cur = cur.child

		case cur.k == kindLeafBase:
			ln := logicalNode[K, V]{isLeaf: true, lbound: cur.lbound, nextID: cur.nextID}
			if hasUbound {
				ln.ubound = ubound
				ln.nextID = nextOverride
			} else {
				ln.ubound = cur.ubound
			}
			if !metadataOnly {
				for _, it := range cur.items {
					if cmp.Less(it.key, ln.ubound) {
						ln.items = append(ln.items, leafItem[K, V]{key: it.key, values: it.values.clone()})
					}
				}
			}
			result := t.replayOnto(ln, deltas, metadataOnly)
			t.assertInvariant("I1", sortedLeafItems(cmp, result.items), "leaf items out of order")
			return result

		case cur.k == kindInnerBase:
			ln := logicalNode[K, V]{isLeaf: false, lbound: cur.lbound, nextID: cur.nextID}
			if hasUbound {
				ln.ubound = ubound
				ln.nextID = nextOverride
			} else {
				ln.ubound = cur.ubound
			}
			if !metadataOnly {
				for _, s := range cur.seps {
					if cmp.Less(s.key, ln.ubound) {
						ln.seps = append(ln.seps, s)
					}
				}
			}
			result := t.replayOnto(ln, deltas, metadataOnly)
			t.assertInvariant("I2", len(result.seps) == 0 || cmp.Equal(result.seps[0].key, result.lbound), "first separator must equal lbound")
			return result

		default:
			cur = cur.child
		}
	}
}

// mergeLogical combines a left and right logical view at mergeKey: the
// right's contents are valid for keys >= mergeKey. The left's own ubound is
// mergeKey, so the merged node keeps the left's lbound and takes ubound and
// nextID from the right, whose NodeID becomes unreachable.
func mergeLogical[K any, V any](cmp comparator[K], left, right logicalNode[K, V], mergeKey extKey[K], metadataOnly bool) logicalNode[K, V] {
	out := logicalNode[K, V]{isLeaf: left.isLeaf, lbound: left.lbound, ubound: right.ubound, nextID: right.nextID}
	if metadataOnly {
		return out
	}
	if left.isLeaf {
		out.items = append(out.items, left.items...)
		for _, it := range right.items {
			if cmp.LessEq(mergeKey, it.key) {
				out.items = append(out.items, it)
			}
		}
	} else {
		out.seps = append(out.seps, left.seps...)
		for _, s := range right.seps {
			if cmp.LessEq(mergeKey, s.key) {
				out.seps = append(out.seps, s)
			}
		}
	}
	return out
}

// replayOnto applies the accumulated data deltas to the seeded base,
// oldest-to-newest (the reverse of the top-to-bottom accumulation order),
// per 4.4 step 5, then drops empty value sets per step 6. An InnerDelete
// removes its separator as soon as it is replayed, so a later InnerInsert
// of the same key puts it back.
func (t *Tree[K, V]) replayOnto(ln logicalNode[K, V], deltas []*page[K, V], metadataOnly bool) logicalNode[K, V] {
	if metadataOnly || len(deltas) == 0 {
		return ln
	}
	cmp := t.cmp
	if ln.isLeaf {
		for i := len(deltas) - 1; i >= 0; i-- {
			d := deltas[i]
			switch d.k {
			case kindLeafInsert:
				t.applyLeafInsert(&ln, d.key, d.value)
			case kindLeafDelete:
				t.applyLeafDelete(&ln, d.key, d.value)
			case kindLeafUpdate:
				t.applyLeafDelete(&ln, d.key, d.oldValue)
				t.applyLeafInsert(&ln, d.key, d.newValue)
			}
		}
		filtered := ln.items[:0]
		for _, it := range ln.items {
			if it.values.len() > 0 {
				filtered = append(filtered, it)
			}
		}
		ln.items = filtered
		return ln
	}

	for i := len(deltas) - 1; i >= 0; i-- {
		d := deltas[i]
		switch d.k {
		case kindInnerInsert:
			applyInnerInsert(cmp, &ln, d.key, d.newNodeID)
		case kindInnerDelete:
			if idx := findSepIndex(cmp, &ln, d.key); idx >= 0 {
				ln.seps = append(ln.seps[:idx], ln.seps[idx+1:]...)
			}
		}
	}
	return ln
}

func (t *Tree[K, V]) applyLeafInsert(ln *logicalNode[K, V], key extKey[K], v V) {
	cmp := t.cmp
	idx, found := ln.findLeafItem(cmp, key)
	if !found {
		vs := newValueSet[V](t.valueFns)
		if t.cfg.AllowDuplicateValuesPerKey {
			vs.addDup(v)
		} else {
			vs.add(v)
		}
		ln.items = append(ln.items, leafItem[K, V]{})
		copy(ln.items[idx+1:], ln.items[idx:])
		ln.items[idx] = leafItem[K, V]{key: key, values: vs}
		return
	}
	if t.cfg.AllowDuplicateValuesPerKey {
		ln.items[idx].values.addDup(v)
	} else {
		ln.items[idx].values.add(v)
	}
}

func (t *Tree[K, V]) applyLeafDelete(ln *logicalNode[K, V], key extKey[K], v V) {
	idx, found := ln.findLeafItem(t.cmp, key)
	if !found {
		return
	}
	ln.items[idx].values.remove(v)
}

func applyInnerInsert[K any, V any](cmp comparator[K], ln *logicalNode[K, V], key extKey[K], newID NodeID) {
	lo, hi := 0, len(ln.seps)
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp.Less(ln.seps[mid].key, key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(ln.seps) && cmp.Equal(ln.seps[lo].key, key) {
		ln.seps[lo].child = newID
		return
	}
	ln.seps = append(ln.seps, sep[K]{})
	copy(ln.seps[lo+1:], ln.seps[lo:])
	ln.seps[lo] = sep[K]{key: key, child: newID}
}

// sortedLeafItems reports whether items is strictly increasing by key, the
// invariant a freshly replayed leaf must satisfy (I1).
func sortedLeafItems[K any, V any](cmp comparator[K], items []leafItem[K, V]) bool {
	for i := 1; i < len(items); i++ {
		if !cmp.Less(items[i-1].key, items[i].key) {
			return false
		}
	}
	return true
}

// findSepIndex returns the index of the separator equal to key, or -1.
func findSepIndex[K any, V any](cmp comparator[K], ln *logicalNode[K, V], key extKey[K]) int {
	for i, s := range ln.seps {
		if cmp.Equal(s.key, key) {
			return i
		}
	}
	return -1
}
