// pkg/bwtree/smo.go
package bwtree

// helpAlong implements the partial-SMO resolution step of load_node_id
// (4.2/4.3): a thread landing on a chain whose top record is an Abort,
// Split, Merge, or Remove delta either completes the pending structural
// change or recognizes it is already complete. It reports true when the
// caller must restart the whole traversal from the root, and false when the
// caller may proceed to treat the frame as settled.
//
// Observing an Abort at top is always a pure restart signal: only the
// thread that posted it may remove it, so any other thread just backs off.
// For Split and Merge, a thread that finds the parent already fixed up
// falls through without restarting -- forcing a restart on every read that
// lands on an already-completed SMO would starve readers indefinitely.
// Remove always restarts once observed, since the removed NodeID is gone
// for good and the caller must re-route from its parent regardless.
func (t *Tree[K, V]) helpAlong(tr *traversal[K, V], id NodeID, head *page[K, V], isLeftmost, isRoot bool) bool {
	switch {
	case head.k.isAbort():
		return true
	case head.k.isSplit():
		return t.helpSplit(tr, id, head, isRoot)
	case head.k.isMerge():
		return t.helpMerge(tr, id, head)
	case head.k.isRemove():
		return t.helpRemove(tr, id, head, isLeftmost)
	default:
		return false
	}
}

// helpSplit completes a pending Split by installing the missing index term
// on the parent (or, if id is the root, by installing a brand new root).
func (t *Tree[K, V]) helpSplit(tr *traversal[K, V], id NodeID, head *page[K, V], isRoot bool) bool {
	splitKey := head.splitKey
	siblingID := head.sibling

	if isRoot {
		return t.helpRootSplit(id, splitKey, siblingID)
	}
	parent := tr.parent()
	if parent == nil {
		return true
	}
	pln := materialize(t, parent.head)
	if _, _, ok := pln.findSepExact(t.cmp, splitKey); ok {
		return false
	}
	delta := newDelta[K, V](kindInnerInsert, parent.head)
	delta.key = splitKey
	delta.nextKey = pln.nextSepKey(t.cmp, splitKey)
	delta.newNodeID = siblingID
	t.table.cas(parent.id, parent.head, delta)
	return true
}

// helpRootSplit installs a fresh two-child root above the splitting root.
func (t *Tree[K, V]) helpRootSplit(oldRootID NodeID, splitKey extKey[K], siblingID NodeID) bool {
	newRoot := &page[K, V]{
		k: kindInnerBase, lbound: negInf[K](), ubound: posInf[K](), nextID: InvalidNodeID,
		seps: []sep[K]{
			{key: negInf[K](), child: oldRootID},
			{key: splitKey, child: siblingID},
		},
	}
	newRootID := t.table.allocID()
	if !t.table.installFresh(newRootID, newRoot) {
		return true
	}
	t.table.installRoot(oldRootID, newRootID)
	return true
}

// helpMerge completes a pending Merge by removing the absorbed sibling's
// index term from the parent, if not already done.
func (t *Tree[K, V]) helpMerge(tr *traversal[K, V], id NodeID, head *page[K, V]) bool {
	mergeKey := head.splitKey
	parent := tr.parent()
	if parent == nil {
		return true
	}
	pln := materialize(t, parent.head)
	s, idx, ok := pln.findSepExact(t.cmp, mergeKey)
	if !ok {
		return false
	}
	if idx == 0 {
		return true
	}
	left := pln.seps[idx-1]
	delta := newDelta[K, V](kindInnerDelete, parent.head)
	delta.key = s.key
	delta.prevKey = left.key
	delta.nextKey = pln.nextSepKey(t.cmp, mergeKey)
	delta.prevNodeID = left.child
	t.table.cas(parent.id, parent.head, delta)
	return true
}

// helpRemove completes a pending self-Remove by blocking the parent, folding
// the removed node's content into its left sibling via a Merge delta, then
// replacing the parent's block with the real index-term deletion. Every
// path through this routine ends in a restart: the removed NodeID is
// permanently gone, and the caller's cached frames above it are stale
// regardless of how far the fixup got.
func (t *Tree[K, V]) helpRemove(tr *traversal[K, V], id NodeID, head *page[K, V], isLeftmost bool) bool {
	if isLeftmost {
		return true
	}
	parent := tr.parent()
	if parent == nil {
		return true
	}
	entryLow := tr.pendingEntryLow
	pln := materialize(t, parent.head)
	_, idx, ok := pln.findSepExact(t.cmp, entryLow)
	if !ok || idx == 0 {
		return true
	}
	leftSep := pln.seps[idx-1]

	blockDelta := newDelta[K, V](kindInnerAbort, parent.head)
	if !t.table.cas(parent.id, parent.head, blockDelta) {
		return true
	}

	leftHead := t.table.read(leftSep.child)
	if leftHead != nil {
		mergeKind := kindLeafMerge
		if head.k.isInner() {
			mergeKind = kindInnerMerge
		}
		mergeDelta := newDelta[K, V](mergeKind, leftHead)
		mergeDelta.splitKey = entryLow
		mergeDelta.right = head.child
		t.table.cas(leftSep.child, leftHead, mergeDelta)
	}

	delDelta := newDelta[K, V](kindInnerDelete, blockDelta)
	delDelta.key = pln.seps[idx].key
	delDelta.prevKey = leftSep.key
	delDelta.nextKey = pln.nextSepKey(t.cmp, pln.seps[idx].key)
	delDelta.prevNodeID = leftSep.child
	t.table.cas(parent.id, blockDelta, delDelta)

	return true
}

// maybeTriggerSMO checks a settled frame's size against the configured
// bounds and, if out of range, installs the delta that begins a Split or a
// self-Remove. It reports true after any Remove attempt, whether or not its
// CAS succeeded, and after a Split whose CAS succeeded, since those
// invalidate the caller's cached path above. A Split that could not be
// installed reports false, and the caller re-reads the slot and goes on.
func (t *Tree[K, V]) maybeTriggerSMO(tr *traversal[K, V], id NodeID, head *page[K, V], isLeftmost, isRoot bool) bool {
	if head.k.isSplit() || head.k.isMerge() || head.k.isRemove() || head.k.isAbort() {
		return false
	}
	isLeaf := !head.k.isInner()
	upper, lower := t.cfg.LeafSizeUpper, t.cfg.LeafSizeLower
	if !isLeaf {
		upper, lower = t.cfg.InnerSizeUpper, t.cfg.InnerSizeLower
	}
	ln := materialize(t, head)
	n := ln.size()
	switch {
	case n >= upper:
		return t.triggerSplit(id, head, ln, isLeaf)
	case n <= lower && !isLeftmost && !isRoot:
		t.triggerRemove(id, head, isLeaf)
		return true
	default:
		return false
	}
}

func (t *Tree[K, V]) triggerSplit(id NodeID, head *page[K, V], ln logicalNode[K, V], isLeaf bool) bool {
	mid := ln.size() / 2
	if mid == 0 {
		return false
	}
	var siblingPage *page[K, V]
	var splitKey extKey[K]
	if isLeaf {
		splitKey = ln.items[mid].key
		items := make([]leafItem[K, V], len(ln.items)-mid)
		copy(items, ln.items[mid:])
		siblingPage = &page[K, V]{k: kindLeafBase, lbound: splitKey, ubound: ln.ubound, nextID: ln.nextID, items: items}
	} else {
		splitKey = ln.seps[mid].key
		seps := make([]sep[K], len(ln.seps)-mid)
		copy(seps, ln.seps[mid:])
		siblingPage = &page[K, V]{k: kindInnerBase, lbound: splitKey, ubound: ln.ubound, nextID: ln.nextID, seps: seps}
	}
	siblingID := t.table.allocID()
	if !t.table.installFresh(siblingID, siblingPage) {
		return false
	}
	deltaKind := kindLeafSplit
	if !isLeaf {
		deltaKind = kindInnerSplit
	}
	delta := newDelta[K, V](deltaKind, head)
	delta.splitKey = splitKey
	delta.sibling = siblingID
	ok := t.table.cas(id, head, delta)
	t.traceCAS(id, deltaKind, ok)
	return ok
}

func (t *Tree[K, V]) triggerRemove(id NodeID, head *page[K, V], isLeaf bool) {
	deltaKind := kindLeafRemove
	if !isLeaf {
		deltaKind = kindInnerRemove
	}
	delta := newDelta[K, V](deltaKind, head)
	ok := t.table.cas(id, head, delta)
	t.traceCAS(id, deltaKind, ok)
}
