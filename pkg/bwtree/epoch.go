// pkg/bwtree/epoch.go
package bwtree

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
)

// garbageNode is one retired page waiting to be freed, linked onto its
// retiring epoch's garbage list.
type garbageNode[K any, V any] struct {
	pg   *page[K, V]
	next *garbageNode[K, V]
}

// epochNode is one entry in the reclaimer's singly-linked epoch list.
type epochNode[K any, V any] struct {
	active  atomic.Int64
	garbage atomic.Pointer[garbageNode[K, V]]
	next    *epochNode[K, V] // written once, by the reclaimer, before publish
}

// epochGuard represents one thread's membership in an epoch, acquired by
// Enter and released by Leave. Every public entry point must hold a guard
// across every load of a page it borrows.
type epochGuard[K any, V any] struct {
	node *epochNode[K, V]
}

func (g *epochGuard[K, V]) Leave() {
	if g == nil || g.node == nil {
		return
	}
	g.node.active.Add(-1)
}

// epochManager tracks active reader epochs and defers freeing retired pages
// until no thread can still hold a reference to them. A single background
// goroutine advances the epoch list and reclaims drained epochs; mutators
// never block on it.
type epochManager[K any, V any] struct {
	current atomic.Pointer[epochNode[K, V]]
	head    *epochNode[K, V] // owned solely by the reclaimer goroutine
	period  time.Duration
	logger  logr.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newEpochManager[K any, V any](period time.Duration, logger logr.Logger) *epochManager[K, V] {
	first := &epochNode[K, V]{}
	e := &epochManager[K, V]{
		head:   first,
		period: period,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	e.current.Store(first)
	return e
}

// start launches the background reclaimer. Called once, from New.
func (e *epochManager[K, V]) start() {
	go e.run()
}

// Enter begins an operation's membership in the current epoch.
func (e *epochManager[K, V]) Enter() *epochGuard[K, V] {
	node := e.current.Load()
	node.active.Add(1)
	return &epochGuard[K, V]{node: node}
}

// Retire defers freeing pg until every thread that might still observe it
// has left its epoch. Retiring into the current epoch is always safe: the
// current epoch is always >= the epoch any already-entered thread recorded.
func (e *epochManager[K, V]) Retire(pg *page[K, V]) {
	if pg == nil {
		return
	}
	node := e.current.Load()
	for {
		head := node.garbage.Load()
		gn := &garbageNode[K, V]{pg: pg, next: head}
		if node.garbage.CompareAndSwap(head, gn) {
			return
		}
	}
}

func (e *epochManager[K, V]) run() {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			e.drainAll()
			close(e.doneCh)
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick implements the three steps of 4.6: allocate and link a new epoch,
// advance the current-epoch pointer, then sweep from the head, freeing any
// drained, non-current epoch's garbage and stopping at the first epoch
// whose reader count is still nonzero.
func (e *epochManager[K, V]) tick() {
	next := &epochNode[K, V]{}
	cur := e.current.Load()
	cur.next = next
	e.current.Store(next)

	for e.head != nil && e.head != next {
		if e.head.active.Load() != 0 {
			break
		}
		e.freeEpochGarbage(e.head)
		e.head = e.head.next
	}
}

func (e *epochManager[K, V]) freeEpochGarbage(n *epochNode[K, V]) {
	count := 0
	for gn := n.garbage.Load(); gn != nil; gn = gn.next {
		freePageChain(gn.pg)
		count++
	}
	if count > 0 {
		e.logger.V(1).Info("epoch reclaimed", "pages", count)
	}
}

// freePageChain walks a retired page with variant-aware recursion: Merge
// pages own two chains (child and right) and both are walked; every other
// delta owns just child; Remove and base pages terminate the walk. Go's GC
// would eventually collect these regardless, but severing the links here
// keeps a long-retired generation from pinning its whole tail alive for an
// extra GC cycle, and documents the ownership structure the C++ source
// expresses as explicit destructors.
func freePageChain[K any, V any](pg *page[K, V]) {
	if pg == nil {
		return
	}
	switch {
	case pg.k.isMerge():
		freePageChain(pg.child)
		freePageChain(pg.right)
	case pg.k.isRemove(), pg.k.isBase():
		// terminal: nothing to recurse into.
	default:
		freePageChain(pg.child)
	}
	pg.child = nil
	pg.right = nil
}

// drainAll is called once at shutdown: it frees every remaining epoch's
// garbage regardless of reader counts, since no further operations will run.
func (e *epochManager[K, V]) drainAll() {
	for n := e.head; n != nil; n = n.next {
		e.freeEpochGarbage(n)
	}
}

// close stops the reclaimer goroutine and performs a final sweep.
func (e *epochManager[K, V]) close() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		<-e.doneCh
	})
}
