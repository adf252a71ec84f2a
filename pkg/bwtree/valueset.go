// pkg/bwtree/valueset.go
package bwtree

// valueFuncs bundles the embedder's value equality and hash functors. Every
// valueSet stores its own copy, so set operations need no extra argument.
type valueFuncs[V any] struct {
	equal func(a, b V) bool
	hash  func(v V) uint64
}

// valueSet is a hash-bucketed multiset of values for one key, mirroring the
// embedder's ValueHash/ValueEqual contract. Sets are only ever mutated while
// building a fresh logical node (C4) or a fresh base page (C7); once a page
// is installed its value sets are immutable, matching the page immutability
// invariant.
type valueSet[V any] struct {
	fns     valueFuncs[V]
	buckets map[uint64][]V
	size    int
}

func newValueSet[V any](fns valueFuncs[V]) *valueSet[V] {
	return &valueSet[V]{fns: fns, buckets: make(map[uint64][]V)}
}

// clone returns a deep, independent copy so the original may keep being
// treated as immutable while the copy is replayed onto.
func (s *valueSet[V]) clone() *valueSet[V] {
	c := &valueSet[V]{fns: s.fns, buckets: make(map[uint64][]V, len(s.buckets)), size: s.size}
	for h, vs := range s.buckets {
		cp := make([]V, len(vs))
		copy(cp, vs)
		c.buckets[h] = cp
	}
	return c
}

// contains reports whether v (by ValueEqual) is already present.
func (s *valueSet[V]) contains(v V) bool {
	h := s.fns.hash(v)
	for _, existing := range s.buckets[h] {
		if s.fns.equal(existing, v) {
			return true
		}
	}
	return false
}

// add inserts v, returning false if it was already present.
func (s *valueSet[V]) add(v V) bool {
	h := s.fns.hash(v)
	bucket := s.buckets[h]
	for _, existing := range bucket {
		if s.fns.equal(existing, v) {
			return false
		}
	}
	s.buckets[h] = append(bucket, v)
	s.size++
	return true
}

// addDup appends v unconditionally, without checking for an existing equal
// value. Used under Config.AllowDuplicateValuesPerKey, where a key's value
// "set" is really a counted multiset and re-inserting an equal value must
// grow its count rather than being ignored.
func (s *valueSet[V]) addDup(v V) {
	h := s.fns.hash(v)
	s.buckets[h] = append(s.buckets[h], v)
	s.size++
}

// remove deletes v, returning false if it was absent.
func (s *valueSet[V]) remove(v V) bool {
	h := s.fns.hash(v)
	bucket := s.buckets[h]
	for i, existing := range bucket {
		if s.fns.equal(existing, v) {
			bucket[i] = bucket[len(bucket)-1]
			s.buckets[h] = bucket[:len(bucket)-1]
			s.size--
			return true
		}
	}
	return false
}

func (s *valueSet[V]) len() int {
	return s.size
}

// forEach calls fn for every value. Iteration order is unspecified.
func (s *valueSet[V]) forEach(fn func(V)) {
	for _, bucket := range s.buckets {
		for _, v := range bucket {
			fn(v)
		}
	}
}

// snapshot returns an independent slice copy of the set's contents, used
// when handing values back across the public API.
func (s *valueSet[V]) snapshot() []V {
	out := make([]V, 0, s.size)
	s.forEach(func(v V) { out = append(out, v) })
	return out
}
