// pkg/bwtree/key.go
package bwtree

// boundKind tags the three points of the extended key domain used throughout
// the tree: the two sentinels that bound every node's range, and a raw key
// supplied by the embedder.
type boundKind uint8

const (
	boundNegInf boundKind = iota
	boundRaw
	boundPosInf
)

// extKey is the extended key domain { -inf, Raw(k), +inf } with total order
// negInf < Raw(a) < Raw(b) < posInf iff the embedder orders a < b.
type extKey[K any] struct {
	kind boundKind
	raw  K
}

func negInf[K any]() extKey[K] {
	return extKey[K]{kind: boundNegInf}
}

func posInf[K any]() extKey[K] {
	return extKey[K]{kind: boundPosInf}
}

func rawKey[K any](k K) extKey[K] {
	return extKey[K]{kind: boundRaw, raw: k}
}

func (k extKey[K]) isRaw() bool {
	return k.kind == boundRaw
}

// comparator lifts the embedder's raw-key comparator and equality functor
// into the extended domain. It carries no state beyond the two closures,
// matching the "may carry context, not default-constructible" requirement
// on KeyCompare in the embedder contract.
type comparator[K any] struct {
	lessFn  func(a, b K) bool
	equalFn func(a, b K) bool
}

// Less reports whether a orders strictly before b in the extended domain.
func (c comparator[K]) Less(a, b extKey[K]) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.kind == boundRaw {
		return c.lessFn(a.raw, b.raw)
	}
	return false
}

// Equal reports structural equality: sentinels compare equal to themselves,
// two Raw values are equal iff the embedder's equality functor says so.
func (c comparator[K]) Equal(a, b extKey[K]) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == boundRaw {
		return c.equalFn(a.raw, b.raw)
	}
	return true
}

// LessEq reports a <= b.
func (c comparator[K]) LessEq(a, b extKey[K]) bool {
	return !c.Less(b, a)
}

// InRange reports whether k lies in the half-open interval [lo, hi).
func (c comparator[K]) InRange(k, lo, hi extKey[K]) bool {
	return !c.Less(k, lo) && c.Less(k, hi)
}

// Min returns the lesser of a and b.
func (c comparator[K]) Min(a, b extKey[K]) extKey[K] {
	if c.Less(a, b) {
		return a
	}
	return b
}
