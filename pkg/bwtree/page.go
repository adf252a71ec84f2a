// pkg/bwtree/page.go
package bwtree

// NodeID is the 64-bit handle by which every tree edge refers to a page.
// NodeIds are minted by a monotonically increasing counter and are never
// recycled within a process lifetime.
type NodeID uint64

// InvalidNodeID is the sentinel returned where no NodeID applies.
const InvalidNodeID NodeID = ^NodeID(0)

// kind tags the variant a page record carries. The set of kinds is fixed and
// closed: navigation and the SMO engine pattern-match on it exhaustively
// rather than dispatching through an interface.
type kind uint8

const (
	kindInnerBase kind = iota
	kindLeafBase
	kindLeafInsert
	kindLeafDelete
	kindLeafUpdate
	kindInnerInsert
	kindInnerDelete
	kindLeafSplit
	kindInnerSplit
	kindLeafMerge
	kindInnerMerge
	kindLeafRemove
	kindInnerRemove
	kindLeafAbort
	kindInnerAbort
)

func (k kind) String() string {
	switch k {
	case kindInnerBase:
		return "InnerBase"
	case kindLeafBase:
		return "LeafBase"
	case kindLeafInsert:
		return "LeafInsert"
	case kindLeafDelete:
		return "LeafDelete"
	case kindLeafUpdate:
		return "LeafUpdate"
	case kindInnerInsert:
		return "InnerInsert"
	case kindInnerDelete:
		return "InnerDelete"
	case kindLeafSplit:
		return "LeafSplit"
	case kindInnerSplit:
		return "InnerSplit"
	case kindLeafMerge:
		return "LeafMerge"
	case kindInnerMerge:
		return "InnerMerge"
	case kindLeafRemove:
		return "LeafRemove"
	case kindInnerRemove:
		return "InnerRemove"
	case kindLeafAbort:
		return "LeafAbort"
	case kindInnerAbort:
		return "InnerAbort"
	default:
		return "Unknown"
	}
}

// isInner reports whether this kind belongs to the inner-node family.
func (k kind) isInner() bool {
	switch k {
	case kindInnerBase, kindInnerInsert, kindInnerDelete, kindInnerSplit, kindInnerMerge, kindInnerRemove, kindInnerAbort:
		return true
	default:
		return false
	}
}

// isBase reports whether this kind is a chain's bottom record.
func (k kind) isBase() bool {
	return k == kindInnerBase || k == kindLeafBase
}

// isSplit, isMerge, isRemove, isAbort identify the SMO-delta kinds that the
// help-along protocol must act on when observed at the top of a chain.
func (k kind) isSplit() bool  { return k == kindLeafSplit || k == kindInnerSplit }
func (k kind) isMerge() bool  { return k == kindLeafMerge || k == kindInnerMerge }
func (k kind) isRemove() bool { return k == kindLeafRemove || k == kindInnerRemove }
func (k kind) isAbort() bool  { return k == kindLeafAbort || k == kindInnerAbort }

// sep is one separator of a base inner page: a key and the NodeID of the
// child subtree it routes to.
type sep[K any] struct {
	key   extKey[K]
	child NodeID
}

// leafItem is one entry of a base leaf page: a key and its value set.
type leafItem[K any, V any] struct {
	key    extKey[K]
	values *valueSet[V]
}

// page is the flat, tagged variant record described by the source: every
// page carries a kind tag, and the fields relevant to that kind are read
// after a kind check rather than through open-ended dispatch. Delta records
// additionally carry depth (chain length below, plus one) and child
// (the next record down the chain); base records leave both unset to their
// zero values (depth 0, child nil).
type page[K any, V any] struct {
	k     kind
	depth uint32
	child *page[K, V] // delta chain: the record below this one
	right *page[K, V] // Merge only: physical pointer to the absorbed chain

	// InnerBase / LeafBase
	lbound, ubound extKey[K]
	nextID         NodeID
	seps           []sep[K]
	items          []leafItem[K, V]

	// LeafInsert / LeafDelete: key, value
	// LeafUpdate: key, oldValue, newValue
	key      extKey[K]
	value    V
	oldValue V
	newValue V

	// InnerInsert: key(=insertKey), nextKey, newNodeID
	// InnerDelete: key(=deletedKey), prevKey, nextKey, prevNodeID
	nextKey    extKey[K]
	prevKey    extKey[K]
	newNodeID  NodeID
	prevNodeID NodeID

	// LeafSplit / InnerSplit: splitKey, sibling
	// LeafMerge / InnerMerge: splitKey holds mergeKey, right holds the
	// absorbed chain (declared above, next to child).
	splitKey extKey[K]
	sibling  NodeID
}

// newDelta stamps depth = child.depth+1 per invariant I7 and links child.
func newDelta[K any, V any](k kind, child *page[K, V]) *page[K, V] {
	return &page[K, V]{k: k, depth: child.depth + 1, child: child}
}
