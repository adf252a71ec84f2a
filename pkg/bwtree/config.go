// pkg/bwtree/config.go
package bwtree

import (
	"time"

	"github.com/go-logr/logr"
)

// Default tuning knobs, as prescribed by the embedder contract. The source
// notes these are sized for testing, not production; callers that know their
// cache-line and working-set characteristics should override them.
const (
	DefaultMappingTableCapacity = 1 << 24
	DefaultDeltaChainThreshold  = 8
	DefaultInnerSizeUpper       = 16
	DefaultInnerSizeLower       = 7
	DefaultLeafSizeUpper        = 16
	DefaultLeafSizeLower        = 7
	DefaultGCPeriod             = 50 * time.Millisecond
)

// Config carries the type parameters and tunables an embedder supplies when
// opening a tree. KeyLess and KeyEqual together define the total order and
// equality on raw keys; ValueEqual and ValueHash define identity on values.
// None of the four are default-constructible — a zero Config is invalid.
type Config[K any, V any] struct {
	// KeyLess is the total-order less-than on raw keys. Required.
	KeyLess func(a, b K) bool
	// KeyEqual is equality on raw keys. Required.
	KeyEqual func(a, b K) bool
	// ValueEqual is equality on values. Required.
	ValueEqual func(a, b V) bool
	// ValueHash is a 64-bit hash functor on values, used to bucket a key's
	// value set. Required.
	ValueHash func(v V) uint64

	// MappingTableCapacity bounds the number of live NodeIds. Default
	// DefaultMappingTableCapacity.
	MappingTableCapacity int
	// DeltaChainThreshold triggers consolidation once a chain reaches this
	// depth. Default DefaultDeltaChainThreshold.
	DeltaChainThreshold int
	// InnerSizeUpper/Lower bound a base inner page's separator count before
	// a split or remove is triggered. Defaults DefaultInnerSizeUpper/Lower.
	InnerSizeUpper, InnerSizeLower int
	// LeafSizeUpper/Lower bound a base leaf page's item count before a
	// split or remove is triggered. Defaults DefaultLeafSizeUpper/Lower.
	LeafSizeUpper, LeafSizeLower int
	// GCPeriod is the reclaimer's wake interval. Default DefaultGCPeriod.
	GCPeriod time.Duration
	// AllowDuplicateValuesPerKey controls whether Insert accepts a value
	// that ValueEqual already reports present for the key.
	AllowDuplicateValuesPerKey bool

	// Logger receives tree-opened and epoch-reclaimed messages at V(1). In
	// builds with the bwtree_debug tag it also receives CAS traces, keyed by
	// NodeID and delta kind, at V(2) and invariant violations via Error.
	// Defaults to a no-op logr.Logger.
	Logger logr.Logger
}

func (c *Config[K, V]) setDefaults() {
	if c.MappingTableCapacity <= 0 {
		c.MappingTableCapacity = DefaultMappingTableCapacity
	}
	if c.DeltaChainThreshold <= 0 {
		c.DeltaChainThreshold = DefaultDeltaChainThreshold
	}
	if c.InnerSizeUpper <= 0 {
		c.InnerSizeUpper = DefaultInnerSizeUpper
	}
	if c.InnerSizeLower <= 0 {
		c.InnerSizeLower = DefaultInnerSizeLower
	}
	if c.LeafSizeUpper <= 0 {
		c.LeafSizeUpper = DefaultLeafSizeUpper
	}
	if c.LeafSizeLower <= 0 {
		c.LeafSizeLower = DefaultLeafSizeLower
	}
	if c.GCPeriod <= 0 {
		c.GCPeriod = DefaultGCPeriod
	}
	if c.Logger.IsZero() {
		c.Logger = logr.Discard()
	}
}
