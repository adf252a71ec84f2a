// pkg/bwtree/errors.go
package bwtree

import "errors"

var (
	// ErrClosed is returned by any operation issued after Close.
	ErrClosed = errors.New("bwtree: tree is closed")

	// ErrNotFound is returned by Lookup-style calls that require a hit.
	ErrNotFound = errors.New("bwtree: key not found")

	// ErrInvalidValue describes a nil value passed where a value is required.
	// No operation of Tree returns it; values are not checked for nil.
	ErrInvalidValue = errors.New("bwtree: value must not be nil")

	// ErrInvalidConfig is returned by New when a required Config functor is nil.
	ErrInvalidConfig = errors.New("bwtree: KeyLess, KeyEqual, ValueEqual and ValueHash are required")
)
