//go:build bwtree_debug

package bwtree

func init() {
	debugEnabled = true
}
