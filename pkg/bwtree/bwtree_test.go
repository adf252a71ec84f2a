// pkg/bwtree/bwtree_test.go
package bwtree

import (
	"testing"
)

func intFuncs() (func(a, b int) bool, func(a, b int) bool) {
	return func(a, b int) bool { return a < b }, func(a, b int) bool { return a == b }
}

func stringValueFuncs() (func(a, b string) bool, func(v string) uint64) {
	return func(a, b string) bool { return a == b }, stringFuncs().hash
}

func newIntTree(t *testing.T, cfg Config[int, string]) *Tree[int, string] {
	t.Helper()
	less, eq := intFuncs()
	cfg.KeyLess, cfg.KeyEqual = less, eq
	veq, vh := stringValueFuncs()
	cfg.ValueEqual, cfg.ValueHash = veq, vh
	tree, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree
}

func collect(t *testing.T, tree *Tree[int, string]) []int {
	t.Helper()
	var keys []int
	it := tree.Iter()
	for it.Next() {
		keys = append(keys, it.Key())
	}
	it.Close()
	return keys
}

// Scenario 1: ordering.
func TestOrdering(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	for _, k := range []int{5, 1, 9, 3, 7, 2, 8, 4, 6} {
		if _, err := tree.Insert(k, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	got := collect(t, tree)
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// Scenario 2: root split.
func TestRootSplit(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{LeafSizeUpper: 4, LeafSizeLower: 1})
	for i := 1; i <= 5; i++ {
		if _, err := tree.Insert(i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	got := collect(t, tree)
	want := []int{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	rootID := tree.table.loadRoot()
	root := tree.table.read(rootID)
	ln := materialize(tree, root)
	if len(ln.seps) != 2 {
		t.Fatalf("root has %d separators, want 2", len(ln.seps))
	}
}

// Scenario 3: duplicate values under a multiset value set.
func TestDuplicateValues(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{AllowDuplicateValuesPerKey: true})

	if _, err := tree.Insert(10, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Insert(10, "b"); err != nil {
		t.Fatal(err)
	}
	values, err := tree.Lookup(10)
	if err != nil {
		t.Fatal(err)
	}
	if !containsAll(values, "a", "b") || len(values) != 2 {
		t.Fatalf("lookup(10) = %v, want {a, b}", values)
	}

	if ok, err := tree.Delete(10, "a"); err != nil || !ok {
		t.Fatalf("Delete(10, a) = %v, %v", ok, err)
	}
	values, err = tree.Lookup(10)
	if err != nil {
		t.Fatal(err)
	}
	if !containsAll(values, "b") || len(values) != 1 {
		t.Fatalf("lookup(10) after delete = %v, want {b}", values)
	}
}

// Scenario 4: deletes that underflow a leaf, forcing a remove+merge, followed
// by an insert that must land correctly afterward.
func TestMergePath(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{LeafSizeUpper: 4, LeafSizeLower: 2})
	for i := 1; i <= 8; i++ {
		if _, err := tree.Insert(i, "v"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for _, k := range []int{5, 6, 7, 8} {
		if _, err := tree.Delete(k, "v"); err != nil {
			t.Fatalf("Delete(%d): %v", k, err)
		}
	}
	if _, err := tree.Insert(7, "v"); err != nil {
		t.Fatalf("re-insert(7): %v", err)
	}

	got := collect(t, tree)
	want := []int{1, 2, 3, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// Scenario 5: conditional insert.
func TestConditionalInsert(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	if _, err := tree.Insert(42, "A"); err != nil {
		t.Fatal(err)
	}
	inserted, satisfied, err := tree.ConditionalInsert(42, "B", func(existing string) bool { return existing == "A" })
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("ConditionalInsert should not have inserted")
	}
	if !satisfied {
		t.Error("predicate should have been reported satisfied")
	}
	values, err := tree.Lookup(42)
	if err != nil {
		t.Fatal(err)
	}
	if !containsAll(values, "A") || len(values) != 1 {
		t.Fatalf("lookup(42) = %v, want {A}", values)
	}
}

func TestInsertIdempotenceWithoutDuplicates(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	ok1, err := tree.Insert(1, "v")
	if err != nil || !ok1 {
		t.Fatalf("first insert: ok=%v err=%v", ok1, err)
	}
	ok2, err := tree.Insert(1, "v")
	if err != nil || ok2 {
		t.Fatalf("second insert should report already-present: ok=%v err=%v", ok2, err)
	}
}

func TestDeleteAbsentReportsFalse(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	ok, err := tree.Delete(1, "v")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("deleting an absent value should report false")
	}
}

func TestLookupMissingKey(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	if _, err := tree.Lookup(999); err != ErrNotFound {
		t.Fatalf("Lookup on missing key = %v, want ErrNotFound", err)
	}
}

func TestUpdateRejectsAbsentOld(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	if _, err := tree.Insert(1, "old"); err != nil {
		t.Fatal(err)
	}
	ok, err := tree.Update(1, "nonexistent", "new")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Update should report false when old value is absent")
	}
}

func TestUpdateSwapsValue(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	if _, err := tree.Insert(1, "old"); err != nil {
		t.Fatal(err)
	}
	ok, err := tree.Update(1, "old", "new")
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	values, err := tree.Lookup(1)
	if err != nil {
		t.Fatal(err)
	}
	if !containsAll(values, "new") || len(values) != 1 {
		t.Fatalf("lookup after update = %v, want {new}", values)
	}
}

func TestCloseIsIdempotentAndBlocksOperations(t *testing.T) {
	tree := newIntTree(t, Config[int, string]{})
	if err := tree.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tree.Close(); err != ErrClosed {
		t.Fatalf("second Close = %v, want ErrClosed", err)
	}
	if _, err := tree.Insert(1, "v"); err != ErrClosed {
		t.Fatalf("Insert after Close = %v, want ErrClosed", err)
	}
}

func containsAll(got []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
