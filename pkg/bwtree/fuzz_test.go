// pkg/bwtree/fuzz_test.go
package bwtree

import (
	"sort"
	"testing"

	fuzz "github.com/google/gofuzz"
)

// TestFuzzAgainstReferenceMultimap drives a sequence of randomized
// insert/delete/lookup operations against both a Tree and a plain in-memory
// reference multimap, checking that Lookup always agrees with the
// reference. This exercises the same property the embedder contract states
// for insert/delete/lookup consistency under small key and value domains,
// where collisions, duplicate inserts and deletes-of-absent-values are all
// likely to occur.
func TestFuzzAgainstReferenceMultimap(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 1)

	tree := newIntTree(t, Config[int, string]{
		LeafSizeUpper:       6,
		LeafSizeLower:       2,
		DeltaChainThreshold: 3,
	})
	reference := map[int]map[string]bool{}

	const ops = 4000
	for i := 0; i < ops; i++ {
		var keyRaw, valueRaw int
		var op uint8
		f.Fuzz(&op)
		f.Fuzz(&keyRaw)
		f.Fuzz(&valueRaw)
		key := keyRaw % 40
		value := "v" + itoa(valueRaw%6)

		switch op % 3 {
		case 0: // insert
			ok, err := tree.Insert(key, value)
			if err != nil {
				t.Fatalf("Insert(%d, %s): %v", key, value, err)
			}
			wantOK := !reference[key][value]
			if ok != wantOK {
				t.Fatalf("Insert(%d, %s) = %v, want %v", key, value, ok, wantOK)
			}
			if reference[key] == nil {
				reference[key] = map[string]bool{}
			}
			reference[key][value] = true

		case 1: // delete
			ok, err := tree.Delete(key, value)
			if err != nil {
				t.Fatalf("Delete(%d, %s): %v", key, value, err)
			}
			wantOK := reference[key][value]
			if ok != wantOK {
				t.Fatalf("Delete(%d, %s) = %v, want %v", key, value, ok, wantOK)
			}
			delete(reference[key], value)

		case 2: // lookup
			values, err := tree.Lookup(key)
			want := reference[key]
			if len(want) == 0 {
				if err != ErrNotFound {
					t.Fatalf("Lookup(%d) = %v, want ErrNotFound", key, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("Lookup(%d): %v", key, err)
			}
			if !sameSet(values, want) {
				t.Fatalf("Lookup(%d) = %v, want %v", key, values, setKeys(want))
			}
		}
	}

	// Final full-tree cross-check via iteration.
	it := tree.Iter()
	seen := map[int]bool{}
	for it.Next() {
		k := it.Key()
		if seen[k] {
			t.Fatalf("iterator repeated key %d", k)
		}
		seen[k] = true
		if !sameSet(it.Values(), reference[k]) {
			t.Fatalf("iterator values for %d = %v, want %v", k, it.Values(), setKeys(reference[k]))
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	it.Close()
	for k, vs := range reference {
		if len(vs) > 0 && !seen[k] {
			t.Fatalf("iterator missed key %d with values %v", k, setKeys(vs))
		}
	}
}

func sameSet(got []string, want map[string]bool) bool {
	if len(got) != len(want) {
		return false
	}
	for _, v := range got {
		if !want[v] {
			return false
		}
	}
	return true
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
