// pkg/bwtree/key_test.go
package bwtree

import "testing"

func intCmp() comparator[int] {
	return comparator[int]{
		lessFn:  func(a, b int) bool { return a < b },
		equalFn: func(a, b int) bool { return a == b },
	}
}

func TestExtKeyOrdering(t *testing.T) {
	c := intCmp()
	neg, pos := negInf[int](), posInf[int]()
	five, nine := rawKey(5), rawKey(9)

	cases := []struct {
		a, b extKey[int]
		want bool
	}{
		{neg, five, true},
		{five, neg, false},
		{five, nine, true},
		{nine, five, false},
		{five, pos, true},
		{pos, five, false},
		{neg, pos, true},
	}
	for _, tc := range cases {
		if got := c.Less(tc.a, tc.b); got != tc.want {
			t.Errorf("Less(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestExtKeyEquality(t *testing.T) {
	c := intCmp()
	if !c.Equal(negInf[int](), negInf[int]()) {
		t.Error("NegInf should equal itself")
	}
	if !c.Equal(posInf[int](), posInf[int]()) {
		t.Error("PosInf should equal itself")
	}
	if c.Equal(negInf[int](), posInf[int]()) {
		t.Error("NegInf should not equal PosInf")
	}
	if !c.Equal(rawKey(3), rawKey(3)) {
		t.Error("equal raw keys should compare equal")
	}
	if c.Equal(rawKey(3), rawKey(4)) {
		t.Error("distinct raw keys should not compare equal")
	}
}

func TestExtKeyInRange(t *testing.T) {
	c := intCmp()
	lo, hi := rawKey(2), rawKey(8)
	for _, k := range []int{2, 3, 7} {
		if !c.InRange(rawKey(k), lo, hi) {
			t.Errorf("%d should be in [2, 8)", k)
		}
	}
	for _, k := range []int{1, 8, 9} {
		if c.InRange(rawKey(k), lo, hi) {
			t.Errorf("%d should not be in [2, 8)", k)
		}
	}
	if !c.InRange(rawKey(-100), negInf[int](), posInf[int]()) {
		t.Error("everything should be in [-inf, +inf)")
	}
}
