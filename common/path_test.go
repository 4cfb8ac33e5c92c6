package common

import "testing"

func TestPathBits(t *testing.T) {
	var digest Hash
	digest[0] = 0xA0 // 1010 0000

	path := PathFrom(digest)
	expected := []Direction{Right, Left, Right, Left}
	for i, want := range expected {
		if got := path.At(i); got != want {
			t.Errorf("bit %d: expected %v got %v", i, want, got)
		}
	}
	if path.At(255) != Left {
		t.Errorf("expected trailing zero bit to read Left")
	}
}

func TestPathCompare(t *testing.T) {
	var a, b Hash
	b[31] = 1

	if PathFrom(a).Compare(PathFrom(b)) >= 0 {
		t.Errorf("expected %x < %x", a, b)
	}
	if PathFrom(b).Compare(PathFrom(a)) <= 0 {
		t.Errorf("expected %x > %x", b, a)
	}
	if PathFrom(a).Compare(PathFrom(a)) != 0 {
		t.Errorf("expected equal paths to compare equal")
	}
}

func TestPrefixChildren(t *testing.T) {
	root := Root()
	if root.Depth() != 0 {
		t.Fatalf("expected root depth 0, got %d", root.Depth())
	}

	left := root.Left()
	right := root.Right()
	if left.Depth() != 1 || right.Depth() != 1 {
		t.Fatalf("expected child depth 1")
	}
	if left == right {
		t.Errorf("expected distinct children")
	}
	if left.At(0) != Left || right.At(0) != Right {
		t.Errorf("children record the wrong directions")
	}
}

func TestPrefixAncestor(t *testing.T) {
	p := Root().Right().Left().Right()
	if p.Ancestor(1) != Root().Right().Left() {
		t.Errorf("ancestor(1) mismatch")
	}
	if p.Ancestor(3) != Root() {
		t.Errorf("ancestor to root mismatch")
	}
}

func TestPrefixContains(t *testing.T) {
	var digest Hash
	digest[0] = 0x80 // first step Right

	path := PathFrom(digest)
	if !Root().Contains(path) {
		t.Errorf("root must contain every path")
	}
	if !Root().Right().Contains(path) {
		t.Errorf("expected Right prefix to contain the path")
	}
	if Root().Left().Contains(path) {
		t.Errorf("expected Left prefix to exclude the path")
	}
	if Root().Right().Right().Contains(path) {
		t.Errorf("expected Right.Right prefix to exclude the path")
	}
}

func TestPrefixOf(t *testing.T) {
	var digest Hash
	digest[0] = 0xC1
	path := PathFrom(digest)

	p := PrefixOf(path, 8)
	if p != Root().Right().Right().Left().Left().Left().Left().Left().Right() {
		t.Errorf("prefix reconstruction mismatch")
	}
	if !p.Contains(path) {
		t.Errorf("prefix of a path must contain it")
	}
}

func TestPrefixNormalization(t *testing.T) {
	// A Right step followed by stepping back must equal the plain prefix:
	// bits beyond the depth stay zero.
	if Root().Right().Ancestor(1) != Root() {
		t.Errorf("expected ancestor of Right to equal the root prefix")
	}
	if Root().Left().Right().Ancestor(1) != Root().Left() {
		t.Errorf("expected trailing bit to be cleared")
	}
}
