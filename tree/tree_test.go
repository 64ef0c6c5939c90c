package tree

import "testing"

type node struct {
	Links[*node]
	label string
}

func n(label string) *node { return &node{label: label} }

// chain collects sibling labels starting from first.
func chain(first *node) []string {
	var out []string
	for it := first; it != nil; it = it.Next() {
		out = append(out, it.label)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuilderFlat(t *testing.T) {
	var b Builder[*node]
	a, bb, c := n("A"), n("B"), n("C")
	b.AddElement(a)
	b.AddElement(bb)
	b.AddElement(c)

	root := b.Release()
	if root != a {
		t.Fatalf("Release() = %v, want A", root)
	}
	if got := chain(root); !equal(got, []string{"A", "B", "C"}) {
		t.Errorf("sibling chain = %v, want [A B C]", got)
	}
	if bb.Prev() != a || c.Prev() != bb {
		t.Error("prev links not wired")
	}
	if a.Parent() != nil || c.Parent() != nil {
		t.Error("root level nodes must have nil parent")
	}
}

func TestBuilderNested(t *testing.T) {
	var b Builder[*node]
	a, b1, b2, d := n("A"), n("B1"), n("B2"), n("D")
	b.AddElement(a)
	b.StartChildren()
	b.AddElement(b1)
	b.AddElement(b2)
	b.EndChildren()
	b.AddElement(d)

	root := b.Release()
	if root != a {
		t.Fatalf("Release() = %v, want A", root)
	}
	if got := chain(a.FirstChild()); !equal(got, []string{"B1", "B2"}) {
		t.Errorf("children of A = %v, want [B1 B2]", got)
	}
	if b1.Parent() != a || b2.Parent() != a {
		t.Error("child parent links not wired")
	}
	if a.Next() != d {
		t.Errorf("A.Next() = %v, want D", a.Next())
	}
	if d.FirstChild() != nil {
		t.Error("D should have no children")
	}
}

func TestBuilderParent(t *testing.T) {
	var b Builder[*node]
	if b.Parent() != nil {
		t.Error("Parent() of fresh builder should be nil")
	}
	a := n("A")
	b.AddElement(a)
	if b.Parent() != nil {
		t.Error("Parent() before StartChildren should be nil")
	}
	b.StartChildren()
	if b.Parent() != a {
		t.Errorf("Parent() = %v, want A", b.Parent())
	}
	b.AddElement(n("B"))
	b.EndChildren()
	if b.Parent() != nil {
		t.Error("Parent() after EndChildren should be nil")
	}
}

func TestBuilderEndChildrenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("EndChildren without StartChildren should panic")
		}
	}()
	var b Builder[*node]
	b.AddElement(n("A"))
	b.EndChildren()
}

func TestBuilderReuseAfterRelease(t *testing.T) {
	var b Builder[*node]
	b.AddElement(n("A"))
	first := b.Release()
	if first == nil || first.label != "A" {
		t.Fatalf("first Release() = %v, want A", first)
	}

	b.AddElement(n("X"))
	b.AddElement(n("Y"))
	second := b.Release()
	if got := chain(second); !equal(got, []string{"X", "Y"}) {
		t.Errorf("second tree = %v, want [X Y]", got)
	}
	if first.Next() != nil {
		t.Error("first tree must not leak into the second")
	}
}

func TestExtractMiddleSibling(t *testing.T) {
	var b Builder[*node]
	a, bb, c := n("A"), n("B"), n("C")
	b.AddElement(a)
	b.AddElement(bb)
	b.AddElement(c)
	root := b.Release()

	next := Extract(&root, bb)
	if next != c {
		t.Fatalf("Extract(B) = %v, want C", next)
	}
	if got := chain(root); !equal(got, []string{"A", "C"}) {
		t.Errorf("chain after extract = %v, want [A C]", got)
	}
	if bb.Parent() != nil || bb.Next() != nil || bb.Prev() != nil {
		t.Error("extracted node must have cleared linkage")
	}
}

func TestExtractKeepsSubtree(t *testing.T) {
	var b Builder[*node]
	a, bb, b1, c := n("A"), n("B"), n("B1"), n("C")
	b.AddElement(a)
	b.AddElement(bb)
	b.StartChildren()
	b.AddElement(b1)
	b.EndChildren()
	b.AddElement(c)
	root := b.Release()

	Extract(&root, bb)
	if bb.FirstChild() != b1 {
		t.Error("extracted node must keep its children")
	}
	if b1.Parent() != bb {
		t.Error("extracted subtree internal links must survive")
	}
	if got := chain(root); !equal(got, []string{"A", "C"}) {
		t.Errorf("remaining chain = %v, want [A C]", got)
	}
}

func TestExtractHeadUpdatesRoot(t *testing.T) {
	var b Builder[*node]
	a, bb := n("A"), n("B")
	b.AddElement(a)
	b.AddElement(bb)
	root := b.Release()

	next := Extract(&root, a)
	if next != bb {
		t.Fatalf("Extract(A) = %v, want B", next)
	}
	if root != bb {
		t.Errorf("root = %v, want B", root)
	}
	if bb.Prev() != nil {
		t.Error("new head must have nil prev")
	}
}

func TestExtractLastSibling(t *testing.T) {
	var b Builder[*node]
	a, bb := n("A"), n("B")
	b.AddElement(a)
	b.AddElement(bb)
	root := b.Release()

	if next := Extract(&root, bb); next != nil {
		t.Errorf("Extract(last) = %v, want nil", next)
	}
	if a.Next() != nil {
		t.Error("A.Next() should be nil after extracting B")
	}
	if got := chain(root); !equal(got, []string{"A"}) {
		t.Errorf("chain = %v, want [A]", got)
	}
}

func TestExtractFirstChild(t *testing.T) {
	var b Builder[*node]
	a, b1, b2 := n("A"), n("B1"), n("B2")
	b.AddElement(a)
	b.StartChildren()
	b.AddElement(b1)
	b.AddElement(b2)
	b.EndChildren()
	root := b.Release()

	if next := Extract(&root, b1); next != b2 {
		t.Fatalf("Extract(B1) = %v, want B2", next)
	}
	if a.FirstChild() != b2 {
		t.Errorf("A.FirstChild() = %v, want B2", a.FirstChild())
	}
	if b2.Prev() != nil {
		t.Error("B2.Prev() should be nil after extracting B1")
	}
	if root != a {
		t.Error("root must be unchanged when extracting a child")
	}
}

func TestExtractWhileIterating(t *testing.T) {
	var b Builder[*node]
	a, bb, c := n("A"), n("B"), n("C")
	b.AddElement(a)
	b.AddElement(bb)
	b.AddElement(c)
	root := b.Release()

	var visited []string
	for it := root; it != nil; {
		if it.label == "B" {
			it = Extract(&root, it)
			continue
		}
		visited = append(visited, it.label)
		it = it.Next()
	}
	if !equal(visited, []string{"A", "C"}) {
		t.Errorf("visited = %v, want [A C]", visited)
	}
}
