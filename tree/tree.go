// Package tree implements the intrusive n-ary tree backing both the
// parsed XML document tree and the chunk tree. Concrete node types embed
// Links parameterized by their own pointer type; whoever holds a subtree
// root owns it, and extraction is pure link surgery.
package tree

// Links holds the intrusive linkage of a tree node:
//
//	type Node struct {
//		tree.Links[*Node]
//		...
//	}
//
// Embedding Links gives the node Parent/FirstChild/Next/Prev accessors
// and satisfies the Node constraint.
type Links[P any] struct {
	parent P
	first  P
	next   P
	prev   P
}

// links anchors the Node constraint to types embedding Links.
func (l *Links[P]) links() *Links[P] { return l }

// Parent returns the node's parent, nil at a subtree root.
func (l *Links[P]) Parent() P { return l.parent }

// FirstChild returns the node's first child, nil for a leaf.
func (l *Links[P]) FirstChild() P { return l.first }

// Next returns the next sibling in document order.
func (l *Links[P]) Next() P { return l.next }

// Prev returns the previous sibling in document order.
func (l *Links[P]) Prev() P { return l.prev }

// Node constrains a tree node pointer type: comparable, with embedded
// Links. Only types embedding Links can satisfy it.
type Node[P any] interface {
	comparable
	links() *Links[P]
}

// Extract removes n and its whole subtree from the tree rooted at *root,
// repairing sibling and parent links at the removal point, and returns
// n's former next sibling so iteration over the shortened chain resumes
// in the right place. The extracted node keeps its children and becomes
// the root of an independent subtree. Extracting the tree's own root is
// permitted and moves *root to the former next sibling.
func Extract[P Node[P]](root *P, n P) P {
	var zero P
	l := n.links()
	next := l.next
	if l.prev == zero {
		if l.parent != zero {
			l.parent.links().first = next
		} else {
			*root = next
		}
	} else {
		l.prev.links().next = next
	}
	if next != zero {
		next.links().prev = l.prev
	}
	l.parent = zero
	l.next = zero
	l.prev = zero
	return next
}

// Builder constructs a tree incrementally, mirroring recursive descent:
// AddElement appends at the current depth, StartChildren descends into
// the node just added, EndChildren ascends. The zero value is ready to
// use.
type Builder[P Node[P]] struct {
	root    P
	current P
	parent  P
}

// AddElement appends n as the next sibling of the most recently added
// node at the current depth, or as the first child when the open level
// is still empty.
func (b *Builder[P]) AddElement(n P) {
	var zero P
	l := n.links()
	l.parent = b.parent
	l.prev = b.current
	if b.current != zero {
		b.current.links().next = n
	} else if b.parent != zero {
		b.parent.links().first = n
	} else {
		b.root = n
	}
	b.current = n
}

// StartChildren descends into the node added last; subsequent AddElement
// calls append to its child list.
func (b *Builder[P]) StartChildren() {
	var zero P
	b.parent = b.current
	b.current = zero
}

// EndChildren ascends back to the parent level. Calling it with no
// matching StartChildren is a contract violation and panics.
func (b *Builder[P]) EndChildren() {
	var zero P
	if b.parent == zero {
		panic("tree: EndChildren without StartChildren")
	}
	b.current = b.parent
	b.parent = b.current.links().parent
}

// Parent returns the node whose child level is currently open, nil at
// the root level.
func (b *Builder[P]) Parent() P { return b.parent }

// Release detaches the built tree from the builder and returns its
// root. The builder resets and can be reused.
func (b *Builder[P]) Release() P {
	var zero P
	r := b.root
	b.root = zero
	b.current = zero
	b.parent = zero
	return r
}
