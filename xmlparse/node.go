// Package xmlparse parses BoostBook-flavored XML into an intrusive node
// tree. The parse is well-formedness level only: no DTD handling, no
// entity expansion (escapes stay verbatim in text nodes), and close tags
// must match the innermost open element exactly.
package xmlparse

import (
	"strings"

	"bbhtml/tree"
)

// NodeKind discriminates the node variants.
type NodeKind int

const (
	// ElementNode is a tag with a name, attributes and children.
	ElementNode NodeKind = iota
	// TextNode is raw character content between tags.
	TextNode
)

// Attr is a single attribute as written in the source tag. Order and
// duplicates are preserved; lookups return the first match.
type Attr struct {
	Name  string
	Value string
}

// Node is one node of the parsed document tree.
type Node struct {
	tree.Links[*Node]
	Kind  NodeKind
	Name  string // element name, empty for text nodes
	Text  string // raw text content, empty for elements
	Attrs []Attr
}

// NewElement returns an element node with the given name.
func NewElement(name string) *Node { return &Node{Kind: ElementNode, Name: name} }

// NewText returns a text node carrying raw content.
func NewText(text string) *Node { return &Node{Kind: TextNode, Text: text} }

// Attribute returns the value of the first attribute with the given
// name. Duplicate attributes are legal in the tree; the first one wins.
func (n *Node) Attribute(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute appends an attribute to the node.
func (n *Node) SetAttribute(name, value string) {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// IsElement reports whether n is an element named name. Safe on nil.
func (n *Node) IsElement(name string) bool {
	return n != nil && n.Kind == ElementNode && n.Name == name
}

// Serialize renders the sibling chain starting at first back to markup.
// Tag whitespace and attribute quoting are normalized; elements without
// children collapse to the self-closing form; text is emitted verbatim.
func Serialize(first *Node) string {
	var sb strings.Builder
	for it := first; it != nil; it = it.Next() {
		serializeNode(&sb, it)
	}
	return sb.String()
}

func serializeNode(sb *strings.Builder, n *Node) {
	if n.Kind == TextNode {
		sb.WriteString(n.Text)
		return
	}
	sb.WriteByte('<')
	sb.WriteString(n.Name)
	for _, a := range n.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		sb.WriteString(a.Value)
		sb.WriteByte('"')
	}
	if n.FirstChild() == nil {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	for c := n.FirstChild(); c != nil; c = c.Next() {
		serializeNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Name)
	sb.WriteByte('>')
}
