// Package chunk extracts the output structure from a parsed document:
// one Chunk per structural element (book, chapter, section, ...), each
// owning its detached title/info and the remaining element body, plus
// the inlining passes that decide which chunks share a page and the id
// index that resolves cross-references.
package chunk

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bbhtml/tree"
	"bbhtml/xmlparse"
)

// Chunk is one unit of output: a document section that becomes its own
// HTML page or an inlined fragment of an ancestor's page.
type Chunk struct {
	tree.Links[*Chunk]
	ID       string
	Path     string
	Inline   bool
	Title    *xmlparse.Node // detached <title> element, may be nil
	Info     *xmlparse.Node // detached <Xinfo> element, may be nil
	Contents *xmlparse.Node // the chunk element with title/info removed
}

// Name returns the chunk element's name (book, chapter, section, ...).
func (c *Chunk) Name() string {
	if c.Contents == nil {
		return ""
	}
	return c.Contents.Name
}

// TitleText flattens the chunk title to plain text, dropping any markup.
// Returns empty string for chunks without a title.
func (c *Chunk) TitleText() string {
	if c.Title == nil {
		return ""
	}
	var sb strings.Builder
	flattenText(&sb, c.Title.FirstChild())
	return sb.String()
}

func flattenText(sb *strings.Builder, n *xmlparse.Node) {
	for it := n; it != nil; it = it.Next() {
		if it.Kind == xmlparse.TextNode {
			sb.WriteString(it.Text)
		}
		flattenText(sb, it.FirstChild())
	}
}

// chunkNames are the element names that open a new output chunk.
var chunkNames = map[string]bool{
	"book":      true,
	"article":   true,
	"library":   true,
	"chapter":   true,
	"part":      true,
	"appendix":  true,
	"preface":   true,
	"qandadiv":  true,
	"qandaset":  true,
	"reference": true,
	"set":       true,
	"section":   true,
}

// infoNames pair each chunk name with its metadata element
// (chapterinfo, sectioninfo, ...).
var infoNames = func() map[string]bool {
	m := make(map[string]bool, len(chunkNames))
	for name := range chunkNames {
		m[name+"info"] = true
	}
	return m
}()

// Document walks the parsed tree and builds the chunk structure. Chunk
// elements are extracted out of the document tree into Chunks, with
// their direct title and info children detached into dedicated slots;
// everything else stays attached under the owning chunk's contents.
// A chunk element nested inside non-chunk markup still becomes its own
// chunk, parented to the nearest enclosing chunk.
func Document(root *xmlparse.Node, log *zap.Logger) *Chunk {
	c := &chunker{root: root, log: log}
	for it := c.root; it != nil; {
		it = c.node(it, false)
	}
	return c.b.Release()
}

type chunker struct {
	b     tree.Builder[*Chunk]
	root  *xmlparse.Node
	count int
	log   *zap.Logger
}

// node processes one document node and returns the sibling to continue
// from. direct marks nodes sitting immediately under the current
// chunk's own element: only those may donate title/info.
func (c *chunker) node(n *xmlparse.Node, direct bool) *xmlparse.Node {
	parent := c.b.Parent()
	switch {
	case parent != nil && direct && n.IsElement("title"):
		parent.Title = n
		return tree.Extract(&c.root, n)

	case parent != nil && direct && n.Kind == xmlparse.ElementNode && infoNames[n.Name]:
		parent.Info = n
		return tree.Extract(&c.root, n)

	case n.Kind == xmlparse.ElementNode && chunkNames[n.Name]:
		chk := &Chunk{Contents: n}
		if id, ok := n.Attribute("id"); ok && id != "" {
			chk.ID = id
		} else {
			chk.ID = c.nextPageID()
		}
		chk.Path = idToPath(chk.ID)
		next := tree.Extract(&c.root, n)
		c.b.AddElement(chk)
		c.b.StartChildren()
		for it := n.FirstChild(); it != nil; {
			it = c.node(it, true)
		}
		c.b.EndChildren()
		c.log.Debug("New chunk",
			zap.String("element", n.Name),
			zap.String("id", chk.ID),
			zap.String("path", chk.Path))
		return next

	case n.Kind == xmlparse.ElementNode:
		// Descend so chunk elements inside plain markup are still found.
		for it := n.FirstChild(); it != nil; {
			it = c.node(it, false)
		}
		return n.Next()

	default:
		return n.Next()
	}
}

func (c *chunker) nextPageID() string {
	c.count++
	return "page-" + strconv.Itoa(c.count)
}

// idToPath derives the output-relative file path for a chunk id: dots
// become directory separators and ".html" is appended.
func idToPath(id string) string {
	return strings.ReplaceAll(id, ".", "/") + ".html"
}
