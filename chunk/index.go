package chunk

import (
	"go.uber.org/zap"

	"bbhtml/xmlparse"
)

// Location resolves an id: an output-relative page path plus an
// optional in-page fragment.
type Location struct {
	Path     string
	Fragment string // empty when the id addresses the whole page
}

// URL renders the location relative to the output root.
func (l Location) URL() string {
	if l.Fragment == "" {
		return l.Path
	}
	return l.Path + "#" + l.Fragment
}

// Index maps every id in the document to where it lands in the output.
type Index map[string]Location

// BuildIndex walks the finished chunk tree and records where every id
// ends up: a chunk's own id maps to its page (with the id as fragment
// when the chunk is inlined), and every id-bearing element inside
// title, info or contents maps to the page plus that id as fragment.
// Duplicate ids keep the first entry. Run after Layout.
func BuildIndex(root *Chunk, log *zap.Logger) Index {
	idx := make(Index)
	for c := root; c != nil; c = c.Next() {
		indexChunk(idx, c, log)
	}
	return idx
}

func indexChunk(idx Index, c *Chunk, log *zap.Logger) {
	if c.ID != "" {
		loc := Location{Path: c.Path}
		if c.Inline {
			loc.Fragment = c.ID
		}
		insert(idx, c.ID, loc, log)
	}

	indexNodes(idx, c.Title, c, log)
	indexNodes(idx, c.Info, c, log)
	if c.Contents != nil {
		// The contents root is the chunk element itself; its id is
		// already indexed as the chunk location.
		for it := c.Contents.FirstChild(); it != nil; it = it.Next() {
			indexNodes(idx, it, c, log)
		}
	}

	for it := c.FirstChild(); it != nil; it = it.Next() {
		indexChunk(idx, it, log)
	}
}

func indexNodes(idx Index, n *xmlparse.Node, c *Chunk, log *zap.Logger) {
	if n == nil {
		return
	}
	if n.Kind == xmlparse.ElementNode {
		if id, ok := n.Attribute("id"); ok && id != "" {
			insert(idx, id, Location{Path: c.Path, Fragment: id}, log)
		}
	}
	for it := n.FirstChild(); it != nil; it = it.Next() {
		indexNodes(idx, it, c, log)
	}
}

func insert(idx Index, id string, loc Location, log *zap.Logger) {
	if _, dup := idx[id]; dup {
		log.Warn("Duplicate id, keeping the first occurrence", zap.String("id", id))
		return
	}
	idx[id] = loc
}
