package chunk

import (
	"bbhtml/utils/debug"
	"bbhtml/xmlparse"
)

// Dump renders the chunk tree as indented text for logs and debug
// reports.
func Dump(root *Chunk) string {
	tw := debug.NewTreeWriter()
	for c := root; c != nil; c = c.Next() {
		dumpChunk(tw, c, 0)
	}
	return tw.String()
}

func dumpChunk(tw *debug.TreeWriter, c *Chunk, depth int) {
	tw.Line(depth, "chunk %s id=%q path=%q inline=%v", c.Name(), c.ID, c.Path, c.Inline)
	if c.Title != nil {
		tw.TextBlock(depth+1, "title", xmlparse.Serialize(c.Title))
	}
	if c.Info != nil {
		tw.TextBlock(depth+1, "info", xmlparse.Serialize(c.Info))
	}
	if c.Contents != nil {
		tw.TextBlock(depth+1, "contents", xmlparse.Serialize(c.Contents))
	}
	for it := c.FirstChild(); it != nil; it = it.Next() {
		dumpChunk(tw, it, depth+1)
	}
}
