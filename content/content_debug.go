package content

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"bbhtml/chunk"
	"bbhtml/utils/debug"
)

// String returns a readable dump of the whole Content starting with the
// chunk tree. It exists solely for manual inspection during debugging.
func (c *Content) String() string {
	if c == nil {
		return "<nil Content>"
	}

	out := chunk.Dump(c.Root)

	if len(c.Index) > 0 {
		tw := debug.NewTreeWriter()
		tw.Line(0, "ID index (%d entries)", len(c.Index))
		keys := slices.Collect(maps.Keys(c.Index))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Line(1, "ID=%q -> %s", k, c.Index[k].URL())
		}
		out += "\n" + tw.String()
	}

	return out
}
