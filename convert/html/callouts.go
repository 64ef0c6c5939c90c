package html

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bbhtml/chunk"
	"bbhtml/xmlparse"
)

// MaxCalloutGraphic is how many numbered callout images the installed
// graphics set carries. Larger numbers fall back to text markers.
const MaxCalloutGraphic = 15

type calloutInfo struct {
	number int
	coID   string // id of the co element pointing at this callout
}

// prepass numbers every calloutlist rendered from this chunk and
// records which co reference points at each callout, so both sides can
// link to each other during rendering. Inlined children run their own
// prepass when their body is reached, adding to the same page map.
func (g *generator) prepass(c *chunk.Chunk) {
	for _, n := range []*xmlparse.Node{c.Title, c.Info, c.Contents} {
		if n != nil {
			g.numberCalloutLists(n.FirstChild())
		}
	}
	for _, n := range []*xmlparse.Node{c.Title, c.Info, c.Contents} {
		if n != nil {
			g.indexCoRefs(n.FirstChild())
		}
	}
}

func (g *generator) numberCalloutLists(n *xmlparse.Node) {
	for it := n; it != nil; it = it.Next() {
		if it.IsElement("calloutlist") {
			count := 0
			g.numberCallouts(it.FirstChild(), &count)
			continue
		}
		g.numberCalloutLists(it.FirstChild())
	}
}

// numberCallouts assigns sequential numbers within one calloutlist.
// A nested calloutlist starts its own sequence.
func (g *generator) numberCallouts(n *xmlparse.Node, count *int) {
	for it := n; it != nil; it = it.Next() {
		switch {
		case it.IsElement("calloutlist"):
			nested := 0
			g.numberCallouts(it.FirstChild(), &nested)
		case it.IsElement("callout"):
			*count++
			info := &calloutInfo{number: *count}
			g.callouts[it] = info
			if id, ok := it.Attribute("id"); ok && id != "" {
				if _, dup := g.calloutIDs[id]; !dup {
					g.calloutIDs[id] = info
				}
			}
			g.numberCallouts(it.FirstChild(), count)
		default:
			g.numberCallouts(it.FirstChild(), count)
		}
	}
}

func (g *generator) indexCoRefs(n *xmlparse.Node) {
	for it := n; it != nil; it = it.Next() {
		if it.IsElement("co") {
			if target := coTarget(it); target != "" {
				if info := g.calloutIDs[target]; info != nil && info.coID == "" {
					info.coID, _ = it.Attribute("id")
				}
			}
		}
		g.indexCoRefs(it.FirstChild())
	}
}

// coTarget returns the first id named by the linkends attribute.
func coTarget(n *xmlparse.Node) string {
	v, ok := n.Attribute("linkends")
	if !ok {
		return ""
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (g *generator) calloutlist(n *xmlparse.Node) {
	g.open("div", n, "class", "calloutlist")
	g.sb.WriteByte('\n')
	g.children(n)
	g.close("div")
	g.sb.WriteByte('\n')
}

func (g *generator) callout(n *xmlparse.Node) {
	info := g.callouts[n]

	g.open("div", n, "class", "callout")
	if info == nil {
		id, _ := n.Attribute("id")
		g.log.Warn("Callout outside of a callout list", zap.String("id", id))
	} else if loc, ok := g.idx[info.coID]; info.coID != "" && ok {
		// link back to the marker referencing this entry
		g.sb.WriteString(`<a href="` + escapeAttr(g.href(loc)) + `">`)
		g.calloutMark(info.number)
		g.sb.WriteString("</a> ")
	} else {
		g.calloutMark(info.number)
		g.sb.WriteByte(' ')
	}
	g.children(n)
	g.close("div")
	g.sb.WriteByte('\n')
}

func (g *generator) co(n *xmlparse.Node) {
	target := coTarget(n)
	if target == "" {
		g.log.Warn("Callout reference without linkends")
		return
	}
	info := g.calloutIDs[target]
	if info == nil {
		g.log.Warn("Unresolved callout reference", zap.String("linkends", target))
		return
	}
	loc, ok := g.idx[target]
	if !ok {
		g.calloutMark(info.number)
		return
	}
	g.open("a", n, "href", g.href(loc))
	g.calloutMark(info.number)
	g.close("a")
}

// calloutMark emits the numbered marker, an image when graphics are
// installed and the number is small enough to have one.
func (g *generator) calloutMark(number int) {
	if g.opt.Graphics != "" && number <= MaxCalloutGraphic {
		icon := RelativeURL(g.path, fmt.Sprintf("%s/callouts/%d.svg", g.opt.Graphics, number), "")
		fmt.Fprintf(g.sb, `<img src="%s" alt="(%d)"/>`, escapeAttr(icon), number)
		return
	}
	fmt.Fprintf(g.sb, "(%d)", number)
}
