package html

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bbhtml/xmlparse"
)

type handler func(*generator, *xmlparse.Node)

// newHandlerTable builds the element dispatch table. It is created
// once per generator and never mutated afterwards.
func newHandlerTable() map[string]handler {
	return map[string]handler{
		"para":           block("p"),
		"simpara":        block("p"),
		"blockquote":     block("blockquote"),
		"programlisting": block("pre"),
		"itemizedlist":   block("ul"),
		"orderedlist":    block("ol"),
		"listitem":       block("li"),

		"literal":     inline("code"),
		"quote":       inline("q"),
		"replaceable": inlineClass("i", "replaceable"),

		"note":      admonition("note"),
		"tip":       admonition("tip"),
		"warning":   admonition("warning"),
		"caution":   admonition("caution"),
		"important": admonition("important"),

		"sbr": void("br"),

		"emphasis": (*generator).emphasis,
		"phrase":   (*generator).phrase,
		"sidebar":  (*generator).sidebar,
		"ulink":    (*generator).ulink,
		"link":     (*generator).link,
		"anchor":   (*generator).anchor,

		"table":         (*generator).table,
		"informaltable": (*generator).table,
		"variablelist":  (*generator).variablelist,

		"mediaobject":       (*generator).mediaobject,
		"inlinemediaobject": (*generator).mediaobject,

		"footnote":    (*generator).footnote,
		"calloutlist": (*generator).calloutlist,
		"callout":     (*generator).callout,
		"co":          (*generator).co,
	}
}

// node renders one node. Text goes out verbatim, keeping the source
// escaping. Elements without a handler contribute their children only.
func (g *generator) node(n *xmlparse.Node) {
	if n.Kind == xmlparse.TextNode {
		g.sb.WriteString(n.Text)
		return
	}
	if h, ok := g.handlers[n.Name]; ok {
		h(g, n)
		return
	}
	g.log.Warn("Unknown element, rendering children only", zap.String("element", n.Name))
	g.children(n)
}

func (g *generator) children(n *xmlparse.Node) {
	for it := n.FirstChild(); it != nil; it = it.Next() {
		g.node(it)
	}
}

// open writes an opening tag, carrying over the source id unless the
// output goes into a table of contents entry, then any extra
// name/value attribute pairs.
func (g *generator) open(tag string, n *xmlparse.Node, attrs ...string) {
	g.sb.WriteByte('<')
	g.sb.WriteString(tag)
	if n != nil && !g.inTOC {
		if id, ok := n.Attribute("id"); ok && id != "" {
			g.attr("id", id)
		}
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		g.attr(attrs[i], attrs[i+1])
	}
	g.sb.WriteByte('>')
}

func (g *generator) close(tag string) {
	g.sb.WriteString("</" + tag + ">")
}

func (g *generator) attr(name, value string) {
	g.sb.WriteByte(' ')
	g.sb.WriteString(name)
	g.sb.WriteString(`="`)
	g.sb.WriteString(escapeAttr(value))
	g.sb.WriteByte('"')
}

// escapeAttr protects emitted attribute values. Source text stays
// verbatim with its entities, so only the quote needs care.
func escapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}

func block(tag string) handler {
	return func(g *generator, n *xmlparse.Node) {
		g.open(tag, n)
		g.children(n)
		g.close(tag)
		g.sb.WriteByte('\n')
	}
}

func inline(tag string) handler {
	return func(g *generator, n *xmlparse.Node) {
		g.open(tag, n)
		g.children(n)
		g.close(tag)
	}
}

func inlineClass(tag, class string) handler {
	return func(g *generator, n *xmlparse.Node) {
		g.open(tag, n, "class", class)
		g.children(n)
		g.close(tag)
	}
}

func admonition(class string) handler {
	return func(g *generator, n *xmlparse.Node) {
		g.open("div", n, "class", class)
		g.children(n)
		g.close("div")
		g.sb.WriteByte('\n')
	}
}

func void(tag string) handler {
	return func(g *generator, n *xmlparse.Node) {
		g.sb.WriteString("<" + tag + "/>")
	}
}

func (g *generator) emphasis(n *xmlparse.Node) {
	switch role, _ := n.Attribute("role"); role {
	case "bold", "strong":
		g.open("strong", n)
		g.children(n)
		g.close("strong")
	case "":
		g.open("em", n)
		g.children(n)
		g.close("em")
	default:
		g.open("span", n, "class", role)
		g.children(n)
		g.close("span")
	}
}

func (g *generator) phrase(n *xmlparse.Node) {
	role, ok := n.Attribute("role")
	if ok {
		g.open("span", n, "class", role)
		g.children(n)
		g.close("span")
		return
	}
	if id, has := n.Attribute("id"); has && id != "" && !g.inTOC {
		// keep the anchor even without a role
		g.open("span", n)
		g.children(n)
		g.close("span")
		return
	}
	g.children(n)
}

func (g *generator) sidebar(n *xmlparse.Node) {
	class := "sidebar"
	if role, ok := n.Attribute("role"); ok && role == "blurb" {
		class = "blurb"
	}
	g.open("div", n, "class", class)
	g.children(n)
	g.close("div")
	g.sb.WriteByte('\n')
}

func (g *generator) ulink(n *xmlparse.Node) {
	url, ok := n.Attribute("url")
	if !ok || url == "" {
		g.log.Warn("External link without url attribute")
		g.open("a", n)
		g.children(n)
		g.close("a")
		return
	}
	g.open("a", n, "href", g.externalURL(url))
	g.children(n)
	g.close("a")
}

// externalURL rewrites boost: scheme references to the configured
// documentation root and passes everything else through untouched.
func (g *generator) externalURL(u string) string {
	rest, ok := strings.CutPrefix(u, "boost:")
	if !ok {
		return u
	}
	return g.opt.BoostRoot + strings.TrimPrefix(rest, "/")
}

func (g *generator) link(n *xmlparse.Node) {
	if target, ok := n.Attribute("linkend"); ok {
		if loc, found := g.idx[target]; found {
			g.open("a", n, "href", g.href(loc))
			g.children(n)
			g.close("a")
			return
		}
		g.log.Warn("Unresolved linkend", zap.String("linkend", target))
	} else {
		g.log.Warn("Link without linkend attribute")
	}
	g.open("a", n)
	g.children(n)
	g.close("a")
}

func (g *generator) anchor(n *xmlparse.Node) {
	g.open("a", n)
	g.close("a")
}

func (g *generator) table(n *xmlparse.Node) {
	var title, tgroup *xmlparse.Node
	for it := n.FirstChild(); it != nil; it = it.Next() {
		switch {
		case it.IsElement("title"):
			title = it
		case it.IsElement("tgroup"):
			tgroup = it
		}
	}

	g.open("table", n)
	g.sb.WriteByte('\n')
	if title != nil {
		g.sb.WriteString("<caption>")
		g.children(title)
		g.sb.WriteString("</caption>\n")
	}
	if tgroup == nil {
		g.log.Warn("Table without tgroup")
	} else {
		for it := tgroup.FirstChild(); it != nil; it = it.Next() {
			switch {
			case it.IsElement("thead"):
				g.sb.WriteString("<thead>\n")
				g.rows(it, "th")
				g.sb.WriteString("</thead>\n")
			case it.IsElement("tbody"):
				g.sb.WriteString("<tbody>\n")
				g.rows(it, "td")
				g.sb.WriteString("</tbody>\n")
			case it.IsElement("tfoot"):
				g.sb.WriteString("<tfoot>\n")
				g.rows(it, "td")
				g.sb.WriteString("</tfoot>\n")
			}
		}
	}
	g.close("table")
	g.sb.WriteByte('\n')
}

func (g *generator) rows(section *xmlparse.Node, cell string) {
	for row := section.FirstChild(); row != nil; row = row.Next() {
		if !row.IsElement("row") {
			continue
		}
		g.sb.WriteString("<tr>")
		for e := row.FirstChild(); e != nil; e = e.Next() {
			if !e.IsElement("entry") {
				continue
			}
			g.open(cell, e)
			g.children(e)
			g.close(cell)
		}
		g.sb.WriteString("</tr>\n")
	}
}

func (g *generator) variablelist(n *xmlparse.Node) {
	g.open("dl", n)
	g.sb.WriteByte('\n')
	for it := n.FirstChild(); it != nil; it = it.Next() {
		if !it.IsElement("varlistentry") {
			continue
		}
		for p := it.FirstChild(); p != nil; p = p.Next() {
			switch {
			case p.IsElement("term"):
				g.sb.WriteString("<dt>")
				g.children(p)
				g.sb.WriteString("</dt>\n")
			case p.IsElement("listitem"):
				g.sb.WriteString("<dd>")
				g.children(p)
				g.sb.WriteString("</dd>\n")
			}
		}
	}
	g.close("dl")
	g.sb.WriteByte('\n')
}

func (g *generator) mediaobject(n *xmlparse.Node) {
	var src string
	var textobj *xmlparse.Node
	for it := n.FirstChild(); it != nil; it = it.Next() {
		switch {
		case it.IsElement("imageobject"):
			if src == "" {
				if data := firstElement(it, "imagedata"); data != nil {
					src, _ = data.Attribute("fileref")
				}
			}
		case it.IsElement("textobject"):
			if textobj == nil {
				textobj = it
			}
		}
	}

	if src == "" {
		g.log.Warn("Image without source, rendering alternate text only")
		if textobj != nil {
			g.children(textobj)
		}
		return
	}
	altText := "[]"
	if textobj != nil {
		if alt := altPhrase(textobj); alt != nil {
			altText = g.capture(func() { g.children(alt) })
		}
	}
	g.open("span", n, "class", n.Name)
	g.sb.WriteString(`<img src="` + escapeAttr(src) + `" alt="` + escapeAttr(altText) + `"/>`)
	g.close("span")
}

func (g *generator) footnote(n *xmlparse.Node) {
	g.footnoteSeq++
	fmt.Fprintf(g.sb, `<a class="footnote" id="footnote-ref-%d" href="#footnote-%d">[%d]</a>`,
		g.footnoteSeq, g.footnoteSeq, g.footnoteSeq)
	g.footnotes = append(g.footnotes, footnote{number: g.footnoteSeq, node: n})
}

func firstElement(n *xmlparse.Node, name string) *xmlparse.Node {
	for it := n.FirstChild(); it != nil; it = it.Next() {
		if it.IsElement(name) {
			return it
		}
	}
	return nil
}

// altPhrase finds the phrase carrying the alternate text of a
// textobject. Only phrases marked role="alt" qualify.
func altPhrase(textobject *xmlparse.Node) *xmlparse.Node {
	for it := textobject.FirstChild(); it != nil; it = it.Next() {
		if role, _ := it.Attribute("role"); it.IsElement("phrase") && role == "alt" {
			return it
		}
	}
	return nil
}

// capture renders through fn into a side buffer and returns the result.
func (g *generator) capture(fn func()) string {
	saved := g.sb
	var sb strings.Builder
	g.sb = &sb
	fn()
	g.sb = saved
	return sb.String()
}
