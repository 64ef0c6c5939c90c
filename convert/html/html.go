// Package html renders a chunked document tree to HTML pages: one page
// per non-inline chunk, with navigation links, tables of contents,
// resolved cross-references and accumulated footnotes.
package html

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"bbhtml/chunk"
	"bbhtml/xmlparse"
)

// DefaultBoostRoot is where boost: scheme links point unless
// configured otherwise.
const DefaultBoostRoot = "https://www.boost.org/doc/libs/release/"

// Options control page generation.
type Options struct {
	// CSS is the output-root-relative stylesheet path, empty for none.
	CSS string
	// Graphics is the output-root-relative directory with navigation
	// and callout images, empty for text fallbacks.
	Graphics string
	// TextNav keeps text navigation links even when Graphics is set.
	TextNav bool
	// BoostRoot replaces the boost: scheme in external links.
	BoostRoot string
	// PageTemplate overrides the built-in page opening template.
	PageTemplate string
	// Generator goes into the generator meta tag.
	Generator string
}

// Page is one rendered output file.
type Page struct {
	Path    string
	Content []byte
}

type footnote struct {
	number int
	node   *xmlparse.Node
}

type generator struct {
	idx      chunk.Index
	opt      Options
	log      *zap.Logger
	shell    *template.Template
	handlers map[string]handler
	root     *chunk.Chunk

	// footnote markers are numbered across the whole document
	footnoteSeq int

	// state of the page being rendered
	path       string
	sb         *strings.Builder
	callouts   map[*xmlparse.Node]*calloutInfo
	calloutIDs map[string]*calloutInfo
	footnotes  []footnote
	inTOC      bool
}

// Generate renders every non-inline chunk reachable from root into a
// page, in document order.
func Generate(root *chunk.Chunk, idx chunk.Index, opt Options, log *zap.Logger) ([]Page, error) {

	if opt.BoostRoot == "" {
		opt.BoostRoot = DefaultBoostRoot
	}
	if !strings.HasSuffix(opt.BoostRoot, "/") {
		opt.BoostRoot += "/"
	}

	src := opt.PageTemplate
	if src == "" {
		src = defaultPageTemplate
	}
	shell, err := template.New("page").Funcs(sprig.FuncMap()).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("unable to parse page template: %w", err)
	}

	g := &generator{
		idx:   idx,
		opt:   opt,
		log:   log,
		shell: shell,
		root:  root,
	}
	g.handlers = newHandlerTable()

	var pages []Page
	for c := root; c != nil; c = c.Next() {
		if err := g.collect(c, &pages); err != nil {
			return nil, err
		}
	}
	return pages, nil
}

func (g *generator) collect(c *chunk.Chunk, pages *[]Page) error {
	if c.Inline {
		// rendered as part of an ancestor's page
		return nil
	}
	page, err := g.renderPage(c)
	if err != nil {
		return err
	}
	*pages = append(*pages, page)

	for it := c.FirstChild(); it != nil; it = it.Next() {
		if err := g.collect(it, pages); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) renderPage(c *chunk.Chunk) (Page, error) {

	g.path = c.Path
	g.callouts = make(map[*xmlparse.Node]*calloutInfo)
	g.calloutIDs = make(map[string]*calloutInfo)
	g.footnotes = nil

	var sb strings.Builder
	g.sb = &sb

	if err := g.openPage(c); err != nil {
		return Page{}, err
	}
	g.navbar(c)
	g.chunkBody(c, 0)
	g.flushFootnotes()
	g.closePage()

	g.log.Debug("Rendered page", zap.String("path", c.Path), zap.Int("size", sb.Len()))
	return Page{Path: c.Path, Content: []byte(sb.String())}, nil
}

// chunkBody emits title, info, table of contents and contents of a
// chunk, then the bodies of its inlined children. depth is how many
// inlining levels separate the chunk from its page.
func (g *generator) chunkBody(c *chunk.Chunk, depth int) {

	g.prepass(c)

	if c.Title != nil {
		g.heading(c.Title, depth)
	}
	if c.Info != nil {
		g.open("div", c.Info, "class", c.Info.Name)
		g.children(c.Info)
		g.close("div")
		g.sb.WriteByte('\n')
	}
	if !c.Inline && c.FirstChild() != nil {
		g.toc(c)
	}
	if c.Contents != nil {
		g.children(c.Contents)
	}
	for it := c.FirstChild(); it != nil; it = it.Next() {
		if it.Inline {
			g.inlineChunk(it, depth+1)
		}
	}
}

// inlineChunk wraps an inlined child in a container carrying its id so
// index fragments resolve to it.
func (g *generator) inlineChunk(c *chunk.Chunk, depth int) {
	g.sb.WriteString(`<div class="` + c.Name() + `" id="` + escapeAttr(c.ID) + `">` + "\n")
	g.chunkBody(c, depth)
	g.sb.WriteString("</div>\n")
}

// heading renders a chunk title, h3 at page level and one step deeper
// per inlining level, capped at h6.
func (g *generator) heading(title *xmlparse.Node, depth int) {
	level := 3 + depth
	if level > 6 {
		level = 6
	}
	tag := "h" + strconv.Itoa(level)
	g.open(tag, title)
	g.children(title)
	g.close(tag)
	g.sb.WriteByte('\n')
}

func (g *generator) toc(c *chunk.Chunk) {
	g.sb.WriteString(`<div class="toc">` + "\n")
	g.tocList(c)
	g.sb.WriteString("</div>\n")
}

func (g *generator) tocList(c *chunk.Chunk) {
	g.sb.WriteString("<ul>\n")
	for it := c.FirstChild(); it != nil; it = it.Next() {
		g.sb.WriteString(`<li><a href="` + escapeAttr(g.chunkHref(it)) + `">`)
		if it.Title != nil {
			// ids stay with the headings, not with the entries
			g.inTOC = true
			g.children(it.Title)
			g.inTOC = false
		} else {
			g.sb.WriteString("Untitled")
		}
		g.sb.WriteString("</a>")
		if it.FirstChild() != nil {
			g.sb.WriteByte('\n')
			g.tocList(it)
		}
		g.sb.WriteString("</li>\n")
	}
	g.sb.WriteString("</ul>\n")
}

func (g *generator) navbar(c *chunk.Chunk) {
	g.sb.WriteString(`<div class="spirit-nav">`)
	g.navLink("p", "prev", prevChunk(c))
	g.navLink("u", "up", c.Parent())
	g.navLink("h", "home", g.root)
	g.navLink("n", "next", nextChunk(c))
	g.sb.WriteString("</div>\n")
}

func (g *generator) navLink(key, name string, target *chunk.Chunk) {
	if target == nil {
		return
	}
	g.sb.WriteString(`<a accesskey="` + key + `" href="` + escapeAttr(g.chunkHref(target)) + `">`)
	if g.opt.Graphics != "" && !g.opt.TextNav {
		icon := RelativeURL(g.path, g.opt.Graphics+"/"+name+".svg", "")
		g.sb.WriteString(`<img src="` + escapeAttr(icon) + `" alt="` + name + `"/>`)
	} else {
		g.sb.WriteString(name)
	}
	g.sb.WriteString("</a>")
}

// prevChunk is the preceding sibling's deepest last descendant, else
// the parent.
func prevChunk(c *chunk.Chunk) *chunk.Chunk {
	p := c.Prev()
	if p == nil {
		return c.Parent()
	}
	for {
		var last *chunk.Chunk
		for it := p.FirstChild(); it != nil; it = it.Next() {
			last = it
		}
		if last == nil {
			return p
		}
		p = last
	}
}

// nextChunk is the first non-inline child, else the following sibling,
// found by walking up through ancestors when needed. It mirrors
// prevChunk: prev of the result is always c again.
func nextChunk(c *chunk.Chunk) *chunk.Chunk {
	for it := c.FirstChild(); it != nil; it = it.Next() {
		if !it.Inline {
			return it
		}
	}
	for ; c != nil; c = c.Parent() {
		if n := c.Next(); n != nil {
			return n
		}
	}
	return nil
}

// chunkHref links to a chunk from the current page, through the
// containing page plus fragment for inlined chunks.
func (g *generator) chunkHref(c *chunk.Chunk) string {
	if c.Inline {
		return RelativeURL(g.path, c.Path, c.ID)
	}
	return RelativeURL(g.path, c.Path, "")
}

func (g *generator) href(loc chunk.Location) string {
	return RelativeURL(g.path, loc.Path, loc.Fragment)
}

func (g *generator) flushFootnotes() {
	if len(g.footnotes) == 0 {
		return
	}
	g.sb.WriteString(`<div class="footnotes">` + "\n")
	for _, fn := range g.footnotes {
		fmt.Fprintf(g.sb, `<div class="footnote" id="footnote-%d"><a href="#footnote-ref-%d">[%d]</a> `,
			fn.number, fn.number, fn.number)
		g.children(fn.node)
		g.sb.WriteString("</div>\n")
	}
	g.sb.WriteString("</div>\n")
	g.footnotes = nil
}

const defaultPageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="{{ .Charset }}"/>
<title>{{ .Title }}</title>
<meta name="generator" content="{{ .Generator }}"/>
{{- if .CSS }}
<link rel="stylesheet" type="text/css" href="{{ .CSS }}"/>
{{- end }}
</head>
<body>
`

type pageValues struct {
	Title     string
	CSS       string
	Charset   string
	Generator string
}

func (g *generator) openPage(c *chunk.Chunk) error {
	v := pageValues{
		Title:     titleText(c),
		Charset:   "utf-8",
		Generator: g.opt.Generator,
	}
	if g.opt.CSS != "" {
		v.CSS = RelativeURL(g.path, g.opt.CSS, "")
	}
	if err := g.shell.Execute(g.sb, v); err != nil {
		return fmt.Errorf("unable to expand page template: %w", err)
	}
	return nil
}

func (g *generator) closePage() {
	g.sb.WriteString("</body>\n</html>\n")
}

// titleText flattens a chunk title to plain text for the page head.
func titleText(c *chunk.Chunk) string {
	if s := c.TitleText(); s != "" {
		return s
	}
	return "Untitled"
}
