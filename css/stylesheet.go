// Package css reads stylesheets just far enough to find the resources
// they reference, rewrite those references and write the sheet back out.
// It is not a style engine: selectors, conditions and declarations travel
// through as text, only url() targets and @import lines are lifted out.
package css

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Stylesheet is a parsed CSS file with its constructs in source order.
type Stylesheet struct {
	Items    []Item
	Warnings []string
}

// Item is a single top-level construct, exactly one field is set.
type Item struct {
	Import    *Import
	Rule      *Rule
	Group     *Group
	Block     *Block
	Directive string // simple at-rules such as @charset, carried verbatim
}

// Import is an @import line.
type Import struct {
	URL   string
	Media string // condition text after the target, usually empty
}

// Rule is a selector list with its declarations. Selector text is kept as
// written, combinators and attribute selectors included.
type Rule struct {
	Selectors []string
	Decls     []Declaration
}

// Group is a grouping at-rule such as @media or @supports, nested rules
// with the condition kept as written.
type Group struct {
	Name    string
	Prelude string
	Rules   []Rule
}

// Block is a declaration at-rule such as @font-face or @page.
type Block struct {
	Name    string
	Prelude string
	Decls   []Declaration
}

// Declaration keeps a property value as alternating runs of plain text and
// url() targets so references can be rewritten without re-parsing.
type Declaration struct {
	Property string
	parts    []part
}

type part struct {
	text  string
	isURL bool
}

// Value renders the declaration value, url() targets come out quoted.
func (d *Declaration) Value() string {
	var sb strings.Builder
	for _, p := range d.parts {
		if p.isURL {
			sb.WriteString(`url("`)
			sb.WriteString(escapeQuoted(p.text))
			sb.WriteString(`")`)
			continue
		}
		sb.WriteString(p.text)
	}
	return sb.String()
}

// URLs lists the url() targets of the declaration in source order.
func (d *Declaration) URLs() []string {
	var urls []string
	for _, p := range d.parts {
		if p.isURL && p.text != "" {
			urls = append(urls, p.text)
		}
	}
	return urls
}

// Decl returns the value of the first declaration of property.
func (r *Rule) Decl(property string) (string, bool) {
	for i := range r.Decls {
		if r.Decls[i].Property == property {
			return r.Decls[i].Value(), true
		}
	}
	return "", false
}

// RulesBySelector returns rules whose selector list contains the given
// selector text, rules nested in groups included.
func (s *Stylesheet) RulesBySelector(selector string) []*Rule {
	var out []*Rule
	add := func(r *Rule) {
		if slices.Contains(r.Selectors, selector) {
			out = append(out, r)
		}
	}
	for _, item := range s.Items {
		switch {
		case item.Rule != nil:
			add(item.Rule)
		case item.Group != nil:
			for i := range item.Group.Rules {
				add(&item.Group.Rules[i])
			}
		}
	}
	return out
}

// Ref is an external resource reference found in a stylesheet.
type Ref struct {
	URL     string // target as written
	Context string // "import", the at-rule name or the property name
}

// ExternalRefs returns every resource reference in source order: @import
// targets, url() values of declarations and the sources of declaration
// at-rules like @font-face.
func (s *Stylesheet) ExternalRefs() []Ref {
	var refs []Ref
	for _, item := range s.Items {
		switch {
		case item.Import != nil:
			refs = append(refs, Ref{URL: item.Import.URL, Context: "import"})
		case item.Rule != nil:
			refs = append(refs, ruleRefs(item.Rule)...)
		case item.Group != nil:
			for i := range item.Group.Rules {
				refs = append(refs, ruleRefs(&item.Group.Rules[i])...)
			}
		case item.Block != nil:
			name := strings.TrimPrefix(item.Block.Name, "@")
			for _, d := range item.Block.Decls {
				for _, u := range d.URLs() {
					refs = append(refs, Ref{URL: u, Context: name})
				}
			}
		}
	}
	return refs
}

func ruleRefs(r *Rule) []Ref {
	var refs []Ref
	for i := range r.Decls {
		for _, u := range r.Decls[i].URLs() {
			refs = append(refs, Ref{URL: u, Context: r.Decls[i].Property})
		}
	}
	return refs
}

// RewriteURLs applies fn to every reference target in the stylesheet.
func (s *Stylesheet) RewriteURLs(fn func(originalURL string) string) {
	for _, item := range s.Items {
		switch {
		case item.Import != nil:
			item.Import.URL = fn(item.Import.URL)
		case item.Rule != nil:
			rewriteDecls(item.Rule.Decls, fn)
		case item.Group != nil:
			for i := range item.Group.Rules {
				rewriteDecls(item.Group.Rules[i].Decls, fn)
			}
		case item.Block != nil:
			rewriteDecls(item.Block.Decls, fn)
		}
	}
}

func rewriteDecls(decls []Declaration, fn func(string) string) {
	for i := range decls {
		for j := range decls[i].parts {
			if decls[i].parts[j].isURL {
				decls[i].parts[j].text = fn(decls[i].parts[j].text)
			}
		}
	}
}

// WriteTo writes the stylesheet out in source order, implementing
// io.WriterTo. Declarations keep the order they were written in.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for i, item := range s.Items {
		if i > 0 {
			fmt.Fprintln(cw)
		}
		switch {
		case item.Import != nil:
			if item.Import.Media != "" {
				fmt.Fprintf(cw, "@import url(\"%s\") %s;\n", escapeQuoted(item.Import.URL), item.Import.Media)
			} else {
				fmt.Fprintf(cw, "@import url(\"%s\");\n", escapeQuoted(item.Import.URL))
			}
		case item.Rule != nil:
			writeRule(cw, item.Rule, "")
		case item.Group != nil:
			fmt.Fprintf(cw, "%s %s {\n", item.Group.Name, item.Group.Prelude)
			for j := range item.Group.Rules {
				if j > 0 {
					fmt.Fprintln(cw)
				}
				writeRule(cw, &item.Group.Rules[j], "  ")
			}
			fmt.Fprint(cw, "}\n")
		case item.Block != nil:
			if item.Block.Prelude != "" {
				fmt.Fprintf(cw, "%s %s {\n", item.Block.Name, item.Block.Prelude)
			} else {
				fmt.Fprintf(cw, "%s {\n", item.Block.Name)
			}
			writeDecls(cw, item.Block.Decls, "  ")
			fmt.Fprint(cw, "}\n")
		case item.Directive != "":
			fmt.Fprintf(cw, "%s;\n", item.Directive)
		}
		if cw.err != nil {
			break
		}
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, r *Rule, indent string) {
	fmt.Fprintf(w, "%s%s {\n", indent, strings.Join(r.Selectors, ", "))
	writeDecls(w, r.Decls, indent+"  ")
	fmt.Fprintf(w, "%s}\n", indent)
}

func writeDecls(w io.Writer, decls []Declaration, indent string) {
	for i := range decls {
		fmt.Fprintf(w, "%s%s: %s;\n", indent, decls[i].Property, decls[i].Value())
	}
}

// escapeQuoted escapes a string for use inside CSS double quotes.
func escapeQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// countingWriter tracks bytes written and holds the first error so the
// serializers above stay free of error plumbing.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}
