package xmlparse

import (
	"fmt"
	"strings"

	"bbhtml/tree"
)

// maxDepth caps element nesting. Documents are author-controlled input
// and every downstream walk recurses over the tree, so the parser is
// the one place that bounds recursion for the whole pipeline.
const maxDepth = 512

// ParseError reports malformed input. Position is the byte offset of
// the construct that failed; for tag errors it points at the opening
// '<' of the offending tag.
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Position)
}

// Context renders a line/column diagnostic with a short excerpt of the
// source around the error position and a caret under it.
func (e *ParseError) Context(src string) string {
	pos := e.Position
	if pos > len(src) {
		pos = len(src)
	}
	lineStart := strings.LastIndexByte(src[:pos], '\n') + 1
	lineEnd := strings.IndexByte(src[pos:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += pos
	}
	line := 1 + strings.Count(src[:lineStart], "\n")
	col := pos - lineStart + 1

	excerpt := src[lineStart:lineEnd]
	caret := col - 1
	if caret > 60 {
		cut := caret - 30
		excerpt = excerpt[cut:]
		caret -= cut
	}
	if len(excerpt) > 78 {
		excerpt = excerpt[:78]
	}
	excerpt = strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		return r
	}, excerpt)
	return fmt.Sprintf("line %d, column %d:\n  %s\n  %s^", line, col, excerpt, strings.Repeat(" ", caret))
}

// Parse builds the document tree for src. Text outside and between
// elements is preserved verbatim as sibling text nodes, entities
// included. The returned node is the head of the root-level sibling
// chain. On malformed input the error is a *ParseError.
func Parse(src string) (*Node, error) {
	p := &parser{src: src}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.b.Release(), nil
}

type parser struct {
	src   string
	pos   int
	depth int
	b     tree.Builder[*Node]
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '<' {
			p.pos++
		}
		if p.pos > start {
			p.b.AddElement(NewText(p.src[start:p.pos]))
		}
		if p.pos >= len(p.src) {
			break
		}
		if err := p.tag(); err != nil {
			return err
		}
	}
	if open := p.b.Parent(); open != nil {
		return &ParseError{Message: fmt.Sprintf("Unclosed element <%s>", open.Name), Position: len(p.src)}
	}
	return nil
}

func (p *parser) tag() error {
	start := p.pos
	p.pos++ // consume '<'
	if p.pos >= len(p.src) {
		return &ParseError{Message: "Unterminated tag", Position: start}
	}
	switch p.src[p.pos] {
	case '?':
		return p.instruction(start)
	case '!':
		return p.declaration(start)
	case '/':
		return p.closeTag(start)
	default:
		return p.openTag(start)
	}
}

// instruction skips a processing instruction or XML declaration up to
// the matching "?>". Quoted substrings are opaque: '>' and '?' inside
// them do not terminate the tag.
func (p *parser) instruction(start int) error {
	p.pos++ // consume '?'
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '"', '\'':
			if !p.skipQuoted() {
				return &ParseError{Message: "Unterminated string in processing instruction", Position: start}
			}
		case '?':
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '>' {
				p.pos += 2
				return nil
			}
			p.pos++
		default:
			p.pos++
		}
	}
	return &ParseError{Message: "Unterminated processing instruction", Position: start}
}

// declaration skips "<!-- -->" comments (embedded '>' allowed) and
// other "<!...>" declarations up to the next unquoted '>'.
func (p *parser) declaration(start int) error {
	p.pos++ // consume '!'
	if strings.HasPrefix(p.src[p.pos:], "--") {
		i := strings.Index(p.src[p.pos+2:], "-->")
		if i < 0 {
			return &ParseError{Message: "Unterminated comment", Position: start}
		}
		p.pos += 2 + i + 3
		return nil
	}
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '"', '\'':
			if !p.skipQuoted() {
				return &ParseError{Message: "Unterminated string in declaration", Position: start}
			}
		case '>':
			p.pos++
			return nil
		default:
			p.pos++
		}
	}
	return &ParseError{Message: "Unterminated declaration", Position: start}
}

func (p *parser) closeTag(start int) error {
	p.pos++ // consume '/'
	name := p.readName()
	if name == "" {
		return &ParseError{Message: "Invalid close tag", Position: start}
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		return &ParseError{Message: "Invalid close tag", Position: start}
	}
	p.pos++
	open := p.b.Parent()
	if open == nil || open.Name != name {
		return &ParseError{Message: "Close tag doesn't match", Position: start}
	}
	p.b.EndChildren()
	p.depth--
	return nil
}

func (p *parser) openTag(start int) error {
	name := p.readName()
	if name == "" {
		return &ParseError{Message: "Invalid tag name", Position: start}
	}
	node := NewElement(name)
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return &ParseError{Message: "Unterminated tag", Position: start}
		}
		switch c := p.src[p.pos]; {
		case c == '>':
			p.pos++
			p.b.AddElement(node)
			p.b.StartChildren()
			p.depth++
			if p.depth > maxDepth {
				return &ParseError{Message: "Element nesting too deep", Position: start}
			}
			return nil
		case c == '/':
			if p.pos+1 >= len(p.src) || p.src[p.pos+1] != '>' {
				return &ParseError{Message: "Invalid tag terminator", Position: start}
			}
			p.pos += 2
			p.b.AddElement(node)
			return nil
		case isNameChar(c):
			attr := Attr{Name: p.readName()}
			if p.pos < len(p.src) && p.src[p.pos] == '=' {
				p.pos++
				val, ok := p.readQuoted()
				if !ok {
					return &ParseError{Message: "Invalid attribute value", Position: start}
				}
				attr.Value = val
			}
			node.Attrs = append(node.Attrs, attr)
		default:
			return &ParseError{Message: "Invalid character in tag", Position: start}
		}
	}
}

// skipQuoted consumes a quote-delimited substring, cursor on the
// opening quote. Reports false when the string never closes.
func (p *parser) skipQuoted() bool {
	q := p.src[p.pos]
	p.pos++
	for p.pos < len(p.src) {
		if p.src[p.pos] == q {
			p.pos++
			return true
		}
		p.pos++
	}
	return false
}

// readQuoted consumes a quoted attribute value and returns its raw
// content, entities untouched.
func (p *parser) readQuoted() (string, bool) {
	if p.pos >= len(p.src) {
		return "", false
	}
	q := p.src[p.pos]
	if q != '"' && q != '\'' {
		return "", false
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.src) {
		if p.src[p.pos] == q {
			val := p.src[start:p.pos]
			p.pos++
			return val, true
		}
		p.pos++
	}
	return "", false
}

func (p *parser) readName() string {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == ':' || c == '-'
}
