package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser reads CSS into the Stylesheet model.
type Parser struct {
	log *zap.Logger
}

func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css")}
}

// Parse reads a stylesheet. Parsing never fails outright, constructs which
// cannot be carried over are dropped and recorded in Warnings. The optional
// source name only shows up in debug logging.
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {

	name := ""
	if len(source) > 0 {
		name = source[0]
	}
	p.log.Debug("Parsing stylesheet", zap.String("source", name), zap.Int("bytes", len(data)))

	sheet := &Stylesheet{}
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var pending []string
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("Stylesheet parse error", zap.String("source", name), zap.Error(err))
			}
			return sheet

		case css.AtRuleGrammar:
			p.atRule(sheet, string(data), parser.Values())

		case css.BeginAtRuleGrammar:
			p.atRuleBlock(sheet, parser, string(data), parser.Values())

		case css.QualifiedRuleGrammar:
			pending = append(pending, selectorText(data, parser.Values()))

		case css.BeginRulesetGrammar:
			pending = append(pending, selectorText(data, parser.Values()))
			rule := Rule{Selectors: splitSelectors(pending), Decls: declarations(parser)}
			sheet.Items = append(sheet.Items, Item{Rule: &rule})
			pending = nil
		}
	}
}

// atRule handles simple at-rules without a block. @import is lifted into
// the model, anything else travels through as written.
func (p *Parser) atRule(sheet *Stylesheet, name string, tokens []css.Token) {
	if strings.EqualFold(name, "@import") {
		imp := importTarget(tokens)
		if imp.URL != "" {
			sheet.Items = append(sheet.Items, Item{Import: &imp})
			return
		}
	}
	text := name
	if rest := joinTokens(tokens); rest != "" {
		text += " " + rest
	}
	sheet.Items = append(sheet.Items, Item{Directive: text})
}

func (p *Parser) atRuleBlock(sheet *Stylesheet, parser *css.Parser, name string, prelude []css.Token) {
	switch strings.ToLower(name) {
	case "@media", "@supports":
		g := Group{Name: strings.ToLower(name), Prelude: joinTokens(prelude)}
		g.Rules = p.groupRules(sheet, parser)
		sheet.Items = append(sheet.Items, Item{Group: &g})
	case "@font-face", "@page":
		b := Block{Name: strings.ToLower(name), Prelude: joinTokens(prelude)}
		b.Decls = declarations(parser)
		sheet.Items = append(sheet.Items, Item{Block: &b})
	default:
		skipBlock(parser)
		sheet.Warnings = append(sheet.Warnings, "dropped "+name+" block")
		p.log.Debug("Dropping @-rule", zap.String("rule", name))
	}
}

func (p *Parser) groupRules(sheet *Stylesheet, parser *css.Parser) []Rule {
	var rules []Rule
	var pending []string
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return rules

		case css.QualifiedRuleGrammar:
			pending = append(pending, selectorText(data, parser.Values()))

		case css.BeginRulesetGrammar:
			pending = append(pending, selectorText(data, parser.Values()))
			rules = append(rules, Rule{Selectors: splitSelectors(pending), Decls: declarations(parser)})
			pending = nil

		case css.BeginAtRuleGrammar:
			skipBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "dropped nested "+string(data)+" block")
		}
	}
}

func declarations(parser *css.Parser) []Declaration {
	var decls []Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar, css.EndAtRuleGrammar:
			return decls

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decls = append(decls, Declaration{Property: string(data), parts: valueParts(parser.Values())})
		}
	}
}

// skipBlock consumes tokens until the matching end of an at-rule block.
func skipBlock(parser *css.Parser) {
	for depth := 1; depth > 0; {
		switch gt, _, _ := parser.Next(); gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// valueParts splits declaration value tokens into plain text and url()
// targets. Both the bare url(path) token and the quoted url("path")
// function form are recognized.
func valueParts(tokens []css.Token) []part {
	var parts []part
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, part{text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.TokenType {
		case css.WhitespaceToken:
			if text.Len() > 0 || len(parts) > 0 {
				text.WriteByte(' ')
			}
		case css.URLToken:
			flush()
			parts = append(parts, part{text: urlTarget(string(t.Data)), isURL: true})
		case css.FunctionToken:
			if !strings.EqualFold(string(t.Data), "url(") {
				text.Write(t.Data)
				continue
			}
			target := ""
			for i++; i < len(tokens) && tokens[i].TokenType != css.RightParenthesisToken; i++ {
				if tokens[i].TokenType == css.StringToken {
					target = unquote(string(tokens[i].Data))
				}
			}
			flush()
			parts = append(parts, part{text: target, isURL: true})
		default:
			text.Write(t.Data)
		}
	}
	if s := strings.TrimRight(text.String(), " "); s != "" {
		parts = append(parts, part{text: s})
	}
	return parts
}

// importTarget pulls the reference and the trailing condition text out of
// @import tokens. Handles "url", url(url) and url("url") forms.
func importTarget(tokens []css.Token) Import {
	var imp Import
	i := 0
scan:
	for ; i < len(tokens); i++ {
		switch t := tokens[i]; t.TokenType {
		case css.StringToken:
			imp.URL = unquote(string(t.Data))
			break scan
		case css.URLToken:
			imp.URL = urlTarget(string(t.Data))
			break scan
		case css.FunctionToken:
			if !strings.EqualFold(string(t.Data), "url(") {
				continue
			}
			for i++; i < len(tokens) && tokens[i].TokenType != css.RightParenthesisToken; i++ {
				if tokens[i].TokenType == css.StringToken {
					imp.URL = unquote(string(tokens[i].Data))
				}
			}
			break scan
		}
	}
	if i < len(tokens) {
		imp.Media = joinTokens(tokens[i+1:])
	}
	return imp
}

// selectorText renders a selector prelude with whitespace collapsed.
func selectorText(data []byte, tokens []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

func joinTokens(tokens []css.Token) string {
	return selectorText(nil, tokens)
}

// splitSelectors turns accumulated selector chunks into one flat list,
// comma separated groups split apart.
func splitSelectors(chunks []string) []string {
	var out []string
	for _, c := range chunks {
		for _, s := range strings.Split(c, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// urlTarget extracts the reference out of a url(...) token.
func urlTarget(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
