package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"bbhtml/config"
	"bbhtml/content"
	"bbhtml/xmlparse"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Date       string
	Format     string
	SourceFile string
	DocID      string
	RefID      string
}

// infoDate returns flattened text of the first date element in the document
// info block, empty string when there is none.
func infoDate(c *content.Content) string {
	if c.Root == nil || c.Root.Info == nil {
		return ""
	}
	date := findElement(c.Root.Info, "date")
	if date == nil {
		return ""
	}
	var sb strings.Builder
	collectText(&sb, date.FirstChild())
	return strings.TrimSpace(sb.String())
}

func findElement(n *xmlparse.Node, name string) *xmlparse.Node {
	if n.IsElement(name) {
		return n
	}
	for c := n.FirstChild(); c != nil; c = c.Next() {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func collectText(sb *strings.Builder, n *xmlparse.Node) {
	for ; n != nil; n = n.Next() {
		if n.Kind == xmlparse.TextNode {
			sb.WriteString(n.Text)
		}
		collectText(sb, n.FirstChild())
	}
}

func expandTemplate(c *content.Content, name config.TemplateFieldName, field string, format config.OutputFmt) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	docID := ""
	if c.Root != nil {
		docID = c.Root.ID
	}

	values := Values{
		Context:    string(name),
		Title:      c.Title,
		Date:       infoDate(c),
		Format:     format.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(c.SrcName), filepath.Ext(c.SrcName)),
		DocID:      docID,
		RefID:      c.RefID,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
