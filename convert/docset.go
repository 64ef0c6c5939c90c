package convert

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"bbhtml/chunk"
	"bbhtml/content"
)

// Info.plist drives docset discovery in Dash and Zeal. The bundle
// identifier doubles as the platform family keyword used for scoped
// searches.
var docsetPlist = template.Must(template.New("Info.plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>{{.ID}}</string>
	<key>CFBundleName</key>
	<string>{{.Name}}</string>
	<key>DocSetPlatformFamily</key>
	<string>{{.ID}}</string>
	<key>isDashDocset</key>
	<true/>
	<key>dashIndexFilePath</key>
	<string>{{.IndexPath}}</string>
</dict>
</plist>
`))

func writeDocsetPlist(c *content.Content, path string) error {

	name := c.Title
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.SrcName), filepath.Ext(c.SrcName))
	}
	indexPath := "index.html"
	if c.Root != nil && c.Root.Path != "" {
		indexPath = c.Root.Path
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	err = docsetPlist.Execute(out, map[string]string{
		"ID":        slug.Make(name),
		"Name":      xmlEscape(name),
		"IndexPath": xmlEscape(indexPath),
	})
	if err != nil {
		return err
	}
	return out.Close()
}

func xmlEscape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s)) //nolint:errcheck
	return sb.String()
}

// dashTypes maps chunk element names to docset entry types.
var dashTypes = map[string]string{
	"book":      "Guide",
	"part":      "Guide",
	"article":   "Guide",
	"preface":   "Guide",
	"set":       "Guide",
	"chapter":   "Section",
	"section":   "Section",
	"appendix":  "Section",
	"qandaset":  "Section",
	"qandadiv":  "Section",
	"library":   "Library",
	"reference": "Library",
}

// writeSearchIndex builds the docset search database from the chunk tree.
// Every chunk becomes one row: its flattened title (falling back to the id),
// its entry type and the page location serving it.
func writeSearchIndex(c *content.Content, dbPath string, log *zap.Logger) error {

	conn, err := sqlite.OpenConn(dbPath, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer conn.Close()

	if err := sqlitex.Execute(conn,
		`CREATE TABLE IF NOT EXISTS searchIndex (id INTEGER PRIMARY KEY, name TEXT, type TEXT, path TEXT)`, nil); err != nil {
		return fmt.Errorf("create search index table: %w", err)
	}
	if err := sqlitex.Execute(conn,
		`CREATE UNIQUE INDEX IF NOT EXISTS anchor ON searchIndex (name, type, path)`, nil); err != nil {
		return fmt.Errorf("create search index anchor: %w", err)
	}

	var count int
	var insert func(ch *chunk.Chunk) error
	insert = func(ch *chunk.Chunk) error {
		name := ch.TitleText()
		if name == "" {
			name = ch.ID
		}
		loc := chunk.Location{Path: ch.Path}
		if l, ok := c.Index[ch.ID]; ok {
			loc = l
		}
		entryType, ok := dashTypes[ch.Name()]
		if !ok {
			entryType = "Section"
		}

		err := sqlitex.Execute(conn,
			`INSERT OR IGNORE INTO searchIndex (name, type, path) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{name, entryType, loc.URL()}})
		if err != nil {
			return fmt.Errorf("insert search index entry: %w", err)
		}
		count++

		for it := ch.FirstChild(); it != nil; it = it.Next() {
			if err := insert(it); err != nil {
				return err
			}
		}
		return nil
	}

	for ch := c.Root; ch != nil; ch = ch.Next() {
		if err := insert(ch); err != nil {
			return err
		}
	}

	log.Debug("Search index written", zap.Int("entries", count), zap.String("path", dbPath))
	return nil
}
