// Package content prepares a source document for conversion: it decodes
// the input bytes, parses them, builds the chunk tree and the id index
// per the active configuration and owns the scratch directory where
// debug artifacts accumulate.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"bbhtml/chunk"
	"bbhtml/config"
	"bbhtml/misc"
	"bbhtml/state"
	"bbhtml/xmlparse"
)

// Content is one source document ready for rendering: the chunk tree,
// the id index resolving every cross-reference in it and everything
// output naming needs.
type Content struct {
	SrcName      string
	OutputFormat config.OutputFmt

	RefID string // correlates log records, report entries and the work dir
	Title string // flattened document title, may be empty

	Root  *chunk.Chunk
	Index chunk.Index

	WorkDir string
}

// Prepare reads, decodes and chunks a single source document.
func Prepare(ctx context.Context, r io.Reader, srcName string, outputFormat config.OutputFmt, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read source (%s): %w", srcName, err)
	}

	src, err := decodeSource(data, env.CodePage, log)
	if err != nil {
		return nil, fmt.Errorf("unable to decode source (%s): %w", srcName, err)
	}

	root, err := xmlparse.Parse(src)
	if err != nil {
		var perr *xmlparse.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("unable to parse source (%s): %w\n%s", srcName, err, perr.Context(src))
		}
		return nil, fmt.Errorf("unable to parse source (%s): %w", srcName, err)
	}

	refID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate document reference id: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary directory: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("%s-%s", misc.GetAppName(), refID), tmpDir)

	baseSrcName := filepath.Base(srcName)

	// Save decoded and parsed source for debugging, chunking consumes
	// the parse tree
	if env.Rpt != nil {
		if err := os.WriteFile(filepath.Join(tmpDir, baseSrcName), []byte(src), 0644); err != nil {
			return nil, fmt.Errorf("unable to write input doc for debugging: %w", err)
		}
		if err := os.WriteFile(filepath.Join(tmpDir, baseSrcName+"_parsed"), []byte(xmlparse.Serialize(root)), 0644); err != nil {
			return nil, fmt.Errorf("unable to write parsed doc for debugging: %w", err)
		}
	}

	croot := chunk.Document(root, log)
	if croot == nil {
		return nil, fmt.Errorf("source has no structural elements (%s)", srcName)
	}
	chunk.Layout(croot, env.Cfg.Document.ChunkedOutput, env.Cfg.Document.InlineDepth)
	idx := chunk.BuildIndex(croot, log)

	c := &Content{
		SrcName:      srcName,
		OutputFormat: outputFormat,
		RefID:        refID.String(),
		Title:        croot.TitleText(),
		Root:         croot,
		Index:        idx,
		WorkDir:      tmpDir,
	}

	// Save chunked document to file for debugging
	if env.Rpt != nil {
		if err := os.WriteFile(filepath.Join(tmpDir, baseSrcName+"_prepared"), []byte(c.String()), 0644); err != nil {
			return nil, fmt.Errorf("unable to write prepared doc for debugging: %w", err)
		}
	}

	return c, nil
}

// decodeSource converts source bytes to UTF-8 text. An explicit code
// page from the configuration wins, then the XML declaration, then a
// byte order mark; anything uncertain passes through unchanged.
func decodeSource(data []byte, cp encoding.Encoding, log *zap.Logger) (string, error) {
	if cp == nil {
		if name := xmlDeclEncoding(data); name != "" {
			if n := strings.ToLower(name); n == "utf-8" || strings.HasPrefix(n, "utf-16") || strings.HasPrefix(n, "utf-32") {
				// Unicode sources are decoded before they get here, the declaration is stale.
			} else if e, err := ianaindex.IANA.Encoding(name); err != nil || e == nil {
				log.Warn("Unknown encoding declared in source, assuming UTF-8", zap.String("charset", name), zap.Error(err))
			} else {
				cp = e
			}
		} else if e, name, certain := charset.DetermineEncoding(data, ""); certain {
			log.Debug("Detected source encoding", zap.String("charset", name))
			cp = e
		}
	}
	src := string(data)
	if cp != nil {
		out, _, err := transform.Bytes(cp.NewDecoder(), data)
		if err != nil {
			return "", err
		}
		src = string(out)
	}
	return strings.TrimPrefix(src, "\uFEFF"), nil
}

// xmlDeclEncoding pulls the encoding name out of the XML declaration.
// Returns empty string when there is no declaration or it does not name
// one.
func xmlDeclEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	decl := string(head)
	if !strings.HasPrefix(decl, "<?xml") {
		return ""
	}
	end := strings.Index(decl, "?>")
	if end < 0 {
		return ""
	}
	decl = decl[:end]
	i := strings.Index(decl, "encoding")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(decl[i+len("encoding"):], " \t\r\n=")
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	rest = rest[1:]
	j := strings.IndexByte(rest, quote)
	if j < 0 {
		return ""
	}
	return rest[:j]
}
