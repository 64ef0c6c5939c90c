package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"bbhtml/config"
	"bbhtml/content"
	"bbhtml/state"
)

// resolveOutputPath decides where the conversion result for src lands under
// dst. Site and docset results are directory trees, so the returned path may
// name a directory to create rather than a file to write. Without a name
// template the source base name is reused with the format extension. A
// template may expand into nested subdirectories, each segment cleaned
// separately.
func resolveOutputPath(c *content.Content, src, dst string, env *state.LocalEnv) string {
	dir := dst
	if !env.NoDirs {
		dir = filepath.Join(dst, filepath.Dir(src))
	}

	name := expandNameTemplate(c, env)
	if name == "" {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		return filepath.Join(dir, cleanSegment(base, env)+c.OutputFormat.Ext())
	}

	segments := pathSegments(name)
	if len(segments) == 0 {
		return dir
	}
	for i, s := range segments {
		segments[i] = cleanSegment(s, env)
	}
	segments[len(segments)-1] += c.OutputFormat.Ext()
	return filepath.Join(append([]string{dir}, segments...)...)
}

// expandNameTemplate expands the configured name template into platform
// separators. It returns the empty string whenever no usable name came out
// and the caller then falls back to the source name.
func expandNameTemplate(c *content.Content, env *state.LocalEnv) string {
	field := env.Cfg.Output.NameTemplate
	if field == "" {
		return ""
	}
	expanded, err := expandTemplate(c, config.OutputNameTemplateFieldName, field, c.OutputFormat)
	if err != nil {
		env.Log.Warn("Unable to prepare output name", zap.Error(err))
		return ""
	}
	if strings.TrimSpace(expanded) == "" {
		return ""
	}
	return filepath.FromSlash(expanded)
}

func pathSegments(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == filepath.Separator || r == '/'
	})
}

func cleanSegment(s string, env *state.LocalEnv) string {
	if env.Cfg.Output.Transliterate {
		s = slug.Make(s)
	}
	return config.CleanFileName(s)
}
