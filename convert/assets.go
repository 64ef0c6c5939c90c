package convert

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"bbhtml/convert/html"
	"bbhtml/css"
	"bbhtml/state"
)

// Navigation arrows referenced by the spirit-nav header on every page.
//
//go:embed assets/*.svg
var navIcons embed.FS

// installStylesheet parses the active stylesheet, copies local resources it
// references next to the generated pages and writes the result as
// boostbook.css in the output root. References pointing above the stylesheet
// directory are flattened into the images directory.
func installStylesheet(outputPath string, env *state.LocalEnv, log *zap.Logger) error {

	sheet := css.NewParser(log).Parse(env.DefaultStyle, stylesheetName)
	if len(sheet.Warnings) > 0 {
		log.Warn("Stylesheet has unsupported constructs", zap.Int("count", len(sheet.Warnings)))
	}

	var srcDir string
	if env.Cfg.Assets.StylesheetPath != "" {
		srcDir = filepath.Dir(env.Cfg.Assets.StylesheetPath)
	}

	installed := make(map[string]string)
	for _, ref := range sheet.ExternalRefs() {
		u := ref.URL
		if u == "" || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "//") || strings.Contains(u, ":") {
			// fragments, protocol-relative and absolute URLs stay as they are
			continue
		}
		if _, ok := installed[u]; ok {
			continue
		}
		if srcDir == "" {
			log.Warn("Stylesheet references a local resource which cannot be resolved", zap.String("url", u), zap.String("context", ref.Context))
			continue
		}

		rel := path.Clean(u)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			rel = path.Join(imagesDir, path.Base(rel))
		}

		src := filepath.Join(srcDir, filepath.FromSlash(u))
		dst := filepath.Join(outputPath, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("unable to create directory for stylesheet resource: %w", err)
		}
		if err := copyFile(src, dst); err != nil {
			log.Warn("Unable to copy stylesheet resource", zap.String("url", u), zap.String("context", ref.Context), zap.Error(err))
			continue
		}
		installed[u] = rel
	}

	if len(installed) > 0 {
		sheet.RewriteURLs(func(originalURL string) string {
			if rewritten, ok := installed[originalURL]; ok {
				return rewritten
			}
			return originalURL
		})
	}

	out, err := os.Create(filepath.Join(outputPath, stylesheetName))
	if err != nil {
		return fmt.Errorf("unable to create stylesheet: %w", err)
	}
	defer out.Close()

	if _, err := sheet.WriteTo(out); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	return nil
}

// installGraphics populates the images directory of the generated site. With
// no graphics_path configured the built-in navigation arrows and numbered
// callout images are written, otherwise the configured directory is copied
// as is and is expected to carry the complete set.
func installGraphics(outputPath string, env *state.LocalEnv, log *zap.Logger) error {

	imgPath := filepath.Join(outputPath, imagesDir)

	if env.Cfg.Assets.GraphicsPath != "" {
		log.Debug("Installing graphics", zap.String("from", env.Cfg.Assets.GraphicsPath))
		return copyDir(env.Cfg.Assets.GraphicsPath, imgPath)
	}

	if err := os.MkdirAll(filepath.Join(imgPath, calloutsDir), 0755); err != nil {
		return fmt.Errorf("unable to create images directory: %w", err)
	}

	entries, err := navIcons.ReadDir("assets")
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := navIcons.ReadFile("assets/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(imgPath, e.Name()), data, 0644); err != nil {
			return fmt.Errorf("unable to write navigation image: %w", err)
		}
	}

	for n := 1; n <= html.MaxCalloutGraphic; n++ {
		name := filepath.Join(imgPath, calloutsDir, fmt.Sprintf("%d.svg", n))
		if err := os.WriteFile(name, calloutSVG(n), 0644); err != nil {
			return fmt.Errorf("unable to write callout image: %w", err)
		}
	}
	return nil
}

// calloutSVG draws a numbered callout marker, white numeral on a filled circle.
func calloutSVG(number int) []byte {
	return fmt.Appendf(nil, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 16 16">
<circle cx="8" cy="8" r="7.5" fill="#02649f"/>
<text x="8" y="11" text-anchor="middle" font-family="sans-serif" font-size="8" font-weight="bold" fill="#ffffff">%d</text>
</svg>
`, number)
}

func copyFile(src, dst string) error {

	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

// copyDir copies the file tree under src into dst keeping relative layout.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(fname string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, fname)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.MkdirAll(filepath.Join(dst, rel), 0755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(fname, filepath.Join(dst, rel))
	})
}
