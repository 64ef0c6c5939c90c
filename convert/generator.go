package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bbhtml/content"
	"bbhtml/convert/html"
	"bbhtml/misc"
	"bbhtml/state"
)

const (
	stylesheetName = "boostbook.css"
	imagesDir      = "images"
	calloutsDir    = "callouts"
)

// generateSite renders the document into a directory of HTML pages with
// the stylesheet and navigation images installed next to them.
func generateSite(ctx context.Context, c *content.Content, outputPath string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	log.Info("Generating site", zap.String("output", outputPath))

	opt := html.Options{
		CSS:          stylesheetName,
		Graphics:     imagesDir,
		TextNav:      env.Cfg.Assets.TextNav,
		BoostRoot:    env.Cfg.Document.BoostRoot,
		PageTemplate: env.PageTemplate,
		Generator:    misc.GetAppName() + " " + misc.GetVersion(),
	}

	pages, err := html.Generate(c.Root, c.Index, opt, log)
	if err != nil {
		return fmt.Errorf("unable to render pages: %w", err)
	}

	// A page which cannot be written should not stop the rest of the
	// site, failures are counted and surfaced through the exit status.
	for _, p := range pages {
		name := filepath.Join(outputPath, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			log.Error("Unable to write page", zap.String("page", p.Path), zap.Error(err))
			env.CountError()
			continue
		}
		if err := os.WriteFile(name, p.Content, 0644); err != nil {
			log.Error("Unable to write page", zap.String("page", p.Path), zap.Error(err))
			env.CountError()
		}
	}

	if err := installStylesheet(outputPath, env, log); err != nil {
		log.Error("Unable to install stylesheet", zap.Error(err))
		env.CountError()
	}
	if err := installGraphics(outputPath, env, log); err != nil {
		log.Error("Unable to install graphics", zap.Error(err))
		env.CountError()
	}

	log.Debug("Site generated", zap.Int("pages", len(pages)))
	return nil
}

// generateZip renders the site into the content scratch directory and
// packs it into a single archive.
func generateZip(ctx context.Context, c *content.Content, outputPath string, log *zap.Logger) error {
	staging := filepath.Join(c.WorkDir, "site")
	if err := generateSite(ctx, c, staging, log); err != nil {
		return err
	}

	log.Info("Packing site", zap.String("output", outputPath))

	_, tmpName := filepath.Split(outputPath)
	tmpName = filepath.Join(c.WorkDir, tmpName)

	if err := packDir(staging, tmpName); err != nil {
		return err
	}
	defer os.Remove(tmpName)

	// archive/zip streams entries with data descriptors, repacking
	// produces a cleaner archive some viewers insist on
	return copyZipWithoutDataDescriptors(tmpName, outputPath)
}

// generateDocset lays out an offline documentation bundle: rendered
// pages under Contents/Resources/Documents, a property list describing
// the bundle and a search index database.
func generateDocset(ctx context.Context, c *content.Content, outputPath string, log *zap.Logger) error {
	docs := filepath.Join(outputPath, "Contents", "Resources", "Documents")
	if err := generateSite(ctx, c, docs, log); err != nil {
		return err
	}

	log.Info("Indexing docset", zap.String("output", outputPath))

	if err := writeDocsetPlist(c, filepath.Join(outputPath, "Contents", "Info.plist")); err != nil {
		return fmt.Errorf("unable to write property list: %w", err)
	}
	if err := writeSearchIndex(c, filepath.Join(outputPath, "Contents", "Resources", "docSet.dsidx"), log); err != nil {
		return fmt.Errorf("unable to build search index: %w", err)
	}
	return nil
}
