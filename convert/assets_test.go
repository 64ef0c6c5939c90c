package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bbhtml/convert/html"
	"bbhtml/css"
)

func TestInstallGraphics_Default(t *testing.T) {
	_, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	out := t.TempDir()
	if err := installGraphics(out, env, logger); err != nil {
		t.Fatalf("installGraphics() error = %v", err)
	}

	for _, name := range []string{"prev.svg", "next.svg", "up.svg", "home.svg"} {
		if _, err := os.Stat(filepath.Join(out, imagesDir, name)); err != nil {
			t.Errorf("navigation image %s missing: %v", name, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(out, imagesDir, calloutsDir))
	if err != nil {
		t.Fatalf("read callouts dir: %v", err)
	}
	if len(entries) != html.MaxCalloutGraphic {
		t.Errorf("callout image count = %d, want %d", len(entries), html.MaxCalloutGraphic)
	}
	for _, n := range []int{1, html.MaxCalloutGraphic} {
		if _, err := os.Stat(filepath.Join(out, imagesDir, calloutsDir, fmt.Sprintf("%d.svg", n))); err != nil {
			t.Errorf("callout image %d.svg missing: %v", n, err)
		}
	}
}

func TestInstallGraphics_CustomDir(t *testing.T) {
	_, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	custom := t.TempDir()
	if err := os.MkdirAll(filepath.Join(custom, "nav"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(custom, "nav", "arrow.svg"), []byte("<svg/>"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	env.Cfg.Assets.GraphicsPath = custom

	out := t.TempDir()
	if err := installGraphics(out, env, logger); err != nil {
		t.Fatalf("installGraphics() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, imagesDir, "nav", "arrow.svg")); err != nil {
		t.Errorf("custom graphic not installed: %v", err)
	}
	// a custom set replaces the built-in one entirely
	if _, err := os.Stat(filepath.Join(out, imagesDir, "prev.svg")); err == nil {
		t.Error("built-in navigation image installed alongside custom set")
	}
}

func TestInstallStylesheet_Default(t *testing.T) {
	_, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	out := t.TempDir()
	if err := installStylesheet(out, env, logger); err != nil {
		t.Fatalf("installStylesheet() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, stylesheetName))
	if err != nil {
		t.Fatalf("read installed stylesheet: %v", err)
	}

	sheet := css.NewParser(zaptest.NewLogger(t)).Parse(data)
	if len(sheet.RulesBySelector("p")) == 0 {
		t.Error("installed stylesheet has no p rule")
	}
	if len(sheet.RulesBySelector(".toc")) == 0 {
		t.Error("installed stylesheet has no .toc rule")
	}
}

func TestInstallStylesheet_CopiesLocalResources(t *testing.T) {
	_, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	srcRoot := t.TempDir()
	for _, dir := range []string{"styles", "shared"} {
		if err := os.MkdirAll(filepath.Join(srcRoot, dir), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "shared", "logo.png"), []byte("png"), 0644); err != nil {
		t.Fatalf("write resource: %v", err)
	}

	customCSS := `body {
	background: url("../shared/logo.png");
}

.banner {
	background: url("https://example.com/ext.png");
}
`
	stylePath := filepath.Join(srcRoot, "styles", "custom.css")
	if err := os.WriteFile(stylePath, []byte(customCSS), 0644); err != nil {
		t.Fatalf("write stylesheet: %v", err)
	}

	env.Cfg.Assets.StylesheetPath = stylePath
	env.DefaultStyle = []byte(customCSS)

	out := t.TempDir()
	if err := installStylesheet(out, env, logger); err != nil {
		t.Fatalf("installStylesheet() error = %v", err)
	}

	// references above the stylesheet directory are flattened into images
	if _, err := os.Stat(filepath.Join(out, imagesDir, "logo.png")); err != nil {
		t.Errorf("referenced resource not installed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, stylesheetName))
	if err != nil {
		t.Fatalf("read installed stylesheet: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `url("images/logo.png")`) {
		t.Errorf("stylesheet does not reference installed resource:\n%s", text)
	}
	if !strings.Contains(text, `url("https://example.com/ext.png")`) {
		t.Errorf("remote reference should stay untouched:\n%s", text)
	}
}

func TestInstallStylesheet_MissingResource(t *testing.T) {
	_, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	srcRoot := t.TempDir()
	customCSS := `p {
	background: url("missing.png");
}
`
	stylePath := filepath.Join(srcRoot, "custom.css")
	if err := os.WriteFile(stylePath, []byte(customCSS), 0644); err != nil {
		t.Fatalf("write stylesheet: %v", err)
	}

	env.Cfg.Assets.StylesheetPath = stylePath
	env.DefaultStyle = []byte(customCSS)

	out := t.TempDir()
	if err := installStylesheet(out, env, logger); err != nil {
		t.Fatalf("installStylesheet() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(out, "missing.png")); err == nil {
		t.Error("missing resource should not appear in the output")
	}
	data, err := os.ReadFile(filepath.Join(out, stylesheetName))
	if err != nil {
		t.Fatalf("read installed stylesheet: %v", err)
	}
	if !strings.Contains(string(data), "missing.png") {
		t.Errorf("unresolvable reference should stay untouched:\n%s", data)
	}
}

func TestCalloutSVG(t *testing.T) {
	data := string(calloutSVG(5))
	if !strings.Contains(data, "<circle") {
		t.Errorf("callout image has no circle:\n%s", data)
	}
	if !strings.Contains(data, ">5</text>") {
		t.Errorf("callout image has no numeral:\n%s", data)
	}
}
