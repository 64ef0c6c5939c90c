package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bbhtml/config"
	"bbhtml/content"
)

func TestGenerateSite(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	c, err := content.Prepare(ctx, strings.NewReader(sampleDoc), "guide.xml", config.OutputFmtSite, logger)
	if err != nil {
		t.Fatalf("unable to prepare content: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(c.WorkDir) })

	out := t.TempDir()
	if err := generateSite(ctx, c, out, logger); err != nil {
		t.Fatalf("generateSite() error = %v", err)
	}

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatalf("read index page: %v", err)
	}
	if !strings.Contains(string(index), "Sample Guide") {
		t.Error("index page does not carry the document title")
	}
	if !strings.Contains(string(index), stylesheetName) {
		t.Error("index page does not link the stylesheet")
	}

	intro, err := os.ReadFile(filepath.Join(out, "intro.html"))
	if err != nil {
		t.Fatalf("read chapter page: %v", err)
	}
	if !strings.Contains(string(intro), "Getting started with the toolchain.") {
		t.Error("chapter page does not carry chapter text")
	}

	wantOutputFiles(t,
		filepath.Join(out, stylesheetName),
		filepath.Join(out, imagesDir, "prev.svg"),
		filepath.Join(out, imagesDir, calloutsDir, "1.svg"),
	)
}

func TestGenerateSite_CancelledContext(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	c, err := content.Prepare(ctx, strings.NewReader(sampleDoc), "guide.xml", config.OutputFmtSite, logger)
	if err != nil {
		t.Fatalf("unable to prepare content: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(c.WorkDir) })

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	if err := generateSite(cctx, c, t.TempDir(), logger); !errors.Is(err, context.Canceled) {
		t.Errorf("generateSite() error = %v, want context.Canceled", err)
	}
}

func TestGenerateSite_CountsUnwritablePage(t *testing.T) {
	ctx, env := setupTestEnv(t)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))

	c, err := content.Prepare(ctx, strings.NewReader(sampleDoc), "guide.xml", config.OutputFmtSite, logger)
	if err != nil {
		t.Fatalf("unable to prepare content: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(c.WorkDir) })

	out := t.TempDir()
	// a directory in place of the chapter page makes that single page
	// unwritable while everything else still works
	if err := os.MkdirAll(filepath.Join(out, "intro.html"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := generateSite(ctx, c, out, logger); err != nil {
		t.Fatalf("generateSite() error = %v", err)
	}
	if got := env.ErrorCount(); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
	wantOutputFiles(t, filepath.Join(out, "index.html"), filepath.Join(out, stylesheetName))
}
