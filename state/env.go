// Package state carries per-run program state through a context.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"bbhtml/config"
)

type envKey struct{}

// LocalEnv bundles everything a single run needs in one place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// convert command state
	NoDirs       bool
	Overwrite    bool
	CodePage     encoding.Encoding
	DefaultStyle []byte
	PageTemplate string

	start         time.Time
	restoreStdLog func()
	errors        int
}

// ContextWithEnv returns ctx carrying a fresh LocalEnv.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

// EnvFromContext returns the LocalEnv stored in ctx and panics when there is
// none. The environment is installed before any command runs.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("localenv not found in context")
	}
	return env
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// CountError records a non-fatal conversion failure. Processing continues
// but the run as a whole reports failure.
func (e *LocalEnv) CountError() {
	e.errors++
}

func (e *LocalEnv) ErrorCount() int {
	return e.errors
}

// RedirectStdLog routes everything written through the stdlib log package to
// our logger until RestoreStdLog is called.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
