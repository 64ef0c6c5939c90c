package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"bbhtml/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// Prepare builds the program logger: split console output with errors on
// stderr, plus an optional file log. When a debug report is requested the
// file log is forced to full verbosity so the report has everything.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {

	lowCore, highCore := consoleCores(conf.ConsoleLogger.Level)

	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}

	var fileCore zapcore.Core = zapcore.NewNopCore()
	var redirected string

	if level == "debug" || level == "normal" {

		capturePanics(filepath.Dir(conf.FileLogger.Destination), mode, rpt)

		enabler := zap.NewAtomicLevelAt(zap.InfoLevel)
		if level == "debug" {
			enabler = zap.NewAtomicLevelAt(zap.DebugLevel)
		}

		f, err := openLog(conf.FileLogger.Destination, mode)
		if err != nil {
			if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
				return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
			}
			redirected = f.Name()
		}
		fileCore = zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), enabler)
		rpt.Store("final.log", f.Name())
	}

	log := zap.New(zapcore.NewTee(highCore, lowCore, fileCore), zap.AddCaller())
	if len(redirected) != 0 {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

// consoleCores splits console output: everything below error goes to
// stdout, errors go to stderr with the verbose chain stripped. Colors are
// only used when the stream is an actual terminal.
func consoleCores(level string) (zapcore.Core, zapcore.Core) {

	var floor zapcore.Level
	switch level {
	case "debug":
		floor = zapcore.DebugLevel
	case "normal":
		floor = zapcore.InfoLevel
	default:
		return zapcore.NewNopCore(), zapcore.NewNopCore()
	}

	low := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stdout)),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return floor <= lvl && lvl < zapcore.ErrorLevel
		}))

	high := zapcore.NewCore(
		plainErrors{zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stderr))},
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))

	return low, high
}

func consoleEncoderConfig(dst *os.File) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if EnableColorOutput(dst) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}
	return ec
}

func openLog(fname, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(fname, flags, 0644)
}

// capturePanics redirects the runtime crash output next to the file log so
// stack traces from aborts survive and make it into the report.
func capturePanics(logDir, mode string, rpt *Report) {

	f, err := openLog(filepath.Join(logDir, misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log")
	}
	if err != nil {
		// not being able to capture panics is not fatal
		return
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
	rpt.Store("panic.log", f.Name())
	f.Close()
}

// plainErrors keeps console error output on a single line, the full error
// chain still goes to the file log.
type plainErrors struct {
	zapcore.Encoder
}

func (p plainErrors) Clone() zapcore.Encoder {
	return plainErrors{p.Encoder.Clone()}
}

func (p plainErrors) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			f.Interface = errors.New(f.Interface.(error).Error())
		}
		out = append(out, f)
	}
	return p.Encoder.EncodeEntry(ent, out)
}
