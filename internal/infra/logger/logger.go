package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sifan077/DocLink/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "doclink"

var current atomic.Pointer[zap.Logger]

// Init builds the process logger from cfg and makes it the one Sync
// flushes. Development mode writes colored console lines to stdout;
// production writes sampled JSON. A configured file always receives JSON
// and is rotated by size.
func Init(cfg config.LogConfig, development bool) (*zap.Logger, error) {
	l, err := New(cfg, development, os.Stdout)
	if err != nil {
		return nil, err
	}
	if prev := current.Swap(l); prev != nil {
		_ = prev.Sync()
	}
	return l, nil
}

// Sync flushes the logger installed by Init. Errors from syncing a
// terminal are ignored.
func Sync() error {
	l := current.Load()
	if l == nil {
		return nil
	}
	err := l.Sync()
	if err == nil || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid) {
		return nil
	}
	return err
}

// New builds a logger writing to out and, when cfg.File is set, to a
// rotated file.
func New(cfg config.LogConfig, development bool, out io.Writer) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level, development)
	if err != nil {
		return nil, err
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
		if development {
			encoding = "console"
		}
	}

	var enc zapcore.Encoder
	switch encoding {
	case "console":
		enc = zapcore.NewConsoleEncoder(encoderConfig(true, isTerminal(out)))
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig(false, false))
	default:
		return nil, fmt.Errorf("logger: unknown encoding %q", encoding)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), level)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		core = zapcore.NewTee(core, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(false, false)),
			zapcore.AddSync(rotator),
			level,
		))
	}
	if !development {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", serviceName)),
	}
	if development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}

func parseLevel(raw string, development bool) (zap.AtomicLevel, error) {
	if raw == "" {
		if development {
			return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
		}
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	level, err := zap.ParseAtomicLevel(strings.ToLower(raw))
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("logger: invalid level %q: %w", raw, err)
	}
	return level, nil
}

func encoderConfig(console, color bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if !console {
		return cfg
	}

	cfg.ConsoleSeparator = " | "
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := fmt.Sprintf("%-5s", strings.ToUpper(l.String()))
		if color {
			label = levelColor(l) + label + colorReset
		}
		enc.AppendString(label)
	}
	return cfg
}

func isTerminal(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

const (
	colorReset   = "\x1b[0m"
	colorCyan    = "\x1b[36m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorRed     = "\x1b[31m"
	colorMagenta = "\x1b[35m"
)

func levelColor(l zapcore.Level) string {
	switch {
	case l <= zapcore.DebugLevel:
		return colorCyan
	case l == zapcore.InfoLevel:
		return colorGreen
	case l == zapcore.WarnLevel:
		return colorYellow
	case l == zapcore.ErrorLevel || l == zapcore.FatalLevel:
		return colorRed
	default:
		return colorMagenta
	}
}
