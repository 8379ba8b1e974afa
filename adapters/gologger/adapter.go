package gologger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves glog logger/provider then returns equivalent go-job adapters.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

// LevelTrace sits below slog's debug level.
const LevelTrace = slog.Level(-8)

// ParseLevel maps a config level name onto slog. Unknown names are info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogLogger is a glog.Logger that writes JSON through log/slog.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
	exit   func(int)
}

// NewSlogLogger writes JSON lines to w at or above level. A nil writer means
// stderr.
func NewSlogLogger(w io.Writer, level slog.Level) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{logger: slog.New(handler), ctx: context.Background(), exit: os.Exit}
}

func (l *SlogLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *SlogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *SlogLogger) Fatal(msg string, args ...any) {
	l.log(slog.LevelError, msg, args)
	if l != nil && l.exit != nil {
		l.exit(1)
	}
}

func (l *SlogLogger) WithContext(ctx context.Context) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogLogger{logger: l.logger, ctx: ctx, exit: l.exit}
}

func (l *SlogLogger) WithFields(fields map[string]any) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &SlogLogger{logger: l.logger.With(args...), ctx: l.ctx, exit: l.exit}
}

// Named returns a child logger tagged with the component name.
func (l *SlogLogger) Named(name string) *SlogLogger {
	if l == nil {
		return nil
	}
	return &SlogLogger{logger: l.logger.With("logger", strings.TrimSpace(name)), ctx: l.ctx, exit: l.exit}
}

func (l *SlogLogger) log(level slog.Level, msg string, args []any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Log(l.ctx, level, msg, args...)
}

// SlogProvider hands out named children of one SlogLogger.
type SlogProvider struct {
	root *SlogLogger
}

func NewSlogProvider(root *SlogLogger) *SlogProvider {
	return &SlogProvider{root: root}
}

func (p *SlogProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.root == nil {
		return glog.Nop()
	}
	return p.root.Named(name)
}

var (
	_ glog.Logger         = (*SlogLogger)(nil)
	_ glog.FieldsLogger   = (*SlogLogger)(nil)
	_ glog.LoggerProvider = (*SlogProvider)(nil)
)
