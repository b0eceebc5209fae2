package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type jobIDKey struct{}

type implLogger struct {
	entry *logrus.Logger
}

// New creates a new Logger instance writing to stdout.
// format is "json" or "text" (default).
func New(level, format string) Logger {
	return newWithOutput(os.Stdout, level, format)
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return newWithOutput(io.Discard, "error", "text")
}

func newWithOutput(w io.Writer, level, format string) *implLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(parseLevel(level))

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &implLogger{entry: l}
}

// parseLevel maps a config level to logrus, defaulting to info.
func parseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithJobID tags ctx so every line logged with it carries the job id.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

func (l *implLogger) withCtx(ctx context.Context) *logrus.Entry {
	e := logrus.NewEntry(l.entry)
	if ctx == nil {
		return e
	}
	if id, ok := ctx.Value(jobIDKey{}).(string); ok && id != "" {
		e = e.WithField("job", id)
	}
	return e
}

func (l *implLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.withCtx(ctx).Debugf(msg, args...)
}

func (l *implLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.withCtx(ctx).Infof(msg, args...)
}

func (l *implLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.withCtx(ctx).Warnf(msg, args...)
}

func (l *implLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.withCtx(ctx).Errorf(msg, args...)
}
