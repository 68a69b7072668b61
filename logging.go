package scene

import (
	"context"
	"log/slog"
	"time"
)

// LogKind identifies what a LogEvent reports.
type LogKind string

const (
	LogCommit      LogKind = "commit"
	LogEvaluation  LogKind = "evaluation"
	LogSceneCommit LogKind = "scene_commit"
)

// LogEvent describes a commit or an evaluation for logging.
type LogEvent struct {
	Kind     LogKind
	Object   string
	Class    string
	Changed  []string
	Bindings []string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records scene events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// SlogLogger forwards events to l at debug level, or error level when the
// event carries an error.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return LoggerFunc(func(event LogEvent) {
		attrs := []slog.Attr{
			slog.String("kind", string(event.Kind)),
			slog.Duration("duration", event.Duration),
		}
		if event.Object != "" {
			attrs = append(attrs, slog.String("object", event.Object))
		}
		if event.Class != "" {
			attrs = append(attrs, slog.String("class", event.Class))
		}
		if len(event.Changed) > 0 {
			attrs = append(attrs, slog.Any("changed", event.Changed))
		}
		if len(event.Bindings) > 0 {
			attrs = append(attrs, slog.Any("bindings", event.Bindings))
		}
		if event.Engine != "" {
			attrs = append(attrs, slog.String("engine", event.Engine), slog.String("expr", event.Expr))
		}
		level := slog.LevelDebug
		if event.Err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		l.LogAttrs(context.Background(), level, "scene "+string(event.Kind), attrs...)
	})
}
