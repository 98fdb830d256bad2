package observability

import "log/slog"

// slogLogger adapts a *slog.Logger to the Logger facade.
type slogLogger struct{ l *slog.Logger }

// NewSlog wraps an slog logger. A nil argument wraps slog.Default().
func NewSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func toAttrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key(), f.Value()))
	}
	return out
}

func (s slogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, toAttrs(fields)...) }
func (s slogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, toAttrs(fields)...) }
func (s slogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, toAttrs(fields)...) }
func (s slogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, toAttrs(fields)...) }

func (s slogLogger) With(fields ...Field) Logger {
	return slogLogger{l: s.l.With(toAttrs(fields)...)}
}
