package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// exit is replaced in tests so Fatal can be exercised.
var exit = os.Exit

func (l *BaseLogger) log(level Level, msg string, attrs []slog.Attr) {
	if level < l.level {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
	if level == FatalLevel {
		exit(1)
	}
}

// Debug logs at DebugLevel.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, attrsFromFieldSlice(fields))
}

// Info logs at InfoLevel.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, attrsFromFieldSlice(fields))
}

// Warn logs at WarnLevel.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, attrsFromFieldSlice(fields))
}

// Error logs at ErrorLevel.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, attrsFromFieldSlice(fields))
}

// Fatal logs at FatalLevel and exits the process with status 1.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, attrsFromFieldSlice(fields))
}

// Debugf logs a message with key/value pairs at DebugLevel.
func (l *BaseLogger) Debugf(msg string, args ...interface{}) {
	l.log(DebugLevel, msg, argsToAttrs(args))
}

// Infof logs a message with key/value pairs at InfoLevel.
func (l *BaseLogger) Infof(msg string, args ...interface{}) {
	l.log(InfoLevel, msg, argsToAttrs(args))
}

// Warnf logs a message with key/value pairs at WarnLevel.
func (l *BaseLogger) Warnf(msg string, args ...interface{}) {
	l.log(WarnLevel, msg, argsToAttrs(args))
}

// Errorf logs a message with key/value pairs at ErrorLevel.
func (l *BaseLogger) Errorf(msg string, args ...interface{}) {
	l.log(ErrorLevel, msg, argsToAttrs(args))
}

// Fatalf logs a message with key/value pairs at FatalLevel and exits.
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.log(FatalLevel, msg, argsToAttrs(args))
}

func (l *BaseLogger) derive(attrs []slog.Attr) Logger {
	child := *l
	child.fields = Fields{}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, a := range attrs {
		child.fields[a.Key] = a.Value.Any()
	}
	child.slogLogger = l.slogLogger.With(attrsToAny(attrs)...)
	return &child
}

// WithField returns a logger carrying one extra field.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.derive([]slog.Attr{slog.Any(key, value)})
}

// WithFields returns a logger carrying the given fields.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	return l.derive(attrsFromMap(fields))
}

// WithError returns a logger carrying an "error" field.
func (l *BaseLogger) WithError(err error) Logger {
	f := Err(err)
	return l.derive([]slog.Attr{slog.Any(f.Key, f.Value)})
}

// With returns a logger carrying the given fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	return l.derive(attrsFromFieldSlice(fields))
}

// WithContext returns a logger carrying the well-known context values.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.derive(attrsFromMap(ContextExtractor(ctx)))
}

// WithComponent tags every entry with the component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.derive([]slog.Attr{slog.String(ComponentKey, component)})
}

// SetLevel sets the minimum level.
func (l *BaseLogger) SetLevel(level Level) { l.level = level }

// GetLevel returns the minimum level.
func (l *BaseLogger) GetLevel() Level { return l.level }

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG", "Debug":
		return DebugLevel, nil
	case "info", "INFO", "Info", "":
		return InfoLevel, nil
	case "warn", "WARN", "Warn", "warning", "WARNING":
		return WarnLevel, nil
	case "error", "ERROR", "Error":
		return ErrorLevel, nil
	case "fatal", "FATAL", "Fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}
