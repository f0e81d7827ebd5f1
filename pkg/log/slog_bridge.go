package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
)

// bridgeHandler feeds slog records into the BaseLogger formatter and outputs.
// Attributes are flattened into Fields; groups become dotted key prefixes.
type bridgeHandler struct {
	logger  *BaseLogger
	bound   Fields
	prefix  string
	redact  map[string]struct{}
	sampler *sampler
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	return &bridgeHandler{logger: logger}
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.level <= fromSlogLevel(level)
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	if h.sampler != nil && !h.sampler.allow(r.Level, r.Message) {
		return nil
	}

	fields := make(Fields, len(h.bound)+r.NumAttrs())
	for k, v := range h.bound {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(fields, h.prefix, a)
		return true
	})

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    callerOf(r.PC),
	}
	formatted, err := h.logger.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.logger.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.bound = make(Fields, len(h.bound)+len(attrs))
	for k, v := range h.bound {
		nh.bound[k] = v
	}
	for _, a := range attrs {
		nh.put(nh.bound, nh.prefix, a)
	}
	return &nh
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

// put stores a under prefix, expanding nested groups and masking redacted keys.
func (h *bridgeHandler) put(dst Fields, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			h.put(dst, sub, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if _, ok := h.redact[a.Key]; ok {
		dst[prefix+a.Key] = "[REDACTED]"
		return
	}
	dst[prefix+a.Key] = v.Any()
}

func (h *bridgeHandler) withRedactions(keys []string) *bridgeHandler {
	if len(keys) == 0 {
		return h
	}
	nh := *h
	nh.redact = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		nh.redact[k] = struct{}{}
	}
	return &nh
}

func (h *bridgeHandler) withSampler(initial, thereafter int) *bridgeHandler {
	if thereafter <= 0 {
		return h
	}
	nh := *h
	nh.sampler = newSampler(initial, thereafter)
	return &nh
}

func callerOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

type sampleKey struct {
	level slog.Level
	msg   string
}

// sampler lets the first initial records of a (level, message) pair through,
// then one in every thereafter.
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	seen       map[sampleKey]uint64
}

func newSampler(initial, thereafter int) *sampler {
	s := &sampler{thereafter: 1, seen: make(map[sampleKey]uint64)}
	if initial > 0 {
		s.initial = uint64(initial)
	}
	if thereafter > 0 {
		s.thereafter = uint64(thereafter)
	}
	return s
}

func (s *sampler) allow(level slog.Level, msg string) bool {
	k := sampleKey{level, msg}
	s.mu.Lock()
	n := s.seen[k]
	s.seen[k] = n + 1
	s.mu.Unlock()
	return n < s.initial || (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	}
	return ErrorLevel
}

func attrsFromMap(m Fields) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

// argsToAttrs pairs up loosely typed key/value args. A non-string key or a
// trailing value is kept under "argN".
func argsToAttrs(args []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || i+1 == len(args) {
			key = "arg" + strconv.Itoa(i)
		}
		val := args[i]
		if i+1 < len(args) {
			val = args[i+1]
		}
		attrs = append(attrs, slog.Any(key, val))
	}
	return attrs
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}
