package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// OutputConfig selects one output sink.
type OutputConfig struct {
	// Type is console|file|null.
	Type string `json:"type" yaml:"type"`
	// Path is required when Type is file.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Config declares a logger.
type Config struct {
	Level   string         `json:"level" yaml:"level"`
	Format  string         `json:"format" yaml:"format"`
	Outputs []OutputConfig `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// Redact lists field keys whose values are replaced with [REDACTED].
	Redact []string `json:"redact,omitempty" yaml:"redact,omitempty"`
	// SampleInitial/SampleThereafter enable per-message sampling when
	// SampleThereafter > 0.
	SampleInitial    int `json:"sampleInitial,omitempty" yaml:"sampleInitial,omitempty"`
	SampleThereafter int `json:"sampleThereafter,omitempty" yaml:"sampleThereafter,omitempty"`
}

// ApplyConfig builds a Logger from cfg. A nil cfg yields an info/text console logger.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "", "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if oc.Path == "" {
				return nil, fmt.Errorf("log: file output requires a path")
			}
			fo, err := NewFileOutput(oc.Path)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("log: unknown output type %q", oc.Type)
		}
	}

	l := NewLogger(opts...).(*BaseLogger)
	h := newBridgeHandler(l).withRedactions(cfg.Redact).withSampler(cfg.SampleInitial, cfg.SampleThereafter)
	l.slogLogger = slog.New(h)
	return l, nil
}
