// Package log provides the structured logging facade used by the uid server,
// client library and CLI.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by the
// standard library slog via a custom handler that feeds the package's own
// formatter and outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("allocator"), log.Str("namespace", "default"))
//	l.Info("block granted", log.Uint64("size", 1000))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: JSON or text
// formatting, console/file/null outputs, key redaction and per-message
// sampling.
//
// # Interop
//
// ToStdLogger and RedirectStdLog adapt the facade for code that expects the
// standard library *log.Logger.
package log
