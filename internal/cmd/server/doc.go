// Package serverrun implements the `uid server` commands: init writes the
// first checkpoint of a position record, start serves the block protocol
// until killed, and kill asks a running server to persist its cursor and
// exit.
//
// Run owns the process lifecycle. It opens the runtime, serves the TCP block
// protocol in the foreground and the optional HTTP and gRPC admin listeners
// in the background, logs received signals, and persists the cursor on the
// way out. A checkpoint persistence failure makes Run return ErrFatal, which
// the binary turns into exit status 1.
//
// Example:
//
//	cfg := config.DefaultServer()
//	cfg.PositionFile = "/var/lib/uid/default.pos"
//	cfg.IndexSize, cfg.MaxBlockSize = 1<<32, 10000
//	_ = serverrun.Init(cfg, cfg.IndexStart, logger)
//	err := serverrun.Run(ctx, serverrun.Options{Config: cfg, Logger: logger})
package serverrun
