// Package runtime wires the position store, its lock, metrics and the
// allocator into a single uid server instance. It exposes Init for the
// one-time range setup, Open/Close and a basic health check.
//
// Example:
//
//	cfg := config.DefaultServer()
//	cfg.PositionFile, cfg.IndexSize, cfg.MaxBlockSize = "/var/lib/uid/default.pos", 1<<40, 10000
//	_ = runtime.Init(cfg, 1) // once, before the first start
//	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	if err != nil { /* bad checkpoint, locked, ... */ }
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
package runtime
