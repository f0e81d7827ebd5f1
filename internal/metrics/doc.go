// Package metrics exposes allocator and storage observations as prometheus
// series in a private registry.
//
//	m := metrics.New("default")
//	a, _ := allocator.New(cfg, store, allocator.WithObserver(m))
//	mux.Handle("/metrics", m.Handler())
package metrics
