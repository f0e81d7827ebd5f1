// Package allocator is the server core: it owns the allocation cursor of one
// id range and the checkpoint that makes the cursor crash safe.
//
// Every granted block lies below a checkpoint that was durably written
// before the block was returned. On startup the cursor resumes at the stored
// checkpoint, so a crash only ever leaks ids, never repeats them.
//
// Usage:
//
//	store := position.NewFileStore(path)
//	a, err := allocator.New(allocator.Config{
//	    IndexStart: 1, IndexSize: 1 << 40, MaxBlockSize: 10000, UpdateIncrement: 100000,
//	}, store, allocator.WithLogger(logger))
//	if err != nil { /* bad or missing checkpoint */ }
//	resp := a.Handle(wire.Request{Code: wire.CodeAllocate, Size: 1000})
package allocator
