// Package position persists the checkpoint of an id range: the value below
// which every id may already have been handed out. A server never hands out
// an id at or above the last durably written checkpoint, so after a crash it
// can resume from the checkpoint without reissuing anything.
//
// Two backends implement Store:
//
//   - FileStore: one file per range holding exactly 8 big-endian bytes,
//     replaced atomically on every write.
//   - PebbleStore: one key per namespace in a Pebble database, next to the
//     range the namespace was initialised with.
//
// Usage:
//
//	s := position.NewFileStore("/var/lib/uid/default.pos")
//	lock, err := position.Acquire(s.Path())
//	if err != nil { /* another server owns the range */ }
//	defer lock.Release()
//	v, err := s.Read()
package position
