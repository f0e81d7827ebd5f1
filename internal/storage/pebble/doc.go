// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// batches, fixed-width integer helpers and minimal metrics hooks. The uid
// server uses it as the alternative position backend, where every range
// checkpoint lives under its own key in one database.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.SetUint64([]byte("position/default"), 1000)
//	v, _ := db.GetUint64([]byte("position/default"))
package pebblestore
