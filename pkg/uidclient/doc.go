// Package uidclient is the client library of the uid block service.
//
// A Client speaks the fixed-width binary protocol (see package wire) to a
// primary server, falling back once to a failsafe server managing a
// disjoint range. An HTTPClient reaches the same allocator through the
// server's admin HTTP endpoint, trying a list of servers in order. Both
// implement Transport.
//
// An Allocator wraps a Transport, caches one block and serves single ids
// from it:
//
//	c, err := uidclient.NewClient(uidclient.Options{
//	    Primary:  "uid-a:7321",
//	    Failsafe: "uid-b:7321",
//	})
//	if err != nil { /* ... */ }
//	a, _ := uidclient.New(c, 1000)
//	id, err := a.NextID(ctx)
//	if errors.Is(err, uidclient.ErrExhausted) { /* no server could refill */ }
//
// Identifiers are unique across all clients of a deployment but carry no
// ordering between clients.
package uidclient
