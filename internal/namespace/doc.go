// Package namespace names independent id ranges stored in one Pebble
// database. Each namespace has a metadata record (the range it was
// initialised with) and a position key holding its checkpoint.
//
//	v, _ := namespace.NewValidator("")
//	if err := v.Validate("orders"); err != nil { /* reject */ }
//	m, err := namespace.Ensure(db, "orders", 1, 1<<40)
package namespace
