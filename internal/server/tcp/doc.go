// Package tcpserver serves the uid wire protocol over TCP.
//
// The loop is deliberately iterative: one connection is accepted, one
// request read, answered and the connection closed before the next accept.
// Every socket operation carries a deadline so a stalled peer cannot block
// other clients forever.
//
//	srv := tcpserver.New(alloc, tcpserver.Options{Logger: logger})
//	switch err := srv.ListenAndServe(ctx, ":7321"); {
//	case errors.Is(err, tcpserver.ErrKilled):   // clean stop requested by a client
//	case errors.Is(err, tcpserver.ErrFatal):    // exit non-zero
//	}
package tcpserver
