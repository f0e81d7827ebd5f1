// Package httpserver provides the admin HTTP surface of a uid server:
//
//	GET /v1/healthz                          200 ok, 503 once the allocator stopped
//	GET /v1/status                           cursor, checkpoint and range as JSON
//	GET /metrics                             prometheus exposition
//	GET /v1/blocks?namespace=<ns>&size=<n>   allocate a block (wire.BlockReply)
//	GET /v1/blocks/max-size?namespace=<ns>   query the max block size
//
// Block endpoints go through the same allocator as the binary protocol, so
// ids stay unique across both transports.
//
// CORS headers are only set on the read-only routes. GET /v1/blocks
// consumes ids and carries no authentication, so the listener belongs on
// an internal interface.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	s := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
