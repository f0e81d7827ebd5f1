// Package grpcserver exposes the standard gRPC health service
// (grpc.health.v1.Health) for a uid server, so orchestrators can probe it
// with stock tooling. Both the empty service name and "uid.v1.Allocator"
// report NOT_SERVING once the allocator was killed or lost the ability to
// persist its checkpoint.
//
// Example:
//
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":9090")
package grpcserver
