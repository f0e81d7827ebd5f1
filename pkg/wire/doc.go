// Package wire implements the fixed-width binary protocol spoken between uid
// clients and the uid block server.
//
// # Format
//
// Every exchange is one request followed by one response on a fresh
// connection. All integers are big-endian (XDR byte order), so clients and
// servers built for different architectures interoperate.
//
//	Request  (12 bytes): [0:4]  int32  code
//	                     [4:12] uint64 requested block size
//
//	Response (36 bytes): [0:8]   uint64 a_start
//	                     [8:16]  uint64 a_size
//	                     [16:24] uint64 b_start
//	                     [24:32] uint64 b_size
//	                     [32:36] int32  status
//
// There are no variable-length or self-describing fields. A short buffer or an
// unknown status code fails decoding with ErrProtocol.
//
// Usage
//
//	buf := wire.EncodeRequest(wire.Request{Code: wire.CodeAllocate, Size: 1000})
//	_, _ = conn.Write(buf[:])
//	resp, err := wire.ReadResponse(conn)
//	if err == nil {
//	    err = resp.Status.Err()
//	}
package wire
