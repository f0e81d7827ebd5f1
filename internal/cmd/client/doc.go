// Package client provides the `uid block` command-line client.
//
// The commands obtain blocks from a uid server over the TCP block protocol,
// with failover from the primary to the failsafe server, or from a list of
// HTTP servers when --http-servers (or UID_HTTP_SERVERS) is set.
//
// # Address configuration
//
// The primary and failsafe servers come from the SYS_UID_SERVER_HOST_NAME,
// SYS_UID_SERVER_PORT, SYS_UID_FAILSAFE_SERVER_HOST_NAME and
// SYS_UID_FAILSAFE_SERVER_PORT environment variables, a config file, or the
// --server and --failsafe flags, in increasing precedence. The admin HTTP
// base URL used by `status` is discovered via a BaseURLFunc; the standalone
// binary reads UID_ADMIN (default http://127.0.0.1:8080).
//
// Usage
//
//	uid block next --count 10
//	uid block next --server uid1:7321 --failsafe uid2:7321 --block-size 500
//	uid block reserve --size 1000
//	uid block reserve --http-servers http://a:8080,http://b:8080 --namespace orders
//	uid block max-size
//	uid block status
//
//	# Keep retrying while both servers are down, for up to a minute
//	uid block next --wait 1m
//
// Notes
//
//   - --wait retries connection failures and servers that can no longer
//     persist their checkpoint. Block-too-large, out-of-space and protocol
//     errors fail at once.
//   - The command exits non-zero when no id could be acquired.
package client
