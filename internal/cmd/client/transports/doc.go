// Package transports selects between the TCP and HTTP block transports for
// the CLI from client configuration.
package transports
