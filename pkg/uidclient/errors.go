package uidclient

import "github.com/rzbill/uid/pkg/wire"

// Errors surfaced by the client. They are the wire sentinels, so errors.Is
// works against either package.
var (
	ErrConnect       = wire.ErrConnect
	ErrProtocol      = wire.ErrProtocol
	ErrExhausted     = wire.ErrExhausted
	ErrBlockTooLarge = wire.ErrBlockTooLarge
	ErrRanOutOfSpace = wire.ErrRanOutOfSpace
	ErrConfig        = wire.ErrConfig
)
