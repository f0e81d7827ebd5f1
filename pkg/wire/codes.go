package wire

import (
	"errors"
	"fmt"
)

// Code identifies the operation a client asks the server to perform.
type Code int32

// Request codes. Values are part of the wire contract.
const (
	CodeAllocate     Code = 0
	CodeQueryMaxSize Code = 1
	CodeKill         Code = 2
)

// String returns the request code name.
func (c Code) String() string {
	switch c {
	case CodeAllocate:
		return "allocate"
	case CodeQueryMaxSize:
		return "query_max_size"
	case CodeKill:
		return "kill"
	default:
		return fmt.Sprintf("code(%d)", int32(c))
	}
}

// Status is the outcome reported by the server in a response.
type Status int32

// Status codes. Values are part of the wire contract.
const (
	StatusOK            Status = 0
	StatusBlockTooLarge Status = 1
	StatusRanOutOfSpace Status = 2
	StatusConfigError   Status = 3
	StatusProtocolError Status = 4
	StatusConnectError  Status = 5
	StatusExhausted     Status = 6
)

// Sentinel errors, one per non-OK status.
var (
	ErrBlockTooLarge = errors.New("uid: requested block larger than server maximum")
	ErrRanOutOfSpace = errors.New("uid: server ran out of id space")
	ErrConfig        = errors.New("uid: server position configuration error")
	ErrProtocol      = errors.New("uid: protocol error")
	ErrConnect       = errors.New("uid: cannot connect to server")
	ErrExhausted     = errors.New("uid: id block exhausted")
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s >= StatusOK && s <= StatusExhausted
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBlockTooLarge:
		return "block_too_large"
	case StatusRanOutOfSpace:
		return "ran_out_of_space"
	case StatusConfigError:
		return "config_error"
	case StatusProtocolError:
		return "protocol_error"
	case StatusConnectError:
		return "connect_error"
	case StatusExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Err maps a status to its sentinel error; StatusOK maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusBlockTooLarge:
		return ErrBlockTooLarge
	case StatusRanOutOfSpace:
		return ErrRanOutOfSpace
	case StatusConfigError:
		return ErrConfig
	case StatusConnectError:
		return ErrConnect
	case StatusExhausted:
		return ErrExhausted
	default:
		return ErrProtocol
	}
}

// StatusOf is the inverse of Err: it returns the status whose sentinel err
// wraps, or StatusOK for a nil error. Unknown errors map to StatusConnectError.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBlockTooLarge):
		return StatusBlockTooLarge
	case errors.Is(err, ErrRanOutOfSpace):
		return StatusRanOutOfSpace
	case errors.Is(err, ErrConfig):
		return StatusConfigError
	case errors.Is(err, ErrProtocol):
		return StatusProtocolError
	case errors.Is(err, ErrExhausted):
		return StatusExhausted
	default:
		return StatusConnectError
	}
}
