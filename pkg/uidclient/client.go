package uidclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// DefaultTimeout bounds dial, send and receive of one exchange.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// Primary is the host:port of the main server. Required.
	Primary string
	// Failsafe is the host:port of a server managing a disjoint range. Optional.
	Failsafe string
	// Timeout bounds each attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	Logger  log.Logger
}

// Client speaks the binary protocol to a primary server and, when the
// primary is unreachable or reports it can no longer persist, to a failsafe.
type Client struct {
	opts   Options
	dialer net.Dialer
	logger log.Logger
}

// NewClient validates opts and returns a client.
func NewClient(opts Options) (*Client, error) {
	if opts.Primary == "" {
		return nil, fmt.Errorf("%w: no primary server configured", ErrConnect)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	return &Client{
		opts:   opts,
		dialer: net.Dialer{Timeout: opts.Timeout},
		logger: logger.WithComponent("uidclient"),
	}, nil
}

// RequestInterval asks for a block of size ids.
func (c *Client) RequestInterval(ctx context.Context, size uint64) (wire.Interval, error) {
	resp, err := c.Exchange(ctx, wire.Request{Code: wire.CodeAllocate, Size: size})
	if err != nil {
		return wire.Interval{}, err
	}
	if err := resp.Status.Err(); err != nil {
		return wire.Interval{}, err
	}
	return resp.Interval, nil
}

// MaxBlockSize asks the server for its largest allowed block.
func (c *Client) MaxBlockSize(ctx context.Context) (uint64, error) {
	resp, err := c.Exchange(ctx, wire.Request{Code: wire.CodeQueryMaxSize})
	if err != nil {
		return 0, err
	}
	if err := resp.Status.Err(); err != nil {
		return 0, err
	}
	return resp.Interval.ASize, nil
}

// Kill asks the server at addr to persist its cursor and exit. No failover.
func (c *Client) Kill(ctx context.Context, addr string) error {
	resp, err := c.attemptExchange(ctx, addr, wire.Request{Code: wire.CodeKill})
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}
	return resp.Status.Err()
}

// Exchange performs one request with failover. The primary is tried first;
// on a transport failure, or a config_error status from a primary that can
// no longer persist, the failsafe is tried exactly once. Protocol errors and
// range/size statuses from the primary are returned as they are.
func (c *Client) Exchange(ctx context.Context, req wire.Request) (wire.Response, error) {
	resp, err := c.attemptExchange(ctx, c.opts.Primary, req)
	switch {
	case err == nil && resp.Status != wire.StatusConfigError:
		return resp, nil
	case errors.Is(err, ErrProtocol):
		return wire.Response{}, err
	}

	reason := "config_error"
	if err != nil {
		reason = err.Error()
	}
	if c.opts.Failsafe == "" {
		if err != nil {
			return wire.Response{}, fmt.Errorf("%w: primary %s: %v", ErrConnect, c.opts.Primary, err)
		}
		return resp, nil
	}
	c.logger.Warn("primary failed, trying failsafe",
		log.Str("primary", c.opts.Primary), log.Str("failsafe", c.opts.Failsafe), log.Str("reason", reason))

	resp, err = c.attemptExchange(ctx, c.opts.Failsafe, req)
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return wire.Response{}, err
		}
		return wire.Response{}, fmt.Errorf("%w: primary %s (%s), failsafe %s: %v",
			ErrConnect, c.opts.Primary, reason, c.opts.Failsafe, err)
	}
	if resp.Status == wire.StatusConfigError {
		return wire.Response{}, fmt.Errorf("%w: primary %s (%s), failsafe %s: config_error",
			ErrConnect, c.opts.Primary, reason, c.opts.Failsafe)
	}
	return resp, nil
}

// attemptExchange runs one dial/send/receive/close cycle against addr.
// Transport errors are returned raw; a malformed response wraps ErrProtocol.
func (c *Client) attemptExchange(ctx context.Context, addr string, req wire.Request) (wire.Response, error) {
	rid := uuid.NewString()
	logger := c.logger.With(log.RequestID(rid), log.Str(log.RemoteKey, addr))

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("dial failed", log.Err(err))
		return wire.Response{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if err := wire.WriteRequest(conn, req); err != nil {
		logger.Debug("send failed", log.Err(err))
		return wire.Response{}, err
	}
	resp, err := wire.ReadResponse(conn)
	if err != nil {
		logger.Debug("receive failed", log.Err(err))
		return wire.Response{}, err
	}
	logger.Debug("exchange complete",
		log.Str("code", req.Code.String()),
		log.Uint64("size", req.Size),
		log.Str("status", resp.Status.String()),
		log.Str("interval", resp.Interval.String()))
	return resp, nil
}
