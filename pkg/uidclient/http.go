package uidclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-Id"

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// Servers are base URLs tried in order, e.g. "http://uid-a:8080".
	Servers []string
	// Namespace selects the id range on the server. Defaults to "default".
	Namespace string
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
	Logger     log.Logger
}

// ParseServers splits a comma-separated server list, dropping blanks.
func ParseServers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}

// HTTPClient obtains blocks from the admin HTTP endpoint of one or more
// servers sharing a namespace-aware deployment. Servers are tried in order;
// the next one is used when a server is unreachable or reports config_error.
type HTTPClient struct {
	opts   HTTPOptions
	hc     *http.Client
	logger log.Logger
}

// NewHTTPClient validates opts and returns a client.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if len(opts.Servers) == 0 {
		return nil, fmt.Errorf("%w: no HTTP servers configured", ErrConnect)
	}
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	return &HTTPClient{opts: opts, hc: hc, logger: logger.WithComponent("uidclient.http")}, nil
}

// RequestInterval implements Transport.
func (c *HTTPClient) RequestInterval(ctx context.Context, size uint64) (wire.Interval, error) {
	q := url.Values{}
	q.Set("namespace", c.opts.Namespace)
	q.Set("size", strconv.FormatUint(size, 10))
	reply, err := c.do(ctx, "/v1/blocks?"+q.Encode())
	if err != nil {
		return wire.Interval{}, err
	}
	return reply.Interval, nil
}

// MaxBlockSize implements Transport.
func (c *HTTPClient) MaxBlockSize(ctx context.Context) (uint64, error) {
	q := url.Values{}
	q.Set("namespace", c.opts.Namespace)
	reply, err := c.do(ctx, "/v1/blocks/max-size?"+q.Encode())
	if err != nil {
		return 0, err
	}
	return reply.Interval.ASize, nil
}

func (c *HTTPClient) do(ctx context.Context, path string) (wire.BlockReply, error) {
	var failures []string
	for _, base := range c.opts.Servers {
		reply, err := c.attempt(ctx, base+path)
		if err == nil && reply.Status != wire.StatusConfigError {
			if serr := reply.Status.Err(); serr != nil {
				return wire.BlockReply{}, serr
			}
			return reply, nil
		}
		if errors.Is(err, ErrProtocol) {
			return wire.BlockReply{}, err
		}
		reason := "config_error"
		if err != nil {
			reason = err.Error()
		}
		failures = append(failures, base+": "+reason)
		c.logger.Warn("server failed, trying next", log.Str(log.RemoteKey, base), log.Str("reason", reason))
	}
	return wire.BlockReply{}, fmt.Errorf("%w: %s", ErrConnect, strings.Join(failures, "; "))
}

func (c *HTTPClient) attempt(ctx context.Context, u string) (wire.BlockReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return wire.BlockReply{}, err
	}
	rid := uuid.NewString()
	req.Header.Set(RequestIDHeader, rid)

	res, err := c.hc.Do(req)
	if err != nil {
		return wire.BlockReply{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return wire.BlockReply{}, err
	}
	// Status is a pointer so an error body such as {"error":"..."} cannot
	// read as an OK grant.
	var raw struct {
		Interval wire.Interval `json:"interval"`
		Status   *wire.Status  `json:"status"`
		Error    string        `json:"error"`
	}
	decodeErr := json.Unmarshal(body, &raw)
	ok2xx := res.StatusCode >= 200 && res.StatusCode < 300
	if decodeErr == nil && raw.Status != nil && (ok2xx || *raw.Status != wire.StatusOK) {
		if !raw.Status.Valid() {
			return wire.BlockReply{}, fmt.Errorf("%w: unknown status %d", ErrProtocol, int32(*raw.Status))
		}
		return c.logReply(rid, u, wire.BlockReply{Interval: raw.Interval, Status: *raw.Status, Error: raw.Error}), nil
	}

	reason := raw.Error
	if decodeErr != nil {
		reason = decodeErr.Error()
	} else if reason == "" {
		reason = "reply carries no status"
	}
	switch {
	case res.StatusCode >= 500:
		return wire.BlockReply{}, fmt.Errorf("http %d: %s", res.StatusCode, reason)
	case res.StatusCode == http.StatusNotFound:
		// Another server in the list may serve the namespace.
		return wire.BlockReply{}, fmt.Errorf("%w: %s: http 404: %s", ErrConfig, u, reason)
	default:
		return wire.BlockReply{}, fmt.Errorf("%w: bad reply from %s: http %d: %s", ErrProtocol, u, res.StatusCode, reason)
	}
}

func (c *HTTPClient) logReply(rid, u string, reply wire.BlockReply) wire.BlockReply {
	c.logger.Debug("http exchange complete", log.RequestID(rid), log.Str("url", u),
		log.Str("status", reply.Status.String()), log.Str("interval", reply.Interval.String()))
	return reply
}
