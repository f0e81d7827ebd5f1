package transports

import (
	"fmt"

	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/uidclient"
)

// Kind names the transport a Transport speaks.
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

// Transport abstracts the transport used by the CLI (TCP block protocol or
// the HTTP block endpoint).
type Transport interface {
	uidclient.Transport
	Kind() Kind
	Describe() string
}

// FromConfig builds the transport described by cfg. A non-empty HTTP
// server list selects the HTTP transport; otherwise the TCP client with
// its primary and optional failsafe is used.
func FromConfig(cfg cfgpkg.Client, logger log.Logger) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HTTPServers != "" {
		c, err := uidclient.NewHTTPClient(uidclient.HTTPOptions{
			Servers:   uidclient.ParseServers(cfg.HTTPServers),
			Namespace: cfg.Namespace,
			Timeout:   cfg.Timeout.Std(),
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return &httpTransport{HTTPClient: c, desc: fmt.Sprintf("http %s ns=%s", cfg.HTTPServers, cfg.Namespace)}, nil
	}
	c, err := uidclient.NewClient(uidclient.Options{
		Primary:  cfg.PrimaryAddr(),
		Failsafe: cfg.FailsafeAddr(),
		Timeout:  cfg.Timeout.Std(),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	desc := "tcp " + cfg.PrimaryAddr()
	if f := cfg.FailsafeAddr(); f != "" {
		desc += " failsafe " + f
	}
	return &tcpTransport{Client: c, desc: desc}, nil
}

type tcpTransport struct {
	*uidclient.Client
	desc string
}

func (t *tcpTransport) Kind() Kind       { return KindTCP }
func (t *tcpTransport) Describe() string { return t.desc }

type httpTransport struct {
	*uidclient.HTTPClient
	desc string
}

func (t *httpTransport) Kind() Kind       { return KindHTTP }
func (t *httpTransport) Describe() string { return t.desc }

