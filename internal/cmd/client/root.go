package client

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/uid/internal/cmd/client/transports"
	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/pkg/log"
)

// BaseURLFunc provides the base HTTP admin URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewBlockCommand constructs the `block` command group and subcommands.
func NewBlockCommand(baseURL BaseURLFunc, logger log.Logger) *cobra.Command {
	blockCmd := &cobra.Command{Use: "block", Short: "Block and id operations"}

	pf := blockCmd.PersistentFlags()
	pf.String("config", "", "Config file (.json, .yaml or .yml)")
	pf.String("server", "", "Primary server host:port")
	pf.String("failsafe", "", "Failsafe server host:port")
	pf.String("http-servers", "", "Comma-separated HTTP servers; selects the HTTP transport")
	pf.String("namespace", "", "Namespace for the HTTP transport")
	pf.Duration("timeout", 0, "Per-exchange timeout")
	pf.Duration("wait", 0, "Keep retrying unreachable servers for up to this long")

	blockCmd.AddCommand(
		newReserveCommand(logger),
		newNextCommand(logger),
		newMaxSizeCommand(logger),
		newStatusCommand(baseURL),
	)
	return blockCmd
}

// clientConfig layers defaults, the config file, the SYS_UID_* and UID_*
// environment variables and finally any flags the user set.
func clientConfig(cmd *cobra.Command) (cfgpkg.Client, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")
	file, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Client{}, err
	}
	cfgpkg.FromEnv(&file)
	cfg := file.Client

	if fs.Changed("server") {
		v, _ := fs.GetString("server")
		if cfg.PrimaryHost, cfg.PrimaryPort, err = splitHostPort(v); err != nil {
			return cfgpkg.Client{}, err
		}
	}
	if fs.Changed("failsafe") {
		v, _ := fs.GetString("failsafe")
		if cfg.FailsafeHost, cfg.FailsafePort, err = splitHostPort(v); err != nil {
			return cfgpkg.Client{}, err
		}
	}
	if fs.Changed("http-servers") {
		cfg.HTTPServers, _ = fs.GetString("http-servers")
	}
	if fs.Changed("namespace") {
		cfg.Namespace, _ = fs.GetString("namespace")
	}
	if fs.Changed("timeout") {
		d, _ := fs.GetDuration("timeout")
		cfg.Timeout = cfgpkg.Duration(d)
	}
	if fs.Lookup("block-size") != nil && fs.Changed("block-size") {
		cfg.BlockSize, _ = fs.GetUint64("block-size")
	}
	return cfg, nil
}

func splitHostPort(s string) (string, int, error) {
	host, p, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", cfgpkg.ErrInvalid, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("%w: port %q", cfgpkg.ErrInvalid, p)
	}
	return host, port, nil
}

func transportFor(cmd *cobra.Command, logger log.Logger) (transports.Transport, cfgpkg.Client, error) {
	cfg, err := clientConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	t, err := transports.FromConfig(cfg, logger)
	if err != nil {
		return nil, cfg, err
	}
	logger.Debug("using transport", log.Str("transport", t.Describe()))
	return t, cfg, nil
}
