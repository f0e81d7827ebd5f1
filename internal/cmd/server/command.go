package serverrun

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/rzbill/uid/internal/config"
	"github.com/rzbill/uid/internal/runtime"
	logpkg "github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/uidclient"
)

// NewCommand constructs the `server` command group: init, start and kill.
// cliLogger is used before the server's own logging config is applied.
func NewCommand(cliLogger logpkg.Logger) *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Block server commands"}
	serverCmd.PersistentFlags().String("config", "", "Config file (.json, .yaml or .yml)")
	serverCmd.AddCommand(
		newInitCommand(cliLogger),
		newStartCommand(),
		newKillCommand(cliLogger),
	)
	return serverCmd
}

func newInitCommand(logger logpkg.Logger) *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the initial checkpoint of a position record",
		Long: "Write the initial checkpoint of a position record. Only run this for a " +
			"range that has never been served; rewinding a checkpoint reissues ids.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := serverConfig(cmd)
			if err != nil {
				return err
			}
			start := cfg.IndexStart
			if cmd.Flags().Changed("at") {
				start, _ = cmd.Flags().GetUint64("at")
			}
			if err := Init(cfg, start, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s at %d\n", describeStore(cfg), start)
			return nil
		},
	}
	addStoreFlags(initCmd.Flags())
	initCmd.Flags().Uint64("at", 0, "Initial checkpoint (defaults to --start)")
	initCmd.Flags().Uint64("size", 0, "Number of ids in the range, recorded by the pebble backend")
	return initCmd
}

func newStartCommand() *cobra.Command {
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the block server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := serverConfig(cmd)
			if err != nil {
				return err
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Log.Level = "debug"
			}
			procLogger, err := logpkg.ApplyConfig(&cfg.Log)
			if err != nil {
				return err
			}
			// Redirect stdlib logs (e.g., Pebble) to our logger
			logpkg.RedirectStdLog(procLogger)

			cmd.SilenceUsage = true
			if err := Run(cmd.Context(), Options{Config: cfg, Logger: procLogger}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	fs := startCmd.Flags()
	addStoreFlags(fs)
	fs.Uint64("size", 0, "Number of ids in the range")
	fs.Uint64("max-block", 0, "Largest block a single request may take")
	fs.Uint64("increment", 0, "Checkpoint update increment")
	fs.String("host", "", "Listen host (default all interfaces)")
	fs.Int("port", 0, fmt.Sprintf("Listen port, %d..%d", cfgpkg.MinPort, cfgpkg.MaxPort))
	fs.String("http", "", "Admin HTTP listen address (empty disables)")
	fs.String("grpc", "", "gRPC health listen address (empty disables)")
	fs.Duration("timeout", 0, "Socket read and write timeout")
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("log-format", "", "Log format: text|json")
	fs.Bool("debug", false, "Log at debug level")
	return startCmd
}

func newKillCommand(logger logpkg.Logger) *cobra.Command {
	killCmd := &cobra.Command{
		Use:   "kill",
		Short: "Ask a server to persist its cursor and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			host, _ := cmd.Flags().GetString("host")
			port, _ := cmd.Flags().GetInt("port")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			addr := net.JoinHostPort(host, strconv.Itoa(port))
			if err := Kill(cmd.Context(), addr, timeout, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "killed %s\n", addr)
			return nil
		},
	}
	killCmd.Flags().String("host", "localhost", "Server host")
	killCmd.Flags().Int("port", cfgpkg.DefaultPort, "Server port")
	killCmd.Flags().Duration("timeout", uidclient.DefaultTimeout, "Exchange timeout")
	return killCmd
}

func addStoreFlags(fs *pflag.FlagSet) {
	fs.String("backend", "", "Position store backend: file|pebble")
	fs.String("position-file", "", "Position file (file backend)")
	fs.String("data-dir", "", "Data directory (pebble backend)")
	fs.String("namespace", "", "Namespace of the range")
	fs.String("fsync", "", "Pebble fsync mode: always|interval|never")
	fs.Uint64("start", 0, "First id of the range")
}

// serverConfig layers defaults, the config file, UID_* environment
// variables and finally any flags the user set.
func serverConfig(cmd *cobra.Command) (cfgpkg.Server, error) {
	path, _ := cmd.Flags().GetString("config")
	file, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Server{}, err
	}
	cfgpkg.FromEnv(&file)
	cfg := file.Server

	fs := cmd.Flags()
	setString := func(name string, dst *string) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	setUint := func(name string, dst *uint64) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetUint64(name)
		}
	}
	setString("backend", &cfg.Backend)
	setString("position-file", &cfg.PositionFile)
	setString("data-dir", &cfg.DataDir)
	setString("namespace", &cfg.Namespace)
	setString("fsync", &cfg.Fsync)
	setString("host", &cfg.Host)
	setString("http", &cfg.HTTPAddr)
	setString("grpc", &cfg.GRPCAddr)
	setString("log-level", &cfg.Log.Level)
	setString("log-format", &cfg.Log.Format)
	setUint("start", &cfg.IndexStart)
	setUint("size", &cfg.IndexSize)
	setUint("max-block", &cfg.MaxBlockSize)
	setUint("increment", &cfg.UpdateIncrement)
	if fs.Lookup("port") != nil && fs.Changed("port") {
		cfg.Port, _ = fs.GetInt("port")
	}
	if fs.Lookup("timeout") != nil && fs.Changed("timeout") {
		d, _ := fs.GetDuration("timeout")
		cfg.ReadTimeout = cfgpkg.Duration(d)
		cfg.WriteTimeout = cfgpkg.Duration(d)
	}
	if cfg.Backend == cfgpkg.BackendPebble && cfg.DataDir == "" {
		cfg.DataDir = cfgpkg.DefaultDataDir()
	}
	return cfg, nil
}

func describeStore(cfg cfgpkg.Server) string {
	if cfg.Backend == cfgpkg.BackendPebble {
		return fmt.Sprintf("namespace %q in %s", cfg.Namespace, cfg.DataDir)
	}
	return cfg.PositionFile
}

// Init writes start as the checkpoint of the record described by cfg.
func Init(cfg cfgpkg.Server, start uint64, logger logpkg.Logger) error {
	if cfg.Backend == "" || cfg.Backend == cfgpkg.BackendFile {
		if cfg.PositionFile == "" {
			return fmt.Errorf("%w: --position-file is required", cfgpkg.ErrInvalid)
		}
	}
	if err := runtime.Init(cfg, start); err != nil {
		return err
	}
	logger.Info("position record initialized",
		logpkg.Str("store", describeStore(cfg)), logpkg.Uint64("checkpoint", start))
	return nil
}

// Kill sends a kill request to addr, with no failover.
func Kill(ctx context.Context, addr string, timeout time.Duration, logger logpkg.Logger) error {
	c, err := uidclient.NewClient(uidclient.Options{Primary: addr, Timeout: timeout, Logger: logger})
	if err != nil {
		return err
	}
	if err := c.Kill(ctx, addr); err != nil {
		return fmt.Errorf("kill %s: %w", addr, err)
	}
	logger.Info("kill request acknowledged", logpkg.Str("addr", addr))
	return nil
}
