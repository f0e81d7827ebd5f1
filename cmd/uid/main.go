package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/uid/internal/cmd/client"
	serverrun "github.com/rzbill/uid/internal/cmd/server"
	logpkg "github.com/rzbill/uid/pkg/log"
)

func main() {
	// Respect UID_LOG_LEVEL for CLI output; the server applies its own
	// logging config on start.
	level := os.Getenv("UID_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "uid",
		Short: "Unique id block server and client",
		Long: "uid hands out blocks of unique 64-bit ids from a persistent range. " +
			"This CLI runs the server and obtains ids from it.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serverrun.NewCommand(logger))
	rootCmd.AddCommand(clientcmd.NewBlockCommand(adminURL, logger))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func adminURL() string {
	if v := os.Getenv("UID_ADMIN"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
