package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/uidclient"
	"github.com/rzbill/uid/pkg/wire"
)

// newReserveCommand constructs the `block reserve` subcommand.
func newReserveCommand(logger log.Logger) *cobra.Command {
	reserveCmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve one block and print its interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, cfg, err := transportFor(cmd, logger)
			if err != nil {
				return err
			}
			size := cfg.BlockSize
			if cmd.Flags().Changed("size") {
				size, _ = cmd.Flags().GetUint64("size")
			}
			var iv wire.Interval
			err = withRetry(cmd.Context(), waitFlag(cmd), logger, func() error {
				var err error
				iv, err = t.RequestInterval(cmd.Context(), size)
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"interval": iv,
				"count":    iv.Len(),
			})
		},
	}
	reserveCmd.Flags().Uint64("size", 0, "Block size (defaults to the configured block size)")
	return reserveCmd
}

// newNextCommand constructs the `block next` subcommand.
func newNextCommand(logger log.Logger) *cobra.Command {
	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Print unique ids, one per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, cfg, err := transportFor(cmd, logger)
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("count")
			a, err := uidclient.New(t, cfg.BlockSize, uidclient.WithLogger(logger))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			wait := waitFlag(cmd)
			for i := 0; i < count; i++ {
				var id uint64
				err := withRetry(cmd.Context(), wait, logger, func() error {
					var err error
					id, err = a.NextID(cmd.Context())
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	nextCmd.Flags().Int("count", 1, "Number of ids to print")
	nextCmd.Flags().Uint64("block-size", 0, "Ids fetched per server request")
	return nextCmd
}

// newMaxSizeCommand constructs the `block max-size` subcommand.
func newMaxSizeCommand(logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "max-size",
		Short: "Print the largest block the server grants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := transportFor(cmd, logger)
			if err != nil {
				return err
			}
			var n uint64
			err = withRetry(cmd.Context(), waitFlag(cmd), logger, func() error {
				var err error
				n, err = t.MaxBlockSize(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

// newStatusCommand constructs the `block status` subcommand, which reads
// the allocator snapshot from the admin HTTP API.
func newStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show allocator status from the admin HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := strings.TrimRight(baseURL(), "/") + "/v1/status"
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
			}
			var v any
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("status: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}

func waitFlag(cmd *cobra.Command) time.Duration {
	d, _ := cmd.Flags().GetDuration("wait")
	return d
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withRetry runs op once when wait is zero. Otherwise connection and
// server-side persistence failures are retried with exponential backoff
// until wait has elapsed; range and protocol errors are returned at once.
func withRetry(ctx context.Context, wait time.Duration, logger log.Logger, op func() error) error {
	if wait <= 0 {
		return op()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = wait
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		logger.Warn("no server could grant a block, retrying", log.Err(err), log.Duration("backoff", d))
	})
}

func retryable(err error) bool {
	return errors.Is(err, uidclient.ErrConnect) || errors.Is(err, uidclient.ErrConfig)
}
