// Package commands implements the pool console: one-off queries against a pool daemon
// and live views of its state and swap streams.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/spf13/cobra"
)

const (
	defaultURL      = "ws://127.0.0.1:8545"
	defaultDecimals = 18
	defaultLogFile  = "console.log"
	stateBufferSize = 100
	swapBufferSize  = 64
)

var (
	rpcURL    string
	decimals1 uint8
	decimals2 uint8
	logFile   string
)

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns a fresh tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "console",
		Short:        "Inspect a constant-product pool served over JSON-RPC",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&rpcURL, "url", defaultURL, "pool daemon endpoint (ws:// for streams, http:// for queries)")
	root.PersistentFlags().Uint8Var(&decimals1, "decimals1", defaultDecimals, "display decimals of asset 1")
	root.PersistentFlags().Uint8Var(&decimals2, "decimals2", defaultDecimals, "display decimals of asset 2")
	root.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile, "file that receives stream client logs")

	root.AddCommand(
		reservesCmd(),
		quoteCmd(),
		sharesCmd(),
		withdrawQuoteCmd(),
		depositQuoteCmd(),
		priceCmd(),
		snapshotCmd(),
		watchCmd(),
		swapsCmd(),
	)
	return root
}

// withQuery dials the daemon for the duration of fn.
func withQuery(cmd *cobra.Command, fn func(ctx context.Context, q *client.Query) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	q, err := client.DialQuery(ctx, rpcURL)
	if err != nil {
		return err
	}
	defer q.Close()
	return fn(ctx, q)
}

// openLogger writes JSON logs to the --log-file so they do not interleave with console output.
func openLogger() (*slog.Logger, func(), error) {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { f.Close() }, nil
}
