package commands

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mirror the pool state stream and print every committed state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := openLogger()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := client.NewClient(ctx, client.Config{
				URL:        rpcURL,
				Logger:     logger.With("component", "jsonrpc-client"),
				BufferSize: stateBufferSize,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, Green+"Watching pool at "+rpcURL+Reset)
			fmt.Fprintln(out, "Logs are being written to '"+logFile+"'")
			for {
				select {
				case state := <-c.State():
					renderState(out, state, top)
				case err, ok := <-c.Err():
					if !ok || err == nil {
						return nil
					}
					return err
				case <-ctx.Done():
					fmt.Fprintln(out, "\n"+Yellow+"Shutting down..."+Reset)
					return nil
				}
			}
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "number of largest holders to list (0 for all)")
	return cmd
}

func renderState(out io.Writer, state *constantproduct.PoolState, top int) {
	header(out, fmt.Sprintf("SEQUENCE %d  %s", state.Sequence, time.Now().Format(time.TimeOnly)))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Reserve 1\t%s\n", formatAsset1(state.Reserve1))
	fmt.Fprintf(w, "Reserve 2\t%s\n", formatAsset2(state.Reserve2))
	fmt.Fprintf(w, "Total shares\t%s\n", formatShares(state.TotalShares))
	for _, holder := range holderRows(state, top) {
		shares := state.Shares[holder]
		fmt.Fprintf(w, Gray+"  %s\t%s (%s)"+Reset+"\n", holder.Hex(), formatShares(shares), sharePercent(shares, state.TotalShares))
	}
	w.Flush()
}

func swapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "swaps",
		Short: "Print swap records as they are committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withQuery(cmd, func(_ context.Context, q *client.Query) error {
				// Swap records carry asset addresses only.
				r, err := q.Reserves(ctx)
				if err != nil {
					return err
				}

				ch := make(chan constantproduct.SwapEvent, swapBufferSize)
				sub, err := q.SubscribeSwaps(ctx, ch)
				if err != nil {
					return err
				}
				defer sub.Unsubscribe()

				out := cmd.OutOrStdout()
				for {
					select {
					case ev := <-ch:
						renderSwap(out, ev, r.Asset1)
					case err := <-sub.Err():
						return err
					case <-ctx.Done():
						return nil
					}
				}
			})
		},
	}
}

func renderSwap(out io.Writer, ev constantproduct.SwapEvent, asset1 common.Address) {
	d := constantproduct.Asset2ToAsset1
	if ev.InputAsset == asset1 {
		d = constantproduct.Asset1ToAsset2
	}
	inDec, outDec := ioDecimals(d)
	fmt.Fprintf(out, "#%d %s %s %s -> %s%s%s  reserves %s / %s\n",
		ev.Sequence,
		time.Unix(int64(ev.Timestamp), 0).Format(time.TimeOnly),
		ev.Trader.Hex(),
		ledger.FormatUnits(ev.InputAmount, inDec),
		Green, ledger.FormatUnits(ev.OutputAmount, outDec), Reset,
		formatAsset1(ev.Reserve1After), formatAsset2(ev.Reserve2After),
	)
}

// holderRows orders holders by descending shares for display.
func holderRows(state *constantproduct.PoolState, limit int) []common.Address {
	holders := make([]common.Address, 0, len(state.Shares))
	for a := range state.Shares {
		holders = append(holders, a)
	}
	sortHolders(holders, state.Shares)
	if limit > 0 && len(holders) > limit {
		holders = holders[:limit]
	}
	return holders
}

func sortHolders(holders []common.Address, shares map[common.Address]*big.Int) {
	slices.SortFunc(holders, func(a, b common.Address) int {
		if c := shares[b].Cmp(shares[a]); c != 0 {
			return c
		}
		return a.Cmp(b)
	})
}
