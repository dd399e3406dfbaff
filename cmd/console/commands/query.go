package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func reservesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserves",
		Short: "Show reserves, K and total shares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				r, err := q.Reserves(ctx)
				if err != nil {
					return err
				}
				k, err := q.K(ctx)
				if err != nil {
					return err
				}
				total, err := q.TotalShares(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				header(out, fmt.Sprintf("POOL @ SEQUENCE %d", uint64(r.Sequence)))
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Asset 1\t%s\t%s\n", r.Asset1.Hex(), formatAsset1(r.Reserve1.ToInt()))
				fmt.Fprintf(w, "Asset 2\t%s\t%s\n", r.Asset2.Hex(), formatAsset2(r.Reserve2.ToInt()))
				fmt.Fprintf(w, "K\t%s\t\n", k)
				fmt.Fprintf(w, "Total shares\t%s\t\n", formatShares(total))
				return w.Flush()
			})
		},
	}
}

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <1to2|2to1> <amount>",
		Short: "Quote the output of a swap without executing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := constantproduct.ParseDirection(args[0])
			if err != nil {
				return err
			}
			inDec, outDec := ioDecimals(d)
			amountIn, err := ledger.ParseUnits(args[1], inDec)
			if err != nil {
				return err
			}
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				amountOut, err := q.QuoteSwap(ctx, d, amountIn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s in -> %s%s%s out\n",
					ledger.FormatUnits(amountIn, inDec), d,
					Green, ledger.FormatUnits(amountOut, outDec), Reset)
				return nil
			})
		},
	}
}

func sharesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shares <address>",
		Short: "Show an account's pool shares and what they withdraw to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			account := common.HexToAddress(args[0])
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				shares, err := q.SharesOf(ctx, account)
				if err != nil {
					return err
				}
				total, err := q.TotalShares(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				header(out, "SHARES OF "+account.Hex())
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Shares\t%s\t(%s)\n", formatShares(shares), sharePercent(shares, total))
				if shares.Sign() > 0 {
					a1, a2, err := q.QuoteWithdraw(ctx, shares)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "Withdraws to\t%s\t%s\n", formatAsset1(a1), formatAsset2(a2))
				}
				return w.Flush()
			})
		},
	}
}

func withdrawQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw-quote <shares>",
		Short: "Quote the assets returned for burning shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := ledger.ParseUnits(args[0], shareDecimals)
			if err != nil {
				return err
			}
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				a1, a2, err := q.QuoteWithdraw(ctx, shares)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s shares -> %s asset1 + %s asset2\n",
					formatShares(shares), formatAsset1(a1), formatAsset2(a2))
				return nil
			})
		},
	}
}

func depositQuoteCmd() *cobra.Command {
	var amount1, amount2 string
	cmd := &cobra.Command{
		Use:   "deposit-quote",
		Short: "Compute the counterpart amount for a proportional deposit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (amount1 == "") == (amount2 == "") {
				return errors.New("exactly one of --amount1 or --amount2 is required")
			}
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				out := cmd.OutOrStdout()
				if amount1 != "" {
					a1, err := ledger.ParseUnits(amount1, decimals1)
					if err != nil {
						return err
					}
					a2, err := q.CalculateAsset2Deposit(ctx, a1)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "deposit %s asset1 with %s asset2\n", formatAsset1(a1), formatAsset2(a2))
					return nil
				}
				a2, err := ledger.ParseUnits(amount2, decimals2)
				if err != nil {
					return err
				}
				a1, err := q.CalculateAsset1Deposit(ctx, a2)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "deposit %s asset1 with %s asset2\n", formatAsset1(a1), formatAsset2(a2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&amount1, "amount1", "", "asset 1 amount to match")
	cmd.Flags().StringVar(&amount2, "amount2", "", "asset 2 amount to match")
	return cmd
}

func priceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <1to2|2to1>",
		Short: "Show the spot price, output units per input unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := constantproduct.ParseDirection(args[0])
			if err != nil {
				return err
			}
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				price, err := q.SpotPrice(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s spot price: %s\n", d, formatPrice(price))
				return nil
			})
		},
	}
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the full committed pool state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuery(cmd, func(ctx context.Context, q *client.Query) error {
				state, err := q.Snapshot(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(state, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}
