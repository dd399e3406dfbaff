package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/server"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Query issues one-off calls against the pool API.
type Query struct {
	rpc *rpc.Client
}

// DialQuery connects to url, which may be http(s) or ws(s). Swap subscriptions need ws(s).
func DialQuery(ctx context.Context, url string) (*Query, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewQuery(c), nil
}

func NewQuery(c *rpc.Client) *Query {
	return &Query{rpc: c}
}

func (q *Query) Close() {
	q.rpc.Close()
}

func (q *Query) Reserves(ctx context.Context) (server.ReservesResult, error) {
	var out server.ReservesResult
	err := q.call(ctx, &out, "reserves")
	return out, err
}

func (q *Query) K(ctx context.Context) (*big.Int, error) {
	return q.callBig(ctx, "k")
}

func (q *Query) TotalShares(ctx context.Context) (*big.Int, error) {
	return q.callBig(ctx, "totalShares")
}

func (q *Query) SharesOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return q.callBig(ctx, "sharesOf", account)
}

func (q *Query) QuoteSwap(ctx context.Context, d constantproduct.Direction, amountIn *big.Int) (*big.Int, error) {
	return q.callBig(ctx, "quoteSwap", d, (*hexutil.Big)(amountIn))
}

func (q *Query) QuoteWithdraw(ctx context.Context, shares *big.Int) (*big.Int, *big.Int, error) {
	var out server.WithdrawQuote
	if err := q.call(ctx, &out, "quoteWithdraw", (*hexutil.Big)(shares)); err != nil {
		return nil, nil, err
	}
	return out.Amount1.ToInt(), out.Amount2.ToInt(), nil
}

func (q *Query) CalculateAsset2Deposit(ctx context.Context, amount1 *big.Int) (*big.Int, error) {
	return q.callBig(ctx, "calculateAsset2Deposit", (*hexutil.Big)(amount1))
}

func (q *Query) CalculateAsset1Deposit(ctx context.Context, amount2 *big.Int) (*big.Int, error) {
	return q.callBig(ctx, "calculateAsset1Deposit", (*hexutil.Big)(amount2))
}

func (q *Query) SpotPrice(ctx context.Context, d constantproduct.Direction) (*big.Int, error) {
	return q.callBig(ctx, "spotPrice", d)
}

func (q *Query) Snapshot(ctx context.Context) (constantproduct.PoolState, error) {
	var out constantproduct.PoolState
	err := q.call(ctx, &out, "snapshot")
	return out, err
}

// SubscribeSwaps delivers every swap record emitted after the call returns.
func (q *Query) SubscribeSwaps(ctx context.Context, ch chan<- constantproduct.SwapEvent) (*rpc.ClientSubscription, error) {
	return q.rpc.Subscribe(ctx, RpcNamespace, ch, SwapSubscriptionMethod)
}

func (q *Query) call(ctx context.Context, result any, method string, args ...any) error {
	if err := q.rpc.CallContext(ctx, result, RpcNamespace+"_"+method, args...); err != nil {
		return fmt.Errorf("%s_%s: %w", RpcNamespace, method, err)
	}
	return nil
}

func (q *Query) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	var out hexutil.Big
	if err := q.call(ctx, &out, method, args...); err != nil {
		return nil, err
	}
	return out.ToInt(), nil
}
