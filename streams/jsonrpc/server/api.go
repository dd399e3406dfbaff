package server

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var errMissingAmount = errors.New("amount is required")

// API is the read-only RPC surface of a pool. Every method answers from the last committed
// snapshot; nothing here can mutate the pool.
type API struct {
	pool    Pool
	swaps   SwapFeed
	differ  Differ
	logger  Logger
	metrics *Metrics
}

func (api *API) Reserves() ReservesResult {
	s := api.pool.Snapshot()
	return ReservesResult{
		Sequence: hexutil.Uint64(s.Sequence),
		Asset1:   s.Asset1,
		Asset2:   s.Asset2,
		Reserve1: (*hexutil.Big)(s.Reserve1),
		Reserve2: (*hexutil.Big)(s.Reserve2),
	}
}

func (api *API) K() *hexutil.Big {
	return (*hexutil.Big)(api.pool.Snapshot().K)
}

func (api *API) TotalShares() *hexutil.Big {
	return (*hexutil.Big)(api.pool.Snapshot().TotalShares)
}

func (api *API) SharesOf(account common.Address) *hexutil.Big {
	return (*hexutil.Big)(api.pool.Snapshot().ShareOf(account))
}

// Snapshot returns the whole committed pool state, share ledger included.
func (api *API) Snapshot() constantproduct.PoolState {
	return api.pool.Snapshot()
}

func (api *API) QuoteSwap(direction constantproduct.Direction, amountIn *hexutil.Big) (*hexutil.Big, error) {
	if amountIn == nil {
		return nil, errMissingAmount
	}
	out, err := api.pool.QuoteSwap(direction, (*big.Int)(amountIn))
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(out), nil
}

func (api *API) QuoteWithdraw(shares *hexutil.Big) (*WithdrawQuote, error) {
	if shares == nil {
		return nil, errMissingAmount
	}
	a1, a2, err := api.pool.QuoteWithdraw((*big.Int)(shares))
	if err != nil {
		return nil, err
	}
	return &WithdrawQuote{Amount1: (*hexutil.Big)(a1), Amount2: (*hexutil.Big)(a2)}, nil
}

func (api *API) CalculateAsset2Deposit(amount1 *hexutil.Big) (*hexutil.Big, error) {
	if amount1 == nil {
		return nil, errMissingAmount
	}
	out, err := api.pool.CalculateAsset2Deposit((*big.Int)(amount1))
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(out), nil
}

func (api *API) CalculateAsset1Deposit(amount2 *hexutil.Big) (*hexutil.Big, error) {
	if amount2 == nil {
		return nil, errMissingAmount
	}
	out, err := api.pool.CalculateAsset1Deposit((*big.Int)(amount2))
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(out), nil
}

func (api *API) SpotPrice(direction constantproduct.Direction) (*hexutil.Big, error) {
	p, err := api.pool.SpotPrice(direction)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(p), nil
}

// SubscribePoolStream sends the full committed state, then one diff per commit.
// A subscriber that falls behind receives a diff spanning every commit it missed.
func (api *API) SubscribePoolStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	states, cancel := api.pool.Subscribe()
	api.metrics.subscribers.WithLabelValues(streamPool).Inc()

	go func() {
		defer api.metrics.subscribers.WithLabelValues(streamPool).Dec()
		defer cancel()

		var last *constantproduct.PoolState
		for {
			select {
			case state, ok := <-states:
				if !ok {
					return
				}
				event, err := api.poolEvent(last, &state)
				if err != nil {
					api.logger.Error("Failed to diff pool state; closing stream", "error", err, "sequence", state.Sequence)
					return
				}
				if err := notifier.Notify(rpcSub.ID, event); err != nil {
					api.metrics.notifyErrors.WithLabelValues(streamPool).Inc()
					api.logger.Warn("Error notifying pool subscriber", "error", err, "subscription", rpcSub.ID)
					return
				}
				last = &state
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

func (api *API) poolEvent(last, state *constantproduct.PoolState) (*SubscriptionEvent, error) {
	if last == nil {
		return &SubscriptionEvent{Type: EventTypeFull, Payload: state, SentAt: time.Now().UnixNano()}, nil
	}
	diff, err := api.differ.Diff(last, state)
	if err != nil {
		return nil, err
	}
	return &SubscriptionEvent{Type: EventTypeDiff, Payload: diff, SentAt: time.Now().UnixNano()}, nil
}

// SubscribeSwaps streams every swap record emitted after the subscription starts.
func (api *API) SubscribeSwaps(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	swaps, cancel := api.swaps.Subscribe()
	api.metrics.subscribers.WithLabelValues(streamSwaps).Inc()

	go func() {
		defer api.metrics.subscribers.WithLabelValues(streamSwaps).Dec()
		defer cancel()

		for {
			select {
			case ev, ok := <-swaps:
				if !ok {
					return
				}
				if err := notifier.Notify(rpcSub.ID, ev); err != nil {
					api.metrics.notifyErrors.WithLabelValues(streamSwaps).Inc()
					api.logger.Warn("Error notifying swap subscriber", "error", err, "subscription", rpcSub.ID)
					return
				}
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}
