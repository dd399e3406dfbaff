package server

import (
	"math/big"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// RpcNamespace is the namespace under which the pool API is registered.
	RpcNamespace = "amm"

	EventTypeFull = "full"
	EventTypeDiff = "diff"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Pool is the read side of a pool engine. *engine.Engine satisfies it.
type Pool interface {
	Snapshot() constantproduct.PoolState
	Subscribe() (<-chan constantproduct.PoolState, func())
	QuoteSwap(d constantproduct.Direction, amountIn *big.Int) (*big.Int, error)
	QuoteWithdraw(shares *big.Int) (*big.Int, *big.Int, error)
	CalculateAsset2Deposit(amount1 *big.Int) (*big.Int, error)
	CalculateAsset1Deposit(amount2 *big.Int) (*big.Int, error)
	SpotPrice(d constantproduct.Direction) (*big.Int, error)
}

// SwapFeed hands out live swap subscriptions. *events.Broadcaster satisfies it.
type SwapFeed interface {
	Subscribe() (<-chan constantproduct.SwapEvent, func())
}

// Differ computes the delta between two committed snapshots.
type Differ interface {
	Diff(old, new *constantproduct.PoolState) (*differ.PoolDiff, error)
}

// SubscriptionEvent is the wrapper object sent on the pool stream.
// Payload is a constantproduct.PoolState for "full" and a differ.PoolDiff for "diff".
type SubscriptionEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	SentAt  int64  `json:"sentAt"`
}

type ReservesResult struct {
	Sequence hexutil.Uint64 `json:"sequence"`
	Asset1   common.Address `json:"asset1"`
	Asset2   common.Address `json:"asset2"`
	Reserve1 *hexutil.Big   `json:"reserve1"`
	Reserve2 *hexutil.Big   `json:"reserve2"`
}

type WithdrawQuote struct {
	Amount1 *hexutil.Big `json:"amount1"`
	Amount2 *hexutil.Big `json:"amount2"`
}
