package engine

import (
	"math/big"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
)

type Direction = constantproduct.Direction

const (
	Asset1ToAsset2 = constantproduct.Asset1ToAsset2
	Asset2ToAsset1 = constantproduct.Asset2ToAsset1
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AssetLedger moves one asset between accounts and pool custody.
// Amounts are raw scaled integers. Calls are synchronous: they either succeed or fail
// immediately, and the engine never retries them.
type AssetLedger interface {
	// Asset identifies the asset this ledger moves.
	Asset() common.Address
	// Pull debits from and credits pool custody.
	Pull(from common.Address, amount *big.Int) error
	// Push debits pool custody and credits to.
	Push(to common.Address, amount *big.Int) error
}

// PreflightLedger is an AssetLedger that can tell in advance whether a transfer would succeed.
// The engine checks every transfer of an operation before moving any funds when both
// ledgers implement it.
type PreflightLedger interface {
	AssetLedger
	CheckPull(from common.Address, amount *big.Int) error
	CheckPush(to common.Address, amount *big.Int) error
}

// EventSink accepts completed swap records. The engine never reads them back.
// Emit is called while the pool is locked, so implementations must not block.
type EventSink interface {
	Emit(event constantproduct.SwapEvent)
}

type discardSink struct{}

func (discardSink) Emit(constantproduct.SwapEvent) {}
