package engine

import (
	"errors"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct/calculator"
)

var (
	// ErrInvalidAmount is returned when a zero, negative or nil amount is supplied.
	ErrInvalidAmount = calculator.ErrInvalidAmount
	// ErrRatioMismatch is returned when a non-first deposit disagrees with the reserve ratio.
	ErrRatioMismatch = calculator.ErrRatioMismatch
	// ErrInsufficientShares is returned when a withdrawal exceeds the holder's balance.
	ErrInsufficientShares = calculator.ErrInsufficientShares
	// ErrEmptyPool is returned when an operation needs reserves the pool does not have.
	ErrEmptyPool = calculator.ErrEmptyPool
	// ErrInsufficientReserve is returned when an operation would fully drain a reserve.
	ErrInsufficientReserve = calculator.ErrInsufficientReserve
	// ErrTransferFailed wraps an AssetLedger error verbatim. It is never retried.
	ErrTransferFailed = errors.New("asset transfer failed")
)

const (
	resultOK                  = "ok"
	resultInvalidAmount       = "invalid_amount"
	resultRatioMismatch       = "ratio_mismatch"
	resultInsufficientShares  = "insufficient_shares"
	resultEmptyPool           = "empty_pool"
	resultInsufficientReserve = "insufficient_reserve"
	resultTransferFailed      = "transfer_failed"
	resultOther               = "error"
)

// resultLabel maps an operation error onto a bounded metric label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrTransferFailed):
		return resultTransferFailed
	case errors.Is(err, ErrInvalidAmount):
		return resultInvalidAmount
	case errors.Is(err, ErrRatioMismatch):
		return resultRatioMismatch
	case errors.Is(err, ErrInsufficientShares):
		return resultInsufficientShares
	case errors.Is(err, ErrEmptyPool):
		return resultEmptyPool
	case errors.Is(err, ErrInsufficientReserve):
		return resultInsufficientReserve
	default:
		return resultOther
	}
}
