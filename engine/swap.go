package engine

import (
	"errors"
	"math/big"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// QuoteSwap prices a swap against the committed state without mutating anything.
func (e *Engine) QuoteSwap(d Direction, amountIn *big.Int) (*big.Int, error) {
	return calculator.GetAmountOut(amountIn, d, *e.view())
}

// SpotPrice returns the committed marginal price of one whole input unit, scaled by 10^18.
func (e *Engine) SpotPrice(d Direction) (*big.Int, error) {
	return calculator.SpotPrice(d, *e.view())
}

// Swap exchanges amountIn of the input asset of d for the quoted amount of the other asset.
//
// The input is pulled and the output pushed before the ledger is mutated; a failed push hands
// the input back. Readers never observe the intermediate steps because only committed
// snapshots are published. The swap record is emitted after the commit.
func (e *Engine) Swap(d Direction, amountIn *big.Int, trader common.Address) (amountOut *big.Int, err error) {
	timer := prometheus.NewTimer(e.metrics.operationDuration.WithLabelValues(opSwap))
	defer timer.ObserveDuration()
	defer func() { e.metrics.observeResult(opSwap, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	amountOut, next, err := calculator.SimulateSwap(amountIn, d, e.state)
	if err != nil {
		return nil, err
	}

	assetIn, assetOut := e.state.Assets(d)
	ledgerIn, ledgerOut := e.ledger(assetIn), e.ledger(assetOut)

	if err := e.preflight(
		pullCheck(ledgerIn, trader, amountIn),
		pushCheck(ledgerOut, trader, amountOut),
	); err != nil {
		return nil, err
	}

	if err := e.pull(ledgerIn, trader, amountIn); err != nil {
		return nil, err
	}
	if err := e.push(ledgerOut, trader, amountOut); err != nil {
		if refundErr := e.push(ledgerIn, trader, amountIn); refundErr != nil {
			e.logger.Error("Failed to refund input after aborted swap",
				"trader", trader.Hex(),
				"asset", assetIn.Hex(),
				"amount", amountIn,
				"error", refundErr,
			)
			return nil, errors.Join(err, refundErr)
		}
		return nil, err
	}

	e.state.Reserve1 = next.Reserve1
	e.state.Reserve2 = next.Reserve2
	e.state.K = next.K
	e.commit()

	event := constantproduct.SwapEvent{
		ID:            uuid.New(),
		Sequence:      e.state.Sequence,
		Trader:        trader,
		InputAsset:    assetIn,
		InputAmount:   new(big.Int).Set(amountIn),
		OutputAsset:   assetOut,
		OutputAmount:  new(big.Int).Set(amountOut),
		Reserve1After: new(big.Int).Set(e.state.Reserve1),
		Reserve2After: new(big.Int).Set(e.state.Reserve2),
		Timestamp:     uint64(e.clock().Unix()),
	}
	e.sink.Emit(event)

	e.logger.Debug("Swap executed",
		"trader", trader.Hex(),
		"direction", d.String(),
		"amount_in", amountIn,
		"amount_out", amountOut,
		"reserve1", e.state.Reserve1,
		"reserve2", e.state.Reserve2,
		"sequence", e.state.Sequence,
	)
	return amountOut, nil
}
