package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Deposit adds amount1 of asset 1 and amount2 of asset 2 to the pool and issues shares to
// depositor. The first deposit issues calculator.InitialShareUnits and sets the price; later
// deposits must match the reserve ratio within the tolerance divisor.
// On any error no funds stay moved and no state changes.
func (e *Engine) Deposit(amount1, amount2 *big.Int, depositor common.Address) (issued *big.Int, err error) {
	timer := prometheus.NewTimer(e.metrics.operationDuration.WithLabelValues(opDeposit))
	defer timer.ObserveDuration()
	defer func() { e.metrics.observeResult(opDeposit, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	issued, err = calculator.SharesForDeposit(amount1, amount2, e.tolerance, e.state)
	if err != nil {
		return nil, err
	}

	if err := e.preflight(
		pullCheck(e.asset1, depositor, amount1),
		pullCheck(e.asset2, depositor, amount2),
	); err != nil {
		return nil, err
	}

	if err := e.pull(e.asset1, depositor, amount1); err != nil {
		return nil, err
	}
	if err := e.pull(e.asset2, depositor, amount2); err != nil {
		// Hand asset 1 back so the deposit leaves no trace.
		if refundErr := e.push(e.asset1, depositor, amount1); refundErr != nil {
			e.logger.Error("Failed to refund asset after aborted deposit",
				"depositor", depositor.Hex(),
				"asset", e.asset1.Asset().Hex(),
				"amount", amount1,
				"error", refundErr,
			)
			return nil, errors.Join(err, refundErr)
		}
		return nil, err
	}

	e.state.Reserve1.Add(e.state.Reserve1, amount1)
	e.state.Reserve2.Add(e.state.Reserve2, amount2)
	e.state.TotalShares.Add(e.state.TotalShares, issued)
	e.creditShares(depositor, issued)
	e.state.K.Mul(e.state.Reserve1, e.state.Reserve2)
	e.commit()

	e.logger.Debug("Liquidity deposited",
		"depositor", depositor.Hex(),
		"amount1", amount1,
		"amount2", amount2,
		"shares", issued,
		"sequence", e.state.Sequence,
	)
	return new(big.Int).Set(issued), nil
}

// Withdraw burns shares held by holder and pays out the proportional slice of both reserves.
//
// Ordering: both payouts are checked (when the ledgers support preflight) and pushed before the
// ledger is mutated. If the second push fails the first is reclaimed from holder; only when that
// reclaim also fails is the withdrawal committed, and the error reports the unpaid amount.
func (e *Engine) Withdraw(shares *big.Int, holder common.Address) (amount1, amount2 *big.Int, err error) {
	timer := prometheus.NewTimer(e.metrics.operationDuration.WithLabelValues(opWithdraw))
	defer timer.ObserveDuration()
	defer func() { e.metrics.observeResult(opWithdraw, err) }()

	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: shares must be positive", ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	held := e.state.ShareOf(holder)
	if shares.Cmp(held) > 0 {
		return nil, nil, fmt.Errorf("%w: %s requested, %s held by %s", ErrInsufficientShares, shares, held, holder.Hex())
	}

	amount1, amount2, err = calculator.AmountsForWithdraw(shares, e.state)
	if err != nil {
		return nil, nil, err
	}

	if err := e.preflight(
		pushCheck(e.asset1, holder, amount1),
		pushCheck(e.asset2, holder, amount2),
	); err != nil {
		return nil, nil, err
	}

	if err := e.push(e.asset1, holder, amount1); err != nil {
		return nil, nil, err
	}
	if err := e.push(e.asset2, holder, amount2); err != nil {
		reclaimErr := e.pull(e.asset1, holder, amount1)
		if reclaimErr == nil {
			return nil, nil, err
		}
		// Asset 1 has left custody for good: commit so reserves keep matching custody
		// for asset 1, and report asset 2 as unpaid.
		e.logger.Error("Withdrawal committed with unpaid asset",
			"holder", holder.Hex(),
			"asset", e.asset2.Asset().Hex(),
			"unpaid", amount2,
			"error", err,
			"reclaim_error", reclaimErr,
		)
		e.applyWithdraw(shares, holder, amount1, amount2)
		return amount1, amount2, errors.Join(err, reclaimErr)
	}

	e.applyWithdraw(shares, holder, amount1, amount2)
	e.logger.Debug("Liquidity withdrawn",
		"holder", holder.Hex(),
		"shares", shares,
		"amount1", amount1,
		"amount2", amount2,
		"sequence", e.state.Sequence,
	)
	return amount1, amount2, nil
}

// applyWithdraw mutates the ledger for a withdrawal and commits it.
// This method MUST be called from within e.mu.
func (e *Engine) applyWithdraw(shares *big.Int, holder common.Address, amount1, amount2 *big.Int) {
	e.debitShares(holder, shares)
	e.state.TotalShares.Sub(e.state.TotalShares, shares)
	e.state.Reserve1.Sub(e.state.Reserve1, amount1)
	e.state.Reserve2.Sub(e.state.Reserve2, amount2)
	e.state.K.Mul(e.state.Reserve1, e.state.Reserve2)
	e.commit()
}

func (e *Engine) creditShares(account common.Address, amount *big.Int) {
	balance, ok := e.state.Shares[account]
	if !ok {
		balance = new(big.Int)
		e.state.Shares[account] = balance
	}
	balance.Add(balance, amount)
}

func (e *Engine) debitShares(account common.Address, amount *big.Int) {
	balance := e.state.Shares[account]
	balance.Sub(balance, amount)
	if balance.Sign() == 0 {
		delete(e.state.Shares, account)
	}
}

// QuoteWithdraw returns what burning shares would pay out against the committed state.
func (e *Engine) QuoteWithdraw(shares *big.Int) (*big.Int, *big.Int, error) {
	return calculator.AmountsForWithdraw(shares, *e.view())
}

// CalculateAsset2Deposit returns the asset 2 amount that keeps the reserve ratio for a deposit
// of amount1 of asset 1.
func (e *Engine) CalculateAsset2Deposit(amount1 *big.Int) (*big.Int, error) {
	return calculator.CounterpartDeposit(amount1, constantproduct.Asset1ToAsset2, *e.view())
}

// CalculateAsset1Deposit returns the asset 1 amount that keeps the reserve ratio for a deposit
// of amount2 of asset 2.
func (e *Engine) CalculateAsset1Deposit(amount2 *big.Int) (*big.Int, error) {
	return calculator.CounterpartDeposit(amount2, constantproduct.Asset2ToAsset1, *e.view())
}
