package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type check func() error

func pullCheck(l AssetLedger, from common.Address, amount *big.Int) check {
	return func() error {
		pl, ok := l.(PreflightLedger)
		if !ok || amount.Sign() == 0 {
			return nil
		}
		if err := pl.CheckPull(from, amount); err != nil {
			return fmt.Errorf("%w: pull %s of %s from %s: %w", ErrTransferFailed, amount, l.Asset().Hex(), from.Hex(), err)
		}
		return nil
	}
}

func pushCheck(l AssetLedger, to common.Address, amount *big.Int) check {
	return func() error {
		pl, ok := l.(PreflightLedger)
		if !ok || amount.Sign() == 0 {
			return nil
		}
		if err := pl.CheckPush(to, amount); err != nil {
			return fmt.Errorf("%w: push %s of %s to %s: %w", ErrTransferFailed, amount, l.Asset().Hex(), to.Hex(), err)
		}
		return nil
	}
}

// preflight runs every check before any funds move. Ledgers without preflight support pass,
// as do zero amounts, which are never transferred.
func (e *Engine) preflight(checks ...check) error {
	for _, c := range checks {
		if err := c(); err != nil {
			e.logger.Warn("Operation rejected by ledger preflight", "error", err)
			return err
		}
	}
	return nil
}

func (e *Engine) pull(l AssetLedger, from common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.Pull(from, amount); err != nil {
		e.logger.Warn("Ledger pull failed", "asset", l.Asset().Hex(), "from", from.Hex(), "amount", amount, "error", err)
		return fmt.Errorf("%w: pull %s of %s from %s: %w", ErrTransferFailed, amount, l.Asset().Hex(), from.Hex(), err)
	}
	return nil
}

func (e *Engine) push(l AssetLedger, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.Push(to, amount); err != nil {
		e.logger.Warn("Ledger push failed", "asset", l.Asset().Hex(), "to", to.Hex(), "amount", amount, "error", err)
		return fmt.Errorf("%w: push %s of %s to %s: %w", ErrTransferFailed, amount, l.Asset().Hex(), to.Hex(), err)
	}
	return nil
}
