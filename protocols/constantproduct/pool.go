package constantproduct

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvariantViolated is returned by Validate when a pool state breaks one of its invariants.
var ErrInvariantViolated = errors.New("pool invariant violated")

// PoolState is the ledger of a single constant-product pool.
// Amounts are raw fixed-point integers; the pool never interprets decimals.
type PoolState struct {
	// Sequence increases by one with every committed mutation.
	Sequence    uint64                      `json:"sequence"`
	Asset1      common.Address              `json:"asset1"`
	Asset2      common.Address              `json:"asset2"`
	Reserve1    *big.Int                    `json:"reserve1"`
	Reserve2    *big.Int                    `json:"reserve2"`
	K           *big.Int                    `json:"k"`
	TotalShares *big.Int                    `json:"totalShares"`
	Shares      map[common.Address]*big.Int `json:"shares"`
}

// NewPoolState returns an empty pool for the given asset pair.
func NewPoolState(asset1, asset2 common.Address) PoolState {
	return PoolState{
		Asset1:      asset1,
		Asset2:      asset2,
		Reserve1:    new(big.Int),
		Reserve2:    new(big.Int),
		K:           new(big.Int),
		TotalShares: new(big.Int),
		Shares:      make(map[common.Address]*big.Int),
	}
}

// DeepCopy creates a new PoolState with its own memory for every *big.Int and for the share map.
// This is essential to prevent a published snapshot from sharing memory with the live ledger.
func (p PoolState) DeepCopy() PoolState {
	c := p
	c.Reserve1 = copyInt(p.Reserve1)
	c.Reserve2 = copyInt(p.Reserve2)
	c.K = copyInt(p.K)
	c.TotalShares = copyInt(p.TotalShares)
	c.Shares = make(map[common.Address]*big.Int, len(p.Shares))
	for account, balance := range p.Shares {
		c.Shares[account] = copyInt(balance)
	}
	return c
}

// ShareOf returns a copy of the account's share balance, zero if it holds none.
func (p PoolState) ShareOf(account common.Address) *big.Int {
	if balance, ok := p.Shares[account]; ok && balance != nil {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// IsEmpty reports whether no shares are outstanding.
func (p PoolState) IsEmpty() bool {
	return p.TotalShares == nil || p.TotalShares.Sign() == 0
}

// Validate checks the pool invariants:
//   - every value is non-nil and non-negative
//   - K equals Reserve1 * Reserve2
//   - outstanding shares imply two non-zero reserves
//   - the share balances sum to TotalShares
func (p PoolState) Validate() error {
	if p.Reserve1 == nil || p.Reserve2 == nil || p.K == nil || p.TotalShares == nil {
		return fmt.Errorf("%w: nil field", ErrInvariantViolated)
	}
	if p.Reserve1.Sign() < 0 || p.Reserve2.Sign() < 0 || p.TotalShares.Sign() < 0 {
		return fmt.Errorf("%w: negative reserve or share supply", ErrInvariantViolated)
	}

	product := new(big.Int).Mul(p.Reserve1, p.Reserve2)
	if product.Cmp(p.K) != 0 {
		return fmt.Errorf("%w: K (%s) != reserve1 * reserve2 (%s)", ErrInvariantViolated, p.K, product)
	}

	if p.TotalShares.Sign() > 0 && (p.Reserve1.Sign() == 0 || p.Reserve2.Sign() == 0) {
		return fmt.Errorf("%w: %s shares outstanding against an empty reserve", ErrInvariantViolated, p.TotalShares)
	}

	sum := new(big.Int)
	for account, balance := range p.Shares {
		if balance == nil || balance.Sign() < 0 {
			return fmt.Errorf("%w: invalid share balance for %s", ErrInvariantViolated, account.Hex())
		}
		sum.Add(sum, balance)
	}
	if sum.Cmp(p.TotalShares) != 0 {
		return fmt.Errorf("%w: shares sum to %s, total is %s", ErrInvariantViolated, sum, p.TotalShares)
	}
	return nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
