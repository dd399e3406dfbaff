package patcher

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
)

// ErrSequenceMismatch is returned when a diff does not start at the state's sequence.
var ErrSequenceMismatch = errors.New("patcher: sequence mismatch")

// Patch creates a new PoolState by applying diff to old. old is never mutated.
// The result is validated, so a corrupt or misapplied diff surfaces as an error rather than
// as a pool that breaks its invariants.
func Patch(old *constantproduct.PoolState, diff *differ.PoolDiff) (*constantproduct.PoolState, error) {
	if old == nil || diff == nil {
		return nil, errors.New("patcher: nil state or diff")
	}

	// 1. Integrity Check
	if old.Sequence != diff.FromSequence {
		return nil, fmt.Errorf("%w (state=%d, diff=%d)", ErrSequenceMismatch, old.Sequence, diff.FromSequence)
	}
	if diff.ToSequence < diff.FromSequence {
		return nil, fmt.Errorf("patcher: diff goes backwards (%d -> %d)", diff.FromSequence, diff.ToSequence)
	}

	// 2. Copy
	next := old.DeepCopy()
	next.Sequence = diff.ToSequence

	// 3. Scalars
	setIfChanged(&next.Reserve1, diff.Reserve1)
	setIfChanged(&next.Reserve2, diff.Reserve2)
	setIfChanged(&next.K, diff.K)
	setIfChanged(&next.TotalShares, diff.TotalShares)

	// 4. Share ledger
	for _, account := range diff.Shares.Deletions {
		delete(next.Shares, account)
	}
	for _, entry := range diff.Shares.Updates {
		if _, ok := next.Shares[entry.Account]; !ok {
			return nil, fmt.Errorf("patcher: update for unknown account %s", entry.Account.Hex())
		}
		next.Shares[entry.Account] = new(big.Int).Set(entry.Balance)
	}
	for _, entry := range diff.Shares.Additions {
		next.Shares[entry.Account] = new(big.Int).Set(entry.Balance)
	}

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("patcher: patched state at sequence %d: %w", next.Sequence, err)
	}
	return &next, nil
}

func setIfChanged(dst **big.Int, v *big.Int) {
	if v != nil {
		*dst = new(big.Int).Set(v)
	}
}
