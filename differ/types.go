package differ

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ShareBalance is the new share balance of one account.
type ShareBalance struct {
	Account common.Address `json:"account"`
	Balance *big.Int       `json:"balance"`
}

// PoolDiff summarizes the changes to a pool between two committed sequences.
// Scalar fields are nil when unchanged.
type PoolDiff struct {
	Timestamp    uint64 `json:"timestamp"`
	FromSequence uint64 `json:"fromSequence"`
	ToSequence   uint64 `json:"toSequence"`

	Reserve1    *big.Int `json:"reserve1,omitempty"`
	Reserve2    *big.Int `json:"reserve2,omitempty"`
	K           *big.Int `json:"k,omitempty"`
	TotalShares *big.Int `json:"totalShares,omitempty"`

	Shares SharesDiff `json:"shares"`
}

// SharesDiff holds share-ledger changes. Deletions are accounts whose balance fell to zero.
type SharesDiff struct {
	Additions []ShareBalance   `json:"additions,omitempty"`
	Updates   []ShareBalance   `json:"updates,omitempty"`
	Deletions []common.Address `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no share changes.
func (d SharesDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

// IsEmpty returns true if the diff changes nothing but the sequence.
func (d PoolDiff) IsEmpty() bool {
	return d.Reserve1 == nil && d.Reserve2 == nil && d.K == nil && d.TotalShares == nil && d.Shares.IsEmpty()
}
