package differ

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// StateDifferConfig holds the dependencies of a StateDiffer.
type StateDifferConfig struct {
	Registry prometheus.Registerer
	Logger   Logger
	Clock    func() time.Time // Optional; defaults to time.Now.
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *StateDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// StateDiffer computes PoolDiffs between committed pool snapshots.
type StateDiffer struct {
	metrics *Metrics
	logger  Logger
	clock   func() time.Time
}

// NewStateDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewStateDiffer(cfg *StateDifferConfig) (*StateDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &StateDiffer{
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
		clock:   clock,
	}, nil
}

// Diff returns the changes that turn old into new. Both must describe the same asset pair and
// new must not be older than old.
func (d *StateDiffer) Diff(old, new *constantproduct.PoolState) (*PoolDiff, error) {
	timer := prometheus.NewTimer(d.metrics.diffDuration)
	defer timer.ObserveDuration()

	if old == nil || new == nil {
		return nil, errors.New("differ: nil pool state")
	}
	if old.Asset1 != new.Asset1 || old.Asset2 != new.Asset2 {
		return nil, fmt.Errorf("differ: asset pair changed (%s/%s -> %s/%s)",
			old.Asset1.Hex(), old.Asset2.Hex(), new.Asset1.Hex(), new.Asset2.Hex())
	}
	if new.Sequence < old.Sequence {
		return nil, fmt.Errorf("differ: sequence went backwards (%d -> %d)", old.Sequence, new.Sequence)
	}

	diff := &PoolDiff{
		Timestamp:    uint64(d.clock().UnixNano()),
		FromSequence: old.Sequence,
		ToSequence:   new.Sequence,
		Reserve1:     changed(old.Reserve1, new.Reserve1),
		Reserve2:     changed(old.Reserve2, new.Reserve2),
		K:            changed(old.K, new.K),
		TotalShares:  changed(old.TotalShares, new.TotalShares),
		Shares:       DiffShares(old.Shares, new.Shares),
	}

	d.metrics.shareChanges.Observe(float64(len(diff.Shares.Additions) + len(diff.Shares.Updates) + len(diff.Shares.Deletions)))
	if diff.IsEmpty() && diff.FromSequence != diff.ToSequence {
		d.logger.Warn("Sequence advanced without a state change", "from", diff.FromSequence, "to", diff.ToSequence)
	}
	return diff, nil
}

// DiffShares calculates the difference between two share ledgers. Entries in each list are
// ordered by account so diffs of equal ledgers are identical.
func DiffShares(old, new map[common.Address]*big.Int) SharesDiff {
	var diff SharesDiff

	for account, balance := range new {
		prev, exists := old[account]
		if !exists {
			diff.Additions = append(diff.Additions, ShareBalance{Account: account, Balance: copyInt(balance)})
			continue
		}
		if prev.Cmp(balance) != 0 {
			diff.Updates = append(diff.Updates, ShareBalance{Account: account, Balance: copyInt(balance)})
		}
	}

	for account := range old {
		if _, exists := new[account]; !exists {
			diff.Deletions = append(diff.Deletions, account)
		}
	}

	byAccount := func(a, b ShareBalance) int { return a.Account.Cmp(b.Account) }
	slices.SortFunc(diff.Additions, byAccount)
	slices.SortFunc(diff.Updates, byAccount)
	slices.SortFunc(diff.Deletions, func(a, b common.Address) int { return a.Cmp(b) })
	return diff
}

// changed returns a copy of next when it differs from prev, nil otherwise.
func changed(prev, next *big.Int) *big.Int {
	if prev != nil && next != nil && prev.Cmp(next) == 0 {
		return nil
	}
	return copyInt(next)
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
