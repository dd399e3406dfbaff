package stateops

import (
	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/patcher"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateOps pairs the two halves of the pool stream:
// 1. Differ: calculating the delta between two committed snapshots (used by the server).
// 2. Patcher: applying a delta to a previous snapshot to reconstruct the present (used by a client).
type StateOps struct {
	*differ.StateDiffer
}

func NewStateOps(logger Logger, prometheusRegistry prometheus.Registerer) (*StateOps, error) {
	d, err := differ.NewStateDiffer(&differ.StateDifferConfig{
		Registry: prometheusRegistry,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return &StateOps{StateDiffer: d}, nil
}

// Patch applies diff to prev. prev is never mutated.
func (s *StateOps) Patch(prev *constantproduct.PoolState, diff *differ.PoolDiff) (*constantproduct.PoolState, error) {
	return patcher.Patch(prev, diff)
}
