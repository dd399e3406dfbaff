package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct/calculator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the collaborators and parameters of a pool engine.
type Config struct {
	Asset1   AssetLedger
	Asset2   AssetLedger
	Sink     EventSink             // Optional; swap records are discarded when nil.
	Logger   Logger                // Required.
	Registry prometheus.Registerer // Required.

	// RatioToleranceDivisor is the divisor both candidate share counts of a non-first deposit
	// are floored by before they must agree. Defaults to calculator.DefaultRatioToleranceDivisor.
	RatioToleranceDivisor *big.Int

	// Clock stamps swap records. Defaults to time.Now.
	Clock func() time.Time
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *Config) validate() error {
	if c.Asset1 == nil || c.Asset2 == nil {
		return errors.New("config: Asset1 and Asset2 ledgers are required")
	}
	if c.Asset1.Asset() == c.Asset2.Asset() {
		return fmt.Errorf("config: both ledgers move the same asset %s", c.Asset1.Asset().Hex())
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.RatioToleranceDivisor != nil && c.RatioToleranceDivisor.Sign() <= 0 {
		return errors.New("config: RatioToleranceDivisor must be positive")
	}
	return nil
}

// Engine owns one constant-product pool. Mutating operations (Deposit, Withdraw, Swap) are
// serialized by a single mutex; queries read an atomically published snapshot of the last
// committed state and never take the lock.
type Engine struct {
	mu        sync.Mutex
	state     constantproduct.PoolState
	committed atomic.Pointer[constantproduct.PoolState]

	asset1    AssetLedger
	asset2    AssetLedger
	sink      EventSink
	logger    Logger
	metrics   *Metrics
	tolerance *big.Int
	clock     func() time.Time

	subsMu  sync.Mutex
	subs    map[uint64]chan constantproduct.PoolState
	nextSub uint64
}

// New creates an engine around an empty pool.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tolerance := big.NewInt(calculator.DefaultRatioToleranceDivisor)
	if cfg.RatioToleranceDivisor != nil {
		tolerance = new(big.Int).Set(cfg.RatioToleranceDivisor)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	var sink EventSink = discardSink{}
	if cfg.Sink != nil {
		sink = cfg.Sink
	}

	e := &Engine{
		state:     constantproduct.NewPoolState(cfg.Asset1.Asset(), cfg.Asset2.Asset()),
		asset1:    cfg.Asset1,
		asset2:    cfg.Asset2,
		sink:      sink,
		logger:    cfg.Logger,
		metrics:   NewMetrics(cfg.Registry),
		tolerance: tolerance,
		clock:     clock,
		subs:      make(map[uint64]chan constantproduct.PoolState),
	}
	e.publish()
	return e, nil
}

// publish stores a deep copy of the live state as the committed snapshot.
// This method MUST be called from within e.mu, or before the engine is shared.
func (e *Engine) publish() {
	snapshot := e.state.DeepCopy()
	e.committed.Store(&snapshot)
	e.metrics.observeState(&snapshot)

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		// Subscribers only ever need the latest state; replace a stale pending one.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// commit bumps the sequence and publishes the new state.
// This method MUST be called from within e.mu.
func (e *Engine) commit() {
	e.state.Sequence++
	e.publish()
}

// view returns the last committed snapshot. It MUST be treated as read-only.
func (e *Engine) view() *constantproduct.PoolState {
	return e.committed.Load()
}

// Snapshot returns a deep copy of the last committed pool state.
func (e *Engine) Snapshot() constantproduct.PoolState {
	return e.view().DeepCopy()
}

// Subscribe returns a channel that receives the latest committed state after every commit,
// starting with the current one. Slow readers skip intermediate states. The returned function
// cancels the subscription and closes the channel.
func (e *Engine) Subscribe() (<-chan constantproduct.PoolState, func()) {
	ch := make(chan constantproduct.PoolState, 1)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.view().DeepCopy()
	e.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			delete(e.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Reserves returns the committed reserves.
func (e *Engine) Reserves() (*big.Int, *big.Int) {
	v := e.view()
	return new(big.Int).Set(v.Reserve1), new(big.Int).Set(v.Reserve2)
}

// K returns the committed product of the reserves.
func (e *Engine) K() *big.Int {
	return new(big.Int).Set(e.view().K)
}

// TotalShares returns the committed share supply.
func (e *Engine) TotalShares() *big.Int {
	return new(big.Int).Set(e.view().TotalShares)
}

// SharesOf returns the committed share balance of account.
func (e *Engine) SharesOf(account common.Address) *big.Int {
	return e.view().ShareOf(account)
}

// Assets returns the pool's asset pair.
func (e *Engine) Assets() (common.Address, common.Address) {
	v := e.view()
	return v.Asset1, v.Asset2
}

// RatioToleranceDivisor returns the configured deposit tolerance divisor.
func (e *Engine) RatioToleranceDivisor() *big.Int {
	return new(big.Int).Set(e.tolerance)
}

// CheckInvariants validates the committed state.
func (e *Engine) CheckInvariants() error {
	return e.view().Validate()
}

func (e *Engine) ledger(asset common.Address) AssetLedger {
	if asset == e.asset1.Asset() {
		return e.asset1
	}
	return e.asset2
}
