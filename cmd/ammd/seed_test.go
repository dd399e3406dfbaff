package main

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

var (
	deployer    = common.HexToAddress("0xde9")
	trader      = common.HexToAddress("0x7ade")
	poolAccount = common.HexToAddress("0x9001")
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func testConfig() *config.DaemonConfig {
	return &config.DaemonConfig{
		Deployer: deployer,
		Assets: config.AssetsConfig{
			Asset1: config.AssetConfig{Address: common.HexToAddress("0x70c1"), Symbol: "GSNT", Decimals: 18, Supply: "1000000"},
			Asset2: config.AssetConfig{Address: common.HexToAddress("0x70c2"), Symbol: "mUSDC", Decimals: 18, Supply: "1000000"},
		},
		Pool: config.PoolConfig{Account: poolAccount, RatioToleranceDivisor: 1000},
		Seed: config.SeedConfig{
			Distributions: []config.Distribution{{Account: trader, Amount1: "1000", Amount2: "2500.5"}},
			Liquidity:     &config.Liquidity{Amount1: "100000", Amount2: "100000"},
		},
	}
}

func newPool(t *testing.T, cfg *config.DaemonConfig, token1, token2 *ledger.Token) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Config{
		Asset1:   ledger.NewCustody(token1, cfg.Pool.Account),
		Asset2:   ledger.NewCustody(token2, cfg.Pool.Account),
		Logger:   testLogger{},
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return e
}

func TestSeed(t *testing.T) {
	cfg := testConfig()
	token1, token2 := newTokens(cfg)
	assert.Equal(t, "GSNT", token1.Metadata().Symbol)
	assert.Equal(t, cfg.Assets.Asset2.Address, token2.Address())

	pool := newPool(t, cfg, token1, token2)
	require.NoError(t, seed(cfg, token1, token2, pool, testLogger{}))

	assert.Equal(t, tokens(1_000_000).String(), token1.TotalSupply().String())

	// The trader got its share and can trade against the pool straight away.
	assert.Equal(t, tokens(1000).String(), token1.BalanceOf(trader).String())
	assert.Equal(t, "2500500000000000000000", token2.BalanceOf(trader).String())
	assert.Equal(t, token1.BalanceOf(trader).String(), token1.Allowance(trader, poolAccount).String())

	r1, r2 := pool.Reserves()
	assert.Equal(t, tokens(100_000).String(), r1.String())
	assert.Equal(t, tokens(100_000).String(), r2.String())
	assert.Equal(t, tokens(100).String(), pool.SharesOf(deployer).String())
	assert.Equal(t, tokens(100_000).String(), token1.BalanceOf(poolAccount).String())

	// deployer: supply - distribution - liquidity
	assert.Equal(t, tokens(899_000).String(), token1.BalanceOf(deployer).String())

	_, err := pool.Swap(engine.Asset1ToAsset2, tokens(10), trader)
	require.NoError(t, err)
}

func TestSeed_NoLiquidity(t *testing.T) {
	cfg := testConfig()
	cfg.Seed.Liquidity = nil
	token1, token2 := newTokens(cfg)
	pool := newPool(t, cfg, token1, token2)

	require.NoError(t, seed(cfg, token1, token2, pool, testLogger{}))
	assert.Zero(t, pool.TotalShares().Sign())
	assert.Equal(t, tokens(999_000).String(), token1.Allowance(deployer, poolAccount).String())
}

func TestSeed_DistributionExceedsSupply(t *testing.T) {
	cfg := testConfig()
	cfg.Assets.Asset1.Supply = "10"
	token1, token2 := newTokens(cfg)
	pool := newPool(t, cfg, token1, token2)

	err := seed(cfg, token1, token2, pool, testLogger{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestSeed_LiquidityRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Seed.Liquidity = &config.Liquidity{Amount1: "0", Amount2: "5"}
	token1, token2 := newTokens(cfg)
	pool := newPool(t, cfg, token1, token2)

	err := seed(cfg, token1, token2, pool, testLogger{})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)
}

func TestSeed_PoolAccountCannotDeposit(t *testing.T) {
	cfg := testConfig()
	cfg.Seed.Liquidity = nil
	token1, token2 := newTokens(cfg)
	pool := newPool(t, cfg, token1, token2)
	require.NoError(t, seed(cfg, token1, token2, pool, testLogger{}))

	for _, tok := range []*ledger.Token{token1, token2} {
		require.NoError(t, tok.Transfer(deployer, poolAccount, tokens(10)))
		require.NoError(t, tok.Approve(poolAccount, poolAccount, tokens(10)))
	}

	_, err := pool.Deposit(tokens(10), tokens(10), poolAccount)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrCustodySource)

	r1, r2 := pool.Reserves()
	assert.Zero(t, r1.Sign())
	assert.Zero(t, r2.Sign())
	assert.Zero(t, pool.TotalShares().Sign())
	assert.Equal(t, tokens(10).String(), token1.BalanceOf(poolAccount).String())
}
