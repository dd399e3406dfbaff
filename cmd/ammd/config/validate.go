package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Validate checks that all required fields are set and values are valid.
func (c *DaemonConfig) Validate() error {
	if err := c.Assets.Asset1.validate("assets.asset1"); err != nil {
		return err
	}
	if err := c.Assets.Asset2.validate("assets.asset2"); err != nil {
		return err
	}
	if c.Assets.Asset1.Address == c.Assets.Asset2.Address {
		return errors.New("assets.asset1 and assets.asset2 must have different addresses")
	}

	if c.Pool.Account == (common.Address{}) {
		return errors.New("pool.account is required")
	}
	if c.Pool.RatioToleranceDivisor < 1 {
		return fmt.Errorf("pool.ratio_tolerance_divisor must be >= 1, got %d", c.Pool.RatioToleranceDivisor)
	}

	needsDeployer := c.Assets.Asset1.Supply != "" || c.Assets.Asset2.Supply != "" ||
		len(c.Seed.Distributions) > 0 || c.Seed.Liquidity != nil
	if needsDeployer && c.Deployer == (common.Address{}) {
		return errors.New("deployer is required when supply or seed is set")
	}

	for i, d := range c.Seed.Distributions {
		prefix := fmt.Sprintf("seed.distributions[%d]", i)
		if d.Account == (common.Address{}) {
			return fmt.Errorf("%s.account is required", prefix)
		}
		if _, err := c.Amount1(d.Amount1); err != nil {
			return fmt.Errorf("%s.amount1: %w", prefix, err)
		}
		if _, err := c.Amount2(d.Amount2); err != nil {
			return fmt.Errorf("%s.amount2: %w", prefix, err)
		}
	}
	if l := c.Seed.Liquidity; l != nil {
		if _, err := c.Amount1(l.Amount1); err != nil {
			return fmt.Errorf("seed.liquidity.amount1: %w", err)
		}
		if _, err := c.Amount2(l.Amount2); err != nil {
			return fmt.Errorf("seed.liquidity.amount2: %w", err)
		}
	}

	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == c.Server.ListenAddr {
		return errors.New("metrics.listen_addr must differ from server.listen_addr")
	}

	if pg := c.Events.Postgres; pg.Enabled {
		if pg.DSN == "" {
			return errors.New("events.postgres.dsn is required when enabled")
		}
		if pg.MaxConns < 1 {
			return errors.New("events.postgres.max_conns must be >= 1")
		}
		if pg.BatchSize < 1 {
			return errors.New("events.postgres.batch_size must be >= 1")
		}
		if pg.BufferSize < 1 {
			return errors.New("events.postgres.buffer_size must be >= 1")
		}
		if pg.FlushInterval <= 0 {
			return errors.New("events.postgres.flush_interval must be positive")
		}
	}

	return nil
}

func (a *AssetConfig) validate(prefix string) error {
	if a.Address == (common.Address{}) {
		return fmt.Errorf("%s.address is required", prefix)
	}
	if a.Symbol == "" {
		return fmt.Errorf("%s.symbol is required", prefix)
	}
	if _, err := a.Amount(a.Supply); err != nil {
		return fmt.Errorf("%s.supply: %w", prefix, err)
	}
	return nil
}

// Amount parses a display amount of this asset into raw units. An empty string is zero.
func (a *AssetConfig) Amount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return ledger.ParseUnits(s, a.Decimals)
}

func (c *DaemonConfig) Amount1(s string) (*big.Int, error) {
	return c.Assets.Asset1.Amount(s)
}

func (c *DaemonConfig) Amount2(s string) (*big.Int, error) {
	return c.Assets.Asset2.Amount(s)
}
