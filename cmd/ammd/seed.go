package main

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/ethereum/go-ethereum/common"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type depositor interface {
	Deposit(amount1, amount2 *big.Int, depositor common.Address) (*big.Int, error)
}

// newTokens builds the two pool assets from config.
func newTokens(cfg *config.DaemonConfig) (*ledger.Token, *ledger.Token) {
	meta := func(a config.AssetConfig) ledger.Metadata {
		return ledger.Metadata{Address: a.Address, Name: a.Name, Symbol: a.Symbol, Decimals: a.Decimals}
	}
	return ledger.NewToken(meta(cfg.Assets.Asset1)), ledger.NewToken(meta(cfg.Assets.Asset2))
}

// seed mints the configured supply to the deployer, distributes it, approves the pool
// custody account for every funded balance and finally adds the initial liquidity.
func seed(cfg *config.DaemonConfig, token1, token2 *ledger.Token, pool depositor, logger Logger) error {
	supply1, err := cfg.Amount1(cfg.Assets.Asset1.Supply)
	if err != nil {
		return err
	}
	supply2, err := cfg.Amount2(cfg.Assets.Asset2.Supply)
	if err != nil {
		return err
	}
	if err := token1.Mint(cfg.Deployer, supply1); err != nil {
		return fmt.Errorf("mint %s: %w", token1.Metadata().Symbol, err)
	}
	if err := token2.Mint(cfg.Deployer, supply2); err != nil {
		return fmt.Errorf("mint %s: %w", token2.Metadata().Symbol, err)
	}

	funded := []common.Address{cfg.Deployer}
	for _, d := range cfg.Seed.Distributions {
		amount1, err := cfg.Amount1(d.Amount1)
		if err != nil {
			return err
		}
		amount2, err := cfg.Amount2(d.Amount2)
		if err != nil {
			return err
		}
		if err := token1.Transfer(cfg.Deployer, d.Account, amount1); err != nil {
			return fmt.Errorf("distribute %s to %s: %w", token1.Metadata().Symbol, d.Account.Hex(), err)
		}
		if err := token2.Transfer(cfg.Deployer, d.Account, amount2); err != nil {
			return fmt.Errorf("distribute %s to %s: %w", token2.Metadata().Symbol, d.Account.Hex(), err)
		}
		funded = append(funded, d.Account)
		logger.Info("Distributed seed funds", "account", d.Account.Hex(),
			"amount1", ledger.FormatUnits(amount1, cfg.Assets.Asset1.Decimals),
			"amount2", ledger.FormatUnits(amount2, cfg.Assets.Asset2.Decimals),
		)
	}

	for _, account := range funded {
		for _, token := range []*ledger.Token{token1, token2} {
			if err := token.Approve(account, cfg.Pool.Account, token.BalanceOf(account)); err != nil {
				return fmt.Errorf("approve %s for %s: %w", token.Metadata().Symbol, account.Hex(), err)
			}
		}
	}

	l := cfg.Seed.Liquidity
	if l == nil {
		return nil
	}
	amount1, err := cfg.Amount1(l.Amount1)
	if err != nil {
		return err
	}
	amount2, err := cfg.Amount2(l.Amount2)
	if err != nil {
		return err
	}
	shares, err := pool.Deposit(amount1, amount2, cfg.Deployer)
	if err != nil {
		return fmt.Errorf("seed liquidity: %w", err)
	}
	logger.Info("Seeded pool liquidity", "shares", shares.String(),
		"amount1", l.Amount1, "amount2", l.Amount2)
	return nil
}
