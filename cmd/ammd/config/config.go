package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DaemonConfig is the top-level configuration of the pool daemon.
type DaemonConfig struct {
	Assets   AssetsConfig   `yaml:"assets"`
	Deployer common.Address `yaml:"deployer"`
	Pool     PoolConfig     `yaml:"pool"`
	Seed     SeedConfig     `yaml:"seed"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Events   EventsConfig   `yaml:"events"`
}

type AssetsConfig struct {
	Asset1 AssetConfig `yaml:"asset1"`
	Asset2 AssetConfig `yaml:"asset2"`
}

// AssetConfig describes one pool asset. Supply is minted to the deployer at startup.
// Amounts are decimal strings in display units, e.g. "1000000" or "0.5".
type AssetConfig struct {
	Address  common.Address `yaml:"address"`
	Name     string         `yaml:"name"`
	Symbol   string         `yaml:"symbol"`
	Decimals uint8          `yaml:"decimals"` // 0 means DefaultDecimals
	Supply   string         `yaml:"supply"`
}

type PoolConfig struct {
	// Account holds the pool's custody balances.
	Account               common.Address `yaml:"account"`
	RatioToleranceDivisor int64          `yaml:"ratio_tolerance_divisor"`
}

// SeedConfig moves deployer funds to other accounts and adds the first liquidity.
type SeedConfig struct {
	Distributions []Distribution `yaml:"distributions"`
	Liquidity     *Liquidity     `yaml:"liquidity"`
}

type Distribution struct {
	Account common.Address `yaml:"account"`
	Amount1 string         `yaml:"amount1"`
	Amount2 string         `yaml:"amount2"`
}

// Liquidity is deposited by the deployer once distributions are done.
type Liquidity struct {
	Amount1 string `yaml:"amount1"`
	Amount2 string `yaml:"amount2"`
}

type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type EventsConfig struct {
	BroadcastBuffer uint           `yaml:"broadcast_buffer"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

// PostgresConfig enables the swap record writer when Enabled is set.
type PostgresConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DSN           string        `yaml:"dsn"`
	Table         string        `yaml:"table"`
	MaxConns      int           `yaml:"max_conns"`
	BatchSize     int           `yaml:"batch_size"`
	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}
