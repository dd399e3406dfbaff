package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDecimals              = 18
	DefaultRatioToleranceDivisor = 1000
	DefaultServerListenAddr      = ":8545"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultMetricsListenAddr     = ":9090"
	DefaultMetricsPath           = "/metrics"
	DefaultBroadcastBuffer       = 256
	DefaultPostgresTable         = "amm_swaps"
	DefaultPostgresMaxConns      = 4
	DefaultPostgresBatchSize     = 100
	DefaultPostgresBufferSize    = 4096
	DefaultPostgresFlushInterval = 1 * time.Second
)

func (c *DaemonConfig) applyDefaults() {
	applyAssetDefaults(&c.Assets.Asset1)
	applyAssetDefaults(&c.Assets.Asset2)

	if c.Pool.RatioToleranceDivisor == 0 {
		c.Pool.RatioToleranceDivisor = DefaultRatioToleranceDivisor
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultServerListenAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = DefaultMetricsListenAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Events.BroadcastBuffer == 0 {
		c.Events.BroadcastBuffer = DefaultBroadcastBuffer
	}
	pg := &c.Events.Postgres
	if pg.Table == "" {
		pg.Table = DefaultPostgresTable
	}
	if pg.MaxConns == 0 {
		pg.MaxConns = DefaultPostgresMaxConns
	}
	if pg.BatchSize == 0 {
		pg.BatchSize = DefaultPostgresBatchSize
	}
	if pg.BufferSize == 0 {
		pg.BufferSize = DefaultPostgresBufferSize
	}
	if pg.FlushInterval == 0 {
		pg.FlushInterval = DefaultPostgresFlushInterval
	}
}

func applyAssetDefaults(a *AssetConfig) {
	if a.Decimals == 0 {
		a.Decimals = DefaultDecimals
	}
	if a.Symbol == "" {
		a.Symbol = a.Name
	}
}
