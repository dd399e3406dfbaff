package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/defistate-amm-go/cmd/ammd/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/events/postgres"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/server"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/stateops"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// create the log handler
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	rootLogger := slog.New(rootLogHandler)

	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rootLogger, prometheus.DefaultRegisterer); err != nil {
		rootLogger.Error("Daemon stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.DaemonConfig, rootLogger *slog.Logger, registry prometheus.Registerer) error {
	token1, token2 := newTokens(cfg)

	broadcaster, err := events.NewBroadcaster(events.BroadcasterConfig{
		BufferSize: cfg.Events.BroadcastBuffer,
		Logger:     rootLogger.With("component", "swap-broadcaster"),
		Registry:   registry,
	})
	if err != nil {
		return fmt.Errorf("init broadcaster: %w", err)
	}
	sinks := events.Fanout{broadcaster}

	if pg := cfg.Events.Postgres; pg.Enabled {
		db, err := connectPostgres(ctx, pg)
		if err != nil {
			return err
		}
		defer db.Close()

		writer, err := postgres.New(db,
			postgres.WithTableName(pg.Table),
			postgres.WithBatchSize(pg.BatchSize),
			postgres.WithBufferSize(pg.BufferSize),
			postgres.WithFlushInterval(pg.FlushInterval),
			postgres.WithLogger(rootLogger.With("component", "swap-writer")),
			postgres.WithRegistry(registry),
		)
		if err != nil {
			return fmt.Errorf("init swap writer: %w", err)
		}
		if err := writer.EnsureSchema(ctx); err != nil {
			return err
		}
		// The writer outlives ctx so records committed during shutdown are still flushed by Stop.
		if err := writer.Start(context.Background()); err != nil {
			return fmt.Errorf("start swap writer: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := writer.Stop(stopCtx); err != nil {
				rootLogger.Error("Failed to flush swap writer", "error", err)
			}
		}()
		sinks = append(sinks, writer)
	}

	pool, err := engine.New(engine.Config{
		Asset1:                ledger.NewCustody(token1, cfg.Pool.Account),
		Asset2:                ledger.NewCustody(token2, cfg.Pool.Account),
		Sink:                  sinks,
		Logger:                rootLogger.With("component", "engine"),
		Registry:              registry,
		RatioToleranceDivisor: big.NewInt(cfg.Pool.RatioToleranceDivisor),
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	if err := seed(cfg, token1, token2, pool, rootLogger.With("component", "seed")); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	ops, err := stateops.NewStateOps(rootLogger.With("component", "stateops"), registry)
	if err != nil {
		return fmt.Errorf("init state ops: %w", err)
	}

	rpcServer, err := server.New(server.Config{
		Pool:           pool,
		Swaps:          broadcaster,
		Differ:         ops,
		Logger:         rootLogger.With("component", "jsonrpc-server"),
		Registry:       registry,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("init rpc server: %w", err)
	}

	servers := []*http.Server{{
		Addr:              cfg.Server.ListenAddr,
		Handler:           rpcServer.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			rootLogger.Info("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}()
	}

	a1, a2 := pool.Assets()
	rootLogger.Info("Pool daemon running",
		"asset1", a1.Hex(),
		"asset2", a2.Hex(),
		"pool_account", cfg.Pool.Account.Hex(),
		"tolerance_divisor", cfg.Pool.RatioToleranceDivisor,
	)

	var serveErr error
	select {
	case <-ctx.Done():
		rootLogger.Info("Shutdown signal received")
	case serveErr = <-errCh:
	}

	rpcServer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rootLogger.Error("Failed to shut down http server", "addr", srv.Addr, "error", err)
		}
	}
	return serveErr
}

func connectPostgres(ctx context.Context, pg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(pg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(pg.MaxConns)

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func loadConfig() (*config.DaemonConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadAndValidate(*configPath)
}
