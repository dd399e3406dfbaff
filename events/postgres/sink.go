// Package postgres persists swap records to a PostgreSQL table.
//
// Emit only enqueues; a single writer goroutine batches records and sends them with pgx.Batch.
// Inserts use ON CONFLICT DO NOTHING on the event id, so replaying a record is harmless.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
)

const dialectPostgres = "postgres"

const (
	colEventID       = "event_id"
	colSequence      = "sequence"
	colTrader        = "trader"
	colInputAsset    = "input_asset"
	colInputAmount   = "input_amount"
	colOutputAsset   = "output_asset"
	colOutputAmount  = "output_amount"
	colReserve1After = "reserve1_after"
	colReserve2After = "reserve2_after"
	colOccurredAt    = "occurred_at"
	colPayload       = "payload"
)

var json = jsoniter.ConfigFastest

// DB is the subset of *pgxpool.Pool the sink needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Stats are cumulative writer counters.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// Sink is an EventSink that writes swaps to PostgreSQL in batches.
type Sink struct {
	db            DB
	table         string
	batchSize     int
	bufferSize    int
	flushInterval time.Duration
	logger        Logger
	registry      prometheus.Registerer

	input chan constantproduct.SwapEvent

	// stopMu orders Emit against Stop so nothing is queued after the final drain.
	stopMu  sync.RWMutex
	stopped bool

	batch   []constantproduct.SwapEvent
	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	written       *prometheus.CounterVec
	flushDuration prometheus.Histogram
}

// New creates a Sink. Call Start before emitting and Stop to flush what remains.
func New(db DB, opts ...Option) (*Sink, error) {
	if db == nil {
		return nil, errors.New("postgres sink: db is required")
	}
	s := &Sink{
		db:            db,
		table:         DefaultTableName,
		batchSize:     DefaultBatchSize,
		bufferSize:    DefaultBufferSize,
		flushInterval: DefaultFlushInterval,
		logger:        nopLogger{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.input = make(chan constantproduct.SwapEvent, s.bufferSize)
	s.batch = make([]constantproduct.SwapEvent, 0, s.batchSize)
	s.written = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_swap_records_total",
		Help: "Swap records handled by the PostgreSQL sink, by outcome.",
	}, []string{"outcome"})
	s.flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "amm_swap_flush_duration_seconds",
		Help:    "Duration of PostgreSQL batch flushes.",
		Buckets: prometheus.DefBuckets,
	})
	if s.registry != nil {
		s.registry.MustRegister(s.written, s.flushDuration)
	}
	return s, nil
}

// EnsureSchema creates the swaps table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s UUID PRIMARY KEY,
			%s BIGINT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s NUMERIC(78, 0) NOT NULL,
			%s TEXT NOT NULL,
			%s NUMERIC(78, 0) NOT NULL,
			%s NUMERIC(78, 0) NOT NULL,
			%s NUMERIC(78, 0) NOT NULL,
			%s TIMESTAMPTZ NOT NULL,
			%s JSONB NOT NULL
		)`,
		pgx.Identifier{s.table}.Sanitize(),
		colEventID, colSequence, colTrader, colInputAsset, colInputAmount,
		colOutputAsset, colOutputAmount, colReserve1After, colReserve2After,
		colOccurredAt, colPayload,
	)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema for %s: %w", s.table, err)
	}
	return nil
}

// Start launches the writer goroutine.
func (s *Sink) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("swap sink started",
		"table", s.table,
		"batch_size", s.batchSize,
		"flush_interval", s.flushInterval,
	)
	return nil
}

// Stop halts the writer and flushes queued records using ctx.
func (s *Sink) Stop(ctx context.Context) error {
	s.logger.Info("stopping swap sink")
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("swap sink stop timed out")
		return ctx.Err()
	}

	// drain what Emit queued after the writer exited
	for {
		select {
		case ev := <-s.input:
			s.batch = append(s.batch, ev)
		default:
			s.flush(ctx)
			s.logger.Info("swap sink stopped")
			return nil
		}
	}
}

// Emit enqueues ev. It never blocks: when the queue is full the record is dropped.
// After Stop every record is dropped.
func (s *Sink) Emit(ev constantproduct.SwapEvent) {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()

	if s.stopped {
		s.drop()
		s.logger.Warn("swap sink stopped; dropping record", "id", ev.ID, "sequence", ev.Sequence)
		return
	}
	select {
	case s.input <- ev:
	default:
		s.drop()
		s.logger.Warn("swap sink queue full; dropping record", "id", ev.ID, "sequence", ev.Sequence)
	}
}

func (s *Sink) drop() {
	s.statsMu.Lock()
	s.stats.Dropped++
	s.statsMu.Unlock()
	s.written.WithLabelValues("dropped").Inc()
}

func (s *Sink) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Sink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.input:
			s.batch = append(s.batch, ev)
			if len(s.batch) >= s.batchSize {
				s.flush(s.ctx)
			}
		case <-ticker.C:
			s.flush(s.ctx)
		}
	}
}

// flush writes the pending batch. Only the writer goroutine, or Stop after it exits, calls it.
func (s *Sink) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	rows := s.batch
	s.batch = make([]constantproduct.SwapEvent, 0, s.batchSize)

	start := time.Now()
	conflicts, err := s.batchInsert(ctx, rows)
	s.flushDuration.Observe(time.Since(start).Seconds())

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if err != nil {
		s.stats.Errors++
		s.written.WithLabelValues("error").Add(float64(len(rows)))
		s.logger.Error("swap batch insert failed", "error", err, "count", len(rows))
		return
	}
	s.stats.Inserts += int64(len(rows) - conflicts)
	s.stats.Conflicts += int64(conflicts)
	s.stats.Flushes++
	s.written.WithLabelValues("inserted").Add(float64(len(rows) - conflicts))
	s.written.WithLabelValues("conflict").Add(float64(conflicts))

	s.logger.Debug("flushed swaps", "count", len(rows), "conflicts", conflicts, "duration", time.Since(start))
}

func (s *Sink) batchInsert(ctx context.Context, rows []constantproduct.SwapEvent) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, ev := range rows {
		query, args, err := s.buildInsertQuery(ev)
		if err != nil {
			return 0, err
		}
		batch.Queue(query, args...)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}

func (s *Sink) buildInsertQuery(ev constantproduct.SwapEvent) (string, []any, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("marshal swap %s: %w", ev.ID, err)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.table).
		Rows(goqu.Record{
			colEventID:       ev.ID.String(),
			colSequence:      ev.Sequence,
			colTrader:        ev.Trader.Hex(),
			colInputAsset:    ev.InputAsset.Hex(),
			colInputAmount:   numeric(ev.InputAmount),
			colOutputAsset:   ev.OutputAsset.Hex(),
			colOutputAmount:  numeric(ev.OutputAmount),
			colReserve1After: numeric(ev.Reserve1After),
			colReserve2After: numeric(ev.Reserve2After),
			colOccurredAt:    time.Unix(int64(ev.Timestamp), 0).UTC(),
			colPayload:       string(payload),
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true)

	query, args, err := insertStmt.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert for swap %s: %w", ev.ID, err)
	}
	return query, args, nil
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
