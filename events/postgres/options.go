package postgres

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	DefaultTableName     = "amm_swaps"
	DefaultBatchSize     = 100
	DefaultBufferSize    = 4096
	DefaultFlushInterval = time.Second
)

var (
	ErrEmptyTableName   = errors.New("table name must not be empty")
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
	ErrInvalidBuffer    = errors.New("buffer size must be greater than 0")
	ErrInvalidInterval  = errors.New("flush interval must be greater than 0")
)

// Option defines a functional option for configuring a Sink.
type Option func(*Sink) error

// WithTableName sets the table swaps are written to.
func WithTableName(name string) Option {
	return func(s *Sink) error {
		if name == "" {
			return ErrEmptyTableName
		}
		s.table = name
		return nil
	}
}

// WithBatchSize sets the number of records that triggers an early flush.
func WithBatchSize(n int) Option {
	return func(s *Sink) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		s.batchSize = n
		return nil
	}
}

// WithBufferSize sets the capacity of the queue between Emit and the writer goroutine.
// Records emitted while the queue is full are dropped and counted.
func WithBufferSize(n int) Option {
	return func(s *Sink) error {
		if n < 1 {
			return ErrInvalidBuffer
		}
		s.bufferSize = n
		return nil
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(s *Sink) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		s.flushInterval = d
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Sink) error {
		s.logger = logger
		return nil
	}
}

// WithRegistry registers the sink's metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Sink) error {
		s.registry = reg
		return nil
	}
}
