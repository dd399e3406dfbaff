// Package events holds EventSink implementations for completed swaps.
// Every sink here is append-only from the engine's point of view: the engine emits records and
// never reads them back. Readers are external collaborators (RPC subscribers, tests, storage).
package events

import (
	"math/big"
	"sync"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Sink accepts swap records without blocking.
type Sink interface {
	Emit(event constantproduct.SwapEvent)
}

// Log is an in-memory, append-only record of swaps.
type Log struct {
	mu      sync.RWMutex
	records []constantproduct.SwapEvent
}

func NewLog() *Log {
	return &Log{}
}

// Emit appends a copy of event.
func (l *Log) Emit(event constantproduct.SwapEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, copyEvent(event))
}

// Records returns a copy of every record in emission order.
func (l *Log) Records() []constantproduct.SwapEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]constantproduct.SwapEvent, len(l.records))
	for i, ev := range l.records {
		out[i] = copyEvent(ev)
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Fanout emits every record to each of its sinks, in order.
type Fanout []Sink

func (f Fanout) Emit(event constantproduct.SwapEvent) {
	for _, s := range f {
		s.Emit(event)
	}
}

func copyEvent(ev constantproduct.SwapEvent) constantproduct.SwapEvent {
	c := ev
	c.InputAmount = copyInt(ev.InputAmount)
	c.OutputAmount = copyInt(ev.OutputAmount)
	c.Reserve1After = copyInt(ev.Reserve1After)
	c.Reserve2After = copyInt(ev.Reserve2After)
	return c
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
