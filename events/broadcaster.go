package events

import (
	"errors"
	"sync"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/prometheus/client_golang/prometheus"
)

// BroadcasterConfig holds the configuration for a Broadcaster.
type BroadcasterConfig struct {
	BufferSize uint
	Logger     Logger
	Registry   prometheus.Registerer
}

func (c *BroadcasterConfig) validate() error {
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// Broadcaster delivers every record to all live subscribers. Emit never blocks: a subscriber
// whose buffer is full misses the record, and the drop is counted.
type Broadcaster struct {
	mu         sync.RWMutex
	subs       map[uint64]chan constantproduct.SwapEvent
	nextID     uint64
	bufferSize uint
	logger     Logger

	subscribers prometheus.Gauge
	dropped     prometheus.Counter
}

func NewBroadcaster(cfg BroadcasterConfig) (*Broadcaster, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Broadcaster{
		subs:       make(map[uint64]chan constantproduct.SwapEvent),
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_swap_subscribers",
			Help: "Number of live swap subscribers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amm_swap_events_dropped_total",
			Help: "Swap records not delivered because a subscriber buffer was full.",
		}),
	}
	cfg.Registry.MustRegister(b.subscribers, b.dropped)
	return b, nil
}

func (b *Broadcaster) Emit(event constantproduct.SwapEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- copyEvent(event):
		default:
			b.dropped.Inc()
			b.logger.Warn("Swap subscriber is lagging; dropping record", "subscriber", id, "sequence", event.Sequence)
		}
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan constantproduct.SwapEvent, func()) {
	ch := make(chan constantproduct.SwapEvent, b.bufferSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	b.subscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
			b.subscribers.Dec()
		})
	}
}
