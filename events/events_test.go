package events

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func swap(seq uint64) constantproduct.SwapEvent {
	return constantproduct.SwapEvent{
		ID:            uuid.New(),
		Sequence:      seq,
		Trader:        common.HexToAddress("0xA11CE"),
		InputAsset:    common.HexToAddress("0x1"),
		InputAmount:   big.NewInt(100),
		OutputAsset:   common.HexToAddress("0x2"),
		OutputAmount:  big.NewInt(99),
		Reserve1After: big.NewInt(1100),
		Reserve2After: big.NewInt(901),
	}
}

func TestLog(t *testing.T) {
	l := NewLog()
	first, second := swap(1), swap(2)
	l.Emit(first)
	l.Emit(second)

	records := l.Records()
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Sequence)
	assert.Equal(t, uint64(2), records[1].Sequence)
	assert.Equal(t, 2, l.Len())

	// mutating the emitted or returned values must not reach the log
	first.InputAmount.SetInt64(0)
	records[1].OutputAmount.SetInt64(0)
	again := l.Records()
	assert.Equal(t, int64(100), again[0].InputAmount.Int64())
	assert.Equal(t, int64(99), again[1].OutputAmount.Int64())
}

func TestFanout(t *testing.T) {
	a, b := NewLog(), NewLog()
	Fanout{a, b}.Emit(swap(5))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestBroadcaster(t *testing.T) {
	t.Run("Invalid_Config", func(t *testing.T) {
		_, err := NewBroadcaster(BroadcasterConfig{Logger: testLogger{}, Registry: prometheus.NewRegistry()})
		assert.Error(t, err)
		_, err = NewBroadcaster(BroadcasterConfig{BufferSize: 1, Registry: prometheus.NewRegistry()})
		assert.Error(t, err)
		_, err = NewBroadcaster(BroadcasterConfig{BufferSize: 1, Logger: testLogger{}})
		assert.Error(t, err)
	})

	t.Run("Delivers_To_All_Subscribers", func(t *testing.T) {
		b, err := NewBroadcaster(BroadcasterConfig{BufferSize: 4, Logger: testLogger{}, Registry: prometheus.NewRegistry()})
		require.NoError(t, err)

		ch1, cancel1 := b.Subscribe()
		ch2, cancel2 := b.Subscribe()
		defer cancel2()

		b.Emit(swap(1))
		assert.Equal(t, uint64(1), (<-ch1).Sequence)
		assert.Equal(t, uint64(1), (<-ch2).Sequence)

		cancel1()
		cancel1()
		_, open := <-ch1
		assert.False(t, open, "cancel closes the channel")

		b.Emit(swap(2))
		assert.Equal(t, uint64(2), (<-ch2).Sequence)
	})

	t.Run("Lagging_Subscriber_Does_Not_Block", func(t *testing.T) {
		b, err := NewBroadcaster(BroadcasterConfig{BufferSize: 1, Logger: testLogger{}, Registry: prometheus.NewRegistry()})
		require.NoError(t, err)

		ch, cancel := b.Subscribe()
		defer cancel()

		b.Emit(swap(1))
		b.Emit(swap(2))
		b.Emit(swap(3))

		assert.Equal(t, uint64(1), (<-ch).Sequence)
		select {
		case ev := <-ch:
			t.Fatalf("unexpected record %d", ev.Sequence)
		default:
		}
	})
}
