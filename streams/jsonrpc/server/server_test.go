package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/protocols/constantproduct"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/stateops"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

var (
	poolAccount = common.HexToAddress("0x9001")
	deployer    = common.HexToAddress("0xDE9")
	trader      = common.HexToAddress("0x7ADE")
)

type harness struct {
	engine *engine.Engine
	server *Server
	client *rpc.Client
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()

	t1 := ledger.NewToken(ledger.Metadata{Address: common.HexToAddress("0x70CE1"), Symbol: "GSNT", Decimals: 18})
	t2 := ledger.NewToken(ledger.Metadata{Address: common.HexToAddress("0x70CE2"), Symbol: "mUSDC", Decimals: 18})
	for _, tok := range []*ledger.Token{t1, t2} {
		for _, acct := range []common.Address{deployer, trader} {
			require.NoError(t, tok.Mint(acct, tokens(1_000_000)))
			require.NoError(t, tok.Approve(acct, poolAccount, tokens(1_000_000)))
		}
	}

	broadcaster, err := events.NewBroadcaster(events.BroadcasterConfig{BufferSize: 16, Logger: testLogger{}, Registry: reg})
	require.NoError(t, err)

	e, err := engine.New(engine.Config{
		Asset1:   ledger.NewCustody(t1, poolAccount),
		Asset2:   ledger.NewCustody(t2, poolAccount),
		Sink:     broadcaster,
		Logger:   testLogger{},
		Registry: reg,
	})
	require.NoError(t, err)

	ops, err := stateops.NewStateOps(testLogger{}, reg)
	require.NoError(t, err)

	srv, err := New(Config{Pool: e, Swaps: broadcaster, Differ: ops, Logger: testLogger{}, Registry: reg})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	client := rpc.DialInProc(srv.RPC())
	t.Cleanup(client.Close)

	return &harness{engine: e, server: srv, client: client}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAPI_Queries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var quote *hexutil.Big
	err := h.client.CallContext(ctx, &quote, "amm_quoteSwap", constantproduct.Asset1ToAsset2, (*hexutil.Big)(tokens(1)))
	require.Error(t, err, "empty pool cannot quote")
	assert.Contains(t, err.Error(), "no reserves")

	_, err = h.engine.Deposit(tokens(100_000), tokens(100_000), deployer)
	require.NoError(t, err)

	var reserves ReservesResult
	require.NoError(t, h.client.CallContext(ctx, &reserves, "amm_reserves"))
	assert.Equal(t, uint64(1), uint64(reserves.Sequence))
	assert.Equal(t, tokens(100_000).String(), reserves.Reserve1.ToInt().String())
	assert.Equal(t, tokens(100_000).String(), reserves.Reserve2.ToInt().String())

	var k, total, shares *hexutil.Big
	require.NoError(t, h.client.CallContext(ctx, &k, "amm_k"))
	assert.Equal(t, h.engine.K().String(), k.ToInt().String())
	require.NoError(t, h.client.CallContext(ctx, &total, "amm_totalShares"))
	assert.Equal(t, tokens(100).String(), total.ToInt().String())
	require.NoError(t, h.client.CallContext(ctx, &shares, "amm_sharesOf", deployer))
	assert.Equal(t, tokens(100).String(), shares.ToInt().String())

	require.NoError(t, h.client.CallContext(ctx, &quote, "amm_quoteSwap", constantproduct.Asset1ToAsset2, (*hexutil.Big)(tokens(1))))
	assert.Equal(t, "999990000099999001", quote.ToInt().String())

	var withdraw WithdrawQuote
	require.NoError(t, h.client.CallContext(ctx, &withdraw, "amm_quoteWithdraw", (*hexutil.Big)(tokens(10))))
	assert.Equal(t, tokens(10_000).String(), withdraw.Amount1.ToInt().String())

	var counterpart *hexutil.Big
	require.NoError(t, h.client.CallContext(ctx, &counterpart, "amm_calculateAsset2Deposit", (*hexutil.Big)(tokens(5))))
	assert.Equal(t, tokens(5).String(), counterpart.ToInt().String())
	require.NoError(t, h.client.CallContext(ctx, &counterpart, "amm_calculateAsset1Deposit", (*hexutil.Big)(tokens(7))))
	assert.Equal(t, tokens(7).String(), counterpart.ToInt().String())

	var price *hexutil.Big
	require.NoError(t, h.client.CallContext(ctx, &price, "amm_spotPrice", constantproduct.Asset2ToAsset1))
	assert.Equal(t, tokens(1).String(), price.ToInt().String())

	var snap constantproduct.PoolState
	require.NoError(t, h.client.CallContext(ctx, &snap, "amm_snapshot"))
	assert.Equal(t, h.engine.Snapshot().Sequence, snap.Sequence)
	assert.Equal(t, tokens(100).String(), snap.ShareOf(deployer).String())
	require.NoError(t, snap.Validate())
}

func TestAPI_PoolStream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.engine.Deposit(tokens(100_000), tokens(100_000), deployer)
	require.NoError(t, err)

	rawCh := make(chan json.RawMessage, 8)
	sub, err := h.client.Subscribe(ctx, RpcNamespace, rawCh, "subscribePoolStream")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	type rawEvent struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	next := func() rawEvent {
		select {
		case raw := <-rawCh:
			var ev rawEvent
			require.NoError(t, json.Unmarshal(raw, &ev))
			return ev
		case err := <-sub.Err():
			t.Fatalf("subscription failed: %v", err)
		case <-ctx.Done():
			t.Fatal("timed out waiting for pool event")
		}
		return rawEvent{}
	}

	first := next()
	require.Equal(t, EventTypeFull, first.Type)
	var full constantproduct.PoolState
	require.NoError(t, json.Unmarshal(first.Payload, &full))
	assert.Equal(t, uint64(1), full.Sequence)

	out, err := h.engine.Swap(engine.Asset1ToAsset2, tokens(1), trader)
	require.NoError(t, err)

	second := next()
	require.Equal(t, EventTypeDiff, second.Type)
	var diff differ.PoolDiff
	require.NoError(t, json.Unmarshal(second.Payload, &diff))
	assert.Equal(t, uint64(1), diff.FromSequence)
	assert.Equal(t, uint64(2), diff.ToSequence)
	assert.Equal(t, new(big.Int).Sub(tokens(100_000), out).String(), diff.Reserve2.String())
	assert.Nil(t, diff.TotalShares)
}

func TestAPI_SwapStream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.engine.Deposit(tokens(1_000), tokens(1_000), deployer)
	require.NoError(t, err)

	swapCh := make(chan constantproduct.SwapEvent, 4)
	sub, err := h.client.Subscribe(ctx, RpcNamespace, swapCh, "subscribeSwaps")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	out, err := h.engine.Swap(engine.Asset2ToAsset1, tokens(2), trader)
	require.NoError(t, err)

	select {
	case ev := <-swapCh:
		assert.Equal(t, trader, ev.Trader)
		assert.Equal(t, tokens(2).String(), ev.InputAmount.String())
		assert.Equal(t, out.String(), ev.OutputAmount.String())
		assert.Equal(t, uint64(2), ev.Sequence)
	case err := <-sub.Err():
		t.Fatalf("subscription failed: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for swap record")
	}
}

func TestServer_Handler(t *testing.T) {
	h := newHarness(t)
	ts := httptest.NewServer(h.server.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"amm_totalShares","params":[]}`
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "0x0", out.Result)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := rpc.DialContext(context.Background(), wsURL)
	require.NoError(t, err)
	defer client.Close()

	var total *hexutil.Big
	require.NoError(t, client.Call(&total, "amm_totalShares"))
	assert.Zero(t, total.ToInt().Sign())
}
