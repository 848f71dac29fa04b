package feed

import (
	"context"
	"testing"
	"time"

	"polymarket-updown-bot/internal/types"
)

func TestParseTicksSingleObservation(t *testing.T) {
	raw := []byte(`{"topic":"crypto_prices_chainlink","payload":{"symbol":"BTC/USD","value":43250.5,"timestamp":1756638900000}}`)
	ticks := ParseTicks(raw)
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	if ticks[0].Symbol != "BTC/USD" || ticks[0].Price != 43250.5 {
		t.Errorf("unexpected tick: %+v", ticks[0])
	}
	want := time.UnixMilli(1756638900000).UTC()
	if !ticks[0].Timestamp.Equal(want) {
		t.Errorf("expected ms epoch parsed, got %v", ticks[0].Timestamp)
	}
}

func TestParseTicksBatchPayload(t *testing.T) {
	raw := []byte(`{"topic":"crypto_prices_chainlink","payload":[
		{"symbol":"BTC/USD","value":43250.5,"timestamp":1756638900},
		{"symbol":"ETH/USD","price":2310.2,"timestamp":1756638901}
	]}`)
	ticks := ParseTicks(raw)
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if ticks[1].Price != 2310.2 {
		t.Errorf("expected price field honored when value absent, got %+v", ticks[1])
	}
}

func TestParseTicksIgnoresOtherTopicsAndJunk(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"topic":"comments","payload":{"symbol":"BTC/USD","value":1}}`),
		[]byte(`{"topic":"crypto_prices_chainlink","payload":{"symbol":"","value":5}}`),
		[]byte(`{"topic":"crypto_prices_chainlink","payload":{"symbol":"BTC/USD","value":-1}}`),
		[]byte(`{"topic":"crypto_prices_chainlink"}`),
		[]byte(`not json`),
	}
	for i, raw := range cases {
		if got := ParseTicks(raw); len(got) != 0 {
			t.Errorf("case %d: expected no ticks, got %d", i, len(got))
		}
	}
}

func TestSymbolFilterIsCaseInsensitive(t *testing.T) {
	f := NewRTDSFeed("wss://example", "BTC", 0)
	for _, sym := range []string{"btc/usd", "BTC/USD", "Btc/Usd", "btc"} {
		if !f.matchesSymbol(sym) {
			t.Errorf("expected %q to match btc", sym)
		}
	}
	for _, sym := range []string{"eth/usd", "btcx/usd", "xbtc"} {
		if f.matchesSymbol(sym) {
			t.Errorf("expected %q not to match btc", sym)
		}
	}
}

func TestPairSymbolNormalized(t *testing.T) {
	f := NewRTDSFeed("wss://example", "btc/usd", 0)
	if !f.matchesSymbol("BTC/USD") {
		t.Error("expected pair-form constructor to match the same pair")
	}
	if f.matchesSymbol("eth/usd") {
		t.Error("unexpected cross-asset match")
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	f := NewRTDSFeed("wss://example", "btc", 0)
	for i := 0; i < 3; i++ {
		f.enqueue(types.PriceTick{Symbol: "BTC/USD", Price: 43000 + float64(i), Timestamp: time.Now()})
	}
	first := f.Drain()
	if len(first) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(first))
	}
	if second := f.Drain(); len(second) != 0 {
		t.Errorf("expected empty queue after drain, got %d", len(second))
	}
}

func TestQueueDropsOldestAtCapacity(t *testing.T) {
	f := NewRTDSFeed("wss://example", "btc", 0)
	for i := 0; i < maxQueuedTicks+5; i++ {
		f.enqueue(types.PriceTick{Symbol: "BTC/USD", Price: float64(i), Timestamp: time.Now()})
	}
	ticks := f.Drain()
	if len(ticks) != maxQueuedTicks {
		t.Fatalf("expected queue capped at %d, got %d", maxQueuedTicks, len(ticks))
	}
	if ticks[0].Price != 5 {
		t.Errorf("expected oldest ticks dropped, first price is %v", ticks[0].Price)
	}
	if f.dropped != 5 {
		t.Errorf("expected 5 dropped, got %d", f.dropped)
	}
}

func TestRetryCapDefaultsWhenUnset(t *testing.T) {
	f := NewRTDSFeed("wss://example", "btc", 0)
	if f.maxRetries != defaultMaxRetries {
		t.Errorf("expected default retry cap %d, got %d", defaultMaxRetries, f.maxRetries)
	}
	f = NewRTDSFeed("wss://example", "btc", 8)
	if f.maxRetries != 8 {
		t.Errorf("expected configured retry cap 8, got %d", f.maxRetries)
	}
}

func TestStartGivesUpAfterBoundedRetries(t *testing.T) {
	// Nothing listens on this port; a single bounded attempt must surface
	// the error instead of retrying forever.
	f := NewRTDSFeed("ws://127.0.0.1:1", "btc", 1)

	done := make(chan error, 1)
	go func() {
		done <- f.Start(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a connection error")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not give up within the retry bound")
	}
}
