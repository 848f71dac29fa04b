package candles

import (
	"math"
	"sync"
	"time"

	"polymarket-updown-bot/internal/types"
)

// Builder folds a ragged tick stream into fixed-width OHLC candles. A candle
// is retired into the bounded completed buffer only when a tick arrives for a
// later interval; the in-progress candle is always mutable.
type Builder struct {
	mu        sync.Mutex
	interval  time.Duration
	maxKept   int
	completed []types.Candle
	current   *types.Candle
}

// NewBuilder creates a builder for the given interval, keeping at most
// maxCandles completed candles (oldest dropped first).
func NewBuilder(interval time.Duration, maxCandles int) *Builder {
	return &Builder{
		interval:  interval,
		maxKept:   maxCandles,
		completed: make([]types.Candle, 0, maxCandles),
	}
}

// AddTick absorbs one price observation. The tick's timestamp is floored to
// the interval boundary to select the candle it belongs to.
func (b *Builder) AddTick(price float64, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := ts.Truncate(b.interval)

	if b.current == nil || !b.current.Start.Equal(start) {
		if b.current != nil && b.current.Complete() {
			b.completed = append(b.completed, *b.current)
			if len(b.completed) > b.maxKept {
				b.completed = b.completed[len(b.completed)-b.maxKept:]
			}
		}
		b.current = &types.Candle{Start: start}
	}

	c := b.current
	if c.Ticks == 0 {
		c.Open = price
		c.High = price
		c.Low = price
	} else {
		c.High = math.Max(c.High, price)
		c.Low = math.Min(c.Low, price)
	}
	c.Close = price
	c.Ticks++
}

// LatestPrice returns the close of the in-progress candle, falling back to
// the last completed candle. ok is false when no tick has ever been seen.
func (b *Builder) LatestPrice() (price float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && b.current.Ticks > 0 {
		return b.current.Close, true
	}
	if len(b.completed) > 0 {
		return b.completed[len(b.completed)-1].Close, true
	}
	return 0, false
}

// Completed returns a copy of the completed candles in order, truncated to
// the n most recent when n > 0.
func (b *Builder) Completed(n int) []types.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.completed
	if n > 0 && len(src) > n {
		src = src[len(src)-n:]
	}
	out := make([]types.Candle, len(src))
	copy(out, src)
	return out
}

// Count returns the number of completed candles.
func (b *Builder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed)
}

// HasEnoughData reports whether at least minCandles candles have completed.
func (b *Builder) HasEnoughData(minCandles int) bool {
	return b.Count() >= minCandles
}
