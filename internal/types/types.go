package types

import "time"

// PriceTick is a single price observation from the real-time feed.
// Ticks are ephemeral: they are consumed exactly once by the candle builder.
type PriceTick struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}

// Candle is a fixed-width OHLC bar aggregated from ticks.
// Start is aligned to the interval boundary. Ticks counts absorbed ticks;
// a candle with Ticks == 0 has no OHLC values yet.
type Candle struct {
	Start                  time.Time
	Open, High, Low, Close float64
	Ticks                  int
}

// Complete reports whether all four OHLC values have been set.
func (c Candle) Complete() bool { return c.Ticks > 0 }

// Indicators is the latest snapshot of the technical indicators used by the
// decision engine. Values are math.NaN() when not enough data exists.
type Indicators struct {
	EMAFast  float64
	EMASlow  float64
	ATR      float64
	Return3m float64
	Return5m float64
	Close    float64
}

// Direction is the binary outcome of a 15m up/down round.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// DecisionRecord is the output of the decision engine: the call itself plus
// everything needed to audit it.
type DecisionRecord struct {
	Decision   Direction
	Gap        float64 // priceToBeat - currentPrice
	GapATR     float64 // Gap / ATR, 0 when ATR unknown or zero
	Rule       string  // which rule fired: "time_pressure", "trend", "default"
	Reasoning  []string
	Indicators Indicators
}

// DiscoverySource identifies which discovery level produced a market.
type DiscoverySource string

const (
	SourceEventsPrimary DiscoverySource = "EVENTS_PRIMARY"
	SourceUIFallback    DiscoverySource = "UI_FALLBACK"
	SourceLegacyMarkets DiscoverySource = "LEGACY_MARKETS"
)

// ResolvedMarket is the single live round selected by discovery. It stays the
// orchestrator's current market until discovery returns a different slug.
type ResolvedMarket struct {
	Slug   string
	URL    string
	Asset  string
	Source DiscoverySource
	End    time.Time // zero when the source did not carry a usable end

	// Token anchoring is best-effort: discovery succeeds without it, but
	// TokensVerified stays false so downstream can decide whether to proceed.
	TokenIDs       map[Direction]string
	ConditionID    string
	TokensVerified bool
}

// Result is the human-reported outcome of a trade.
type Result string

const (
	ResultWin  Result = "W"
	ResultLoss Result = "L"
	ResultSkip Result = "S"
)
