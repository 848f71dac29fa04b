package strategy

import (
	"fmt"
	"math"

	"polymarket-updown-bot/internal/types"
)

// Rule names recorded on every decision.
const (
	RuleTimePressure = "time_pressure"
	RuleTrend        = "trend"
	RuleDefault      = "default"
)

// Engine turns an indicator snapshot plus the round state into an UP/DOWN
// call. Rules are evaluated as a cascade; the first one that fires wins and
// the trail of every evaluation is kept for the audit log.
type Engine struct {
	gapATRThreshold     float64
	timePressureSeconds int
}

// New creates a decision engine.
func New(gapATRThreshold float64, timePressureSeconds int) *Engine {
	return &Engine{
		gapATRThreshold:     gapATRThreshold,
		timePressureSeconds: timePressureSeconds,
	}
}

// Decide always produces a direction: the final rule has no preconditions.
// priceToBeat is the round's strike, currentPrice the latest observed price.
func (e *Engine) Decide(priceToBeat, currentPrice float64, secondsLeft int, ind types.Indicators) types.DecisionRecord {
	gap := priceToBeat - currentPrice
	gapATR := 0.0
	if !math.IsNaN(ind.ATR) && ind.ATR > 0 {
		gapATR = gap / ind.ATR
	}

	rec := types.DecisionRecord{
		Gap:        gap,
		GapATR:     gapATR,
		Indicators: ind,
	}
	rec.Reasoning = append(rec.Reasoning,
		fmt.Sprintf("gap=%.2f gap_atr=%.2f seconds_left=%d", gap, gapATR, secondsLeft))

	if dir, ok := e.timePressureRule(&rec, secondsLeft); ok {
		rec.Decision = dir
		rec.Rule = RuleTimePressure
		return rec
	}
	if dir, ok := e.trendRule(&rec, currentPrice, ind); ok {
		rec.Decision = dir
		rec.Rule = RuleTrend
		return rec
	}

	// Default: the side the price is already on.
	rec.Rule = RuleDefault
	if gap > 0 {
		rec.Decision = types.DirectionDown
		rec.Reasoning = append(rec.Reasoning, "default: price below strike, betting it stays below")
	} else {
		rec.Decision = types.DirectionUp
		rec.Reasoning = append(rec.Reasoning, "default: price at or above strike, betting it stays above")
	}
	return rec
}

// timePressureRule fires late in the round when the gap is large relative to
// recent volatility: too far to travel in the time left.
func (e *Engine) timePressureRule(rec *types.DecisionRecord, secondsLeft int) (types.Direction, bool) {
	if secondsLeft > e.timePressureSeconds {
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("time_pressure: skipped, %ds left exceeds %ds window", secondsLeft, e.timePressureSeconds))
		return "", false
	}
	if math.Abs(rec.GapATR) <= e.gapATRThreshold {
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("time_pressure: skipped, |gap_atr| %.2f within %.2f", math.Abs(rec.GapATR), e.gapATRThreshold))
		return "", false
	}
	if rec.GapATR > 0 {
		rec.Reasoning = append(rec.Reasoning,
			"time_pressure: strike far above price, too little time to climb")
		return types.DirectionDown, true
	}
	rec.Reasoning = append(rec.Reasoning,
		"time_pressure: strike far below price, too little time to fall")
	return types.DirectionUp, true
}

// trendRule follows an established move, but only when the trend indicators
// are known and the gap points against the move. A downtrend only helps a
// DOWN bet while the price still has to climb to beat the strike, and the
// symmetric condition holds for UP.
func (e *Engine) trendRule(rec *types.DecisionRecord, closePrice float64, ind types.Indicators) (types.Direction, bool) {
	if anyNaN(ind.EMAFast, ind.EMASlow, ind.Return3m) {
		rec.Reasoning = append(rec.Reasoning, "trend: skipped, indicators incomplete")
		return "", false
	}
	switch {
	case ind.EMAFast < ind.EMASlow && ind.Return3m < 0 && closePrice < ind.EMAFast && rec.Gap > 0:
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("trend: down, ema %.2f<%.2f, 3m return %.3f%%, close below fast ema, strike above",
				ind.EMAFast, ind.EMASlow, ind.Return3m))
		return types.DirectionDown, true
	case ind.EMAFast > ind.EMASlow && ind.Return3m > 0 && closePrice > ind.EMAFast && rec.Gap < 0:
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("trend: up, ema %.2f>%.2f, 3m return %.3f%%, close above fast ema, strike below",
				ind.EMAFast, ind.EMASlow, ind.Return3m))
		return types.DirectionUp, true
	}
	rec.Reasoning = append(rec.Reasoning, "trend: skipped, conditions not aligned")
	return "", false
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// InTradeWindow reports whether the round still has enough time left to
// trade but not so much that the call would be premature.
func InTradeWindow(secondsLeft, minSeconds, maxSeconds int) (bool, string) {
	if secondsLeft < minSeconds {
		return false, fmt.Sprintf("only %ds left, need at least %ds", secondsLeft, minSeconds)
	}
	if secondsLeft > maxSeconds {
		return false, fmt.Sprintf("%ds left, too early before the %ds mark", secondsLeft, maxSeconds)
	}
	return true, ""
}
