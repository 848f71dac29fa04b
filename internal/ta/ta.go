package ta

import (
	"math"

	"polymarket-updown-bot/internal/types"
)

// EMA returns the exponential moving average with smoothing span n over the
// full series, seeded with the first value (not SMA-seeded). NaN when fewer
// than 2 data points exist.
func EMA(values []float64, n int) float64 {
	if len(values) < 2 || n <= 0 {
		return math.NaN()
	}
	return ema(values, n)
}

func ema(values []float64, n int) float64 {
	alpha := 2.0 / (float64(n) + 1.0)
	v := values[0]
	for i := 1; i < len(values); i++ {
		v = alpha*values[i] + (1-alpha)*v
	}
	return v
}

// ATR returns the EMA(period) of the true range series. True range uses the
// previous close, so the series starts at the second candle. NaN when fewer
// than 2 candles exist.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if len(closes) < 2 || period <= 0 {
		return math.NaN()
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		trs = append(trs, math.Max(tr1, math.Max(tr2, tr3)))
	}
	return ema(trs, period)
}

// PercentReturn returns the percent change of the last value versus the value
// n entries earlier. NaN when the series is too short.
func PercentReturn(values []float64, n int) float64 {
	if n <= 0 || len(values) < n+1 {
		return math.NaN()
	}
	prev := values[len(values)-1-n]
	if prev == 0 {
		return math.NaN()
	}
	return (values[len(values)-1]/prev - 1) * 100
}

// Snapshot computes the indicator set the decision engine consumes. Fields
// are NaN where not enough candles exist; callers must treat NaN as unknown.
func Snapshot(candles []types.Candle, emaFast, emaSlow, atrPeriod int) types.Indicators {
	inds := types.Indicators{
		EMAFast:  math.NaN(),
		EMASlow:  math.NaN(),
		ATR:      math.NaN(),
		Return3m: math.NaN(),
		Return5m: math.NaN(),
		Close:    math.NaN(),
	}
	if len(candles) == 0 {
		return inds
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	inds.Close = closes[len(closes)-1]
	inds.EMAFast = EMA(closes, emaFast)
	inds.EMASlow = EMA(closes, emaSlow)
	inds.ATR = ATR(highs, lows, closes, atrPeriod)
	inds.Return3m = PercentReturn(closes, 3)
	inds.Return5m = PercentReturn(closes, 5)
	return inds
}
