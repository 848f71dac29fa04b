package strategy

import (
	"math"
	"strings"
	"testing"

	"polymarket-updown-bot/internal/types"
)

func knownIndicators() types.Indicators {
	return types.Indicators{
		EMAFast:  43200,
		EMASlow:  43150,
		ATR:      50,
		Return3m: 0.12,
		Return5m: 0.20,
		Close:    43250,
	}
}

func nanIndicators() types.Indicators {
	nan := math.NaN()
	return types.Indicators{EMAFast: nan, EMASlow: nan, ATR: nan, Return3m: nan, Return5m: nan}
}

func TestTimePressureFiresOnLargeGap(t *testing.T) {
	e := New(0.8, 600)
	// Strike 60 above price with ATR 50 and 200s left: gap_atr 1.2.
	rec := e.Decide(43310, 43250, 200, knownIndicators())
	if rec.Rule != RuleTimePressure {
		t.Fatalf("expected time_pressure rule, got %s", rec.Rule)
	}
	if rec.Decision != types.DirectionDown {
		t.Errorf("strike above price under time pressure should be DOWN, got %s", rec.Decision)
	}
	if math.Abs(rec.GapATR-1.2) > 1e-9 {
		t.Errorf("expected gap_atr 1.2, got %v", rec.GapATR)
	}
}

func TestTimePressureMirrorsForNegativeGap(t *testing.T) {
	e := New(0.8, 600)
	rec := e.Decide(43190, 43250, 200, knownIndicators())
	if rec.Rule != RuleTimePressure || rec.Decision != types.DirectionUp {
		t.Errorf("strike far below price should be UP via time_pressure, got %s via %s", rec.Decision, rec.Rule)
	}
}

func TestTimePressureNeedsBothConditions(t *testing.T) {
	e := New(0.8, 600)

	// Plenty of time left: falls through even with a big gap.
	rec := e.Decide(43310, 43250, 700, knownIndicators())
	if rec.Rule == RuleTimePressure {
		t.Error("time_pressure must not fire with 700s left")
	}

	// Small gap late in the round: falls through.
	rec = e.Decide(43260, 43250, 200, knownIndicators())
	if rec.Rule == RuleTimePressure {
		t.Error("time_pressure must not fire when |gap_atr| is within the threshold")
	}
}

func TestTrendContinuation(t *testing.T) {
	e := New(0.8, 600)

	// Uptrend, close above the fast ema, strike already below the price.
	rec := e.Decide(43200, 43250, 700, knownIndicators())
	if rec.Rule != RuleTrend || rec.Decision != types.DirectionUp {
		t.Errorf("uptrend with negative gap should be UP via trend, got %s via %s", rec.Decision, rec.Rule)
	}

	// Downtrend, close below the fast ema, strike above the price.
	down := knownIndicators()
	down.EMAFast, down.EMASlow = 43100, 43150
	down.Return3m = -0.1
	rec = e.Decide(43100, 43050, 700, down)
	if rec.Rule != RuleTrend || rec.Decision != types.DirectionDown {
		t.Errorf("downtrend with positive gap should be DOWN via trend, got %s via %s", rec.Decision, rec.Rule)
	}
}

func TestTrendNeedsGapAgainstTheMove(t *testing.T) {
	e := New(0.8, 600)

	// Uptrend but the strike is still above the price: the price has to climb
	// to beat it, so trend must not fire and the default takes over, DOWN.
	rec := e.Decide(43300, 43250, 700, knownIndicators())
	if rec.Rule != RuleDefault || rec.Decision != types.DirectionDown {
		t.Errorf("uptrend with positive gap must fall through to default DOWN, got %s via %s", rec.Decision, rec.Rule)
	}

	// Mirror: downtrend but the price is already above the strike.
	down := knownIndicators()
	down.EMAFast, down.EMASlow = 43100, 43150
	down.Return3m = -0.1
	rec = e.Decide(43000, 43050, 700, down)
	if rec.Rule != RuleDefault || rec.Decision != types.DirectionUp {
		t.Errorf("downtrend with negative gap must fall through to default UP, got %s via %s", rec.Decision, rec.Rule)
	}
}

func TestTrendNeedsCloseBeyondFastEMA(t *testing.T) {
	e := New(0.8, 600)

	// Rising emas and positive momentum, but the close sits below the fast
	// ema: the move has not carried the price, trend skips.
	ind := knownIndicators()
	ind.EMAFast = 43300
	rec := e.Decide(43200, 43250, 700, ind)
	if rec.Rule != RuleDefault {
		t.Errorf("close below fast ema must not fire trend, got rule %s", rec.Rule)
	}
}

func TestTrendIgnoresMissingATR(t *testing.T) {
	e := New(0.8, 600)
	ind := knownIndicators()
	ind.ATR = math.NaN()
	rec := e.Decide(43200, 43250, 700, ind)
	if rec.Rule != RuleTrend || rec.Decision != types.DirectionUp {
		t.Errorf("trend only needs the ema pair and 3m return, got %s via %s", rec.Decision, rec.Rule)
	}
}

func TestTrendRequiresCompleteIndicators(t *testing.T) {
	e := New(0.8, 600)
	rec := e.Decide(43300, 43250, 700, nanIndicators())
	if rec.Rule != RuleDefault {
		t.Errorf("incomplete indicators must fall through to default, got %s", rec.Rule)
	}
	var sawSkip bool
	for _, line := range rec.Reasoning {
		if strings.Contains(line, "indicators incomplete") {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Error("expected the trail to record why trend was skipped")
	}
}

func TestDefaultFollowsGapSign(t *testing.T) {
	e := New(0.8, 600)

	// Price 43250 already above the 43100 strike: UP.
	disagree := knownIndicators()
	disagree.Return3m = -0.05 // momentum disagrees with ema, trend skips
	rec := e.Decide(43100, 43250, 700, disagree)
	if rec.Rule != RuleDefault || rec.Decision != types.DirectionUp {
		t.Errorf("expected default UP, got %s via %s", rec.Decision, rec.Rule)
	}

	rec = e.Decide(43400, 43250, 700, disagree)
	if rec.Rule != RuleDefault || rec.Decision != types.DirectionDown {
		t.Errorf("expected default DOWN, got %s via %s", rec.Decision, rec.Rule)
	}
}

func TestDecisionAlwaysProduced(t *testing.T) {
	e := New(0.8, 600)
	rec := e.Decide(43250, 43250, 700, nanIndicators())
	if rec.Decision != types.DirectionUp && rec.Decision != types.DirectionDown {
		t.Fatalf("cascade must always resolve, got %q", rec.Decision)
	}
	if len(rec.Reasoning) == 0 {
		t.Error("expected a populated reasoning trail")
	}
}

func TestInTradeWindow(t *testing.T) {
	cases := []struct {
		secondsLeft int
		want        bool
	}{
		{30, false},
		{60, true},
		{400, true},
		{840, true},
		{841, false},
	}
	for _, tc := range cases {
		got, reason := InTradeWindow(tc.secondsLeft, 60, 840)
		if got != tc.want {
			t.Errorf("secondsLeft=%d: got %v (%s), want %v", tc.secondsLeft, got, reason, tc.want)
		}
		if !got && reason == "" {
			t.Errorf("secondsLeft=%d: rejection must carry a reason", tc.secondsLeft)
		}
	}
}
