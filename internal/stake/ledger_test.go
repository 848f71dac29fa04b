package stake

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"polymarket-updown-bot/internal/store"
	"polymarket-updown-bot/internal/types"
)

func newTestLedger(t *testing.T, base, max float64, maxStreak int) *Ledger {
	t.Helper()
	sf, err := store.OpenStateFile(filepath.Join(t.TempDir(), "state.json"), base)
	if err != nil {
		t.Fatalf("failed to open state file: %v", err)
	}
	return NewLedger(base, max, maxStreak, true, sf)
}

func TestWinDoublesUntilClamp(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 2, 24, 15)

	expected := []float64{4, 8, 16, 24, 24}
	for i, want := range expected {
		stake := l.CurrentStake()
		u, err := l.ApplyResult(ctx, types.ResultWin, stake)
		if err != nil {
			t.Fatalf("win %d: %v", i, err)
		}
		if u.NextStake != want {
			t.Errorf("win %d: expected next stake %.2f, got %.2f", i, want, u.NextStake)
		}
	}
}

func TestLossResetsToBase(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 2, 1024, 15)

	for i := 0; i < 5; i++ {
		if _, err := l.ApplyResult(ctx, types.ResultWin, l.CurrentStake()); err != nil {
			t.Fatal(err)
		}
	}
	if l.WinStreak() != 5 {
		t.Fatalf("Expected streak 5, got %d", l.WinStreak())
	}

	u, err := l.ApplyResult(ctx, types.ResultLoss, l.CurrentStake())
	if err != nil {
		t.Fatal(err)
	}
	if u.NextStake != 2 {
		t.Errorf("Expected reset to base 2, got %.2f", u.NextStake)
	}
	if u.NewStreak != 0 {
		t.Errorf("Expected streak 0 after loss, got %d", u.NewStreak)
	}
	if u.PnL != -64 {
		t.Errorf("Expected PnL -64 (stake used), got %.2f", u.PnL)
	}
}

func TestMaxStreakResetsToBase(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 2, 100000, 3)

	// Wins 1 and 2 double; win 3 hits the cap and resets.
	if _, err := l.ApplyResult(ctx, types.ResultWin, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ApplyResult(ctx, types.ResultWin, 4); err != nil {
		t.Fatal(err)
	}
	u, err := l.ApplyResult(ctx, types.ResultWin, 8)
	if err != nil {
		t.Fatal(err)
	}
	if u.NextStake != 2 {
		t.Errorf("Expected base stake 2 after cap, got %.2f", u.NextStake)
	}
	if u.NewStreak != 3 {
		t.Errorf("Expected streak capped at 3, got %d", u.NewStreak)
	}
}

func TestSkipChangesNothing(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 2, 1024, 15)
	if _, err := l.ApplyResult(ctx, types.ResultWin, 2); err != nil {
		t.Fatal(err)
	}

	before := l.CurrentStake()
	u, err := l.ApplyResult(ctx, types.ResultSkip, before)
	if err != nil {
		t.Fatal(err)
	}
	if u.NextStake != before || u.PnL != 0 {
		t.Errorf("Expected skip to be a no-op, got next=%.2f pnl=%.2f", u.NextStake, u.PnL)
	}
	if l.Daily().TradesCount != 1 {
		t.Errorf("Expected skip not counted as trade, trades=%d", l.Daily().TradesCount)
	}
}

func TestCanTradeGuards(t *testing.T) {
	limits := Limits{DailyMaxTrades: 10, DailyMaxLossUSD: 20, MaxStakeUSD: 1024}

	cases := []struct {
		name  string
		daily store.DailyStats
		stake float64
		want  bool
	}{
		{"under limits", store.DailyStats{TradesCount: 3, TotalPnL: -5}, 8, true},
		{"trade limit", store.DailyStats{TradesCount: 10}, 8, false},
		{"loss limit", store.DailyStats{TradesCount: 1, TotalPnL: -20.01}, 8, false},
		{"loss exactly at limit", store.DailyStats{TotalPnL: -20}, 8, true},
		{"stake over max", store.DailyStats{}, 2048, false},
	}
	seen := map[string]bool{}
	for _, tc := range cases {
		ok, reason := CanTrade(tc.daily, tc.stake, limits)
		if ok != tc.want {
			t.Errorf("%s: expected ok=%v, got %v (%s)", tc.name, tc.want, ok, reason)
		}
		if !ok {
			if seen[reason] {
				t.Errorf("%s: reason %q not distinct", tc.name, reason)
			}
			seen[reason] = true
		}
	}
}

func TestDailyRollover(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 2, 1024, 15)

	if _, err := l.ApplyResult(ctx, types.ResultLoss, 2); err != nil {
		t.Fatal(err)
	}
	if l.Daily().Losses != 1 {
		t.Fatalf("Expected 1 loss recorded, got %d", l.Daily().Losses)
	}

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	if err := l.ResetDailyIfNeeded(ctx, tomorrow); err != nil {
		t.Fatal(err)
	}
	d := l.Daily()
	if d.Losses != 0 || d.TradesCount != 0 || d.TotalPnL != 0 {
		t.Errorf("Expected daily counters reset, got %+v", d)
	}
	if d.Date != tomorrow.Format("2006-01-02") {
		t.Errorf("Expected date %s, got %s", tomorrow.Format("2006-01-02"), d.Date)
	}
	// Stake and streak survive the rollover.
	if l.CurrentStake() != 2 {
		t.Errorf("Expected stake preserved, got %.2f", l.CurrentStake())
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	sf, err := store.OpenStateFile(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLedger(2, 1024, 15, true, sf)
	if _, err := l.ApplyResult(ctx, types.ResultWin, 2); err != nil {
		t.Fatal(err)
	}

	sf2, err := store.OpenStateFile(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	l2 := NewLedger(2, 1024, 15, true, sf2)
	if l2.CurrentStake() != 4 {
		t.Errorf("Expected reopened stake 4, got %.2f", l2.CurrentStake())
	}
	if l2.WinStreak() != 1 {
		t.Errorf("Expected reopened streak 1, got %d", l2.WinStreak())
	}
}
