package stake

import (
	"context"
	"fmt"
	"time"

	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/store"
	"polymarket-updown-bot/internal/types"
)

// Limits are the daily safety limits the CanTrade guard enforces.
type Limits struct {
	DailyMaxTrades  int
	DailyMaxLossUSD float64
	MaxStakeUSD     float64
}

// Update describes the ledger transition produced by one trade result.
type Update struct {
	NextStake float64
	NewStreak int
	PnL       float64
}

// Ledger owns the progressive stake state machine: stake doubles on every
// win, resets to base on a loss or on hitting the max win streak, and is
// clamped exactly at the configured maximum.
type Ledger struct {
	base             float64
	max              float64
	maxStreak        int
	resetOnMaxStreak bool
	state            *store.StateFile
}

// NewLedger builds a ledger over an injected state handle.
func NewLedger(base, max float64, maxStreak int, resetOnMaxStreak bool, state *store.StateFile) *Ledger {
	return &Ledger{
		base:             base,
		max:              max,
		maxStreak:        maxStreak,
		resetOnMaxStreak: resetOnMaxStreak,
		state:            state,
	}
}

// CurrentStake returns the stake to use for the next trade.
func (l *Ledger) CurrentStake() float64 {
	s := l.state.Get().CurrentStake
	if s <= 0 {
		return l.base
	}
	return s
}

// WinStreak returns the count of consecutive wins since the last reset.
func (l *Ledger) WinStreak() int {
	return l.state.Get().WinStreak
}

// CanTrade is a pure daily-limit guard. Each rejection carries a distinct
// explanatory reason.
func CanTrade(daily store.DailyStats, currentStake float64, limits Limits) (bool, string) {
	if daily.TradesCount >= limits.DailyMaxTrades {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", daily.TradesCount, limits.DailyMaxTrades)
	}
	if daily.TotalPnL < -limits.DailyMaxLossUSD {
		return false, fmt.Sprintf("daily loss limit exceeded ($%.2f < -$%.2f)", daily.TotalPnL, limits.DailyMaxLossUSD)
	}
	if currentStake > limits.MaxStakeUSD {
		return false, fmt.Sprintf("stake $%.2f exceeds maximum $%.2f", currentStake, limits.MaxStakeUSD)
	}
	return true, "OK"
}

// CanTrade applies the pure guard to the ledger's current state.
func (l *Ledger) CanTrade(limits Limits) (bool, string) {
	return CanTrade(l.state.Get().Daily, l.CurrentStake(), limits)
}

// NextStake projects the stake that would follow the given result without
// mutating any state.
func (l *Ledger) NextStake(result types.Result) float64 {
	current := l.CurrentStake()
	switch result {
	case types.ResultWin:
		if l.WinStreak()+1 >= l.maxStreak {
			// Hitting the cap always returns to base. The configured
			// reset_on_max_streak flag only changes how the event is
			// reported, not the transition.
			return l.base
		}
		next := current * 2
		if next > l.max {
			return l.max
		}
		return next
	case types.ResultLoss:
		return l.base
	default:
		return current
	}
}

// ApplyResult transitions the state machine on a human-reported result and
// persists the new state atomically. PnL is +stake on a win, -stake on a
// loss, zero on a skip.
func (l *Ledger) ApplyResult(ctx context.Context, result types.Result, stakeUsed float64) (Update, error) {
	next := l.NextStake(result)
	streak := l.WinStreak()

	var newStreak int
	var pnl float64
	switch result {
	case types.ResultWin:
		newStreak = streak + 1
		if newStreak > l.maxStreak {
			newStreak = l.maxStreak
		}
		pnl = stakeUsed
	case types.ResultLoss:
		newStreak = 0
		pnl = -stakeUsed
	default:
		newStreak = streak
	}

	if result == types.ResultWin && streak+1 >= l.maxStreak {
		event := "MAX_STREAK_RESET"
		if !l.resetOnMaxStreak {
			event = "MAX_STREAK_PAUSE"
		}
		logger.Risk(ctx, "", event, "streak", streak+1, "max_streak", l.maxStreak)
	}

	err := l.state.Update(func(s *store.StakeState) {
		s.CurrentStake = next
		s.WinStreak = newStreak
		s.LastResult = string(result)
		s.LastTimestamp = time.Now().UTC().Format(time.RFC3339)

		if result != types.ResultSkip {
			s.Daily.TradesCount++
		}
		if result == types.ResultWin {
			s.Daily.Wins++
		}
		if result == types.ResultLoss {
			s.Daily.Losses++
		}
		s.Daily.TotalPnL += pnl
	})
	if err != nil {
		return Update{}, fmt.Errorf("failed to persist stake state: %w", err)
	}

	u := Update{NextStake: next, NewStreak: newStreak, PnL: pnl}
	logger.Info(ctx, "Stake updated",
		"result", string(result),
		"stake_used", stakeUsed,
		"pnl", pnl,
		"next_stake", next,
		"win_streak", newStreak,
	)
	return u, nil
}

// RecordTrade stores the audit fields for the trade just executed.
func (l *Ledger) RecordTrade(asset, slug string, decision types.Direction) error {
	return l.state.Update(func(s *store.StakeState) {
		s.LastAsset = asset
		s.LastSlug = slug
		s.LastDecision = string(decision)
		s.LastTimestamp = time.Now().UTC().Format(time.RFC3339)
	})
}

// ResetDailyIfNeeded rolls the daily counters when the UTC date changes.
func (l *Ledger) ResetDailyIfNeeded(ctx context.Context, now time.Time) error {
	rolled, err := l.state.ResetDailyIfNeeded(now)
	if err != nil {
		return err
	}
	if rolled {
		logger.Info(ctx, "New trading day", "date", now.UTC().Format("2006-01-02"))
	}
	return nil
}

// Daily returns the current daily counters.
func (l *Ledger) Daily() store.DailyStats {
	return l.state.Get().Daily
}
