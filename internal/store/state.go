package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DailyStats accumulates counters across one UTC calendar day.
type DailyStats struct {
	Date        string  `json:"date"` // "2006-01-02" in UTC
	TradesCount int     `json:"trades_count"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPnL    float64 `json:"total_profit_loss"`
}

// StakeState is the persisted ledger state. It is mutated only through the
// stake ledger and saved atomically after every mutation.
type StakeState struct {
	CurrentStake  float64    `json:"current_stake"`
	WinStreak     int        `json:"win_streak"`
	LastAsset     string     `json:"last_asset,omitempty"`
	LastSlug      string     `json:"last_slug,omitempty"`
	LastDecision  string     `json:"last_decision,omitempty"`
	LastResult    string     `json:"last_result,omitempty"`
	LastTimestamp string     `json:"last_timestamp,omitempty"`
	Daily         DailyStats `json:"daily_stats"`
}

// StateFile owns one stake-state JSON file. It is an explicit handle injected
// at construction, never a package-level singleton.
type StateFile struct {
	mu    sync.Mutex
	path  string
	state StakeState
}

// OpenStateFile loads the state from path, initializing the file with the
// given base stake when it does not exist yet.
func OpenStateFile(path string, baseStake float64) (*StateFile, error) {
	sf := &StateFile{path: path}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		sf.state = StakeState{CurrentStake: baseStake}
		if err := sf.save(); err != nil {
			return nil, err
		}
		return sf, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &sf.state); err != nil {
		return nil, fmt.Errorf("state file %s is corrupt: %w", path, err)
	}
	return sf, nil
}

// Get returns a copy of the current state.
func (sf *StateFile) Get() StakeState {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.state
}

// Update applies fn to the state and persists the result atomically.
func (sf *StateFile) Update(fn func(*StakeState)) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	fn(&sf.state)
	return sf.save()
}

// ResetDailyIfNeeded zeroes the daily counters when the UTC date changed.
// It returns true when a new trading day started.
func (sf *StateFile) ResetDailyIfNeeded(now time.Time) (bool, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	today := now.UTC().Format("2006-01-02")
	if sf.state.Daily.Date == today {
		return false, nil
	}
	sf.state.Daily = DailyStats{Date: today}
	return true, sf.save()
}

// save writes the state via temp-file-then-rename so a crash mid-write can
// never leave a truncated state file behind.
func (sf *StateFile) save() error {
	b, err := json.MarshalIndent(sf.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := sf.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, sf.path)
}
