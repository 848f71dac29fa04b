package tradelog

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"polymarket-updown-bot/internal/types"
)

var mu sync.Mutex

// DecisionEntry is one row of the decision audit log. Every decision is
// recorded, executed or not.
type DecisionEntry struct {
	Asset       string
	Slug        string
	Decision    types.Direction
	Rule        string
	Gap         float64
	GapATR      float64
	Indicators  types.Indicators
	PriceToBeat float64
	Price       float64
	SecondsLeft int
	Reasoning   []string
}

// TradeEntry is one row of the executed-trade log.
type TradeEntry struct {
	Asset     string
	Slug      string
	Decision  types.Direction
	StakeUSD  float64
	Executed  bool
	Result    types.Result
	PnL       float64
	WinStreak int
	Source    types.DiscoverySource
}

var decisionHeader = []string{
	"timestamp", "asset", "slug", "decision", "rule", "gap", "gap_atr",
	"ema_fast", "ema_slow", "atr", "ret_3m", "ret_5m", "close",
	"price_to_beat", "current_price", "seconds_left", "reasoning",
}

var tradeHeader = []string{
	"timestamp", "asset", "slug", "decision", "stake_usd", "executed",
	"result", "pnl", "win_streak", "source",
}

func logDir() string {
	if v := os.Getenv("POLYBOT_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// AppendDecision appends one row to decisions.csv, creating the file with
// its header on first use.
func AppendDecision(e DecisionEntry) error {
	mu.Lock()
	defer mu.Unlock()
	row := []string{
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		e.Asset,
		e.Slug,
		string(e.Decision),
		e.Rule,
		f2s(e.Gap),
		f2s(e.GapATR),
		f2s(e.Indicators.EMAFast),
		f2s(e.Indicators.EMASlow),
		f2s(e.Indicators.ATR),
		f2s(e.Indicators.Return3m),
		f2s(e.Indicators.Return5m),
		f2s(e.Indicators.Close),
		f2s(e.PriceToBeat),
		f2s(e.Price),
		strconv.Itoa(e.SecondsLeft),
		strings.Join(e.Reasoning, " | "),
	}
	return appendRow(filepath.Join(logDir(), "decisions.csv"), decisionHeader, row)
}

// AppendTrade appends one row to trades.csv.
func AppendTrade(e TradeEntry) error {
	mu.Lock()
	defer mu.Unlock()
	row := []string{
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		e.Asset,
		e.Slug,
		string(e.Decision),
		f2s(e.StakeUSD),
		strconv.FormatBool(e.Executed),
		string(e.Result),
		f2s(e.PnL),
		strconv.Itoa(e.WinStreak),
		string(e.Source),
	}
	return appendRow(filepath.Join(logDir(), "trades.csv"), tradeHeader, row)
}

func appendRow(path string, header, row []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f2s(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// CompressOlder gzips log files whose last modification is past the
// retention window. Already-compressed files are left alone.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".csv" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
