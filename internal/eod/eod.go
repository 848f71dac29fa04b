package eod

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// aggRow holds one asset's totals for the day.
type aggRow struct {
	Asset      string
	Trades     int
	Executed   int
	Wins       int
	Losses     int
	Skips      int
	StakeTotal float64
	PnL        float64
}

func logDir() string {
	if v := os.Getenv("POLYBOT_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func tradesPath() string {
	return filepath.Join(logDir(), "trades.csv")
}

func summaryPath(t time.Time) string {
	return filepath.Join(logDir(), "eod", t.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates trades.csv rows for one UTC day into a per-asset
// summary CSV. Returns an empty path when the day had no trades.
func SummarizeDay(t time.Time) (string, error) {
	inPath := tradesPath()
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", err
	}

	day := t.UTC().Format("2006-01-02")
	aggs := map[string]*aggRow{}
	for i, row := range rows {
		// Header row plus the fixed trades.csv schema:
		// timestamp, asset, slug, decision, stake_usd, executed, result,
		// pnl, win_streak, source.
		if i == 0 || len(row) < 10 {
			continue
		}
		if !strings.HasPrefix(row[0], day) {
			continue
		}
		asset := row[1]
		agg := aggs[asset]
		if agg == nil {
			agg = &aggRow{Asset: asset}
			aggs[asset] = agg
		}
		agg.Trades++
		if row[5] == "true" {
			agg.Executed++
		}
		switch row[6] {
		case "W":
			agg.Wins++
		case "L":
			agg.Losses++
		case "S":
			agg.Skips++
		}
		if stake, err := strconv.ParseFloat(row[4], 64); err == nil {
			agg.StakeTotal += stake
		}
		if pnl, err := strconv.ParseFloat(row[7], 64); err == nil {
			agg.PnL += pnl
		}
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := summaryPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	header := []string{"asset", "trades", "executed", "wins", "losses", "skips", "stake_total", "pnl"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	total := aggRow{Asset: "TOTAL"}
	for _, k := range keys {
		a := aggs[k]
		rec := []string{
			a.Asset,
			strconv.Itoa(a.Trades),
			strconv.Itoa(a.Executed),
			strconv.Itoa(a.Wins),
			strconv.Itoa(a.Losses),
			strconv.Itoa(a.Skips),
			fmt.Sprintf("%.2f", a.StakeTotal),
			fmt.Sprintf("%.2f", a.PnL),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		total.Trades += a.Trades
		total.Executed += a.Executed
		total.Wins += a.Wins
		total.Losses += a.Losses
		total.Skips += a.Skips
		total.StakeTotal += a.StakeTotal
		total.PnL += a.PnL
	}
	_ = w.Write([]string{
		total.Asset,
		strconv.Itoa(total.Trades),
		strconv.Itoa(total.Executed),
		strconv.Itoa(total.Wins),
		strconv.Itoa(total.Losses),
		strconv.Itoa(total.Skips),
		fmt.Sprintf("%.2f", total.StakeTotal),
		fmt.Sprintf("%.2f", total.PnL),
	})
	return outPath, nil
}

// SummarizeToday summarizes the current UTC day.
func SummarizeToday() (string, error) {
	return SummarizeDay(time.Now().UTC())
}
