package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
assets:
  btc:
    symbol: "btc/usd"
    display_name: "Bitcoin"
    slug_prefix: "btc-updown-15m"
    min_price_sanity: 10000
stake:
  base_stake_usd: 2.0
  max_stake_usd: 24.0
  max_win_streak: 4
  reset_on_max_streak: true
safety:
  require_manual_confirmation: true
  daily_max_trades: 12
  daily_max_loss_usd: 40.0
trading:
  min_seconds_before_close: 60
  max_seconds_before_close: 840
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Trading.PriceRatioMin != 0.5 || cfg.Trading.PriceRatioMax != 2.0 {
		t.Errorf("ratio defaults not applied: %v/%v", cfg.Trading.PriceRatioMin, cfg.Trading.PriceRatioMax)
	}
	if cfg.Discovery.PageSize != 200 || cfg.Discovery.MaxRoundSpanHours != 24 {
		t.Errorf("discovery defaults not applied: %+v", cfg.Discovery)
	}
	if cfg.TechnicalAnalysis.EMAFast != 9 || cfg.TechnicalAnalysis.EMASlow != 20 {
		t.Errorf("ta defaults not applied: %+v", cfg.TechnicalAnalysis)
	}
	if cfg.API.GammaEventsURL == "" || cfg.API.RTDSWebsocketURL == "" {
		t.Error("endpoint defaults not applied")
	}
}

func TestLoadConfigRejectsAutoExecution(t *testing.T) {
	body := strings.Replace(minimalYAML, "require_manual_confirmation: true",
		"require_manual_confirmation: false", 1)
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("config without manual confirmation must be rejected")
	}
}

func TestLoadConfigRejectsInvertedWindow(t *testing.T) {
	body := strings.Replace(minimalYAML, "max_seconds_before_close: 840",
		"max_seconds_before_close: 30", 1)
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("min >= max trade window must be rejected")
	}
}

func TestAssetLookup(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	asset, err := cfg.Asset("btc")
	if err != nil {
		t.Fatalf("Asset lookup failed: %v", err)
	}
	if asset.SlugPrefix != "btc-updown-15m" {
		t.Errorf("unexpected asset config: %+v", asset)
	}
	if _, err := cfg.Asset("doge"); err == nil {
		t.Error("unknown asset must error")
	}
}
