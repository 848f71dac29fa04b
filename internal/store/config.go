package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AssetConfig describes one tradable asset.
type AssetConfig struct {
	Symbol         string  `yaml:"symbol"`       // feed symbol, e.g. "btc/usd"
	DisplayName    string  `yaml:"display_name"` // phrase shown on the aggregator page
	SlugPrefix     string  `yaml:"slug_prefix"`  // e.g. "btc-updown-15m-"
	MinPriceSanity float64 `yaml:"min_price_sanity"`
}

type Config struct {
	Assets map[string]AssetConfig `yaml:"assets"`
	Stake  struct {
		BaseStakeUSD     float64 `yaml:"base_stake_usd"`
		MaxStakeUSD      float64 `yaml:"max_stake_usd"`
		MaxWinStreak     int     `yaml:"max_win_streak"`
		ResetOnMaxStreak bool    `yaml:"reset_on_max_streak"`
	} `yaml:"stake"`
	Safety struct {
		RequireManualConfirmation bool    `yaml:"require_manual_confirmation"`
		DailyMaxTrades            int     `yaml:"daily_max_trades"`
		DailyMaxLossUSD           float64 `yaml:"daily_max_loss_usd"`
	} `yaml:"safety"`
	Trading struct {
		MinSecondsBeforeClose int     `yaml:"min_seconds_before_close"`
		MaxSecondsBeforeClose int     `yaml:"max_seconds_before_close"`
		WatchIntervalSeconds  int     `yaml:"watch_interval_seconds"`
		WarmupSeconds         int     `yaml:"warmup_seconds"`
		PriceRatioMin         float64 `yaml:"price_ratio_min"`
		PriceRatioMax         float64 `yaml:"price_ratio_max"`
	} `yaml:"trading"`
	TechnicalAnalysis struct {
		CandleIntervalSeconds int `yaml:"candle_interval_seconds"`
		MaxCandles            int `yaml:"max_candles"`
		EMAFast               int `yaml:"ema_fast"`
		EMASlow               int `yaml:"ema_slow"`
		ATRPeriod             int `yaml:"atr_period"`
	} `yaml:"technical_analysis"`
	Strategy struct {
		GapATRThreshold     float64 `yaml:"gap_atr_threshold"`
		TimePressureSeconds int     `yaml:"time_pressure_seconds"`
	} `yaml:"strategy"`
	Discovery struct {
		PageSize              int `yaml:"page_size"`
		MaxPages              int `yaml:"max_pages"`
		MaxCandidates         int `yaml:"max_candidates"`
		MaxRoundSpanHours     int `yaml:"max_round_span_hours"`
		RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	} `yaml:"discovery"`
	Browser struct {
		Headless      bool   `yaml:"headless"`
		ProfileDir    string `yaml:"profile_dir"`
		TimeoutMs     int    `yaml:"timeout_ms"`
		RetryAttempts int    `yaml:"retry_attempts"`
	} `yaml:"browser"`
	API struct {
		GammaEventsURL    string `yaml:"gamma_events_url"`
		GammaMarketsURL   string `yaml:"gamma_markets_url"`
		RTDSWebsocketURL  string `yaml:"rtds_websocket_url"`
		RTDSMaxRetries    int    `yaml:"rtds_max_retries"`
		PolymarketBaseURL string `yaml:"polymarket_base_url"`
	} `yaml:"api"`
	Logging struct {
		LogDir    string `yaml:"log_dir"`
		StateFile string `yaml:"state_file"`
	} `yaml:"logging"`
}

func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return errors.New("assets cannot be empty")
	}
	for name, a := range c.Assets {
		if a.Symbol == "" || a.SlugPrefix == "" {
			return fmt.Errorf("asset '%s' must set symbol and slug_prefix", name)
		}
	}
	if c.Stake.BaseStakeUSD <= 0 {
		return fmt.Errorf("stake.base_stake_usd must be positive, got %.2f", c.Stake.BaseStakeUSD)
	}
	if c.Stake.MaxStakeUSD < c.Stake.BaseStakeUSD {
		return fmt.Errorf("stake.max_stake_usd (%.2f) must be >= base_stake_usd (%.2f)",
			c.Stake.MaxStakeUSD, c.Stake.BaseStakeUSD)
	}
	if c.Stake.MaxWinStreak <= 0 {
		return errors.New("stake.max_win_streak must be positive")
	}
	if !c.Safety.RequireManualConfirmation {
		return errors.New("safety.require_manual_confirmation must be true: this bot only places human-confirmed orders")
	}
	if c.Safety.DailyMaxTrades <= 0 || c.Safety.DailyMaxLossUSD <= 0 {
		return errors.New("safety.daily_max_trades and safety.daily_max_loss_usd must be positive")
	}
	if c.Trading.PriceRatioMin >= c.Trading.PriceRatioMax {
		return fmt.Errorf("trading.price_ratio_min (%.2f) must be below price_ratio_max (%.2f)",
			c.Trading.PriceRatioMin, c.Trading.PriceRatioMax)
	}
	if c.Trading.MinSecondsBeforeClose >= c.Trading.MaxSecondsBeforeClose {
		return errors.New("trading.min_seconds_before_close must be below max_seconds_before_close")
	}
	return nil
}

// Asset returns the configuration for one asset key (e.g. "btc").
func (c *Config) Asset(name string) (AssetConfig, error) {
	a, ok := c.Assets[name]
	if !ok {
		return AssetConfig{}, fmt.Errorf("unknown asset: %s", name)
	}
	return a, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Trading.WatchIntervalSeconds == 0 {
		c.Trading.WatchIntervalSeconds = 30
	}
	if c.Trading.WarmupSeconds == 0 {
		c.Trading.WarmupSeconds = 60
	}
	if c.Trading.PriceRatioMin == 0 {
		c.Trading.PriceRatioMin = 0.5
	}
	if c.Trading.PriceRatioMax == 0 {
		c.Trading.PriceRatioMax = 2.0
	}
	if c.TechnicalAnalysis.CandleIntervalSeconds == 0 {
		c.TechnicalAnalysis.CandleIntervalSeconds = 60
	}
	if c.TechnicalAnalysis.MaxCandles == 0 {
		c.TechnicalAnalysis.MaxCandles = 1000
	}
	if c.TechnicalAnalysis.EMAFast == 0 {
		c.TechnicalAnalysis.EMAFast = 9
	}
	if c.TechnicalAnalysis.EMASlow == 0 {
		c.TechnicalAnalysis.EMASlow = 20
	}
	if c.TechnicalAnalysis.ATRPeriod == 0 {
		c.TechnicalAnalysis.ATRPeriod = 14
	}
	if c.Strategy.GapATRThreshold == 0 {
		c.Strategy.GapATRThreshold = 0.8
	}
	if c.Strategy.TimePressureSeconds == 0 {
		c.Strategy.TimePressureSeconds = 600
	}
	if c.Discovery.PageSize == 0 {
		c.Discovery.PageSize = 200
	}
	if c.Discovery.MaxPages == 0 {
		c.Discovery.MaxPages = 5
	}
	if c.Discovery.MaxCandidates == 0 {
		c.Discovery.MaxCandidates = 500
	}
	if c.Discovery.MaxRoundSpanHours == 0 {
		c.Discovery.MaxRoundSpanHours = 24
	}
	if c.Discovery.RequestTimeoutSeconds == 0 {
		c.Discovery.RequestTimeoutSeconds = 10
	}
	if c.Browser.TimeoutMs == 0 {
		c.Browser.TimeoutMs = 30000
	}
	if c.Browser.RetryAttempts == 0 {
		c.Browser.RetryAttempts = 3
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = ".chrome-profile"
	}
	if c.API.GammaEventsURL == "" {
		c.API.GammaEventsURL = "https://gamma-api.polymarket.com/events"
	}
	if c.API.GammaMarketsURL == "" {
		c.API.GammaMarketsURL = "https://gamma-api.polymarket.com/markets"
	}
	if c.API.RTDSWebsocketURL == "" {
		c.API.RTDSWebsocketURL = "wss://ws-live-data.polymarket.com"
	}
	if c.API.RTDSMaxRetries <= 0 {
		c.API.RTDSMaxRetries = 5
	}
	if c.API.PolymarketBaseURL == "" {
		c.API.PolymarketBaseURL = "https://polymarket.com"
	}
	if c.Logging.LogDir == "" {
		c.Logging.LogDir = "logs"
	}
	if c.Logging.StateFile == "" {
		c.Logging.StateFile = "state.json"
	}
}
