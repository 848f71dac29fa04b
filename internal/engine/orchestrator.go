package engine

import (
	"context"
	"fmt"
	"time"

	"polymarket-updown-bot/internal/candles"
	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/stake"
	"polymarket-updown-bot/internal/store"
	"polymarket-updown-bot/internal/strategy"
	"polymarket-updown-bot/internal/ta"
	"polymarket-updown-bot/internal/tradelog"
	"polymarket-updown-bot/internal/types"
)

// Outcome of a single trading cycle.
const (
	OutcomeTraded     = "traded"
	OutcomeDeclined   = "declined"
	OutcomeOutOfRound = "out_of_round_window"
	OutcomeLimits     = "limits_reached"
	OutcomeBadStrike  = "strike_validation_failed"
	OutcomeNoPrice    = "no_price_data"
)

// CycleResult reports what one cycle did, for logging and tests.
type CycleResult struct {
	Market   *types.ResolvedMarket
	Outcome  string
	Decision *types.DecisionRecord
	StakeUSD float64
	Result   types.Result
}

// Orchestrator runs the trading cycle for one asset: discover the live
// round, read its state, decide, and execute with the operator's blessing.
// One orchestrator per asset per process.
type Orchestrator struct {
	cfg      *store.Config
	assetKey string
	asset    store.AssetConfig

	discoverer interfaces.Discoverer
	feed       interfaces.PriceFeed
	act        interfaces.Actuator
	page       interfaces.RoundPage
	human      interfaces.Human
	ledger     *stake.Ledger
	builder    *candles.Builder
	strat      *strategy.Engine

	currentSlug string
	warmedUp    bool

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an orchestrator from its collaborators.
func New(cfg *store.Config, assetKey string, discoverer interfaces.Discoverer, feed interfaces.PriceFeed,
	act interfaces.Actuator, page interfaces.RoundPage, human interfaces.Human, ledger *stake.Ledger) (*Orchestrator, error) {

	asset, err := cfg.Asset(assetKey)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:        cfg,
		assetKey:   assetKey,
		asset:      asset,
		discoverer: discoverer,
		feed:       feed,
		act:        act,
		page:       page,
		human:      human,
		ledger:     ledger,
		builder: candles.NewBuilder(
			time.Duration(cfg.TechnicalAnalysis.CandleIntervalSeconds)*time.Second,
			cfg.TechnicalAnalysis.MaxCandles),
		strat: strategy.New(cfg.Strategy.GapATRThreshold, cfg.Strategy.TimePressureSeconds),
		now:   time.Now,
		sleep: sleepCtx,
	}, nil
}

// Run starts the feed and loops trading cycles until the context ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.feed.Start(ctx); err != nil {
		return fmt.Errorf("failed to start price feed: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.feed.Stop(stopCtx)
	}()

	interval := time.Duration(o.cfg.Trading.WatchIntervalSeconds) * time.Second
	for {
		res, err := o.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.ErrorWithErr(ctx, "trading cycle failed", err, "asset", o.assetKey)
		} else {
			logger.Info(ctx, "trading cycle finished",
				"asset", o.assetKey, "outcome", res.Outcome)
		}
		if err := o.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

// RunOnce starts the feed, runs a single cycle, and tears the feed down.
func (o *Orchestrator) RunOnce(ctx context.Context) (*CycleResult, error) {
	if err := o.feed.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start price feed: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.feed.Stop(stopCtx)
	}()
	return o.RunCycle(ctx)
}

// RunCycle executes one full cycle against the currently-live round.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	timer := logger.StartOperation(ctx, "trading_cycle", "asset", o.assetKey)
	ctx = timer.GetContext()

	res, err := o.runCycle(ctx)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("outcome", res.Outcome)
	return res, nil
}

func (o *Orchestrator) runCycle(ctx context.Context) (*CycleResult, error) {
	if err := o.ledger.ResetDailyIfNeeded(ctx, o.now()); err != nil {
		return nil, err
	}

	market, err := o.discoverer.Discover(ctx, o.assetKey, o.asset.SlugPrefix, o.act)
	if err != nil {
		return nil, err
	}
	res := &CycleResult{Market: market}

	// Navigation only happens on a round change; re-resolving the same slug
	// leaves the page where it is.
	if market.Slug != o.currentSlug {
		logger.Info(ctx, "entering new round",
			"asset", o.assetKey, "slug", market.Slug, "source", string(market.Source))
		if o.page != nil {
			if err := o.page.Open(ctx, market.URL); err != nil {
				return nil, fmt.Errorf("failed to open round page: %w", err)
			}
		}
		o.currentSlug = market.Slug
	}

	if err := o.warmUp(ctx); err != nil {
		return nil, err
	}
	o.drainTicks(ctx)

	currentPrice, ok := o.builder.LatestPrice()
	if !ok {
		logger.Warn(ctx, "no price data after warm-up", "asset", o.assetKey)
		res.Outcome = OutcomeNoPrice
		return res, nil
	}

	priceToBeat, secondsLeft, err := o.roundState(ctx, market)
	if err != nil {
		return nil, err
	}

	if reason, ok := o.validateStrike(priceToBeat, currentPrice); !ok {
		logger.Warn(ctx, "strike failed cross-validation, skipping round",
			"asset", o.assetKey, "slug", market.Slug, "reason", reason,
			"price_to_beat", priceToBeat, "current_price", currentPrice)
		res.Outcome = OutcomeBadStrike
		return res, nil
	}

	if ok, reason := strategy.InTradeWindow(secondsLeft,
		o.cfg.Trading.MinSecondsBeforeClose, o.cfg.Trading.MaxSecondsBeforeClose); !ok {
		logger.Info(ctx, "outside trade window",
			"asset", o.assetKey, "slug", market.Slug, "reason", reason)
		res.Outcome = OutcomeOutOfRound
		return res, nil
	}

	if ok, reason := o.ledger.CanTrade(stake.Limits{
		DailyMaxTrades:  o.cfg.Safety.DailyMaxTrades,
		DailyMaxLossUSD: o.cfg.Safety.DailyMaxLossUSD,
		MaxStakeUSD:     o.cfg.Stake.MaxStakeUSD,
	}); !ok {
		logger.Risk(ctx, o.assetKey, "TRADING_HALTED", "reason", reason)
		res.Outcome = OutcomeLimits
		return res, nil
	}

	inds := ta.Snapshot(o.builder.Completed(0),
		o.cfg.TechnicalAnalysis.EMAFast,
		o.cfg.TechnicalAnalysis.EMASlow,
		o.cfg.TechnicalAnalysis.ATRPeriod)

	rec := o.strat.Decide(priceToBeat, currentPrice, secondsLeft, inds)
	res.Decision = &rec
	logger.Decision(ctx, o.assetKey, market.Slug, string(rec.Decision),
		rec.Gap, rec.GapATR, rec.Rule, lastReason(rec.Reasoning),
		"seconds_left", secondsLeft)
	if err := tradelog.AppendDecision(tradelog.DecisionEntry{
		Asset:       o.assetKey,
		Slug:        market.Slug,
		Decision:    rec.Decision,
		Rule:        rec.Rule,
		Gap:         rec.Gap,
		GapATR:      rec.GapATR,
		Indicators:  inds,
		PriceToBeat: priceToBeat,
		Price:       currentPrice,
		SecondsLeft: secondsLeft,
		Reasoning:   rec.Reasoning,
	}); err != nil {
		logger.Warn(ctx, "failed to append decision log", "error", err.Error())
	}

	return o.executeWithApproval(ctx, res, rec, currentPrice, priceToBeat, secondsLeft)
}

// executeWithApproval prepares the order, blocks for the operator, commits,
// and settles the ledger from the reported result.
func (o *Orchestrator) executeWithApproval(ctx context.Context, res *CycleResult,
	rec types.DecisionRecord, currentPrice, priceToBeat float64, secondsLeft int) (*CycleResult, error) {

	stakeUSD := o.ledger.CurrentStake()
	res.StakeUSD = stakeUSD

	if o.page != nil {
		if err := o.page.PrepareTrade(ctx, rec.Decision, stakeUSD); err != nil {
			return nil, fmt.Errorf("failed to prepare trade: %w", err)
		}
	}

	approved, err := o.human.ConfirmTrade(ctx, rec, stakeUSD, currentPrice, priceToBeat,
		secondsLeft, o.ledger.WinStreak())
	if err != nil {
		return nil, err
	}
	if !approved {
		logger.Trade(ctx, o.assetKey, res.Market.Slug, string(rec.Decision), stakeUSD, false,
			"reason", "operator_declined")
		o.appendTrade(ctx, res.Market, rec.Decision, stakeUSD, false, types.ResultSkip, 0)
		res.Outcome = OutcomeDeclined
		res.Result = types.ResultSkip
		return res, nil
	}

	if o.page != nil {
		if err := o.page.ExecuteTrade(ctx); err != nil {
			return nil, fmt.Errorf("failed to execute trade: %w", err)
		}
	}
	if err := o.ledger.RecordTrade(o.assetKey, res.Market.Slug, rec.Decision); err != nil {
		logger.Warn(ctx, "failed to persist trade record", "error", err.Error())
	}
	logger.Trade(ctx, o.assetKey, res.Market.Slug, string(rec.Decision), stakeUSD, true,
		"source", string(res.Market.Source), "tokens_verified", res.Market.TokensVerified)

	result, err := o.human.AskResult(ctx)
	if err != nil {
		return nil, err
	}
	update, err := o.ledger.ApplyResult(ctx, result, stakeUSD)
	if err != nil {
		return nil, err
	}
	o.appendTrade(ctx, res.Market, rec.Decision, stakeUSD, true, result, update.PnL)

	res.Outcome = OutcomeTraded
	res.Result = result
	return res, nil
}

// warmUp drains the feed once per second for the configured window so the
// candle builder has history before the first decision. Runs once per
// process.
func (o *Orchestrator) warmUp(ctx context.Context) error {
	if o.warmedUp {
		return nil
	}
	seconds := o.cfg.Trading.WarmupSeconds
	logger.Info(ctx, "warming up price history", "asset", o.assetKey, "seconds", seconds)
	for i := 0; i < seconds; i++ {
		if err := o.sleep(ctx, time.Second); err != nil {
			return err
		}
		o.drainTicks(ctx)
	}
	o.warmedUp = true
	return nil
}

func (o *Orchestrator) drainTicks(ctx context.Context) {
	ticks := o.feed.Drain()
	for _, tick := range ticks {
		o.builder.AddTick(tick.Price, tick.Timestamp)
	}
	if len(ticks) > 0 {
		logger.Debug(ctx, "ticks absorbed",
			"asset", o.assetKey, "count", len(ticks), "candles", o.builder.Count())
	}
}

// roundState reads the strike and countdown from the page, falling back to
// the operator when scraping fails, and to the discovery end timestamp for
// the countdown when available.
func (o *Orchestrator) roundState(ctx context.Context, market *types.ResolvedMarket) (float64, int, error) {
	var priceToBeat float64
	var secondsLeft int
	var pageErr error

	if o.page != nil {
		priceToBeat, pageErr = o.page.ReadPriceToBeat(ctx)
		if pageErr == nil {
			secondsLeft, pageErr = o.page.ReadCountdown(ctx)
		}
		if pageErr == nil {
			return priceToBeat, secondsLeft, nil
		}
		logger.Warn(ctx, "page parsing failed",
			"asset", o.assetKey, "slug", market.Slug, "error", pageErr.Error())
	}

	if !market.End.IsZero() && priceToBeat > 0 {
		left := int(market.End.Sub(o.now()).Seconds())
		if left > 0 {
			return priceToBeat, left, nil
		}
	}

	return o.human.AskMarketInfo(ctx)
}

// validateStrike rejects strikes wildly out of proportion to the live
// price: a parse that grabbed the wrong element, or a stale page.
func (o *Orchestrator) validateStrike(priceToBeat, currentPrice float64) (string, bool) {
	if priceToBeat <= 0 || currentPrice <= 0 {
		return "non-positive price", false
	}
	ratio := priceToBeat / currentPrice
	if ratio < o.cfg.Trading.PriceRatioMin || ratio > o.cfg.Trading.PriceRatioMax {
		return fmt.Sprintf("ratio %.3f outside [%.2f, %.2f]",
			ratio, o.cfg.Trading.PriceRatioMin, o.cfg.Trading.PriceRatioMax), false
	}
	return "", true
}

func (o *Orchestrator) appendTrade(ctx context.Context, market *types.ResolvedMarket,
	dir types.Direction, stakeUSD float64, executed bool, result types.Result, pnl float64) {

	err := tradelog.AppendTrade(tradelog.TradeEntry{
		Asset:     o.assetKey,
		Slug:      market.Slug,
		Decision:  dir,
		StakeUSD:  stakeUSD,
		Executed:  executed,
		Result:    result,
		PnL:       pnl,
		WinStreak: o.ledger.WinStreak(),
		Source:    market.Source,
	})
	if err != nil {
		logger.Warn(ctx, "failed to append trade log", "error", err.Error())
	}
}

func lastReason(reasoning []string) string {
	if len(reasoning) == 0 {
		return ""
	}
	return reasoning[len(reasoning)-1]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
