package ui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/types"
)

// Selector candidates per element, tried in order. The round page markup
// shifts between rollouts; the first selector that yields usable content
// wins.
var (
	priceToBeatSelectors = []string{
		"[data-testid='price-to-beat']",
		"[class*='priceToBeat']",
		"[class*='price-to-beat']",
	}
	countdownSelectors = []string{
		"[data-testid='countdown']",
		"[class*='countdown']",
		"[class*='timeRemaining']",
	}
	upButtonSelectors = []string{
		"[data-testid='buy-up-button']",
		"button[class*='up']",
	}
	downButtonSelectors = []string{
		"[data-testid='buy-down-button']",
		"button[class*='down']",
	}
	amountInputSelectors = []string{
		"[data-testid='amount-input']",
		"input[placeholder*='Amount']",
		"input[type='number']",
	}
	confirmSelectors = []string{
		"[data-testid='confirm-trade-button']",
		"button[class*='confirm']",
	}
)

const (
	clickRetries  = 3
	retryInterval = 2 * time.Second
)

var _ interfaces.RoundPage = (*Page)(nil)

// Page drives one open round page through the actuator.
type Page struct {
	act            interfaces.Actuator
	stepTimeout    time.Duration
	minPriceSanity float64
}

// NewPage wraps an actuator already navigated to the round URL.
// minPriceSanity rejects strike readings that are obviously a different
// element (a share price, a percentage) rather than the asset price.
func NewPage(act interfaces.Actuator, stepTimeout time.Duration, minPriceSanity float64) *Page {
	return &Page{
		act:            act,
		stepTimeout:    stepTimeout,
		minPriceSanity: minPriceSanity,
	}
}

// Open navigates to the round page.
func (p *Page) Open(ctx context.Context, url string) error {
	return p.act.Navigate(ctx, url)
}

// ReadPriceToBeat scrapes the round's strike price.
func (p *Page) ReadPriceToBeat(ctx context.Context) (float64, error) {
	for _, sel := range priceToBeatSelectors {
		text, err := p.act.ReadText(ctx, sel, p.stepTimeout)
		if err != nil {
			continue
		}
		price, ok := ParsePrice(text)
		if !ok {
			continue
		}
		if price < p.minPriceSanity {
			logger.Debug(ctx, "rejecting implausible strike reading",
				"selector", sel, "value", price, "floor", p.minPriceSanity)
			continue
		}
		return price, nil
	}
	return 0, fmt.Errorf("no selector yielded a plausible price to beat")
}

// ReadCountdown scrapes the seconds remaining in the round.
func (p *Page) ReadCountdown(ctx context.Context) (int, error) {
	for _, sel := range countdownSelectors {
		text, err := p.act.ReadText(ctx, sel, p.stepTimeout)
		if err != nil {
			continue
		}
		if seconds, ok := ParseCountdown(text); ok {
			return seconds, nil
		}
	}
	return 0, fmt.Errorf("no selector yielded a countdown")
}

// PrepareTrade selects the direction and fills the stake amount, leaving
// the confirm step untouched. Nothing is committed until ExecuteTrade.
func (p *Page) PrepareTrade(ctx context.Context, dir types.Direction, stakeUSD float64) error {
	buttons := upButtonSelectors
	if dir == types.DirectionDown {
		buttons = downButtonSelectors
	}
	if err := p.clickAny(ctx, buttons); err != nil {
		return fmt.Errorf("failed to select %s side: %w", dir, err)
	}

	amount := strconv.FormatFloat(stakeUSD, 'f', 2, 64)
	var fillErr error
	for _, sel := range amountInputSelectors {
		if fillErr = p.act.Fill(ctx, sel, amount, p.stepTimeout); fillErr == nil {
			logger.Debug(ctx, "trade prepared", "direction", string(dir), "amount", amount)
			return nil
		}
	}
	return fmt.Errorf("failed to fill stake amount: %w", fillErr)
}

// ExecuteTrade commits the prepared trade.
func (p *Page) ExecuteTrade(ctx context.Context) error {
	if err := p.clickAny(ctx, confirmSelectors); err != nil {
		return fmt.Errorf("failed to confirm trade: %w", err)
	}
	logger.Info(ctx, "trade submitted")
	return nil
}

// clickAny tries each selector in order, retrying the whole list at a
// fixed interval.
func (p *Page) clickAny(ctx context.Context, selectors []string) error {
	var lastErr error
	attempt := func() error {
		for _, sel := range selectors {
			if err := p.act.Click(ctx, sel, p.stepTimeout); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		return lastErr
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), clickRetries-1)
	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}
