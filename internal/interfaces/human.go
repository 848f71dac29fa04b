package interfaces

import (
	"context"

	"polymarket-updown-bot/internal/types"
)

// Human is the human-interface collaborator. Every call is a blocking
// request/response exchange that suspends the orchestrator until the operator
// answers or the context is cancelled.
type Human interface {
	// ConfirmTrade asks for explicit approval before an order is executed.
	ConfirmTrade(ctx context.Context, rec types.DecisionRecord, stake float64, currentPrice, priceToBeat float64, secondsLeft, winStreak int) (bool, error)
	// AskMarketInfo is the manual-entry fallback when page parsing fails.
	AskMarketInfo(ctx context.Context) (priceToBeat float64, secondsLeft int, err error)
	// AskResult collects the human-reported outcome of an executed trade.
	AskResult(ctx context.Context) (types.Result, error)
}
