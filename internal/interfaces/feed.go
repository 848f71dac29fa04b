package interfaces

import (
	"context"

	"polymarket-updown-bot/internal/types"
)

// PriceFeed is the real-time price source collaborator. Delivery is
// best-effort: ticks are enqueued in receipt order and drained non-blockingly
// by the orchestrator.
type PriceFeed interface {
	Start(ctx context.Context) error
	// Drain returns all ticks received since the previous call.
	Drain() []types.PriceTick
	Stop(ctx context.Context)
}
