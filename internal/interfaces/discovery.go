package interfaces

import (
	"context"

	"polymarket-updown-bot/internal/types"
)

// Discoverer resolves the single market round that is live at the instant of
// the call, or fails explicitly. Re-invocation is idempotent: with unchanged
// upstream data it returns the same slug. The actuator is optional; without
// one the UI-fallback level is unavailable.
type Discoverer interface {
	Discover(ctx context.Context, asset, slugPrefix string, act Actuator) (*types.ResolvedMarket, error)
}
