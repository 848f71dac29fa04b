package interfaces

import (
	"context"

	"polymarket-updown-bot/internal/types"
)

// RoundPage is the open round's trading surface. Preparation and execution
// are split so a human confirmation can sit between them.
type RoundPage interface {
	Open(ctx context.Context, url string) error
	ReadPriceToBeat(ctx context.Context) (float64, error)
	ReadCountdown(ctx context.Context) (int, error)
	PrepareTrade(ctx context.Context, dir types.Direction, stakeUSD float64) error
	ExecuteTrade(ctx context.Context) error
}
