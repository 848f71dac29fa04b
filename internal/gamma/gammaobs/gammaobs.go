package gammaobs

import (
	"context"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/trace"
	"polymarket-updown-bot/internal/types"
)

// observableDiscoverer wraps a Discoverer with observability (logging & tracing)
type observableDiscoverer struct {
	discoverer interfaces.Discoverer
}

// Compile-time interface check
var _ interfaces.Discoverer = (*observableDiscoverer)(nil)

// Wrap wraps a discoverer with observability middleware
func Wrap(discoverer interfaces.Discoverer) interfaces.Discoverer {
	return &observableDiscoverer{
		discoverer: discoverer,
	}
}

// Discover resolves the live market with observability
func (od *observableDiscoverer) Discover(ctx context.Context, asset, slugPrefix string, act interfaces.Actuator) (*types.ResolvedMarket, error) {
	ctx, span := trace.StartSpan(ctx, "gamma.Discover")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Resolving live market", "asset", asset, "slug_prefix", slugPrefix)

	market, err := od.discoverer.Discover(ctx, asset, slugPrefix, act)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market discovery failed", err, "asset", asset)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Live market resolved",
		"asset", asset,
		"slug", market.Slug,
		"source", string(market.Source),
		"tokens_verified", market.TokensVerified,
	)
	return market, nil
}
