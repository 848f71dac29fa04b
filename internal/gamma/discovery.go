package gamma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/types"
)

// ErrExhausted is returned when every discovery level came up empty.
var ErrExhausted = errors.New("no live market found at any discovery level")

// Options bound the listing walk.
type Options struct {
	PageSize      int
	MaxPages      int
	MaxCandidates int
	MaxRoundSpan  time.Duration

	// DisplayNames maps asset symbols to the phrase shown on round cards,
	// used by the UI fallback.
	DisplayNames map[string]string
}

// Service resolves the currently-live round for one asset. Levels are tried
// in order: the events listing, the aggregation page in the browser, the
// legacy markets listing. A level's transport failure means "this level
// produced nothing", never a hard stop; only exhausting all three is an
// error.
type Service struct {
	client  *Client
	baseURL string
	opts    Options
	now     func() time.Time
}

// NewService creates a discovery service. baseURL is the web origin used to
// build market URLs and to reach the aggregation page.
func NewService(client *Client, baseURL string, opts Options) *Service {
	return &Service{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		now:     time.Now,
	}
}

// Discover runs the full three-level protocol. The actuator is optional;
// without one the UI fallback is skipped. Calling Discover again while the
// same round is live resolves the same slug.
func (s *Service) Discover(ctx context.Context, asset, slugPrefix string, act interfaces.Actuator) (*types.ResolvedMarket, error) {
	timer := logger.StartOperation(ctx, "market_discovery", "asset", asset, "slug_prefix", slugPrefix)
	ctx = timer.GetContext()

	if market := s.discoverViaEvents(ctx, asset, slugPrefix); market != nil {
		timer.End("source", string(market.Source), "slug", market.Slug)
		return market, nil
	}
	if act != nil {
		if market := s.discoverViaUI(ctx, asset, slugPrefix, act); market != nil {
			timer.End("source", string(market.Source), "slug", market.Slug)
			return market, nil
		}
	} else {
		logger.Debug(ctx, "no actuator available, skipping UI fallback", "asset", asset)
	}
	if market := s.discoverViaLegacyMarkets(ctx, asset, slugPrefix); market != nil {
		timer.End("source", string(market.Source), "slug", market.Slug)
		return market, nil
	}

	err := fmt.Errorf("%w: asset=%s prefix=%s", ErrExhausted, asset, slugPrefix)
	timer.EndWithError(err)
	return nil, err
}

// discoverViaEvents walks the events listing newest-first and selects the
// live round ending soonest.
func (s *Service) discoverViaEvents(ctx context.Context, asset, slugPrefix string) *types.ResolvedMarket {
	candidates, err := s.collectCandidates(ctx, slugPrefix, s.client.EventsPage)
	if err != nil {
		logger.Warn(ctx, "events listing unavailable, falling through",
			"asset", asset, "error", err.Error())
	}
	return s.selectAndResolve(ctx, asset, candidates, types.SourceEventsPrimary)
}

func (s *Service) discoverViaLegacyMarkets(ctx context.Context, asset, slugPrefix string) *types.ResolvedMarket {
	candidates, err := s.collectCandidates(ctx, slugPrefix, s.client.MarketsPage)
	if err != nil {
		logger.Warn(ctx, "legacy markets listing unavailable",
			"asset", asset, "error", err.Error())
	}
	return s.selectAndResolve(ctx, asset, candidates, types.SourceLegacyMarkets)
}

// collectCandidates paginates one listing endpoint until an empty page, the
// page cap, or the candidate cap. A failed first page surfaces the error;
// a failure mid-walk keeps whatever was already collected.
func (s *Service) collectCandidates(ctx context.Context, slugPrefix string,
	fetch func(ctx context.Context, limit, offset int) ([]map[string]any, error)) ([]Candidate, error) {

	var candidates []Candidate
	for page := 0; page < s.opts.MaxPages; page++ {
		items, err := fetch(ctx, s.opts.PageSize, page*s.opts.PageSize)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			logger.Warn(ctx, "listing page fetch failed, stopping walk",
				"page", page, "error", err.Error())
			break
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			candidates = append(candidates, ExtractCandidates(item, slugPrefix)...)
		}
		if len(candidates) >= s.opts.MaxCandidates {
			logger.Debug(ctx, "candidate cap reached", "candidates", len(candidates))
			break
		}
	}
	return candidates, nil
}

func (s *Service) selectAndResolve(ctx context.Context, asset string, candidates []Candidate, source types.DiscoverySource) *types.ResolvedMarket {
	if len(candidates) == 0 {
		return nil
	}
	pick, part := SelectLive(candidates, s.now(), s.opts.MaxRoundSpan)
	logger.Info(ctx, "candidates classified",
		"asset", asset,
		"source", string(source),
		"total", len(candidates),
		"live", part.Live,
		"future", part.Future,
		"past", part.Past,
		"unknown_time", part.UnknownTime)
	if pick == nil {
		return nil
	}

	market := &types.ResolvedMarket{
		Slug:   pick.Slug,
		URL:    s.marketURL(pick.Slug),
		Asset:  asset,
		Source: source,
		End:    pick.End,
	}
	s.anchorTokens(ctx, market)
	return market
}

// anchorTokens fetches the detail record for the resolved slug and attaches
// token ids. Best-effort: any failure leaves the market unverified.
func (s *Service) anchorTokens(ctx context.Context, market *types.ResolvedMarket) {
	detail, err := s.client.MarketBySlug(ctx, market.Slug)
	if err != nil {
		logger.Warn(ctx, "token anchoring failed, proceeding unverified",
			"slug", market.Slug, "error", err.Error())
		return
	}
	anchor, ok := ResolveTokens(detail)
	if !ok {
		logger.Warn(ctx, "no token shape matched in market detail, proceeding unverified",
			"slug", market.Slug)
		return
	}
	market.TokenIDs = anchor.TokenIDs
	market.ConditionID = anchor.ConditionID
	market.TokensVerified = anchor.Verified
	logger.Debug(ctx, "tokens anchored",
		"slug", market.Slug,
		"verified", anchor.Verified,
		"condition_id", anchor.ConditionID)
}

func (s *Service) marketURL(slug string) string {
	return s.baseURL + "/event/" + slug
}
