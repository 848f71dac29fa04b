package gamma

import (
	"context"
	"net/url"
	"strings"
	"time"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/types"
)

const (
	aggregationPath = "/crypto/15m"
	eventLinkCSS    = "a[href*='/event/']"

	// Round cards on the aggregation page carry the round length in their
	// visible text.
	roundDurationPhrase = "15m"

	uiStepTimeout = 15 * time.Second
)

// discoverViaUI reads the live aggregation page through the actuator and
// picks the first event link whose card text names the asset and the round
// length, and whose slug carries the expected prefix. The page only shows
// the current round per asset, so no liveness classification is needed;
// the trade-off is that no end timestamp is available from this level.
func (s *Service) discoverViaUI(ctx context.Context, asset, slugPrefix string, act interfaces.Actuator) *types.ResolvedMarket {
	pageURL := s.baseURL + aggregationPath
	if err := act.Navigate(ctx, pageURL); err != nil {
		logger.Warn(ctx, "UI fallback navigation failed",
			"asset", asset, "url", pageURL, "error", err.Error())
		return nil
	}
	if err := act.WaitVisible(ctx, eventLinkCSS, uiStepTimeout); err != nil {
		logger.Warn(ctx, "aggregation page rendered no event links",
			"asset", asset, "error", err.Error())
		return nil
	}
	links, err := act.Links(ctx, eventLinkCSS, uiStepTimeout)
	if err != nil {
		logger.Warn(ctx, "failed to read event links",
			"asset", asset, "error", err.Error())
		return nil
	}

	phrase := s.displayName(asset)
	for _, link := range links {
		slug, ok := matchEventLink(link, phrase, slugPrefix)
		if !ok {
			continue
		}
		logger.Info(ctx, "market resolved from aggregation page",
			"asset", asset, "slug", slug)
		market := &types.ResolvedMarket{
			Slug:   slug,
			URL:    s.marketURL(slug),
			Asset:  asset,
			Source: types.SourceUIFallback,
		}
		s.anchorTokens(ctx, market)
		return market
	}
	logger.Warn(ctx, "no matching event link on aggregation page",
		"asset", asset, "links_scanned", len(links))
	return nil
}

// matchEventLink applies the three-way card filter: asset phrase and round
// length in the visible text, slug prefix in the href.
func matchEventLink(link interfaces.Link, displayName, slugPrefix string) (string, bool) {
	text := strings.ToLower(link.Text)
	if !strings.Contains(text, strings.ToLower(displayName)) {
		return "", false
	}
	if !strings.Contains(text, strings.ToLower(roundDurationPhrase)) {
		return "", false
	}
	slug := slugFromHref(link.Href)
	if slug == "" || !strings.HasPrefix(slug, slugPrefix) {
		return "", false
	}
	return slug, true
}

func slugFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	const marker = "/event/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	slug := u.Path[idx+len(marker):]
	if cut := strings.IndexByte(slug, '/'); cut >= 0 {
		slug = slug[:cut]
	}
	return slug
}

func (s *Service) displayName(asset string) string {
	if name, ok := s.opts.DisplayNames[asset]; ok && name != "" {
		return name
	}
	return asset
}
