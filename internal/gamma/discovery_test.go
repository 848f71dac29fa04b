package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/types"
)

var discoveryNow = time.Date(2026, 8, 31, 11, 37, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		PageSize:      200,
		MaxPages:      5,
		MaxCandidates: 500,
		MaxRoundSpan:  24 * time.Hour,
		DisplayNames:  map[string]string{"btc": "Bitcoin"},
	}
}

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL+"/events", srv.URL+"/markets", 5*time.Second)
	svc := NewService(client, "https://polymarket.example", testOptions())
	svc.now = func() time.Time { return discoveryNow }
	return svc, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func liveEventItem(slug string) map[string]any {
	return map[string]any{
		"id":        "42",
		"slug":      slug,
		"question":  "Bitcoin Up or Down?",
		"startDate": discoveryNow.Add(-7 * time.Minute).Format(time.RFC3339),
		"endDate":   discoveryNow.Add(8 * time.Minute).Format(time.RFC3339),
	}
}

func marketDetail() map[string]any {
	return map[string]any{
		"conditionId":  "0xcond",
		"outcomes":     `["Up","Down"]`,
		"clobTokenIds": `["101","202"]`,
	}
}

func TestDiscoverViaEventsListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			writeJSON(t, w, []map[string]any{})
			return
		}
		writeJSON(t, w, []map[string]any{
			{"slug": "us-election-winner"},
			liveEventItem("btc-updown-15m-1130"),
		})
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "btc-updown-15m-1130" {
			writeJSON(t, w, []map[string]any{marketDetail()})
			return
		}
		writeJSON(t, w, []map[string]any{})
	})

	svc, _ := newTestService(t, mux)
	market, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if market.Source != types.SourceEventsPrimary {
		t.Errorf("expected events source, got %s", market.Source)
	}
	if market.Slug != "btc-updown-15m-1130" {
		t.Errorf("unexpected slug: %s", market.Slug)
	}
	if market.URL != "https://polymarket.example/event/btc-updown-15m-1130" {
		t.Errorf("unexpected URL: %s", market.URL)
	}
	if !market.TokensVerified {
		t.Error("expected tokens anchored from detail payload")
	}
	if market.TokenIDs[types.DirectionUp] != "101" {
		t.Errorf("unexpected UP token: %s", market.TokenIDs[types.DirectionUp])
	}
	if market.End.IsZero() {
		t.Error("expected end timestamp carried from listing")
	}
}

func TestDiscoverPaginationStopsOnEmptyPage(t *testing.T) {
	var eventPages int
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		eventPages++
		switch r.URL.Query().Get("offset") {
		case "0":
			// A full page of irrelevant markets keeps the walk going.
			page := make([]map[string]any, 0, 3)
			for _, slug := range []string{"nfl-a", "nba-b", "weather-c"} {
				page = append(page, map[string]any{"slug": slug})
			}
			writeJSON(t, w, page)
		default:
			writeJSON(t, w, []map[string]any{})
		}
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{})
	})

	svc, _ := newTestService(t, mux)
	_, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if eventPages != 2 {
		t.Errorf("expected walk to stop after the first empty page, fetched %d pages", eventPages)
	}
}

func TestCandidateCapCountsExtracted(t *testing.T) {
	// Pages of irrelevant items extract nothing, so a cap of one candidate
	// must keep the walk going until a matching item actually appears.
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			writeJSON(t, w, []map[string]any{{"slug": "nfl-a"}})
		case "1":
			writeJSON(t, w, []map[string]any{liveEventItem("btc-updown-15m-1130")})
		default:
			writeJSON(t, w, []map[string]any{})
		}
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") != "" {
			writeJSON(t, w, []map[string]any{marketDetail()})
			return
		}
		writeJSON(t, w, []map[string]any{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL+"/events", srv.URL+"/markets", 5*time.Second)
	opts := testOptions()
	opts.PageSize = 1
	opts.MaxCandidates = 1
	svc := NewService(client, "https://polymarket.example", opts)
	svc.now = func() time.Time { return discoveryNow }

	market, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if market.Slug != "btc-updown-15m-1130" {
		t.Errorf("unexpected slug: %s", market.Slug)
	}
}

func TestDiscoverFallsBackToLegacyMarkets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		if slug := r.URL.Query().Get("slug"); slug != "" {
			writeJSON(t, w, []map[string]any{marketDetail()})
			return
		}
		if r.URL.Query().Get("offset") != "0" {
			writeJSON(t, w, []map[string]any{})
			return
		}
		writeJSON(t, w, []map[string]any{liveEventItem("btc-updown-15m-1130")})
	})

	svc, _ := newTestService(t, mux)
	market, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if market.Source != types.SourceLegacyMarkets {
		t.Errorf("expected legacy markets source, got %s", market.Source)
	}
}

func TestDiscoverExhaustedIsExplicit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{})
	})

	svc, _ := newTestService(t, mux)
	market, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if market != nil {
		t.Fatalf("expected no market, got %s", market.Slug)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestDiscoverIsIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			writeJSON(t, w, []map[string]any{})
			return
		}
		writeJSON(t, w, []map[string]any{
			liveEventItem("btc-updown-15m-1130"),
			liveEventItem("btc-updown-15m-1130"),
		})
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{marketDetail()})
	})

	svc, _ := newTestService(t, mux)
	first, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if err != nil {
		t.Fatalf("first Discover failed: %v", err)
	}
	second, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", nil)
	if err != nil {
		t.Fatalf("second Discover failed: %v", err)
	}
	if first.Slug != second.Slug {
		t.Errorf("re-resolution changed the pick: %s vs %s", first.Slug, second.Slug)
	}
}

// fakeActuator serves a canned set of links for UI-fallback tests.
type fakeActuator struct {
	links     []interfaces.Link
	navigated string
}

func (f *fakeActuator) Navigate(ctx context.Context, url string) error { f.navigated = url; return nil }
func (f *fakeActuator) ReadText(ctx context.Context, sel string, timeout time.Duration) (string, error) {
	return "", nil
}
func (f *fakeActuator) Click(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}
func (f *fakeActuator) Fill(ctx context.Context, sel, value string, timeout time.Duration) error {
	return nil
}
func (f *fakeActuator) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}
func (f *fakeActuator) Links(ctx context.Context, sel string, timeout time.Duration) ([]interfaces.Link, error) {
	return f.links, nil
}
func (f *fakeActuator) Close(ctx context.Context) error { return nil }

func TestDiscoverUIFallbackBeforeLegacy(t *testing.T) {
	var legacyListingHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		if slug := r.URL.Query().Get("slug"); slug != "" {
			writeJSON(t, w, []map[string]any{marketDetail()})
			return
		}
		legacyListingHit = true
		writeJSON(t, w, []map[string]any{})
	})

	svc, _ := newTestService(t, mux)
	act := &fakeActuator{links: []interfaces.Link{
		{Text: "Ethereum Up or Down 15m", Href: "/event/eth-updown-15m-1130"},
		{Text: "Bitcoin Up or Down 15m", Href: "/event/btc-updown-15m-1130"},
	}}

	market, err := svc.Discover(context.Background(), "btc", "btc-updown-15m", act)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if market.Source != types.SourceUIFallback {
		t.Errorf("expected UI fallback source, got %s", market.Source)
	}
	if market.Slug != "btc-updown-15m-1130" {
		t.Errorf("unexpected slug: %s", market.Slug)
	}
	if !market.End.IsZero() {
		t.Error("UI fallback carries no end timestamp")
	}
	if act.navigated != "https://polymarket.example/crypto/15m" {
		t.Errorf("unexpected aggregation URL: %s", act.navigated)
	}
	if legacyListingHit {
		t.Error("legacy listing should not be consulted after UI success")
	}
}

func TestMatchEventLink(t *testing.T) {
	cases := []struct {
		name     string
		link     interfaces.Link
		wantSlug string
		wantOK   bool
	}{
		{
			"full match",
			interfaces.Link{Text: "Bitcoin Up or Down 15m", Href: "https://polymarket.example/event/btc-updown-15m-1130"},
			"btc-updown-15m-1130", true,
		},
		{
			"relative href",
			interfaces.Link{Text: "bitcoin 15m round", Href: "/event/btc-updown-15m-1145?tid=99"},
			"btc-updown-15m-1145", true,
		},
		{
			"wrong asset",
			interfaces.Link{Text: "Ethereum Up or Down 15m", Href: "/event/eth-updown-15m-1130"},
			"", false,
		},
		{
			"missing duration phrase",
			interfaces.Link{Text: "Bitcoin Up or Down", Href: "/event/btc-updown-15m-1130"},
			"", false,
		},
		{
			"slug prefix mismatch",
			interfaces.Link{Text: "Bitcoin 15m", Href: "/event/bitcoin-above-100k"},
			"", false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slug, ok := matchEventLink(tc.link, "Bitcoin", "btc-updown-15m")
			if ok != tc.wantOK || slug != tc.wantSlug {
				t.Errorf("got (%q, %v), want (%q, %v)", slug, ok, tc.wantSlug, tc.wantOK)
			}
		})
	}
}
