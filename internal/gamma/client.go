package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the Gamma listing and detail endpoints. All calls are
// synchronous with a fixed per-request timeout; transport failures are
// reported to the caller, which downgrades them to "this source produced
// nothing".
type Client struct {
	eventsURL  string
	marketsURL string
	httpClient *http.Client
	headers    map[string]string
}

// NewClient creates a Gamma API client.
func NewClient(eventsURL, marketsURL string, timeout time.Duration) *Client {
	return &Client{
		eventsURL:  eventsURL,
		marketsURL: marketsURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Accept":     "application/json",
		},
	}
}

// EventsPage fetches one page of the active-events listing, ordered
// newest-first by id.
func (c *Client) EventsPage(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "id")
	q.Set("ascending", "false")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	data, err := c.makeRequest(ctx, c.eventsURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events page: %w", err)
	}
	return decodeListing(data)
}

// MarketsPage fetches one page of the legacy markets listing. Same query
// surface as the events endpoint.
func (c *Client) MarketsPage(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "id")
	q.Set("ascending", "false")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	data, err := c.makeRequest(ctx, c.marketsURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets page: %w", err)
	}
	return decodeListing(data)
}

// MarketBySlug fetches the detail record for one market slug. The endpoint
// answers with a one-element array for slug queries.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (map[string]any, error) {
	q := url.Values{}
	q.Set("slug", slug)

	data, err := c.makeRequest(ctx, c.marketsURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market detail for %s: %w", slug, err)
	}

	// Detail responses come back either as a bare object or a list.
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj, nil
	}
	items, err := decodeListing(data)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no market found for slug %s", slug)
	}
	return items[0], nil
}

func (c *Client) makeRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamma API returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func decodeListing(data []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unexpected listing payload shape: %w", err)
	}
	return items, nil
}
