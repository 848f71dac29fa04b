package gamma

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// CandidateKind records which listing shape produced a candidate.
type CandidateKind string

const (
	KindEvent  CandidateKind = "event"
	KindMarket CandidateKind = "market"
	KindTicker CandidateKind = "ticker"
)

// Candidate is a round extracted from a listing payload, before liveness
// classification. Start and End are only meaningful when HasStart/HasEnd
// are set; a missing or unparseable timestamp stays unset.
type Candidate struct {
	Slug     string
	ID       string
	Question string
	Kind     CandidateKind
	Start    time.Time
	End      time.Time
	HasStart bool
	HasEnd   bool
}

// Span reports the scheduled duration of the round. Only valid when both
// endpoints are known.
func (c Candidate) Span() time.Duration {
	return c.End.Sub(c.Start)
}

// Field-name variants seen across Gamma payload generations. Checked in
// order; the first present and parseable one wins.
var (
	startKeys = []string{"startTime", "startDate", "startDateIso", "start_date", "start_time", "gameStartTime"}
	endKeys   = []string{"endTime", "endDate", "endDateIso", "end_date", "end_time"}

	// Some older payloads split an instant into a calendar-date field and
	// a clock-time field.
	startSplitKeys = [2]string{"startDateDay", "startTimeOfDay"}
	endSplitKeys   = [2]string{"endDateDay", "endTimeOfDay"}
)

// ExtractCandidates pulls every slug-prefix match out of one listing item.
// Three shapes are recognized: the item itself carrying a matching slug,
// a nested markets[] array whose entries carry matching slugs, and a bare
// tickers[] array of slug strings. An item matching none of them yields
// nothing.
func ExtractCandidates(item map[string]any, slugPrefix string) []Candidate {
	var out []Candidate

	itemStart, hasItemStart := instantFromItem(item, startKeys, startSplitKeys)
	itemEnd, hasItemEnd := instantFromItem(item, endKeys, endSplitKeys)

	if slug := stringField(item, "slug"); strings.HasPrefix(slug, slugPrefix) {
		out = append(out, Candidate{
			Slug:     slug,
			ID:       stringField(item, "id"),
			Question: firstStringField(item, "question", "title"),
			Kind:     KindEvent,
			Start:    itemStart,
			End:      itemEnd,
			HasStart: hasItemStart,
			HasEnd:   hasItemEnd,
		})
	}

	if markets, ok := item["markets"].([]any); ok {
		for _, raw := range markets {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			slug := stringField(m, "slug")
			if !strings.HasPrefix(slug, slugPrefix) {
				continue
			}
			start, hasStart := instantFromItem(m, startKeys, startSplitKeys)
			end, hasEnd := instantFromItem(m, endKeys, endSplitKeys)
			out = append(out, Candidate{
				Slug:     slug,
				ID:       stringField(m, "id"),
				Question: firstStringField(m, "question", "title"),
				Kind:     KindMarket,
				Start:    start,
				End:      end,
				HasStart: hasStart,
				HasEnd:   hasEnd,
			})
		}
	}

	if tickers, ok := item["tickers"].([]any); ok {
		for _, raw := range tickers {
			slug, ok := raw.(string)
			if !ok || !strings.HasPrefix(slug, slugPrefix) {
				continue
			}
			// Bare ticker strings carry no timestamps of their own; the
			// enclosing item's schedule applies to all of them.
			out = append(out, Candidate{
				Slug:     slug,
				ID:       stringField(item, "id"),
				Question: firstStringField(item, "question", "title"),
				Kind:     KindTicker,
				Start:    itemStart,
				End:      itemEnd,
				HasStart: hasItemStart,
				HasEnd:   hasItemEnd,
			})
		}
	}

	return out
}

func instantFromItem(item map[string]any, keys []string, splitKeys [2]string) (time.Time, bool) {
	for _, key := range keys {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if t, ok := ParseInstant(v); ok {
			return t, true
		}
	}
	day, dayOK := item[splitKeys[0]].(string)
	clock, clockOK := item[splitKeys[1]].(string)
	if dayOK && clockOK {
		if t, ok := parseSplitInstant(day, clock); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseInstant converts one of the timestamp encodings Gamma has shipped
// over time into a UTC instant: ISO-8601 with or without a zone marker,
// Unix epoch seconds or milliseconds as a number, or the same epoch as a
// numeric string. Anything else reports false.
func ParseInstant(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case string:
		return parseInstantString(tv)
	case float64:
		return epochToTime(tv), true
	case json.Number:
		f, err := tv.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return epochToTime(f), true
	case int64:
		return epochToTime(float64(tv)), true
	}
	return time.Time{}, false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseInstantString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// Epoch carried as a numeric string.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(f), true
	}
	return time.Time{}, false
}

func parseSplitInstant(day, clock string) (time.Time, bool) {
	combined := strings.TrimSpace(day) + "T" + strings.TrimSpace(clock)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, combined); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// epochToTime treats values past the year-33658 mark in seconds as
// millisecond epochs.
func epochToTime(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	}
	return ""
}

func firstStringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
