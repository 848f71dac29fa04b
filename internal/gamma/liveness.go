package gamma

import (
	"sort"
	"time"
)

// Liveness buckets a candidate relative to the current instant.
type Liveness string

const (
	Live        Liveness = "live"
	Future      Liveness = "future"
	Past        Liveness = "past"
	UnknownTime Liveness = "unknown_time"
)

// Partition counts candidates per liveness bucket, for logging.
type Partition struct {
	Live        int
	Future      int
	Past        int
	UnknownTime int
}

// Classify places a candidate into a liveness bucket. Classification fails
// closed: a candidate whose schedule cannot be established, or whose span
// exceeds maxSpan (a round that long is a listing artifact, not a short
// round), lands in UnknownTime and is never tradeable.
func Classify(c Candidate, now time.Time, maxSpan time.Duration) Liveness {
	if !c.HasStart || !c.HasEnd {
		return UnknownTime
	}
	if c.Span() >= maxSpan {
		return UnknownTime
	}
	switch {
	case now.Before(c.Start):
		return Future
	case now.Before(c.End):
		return Live
	default:
		return Past
	}
}

// SelectLive classifies every candidate and returns the live one ending
// soonest, with ties broken by slug so repeated runs over the same data
// always agree. Returns nil when no candidate is live.
func SelectLive(candidates []Candidate, now time.Time, maxSpan time.Duration) (*Candidate, Partition) {
	var part Partition
	var live []Candidate
	for _, c := range candidates {
		switch Classify(c, now, maxSpan) {
		case Live:
			part.Live++
			live = append(live, c)
		case Future:
			part.Future++
		case Past:
			part.Past++
		case UnknownTime:
			part.UnknownTime++
		}
	}
	if len(live) == 0 {
		return nil, part
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].End.Equal(live[j].End) {
			return live[i].End.Before(live[j].End)
		}
		return live[i].Slug < live[j].Slug
	})
	pick := live[0]
	return &pick, part
}
