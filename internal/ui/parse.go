package ui

import (
	"regexp"
	"strconv"
	"strings"
)

// The round page renders the strike and the countdown in a handful of
// formats depending on viewport and rollout. Parsing is forgiving about
// surrounding text and strict about the number itself.
var (
	priceRe = regexp.MustCompile(`\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

	clockRe = regexp.MustCompile(`\b(\d{1,2}):([0-5]\d)(?::([0-5]\d))?\b`)
	hoursRe = regexp.MustCompile(`(?i)\b(\d+)\s*h(?:ours?|rs?)?\b`)
	minsRe  = regexp.MustCompile(`(?i)\b(\d+)\s*m(?:in(?:utes?)?)?\b`)
	secsRe  = regexp.MustCompile(`(?i)\b(\d+)\s*s(?:ec(?:onds?)?)?\b`)
)

// ParsePrice extracts a dollar amount from text like "Price to beat
// $43,250.50". Returns false when no number is present.
func ParsePrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCountdown extracts seconds remaining from "12:34", "1:02:03",
// "12m 34s", "58s" or "1h 2m". Returns false when no duration is present.
func ParseCountdown(text string) (int, bool) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			third, _ := strconv.Atoi(m[3])
			return first*3600 + second*60 + third, true
		}
		return first*60 + second, true
	}

	total, found := 0, false
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 3600
		found = true
	}
	if m := minsRe.FindStringSubmatch(text); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins * 60
		found = true
	}
	if m := secsRe.FindStringSubmatch(text); m != nil {
		s, _ := strconv.Atoi(m[1])
		total += s
		found = true
	}
	return total, found
}
