package extract

import (
	"regexp"
	"strings"
	"time"
)

// Layouts the source renders dates in. Slash dates are month/day/year,
// matching how the site formats decision notifications.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
}

// ParseDate parses a whole string as a calendar date, trying each known
// layout. Returns nil when no layout matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// One alternation so the regexp engine yields candidates strictly left to
// right; at equal positions ISO is tried before slash before textual month.
var dateShaped = regexp.MustCompile(
	`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|[A-Za-z]+\s+\d{1,2},\s*\d{4})\b`,
)

// FindDate returns the first date-shaped substring of s that parses,
// scanning left to right. Candidates that look like dates but do not parse
// (e.g. "Foobar 12, 2025") are skipped, not errors.
func FindDate(s string) *time.Time {
	for _, m := range dateShaped.FindAllString(s, -1) {
		if t := ParseDate(m); t != nil {
			return t
		}
	}
	return nil
}
