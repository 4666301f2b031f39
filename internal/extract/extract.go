// Package extract turns the free-text decision and score fields of a survey
// posting into typed values. Every function is pure and total: malformed
// input yields absent fields, never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Plausible ranges per score type. Values outside are unparseable for that
// field, not a hard error.
const (
	minGRE     = 130.0
	maxGRE     = 170.0
	maxWriting = 6.0
	maxGPA     = 5.0
)

// Scores holds whatever quantitative fields could be recovered from one
// free-text blob. nil means absent.
type Scores struct {
	GPA     *float64
	Quant   *float64
	Verbal  *float64
	Writing *float64
}

var firstDigit = regexp.MustCompile(`\d`)

// ExtractStatus splits a decision string like "Accepted on 2025-03-14" into
// its verbatim prefix (everything before the first digit) and the first
// date-shaped substring. Either part may be missing: "pending" yields
// ("pending", nil), an empty string yields ("", nil).
func ExtractStatus(text string) (statusType string, statusDate *time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	loc := firstDigit.FindStringIndex(text)
	if loc == nil {
		return text, nil
	}
	prefix := strings.TrimSpace(text[:loc[0]])
	return prefix, FindDate(text)
}

// Labelled singletons are the most reliable form: "Q 170", "V: 165",
// "AW=4.5", "Writing 4.0", plus the site's spelled-out labels.
var (
	reQuantLabel   = regexp.MustCompile(`(?i)\b(?:GRE\s+General|GRE\s+Q(?:uant)?|Q)\s*[:=]?\s*(\d{2,3})\b`)
	reVerbalLabel  = regexp.MustCompile(`(?i)\b(?:GRE\s+Verbal|V)\s*[:=]?\s*(\d{2,3})\b`)
	reWritingLabel = regexp.MustCompile(`(?i)\b(?:Analytical\s+Writing|AW|A\.W\.|W(?:riting)?)\s*[:=]?\s*([0-6](?:\.\d)?)\b`)
	reGPALabel     = regexp.MustCompile(`(?i)\bGPA\s*[:=]?\s*([0-5](?:\.\d{1,2})?)\b`)

	// "(Q/V/W): 170/165/4.5" and the verbal-first variant.
	reTripleQVW = regexp.MustCompile(`(?i)\(Q/V/W\)\s*[:=]?\s*(\d{2,3})\s*/\s*(\d{2,3})\s*/\s*([0-6](?:\.\d)?)`)
	reTripleVQW = regexp.MustCompile(`(?i)\(V/Q/W\)\s*[:=]?\s*(\d{2,3})\s*/\s*(\d{2,3})\s*/\s*([0-6](?:\.\d)?)`)

	// Suffix notation: "170Q/165V/4.5W".
	reQuantSuffix   = regexp.MustCompile(`(?i)(\d{2,3})\s*Q\b`)
	reVerbalSuffix  = regexp.MustCompile(`(?i)(\d{2,3})\s*V\b`)
	reWritingSuffix = regexp.MustCompile(`(?i)([0-6](?:\.\d)?)\s*(?:AW|W)\b`)
)

// ExtractScores recovers GPA and GRE subscores from free text. Recognized
// forms, in order of reliability: labelled values, the parenthesized
// slash triple, and suffix notation. The first form that yields any GRE
// field wins; GPA is looked up independently since it rides along in the
// same blobs.
func ExtractScores(text string) Scores {
	var s Scores
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return s
	}

	s.GPA = matchFloat(reGPALabel, t, 0, maxGPA)

	s.Quant = matchFloat(reQuantLabel, t, minGRE, maxGRE)
	s.Verbal = matchFloat(reVerbalLabel, t, minGRE, maxGRE)
	s.Writing = matchFloat(reWritingLabel, t, 0, maxWriting)
	if s.Quant != nil || s.Verbal != nil || s.Writing != nil {
		return s
	}

	if m := reTripleQVW.FindStringSubmatch(t); m != nil {
		s.Quant = parseInRange(m[1], minGRE, maxGRE)
		s.Verbal = parseInRange(m[2], minGRE, maxGRE)
		s.Writing = parseInRange(m[3], 0, maxWriting)
		return s
	}
	if m := reTripleVQW.FindStringSubmatch(t); m != nil {
		s.Verbal = parseInRange(m[1], minGRE, maxGRE)
		s.Quant = parseInRange(m[2], minGRE, maxGRE)
		s.Writing = parseInRange(m[3], 0, maxWriting)
		return s
	}

	s.Quant = matchFloat(reQuantSuffix, t, minGRE, maxGRE)
	s.Verbal = matchFloat(reVerbalSuffix, t, minGRE, maxGRE)
	s.Writing = matchFloat(reWritingSuffix, t, 0, maxWriting)
	return s
}

// ParseFloat converts a labelled field value to a float, nil when blank or
// non-numeric.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func matchFloat(re *regexp.Regexp, t string, lo, hi float64) *float64 {
	m := re.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	return parseInRange(m[1], lo, hi)
}

func parseInRange(s string, lo, hi float64) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < lo || f > hi {
		return nil
	}
	return &f
}
