package canonical

import (
	"regexp"
	"strings"
	"time"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	assetRe      = regexp.MustCompile(`^(?P<name>.+?)\s*\((?P<ticker>[A-Z.\-]{1,10})\)\s*(?:\[[A-Z]{2,3}\])?$`)
	tickerRe     = regexp.MustCompile(`[^A-Z0-9.\-]`)
	dateFallback = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})`)

	textReplacer = strings.NewReplacer(
		" ", " ", // non-breaking space
		"–", "-", // en dash
		"—", "-", // em dash
	)
)

var dateFormats = []string{
	"01/02/2006",
	"01/02/06",
	"01-02-2006",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeText collapses whitespace and the unicode punctuation variants
// disclosure documents are full of.
func NormalizeText(value string) string {
	text := textReplacer.Replace(value)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParseDate tries the disclosure date formats in order, then falls back to
// a loose M/D/Y scan. Returns zero time when nothing matches.
func ParseDate(value string) (time.Time, bool) {
	text := NormalizeText(value)
	if text == "" {
		return time.Time{}, false
	}
	for _, fmtStr := range dateFormats {
		if t, err := time.Parse(fmtStr, text); err == nil {
			return t.UTC(), true
		}
	}
	if m := dateFallback.FindStringSubmatch(text); m != nil {
		month, day, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Year() == year && int(t.Month()) == month && t.Day() == day {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeTicker uppercases and strips punctuation artefacts from a
// ticker symbol.
func NormalizeTicker(value string) string {
	text := strings.ToUpper(NormalizeText(value))
	return tickerRe.ReplaceAllString(text, "")
}

// ParseAsset splits a filing asset field like "Apple Inc. (AAPL) [ST]"
// into company name and ticker. When no ticker is present the whole field
// is returned as name.
func ParseAsset(field string) (name, ticker string) {
	s := NormalizeText(field)
	if s == "" {
		return "", ""
	}
	if m := assetRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return s, ""
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
