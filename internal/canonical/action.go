package canonical

import (
	"regexp"
	"strings"
)

const (
	ActionBuy       = "buy"
	ActionSell      = "sell"
	ActionExchange  = "exchange"
	ActionExercise  = "exercise"
	ActionVote      = "vote"
	ActionStatement = "statement"
	ActionPrice     = "price"
	ActionOther     = "other"
)

var buyKeywords = []string{"buy", "purchase", "bought", "acquire", "acquisition", "acquired"}

var sellKeywords = []string{"sell", "sale", "sold", "dispose", "disposition", "disposed"}

// excludeTokens mark income/liability rows that sit in the same filing
// tables as trades but are not trades.
var excludeTokens = []string{
	"salary", "wages", "honoraria", "consulting fee", "director fee",
	"pension", "social security", "retirement", "401k",
	"mortgage", "loan", "credit", "liability", "debt",
	"rent", "rental income", "royalty", "book advance",
	"speaking fee", "teaching", "spouse salary",
}

// CanonicalAction maps a free-form transaction action ("Sale (Partial)",
// "Purchase", "Exchanged") onto the canonical enum.
func CanonicalAction(raw string) string {
	text := strings.ToLower(NormalizeText(raw))
	if text == "" {
		return ActionOther
	}
	for _, kw := range buyKeywords {
		if strings.Contains(text, kw) {
			return ActionBuy
		}
	}
	for _, kw := range sellKeywords {
		if strings.Contains(text, kw) {
			return ActionSell
		}
	}
	if strings.Contains(text, "exchange") {
		return ActionExchange
	}
	if strings.Contains(text, "exercis") || strings.Contains(text, "assignment") {
		return ActionExercise
	}
	return ActionOther
}

var excludeWordRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(excludeTokens))
	for _, token := range excludeTokens {
		if !strings.Contains(token, " ") {
			res = append(res, regexp.MustCompile(`\b`+regexp.QuoteMeta(token)+`\b`))
		}
	}
	return res
}()

// HasExcludedToken reports whether any row value marks a non-trade line
// item. Multi-word tokens match as substrings, single words on boundaries.
func HasExcludedToken(values []string) bool {
	blob := strings.ToLower(strings.Join(values, " "))
	for _, token := range excludeTokens {
		if strings.Contains(token, " ") && strings.Contains(blob, token) {
			return true
		}
	}
	for _, re := range excludeWordRes {
		if re.MatchString(blob) {
			return true
		}
	}
	return false
}
