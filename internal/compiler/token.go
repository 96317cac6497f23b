package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/foerderwerk/rulecore/internal/model"
)

var numberRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// NormalizeQuote canonicalizes an evidence quote for token matching:
// NFKC fold, lowercase, decimal comma to dot, collapsed whitespace.
// Source documents are German, so "0,24" and "0.24" must compare equal.
func NormalizeQuote(quote string) string {
	q := norm.NFKC.String(quote)
	q = strings.ToLower(q)
	q = strings.ReplaceAll(q, ",", ".")
	return strings.Join(strings.Fields(q), " ")
}

// CanonicalToken is the shortest decimal form of a threshold value.
func CanonicalToken(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// TokenPresent reports whether the threshold value appears as a numeric
// token in any evidence quote after normalization. Matching is by parsed
// value, not substring: a 0.20 threshold is not satisfied by a quote that
// only contains "0.24", and "0,20" satisfies 0.2.
func TokenPresent(value float64, evidence []model.Evidence) bool {
	for _, ev := range evidence {
		if ev.Empty() {
			continue
		}
		for _, tok := range numberRe.FindAllString(NormalizeQuote(ev.Quote), -1) {
			f, err := strconv.ParseFloat(tok, 64)
			if err == nil && f == value {
				return true
			}
		}
	}
	return false
}
