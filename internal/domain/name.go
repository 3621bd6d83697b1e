package domain

import (
	"regexp"
	"strings"
)

// Canonicalization rules, applied in order. Incident names mix agency
// prefixes ("ca-lnu-"), radio suffixes ("-n04b"), highway abbreviations, and
// zero-padded numbers; the rules reduce all of those to a comparable token
// form.
var (
	// agencyPrefixRe strips a leading dash-joined agency prefix, e.g.
	// "ca-lnu-kincade" -> "kincade".
	agencyPrefixRe = regexp.MustCompile(`^[a-z]{2}-[a-z]{3}-`)

	// unitSuffixRe strips a trailing dispatch unit suffix, e.g.
	// "walbridge-n13a" -> "walbridge".
	unitSuffixRe = regexp.MustCompile(`-n\d{2}[a-z]$`)

	parensRe      = regexp.MustCompile(`[()]`)
	dashRe        = regexp.MustCompile(`-`)
	letterDigitRe = regexp.MustCompile(`([a-zA-Z])(\d)`)
	leadingZeroRe = regexp.MustCompile(`\b0+(\d+)\b`)
	prescribedRe  = regexp.MustCompile(`\b(prescribed fire|prescribed burn)\b`)
	highwayRe     = regexp.MustCompile(`\bhwy\b`)
	trailingFire  = regexp.MustCompile(`\s+fire$`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Canonicalize normalizes a free-text incident name into comparable token
// form. It is deterministic, pure, and total: empty input yields "".
// Applying it twice yields the same result as applying it once.
func Canonicalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}

	name = agencyPrefixRe.ReplaceAllString(name, "")
	name = unitSuffixRe.ReplaceAllString(name, "")
	name = parensRe.ReplaceAllString(name, "")
	name = dashRe.ReplaceAllString(name, " ")
	name = letterDigitRe.ReplaceAllString(name, "$1 $2")
	name = leadingZeroRe.ReplaceAllString(name, "$1")
	name = prescribedRe.ReplaceAllString(name, "rx")
	name = highwayRe.ReplaceAllString(name, "highway")
	name = trailingFire.ReplaceAllString(name, "")
	name = whitespaceRe.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}

// NameSimilarity computes the Jaccard index of the canonicalized token sets
// of two names: |A∩B| / |A∪B|. Returns 0 when either set is empty.
func NameSimilarity(a, b string) float64 {
	tokensA := strings.Fields(Canonicalize(a))
	tokensB := strings.Fields(Canonicalize(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
