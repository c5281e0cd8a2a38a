package matching

import (
	"regexp"
	"strings"

	"TypoTrade/internal/domain/models"
)

// Exclusion reasons attached to CandidatePair.
const (
	ReasonNameReference = "candidate name references target"
	ReasonFundFamily    = "fund/trust family with shared prefix"
	ReasonShareClass    = "share class variant"
)

// fundKeywords flag products that track an underlying asset under a
// near-identical symbol (ETHA tracking ether vs the ETH stock, and so on).
var fundKeywords = []string{
	"BITCOIN", "ETHER", "ETHEREUM", "CRYPTO", "TRUST", "ETF", "FUND", "SHARES",
	"BULL", "BEAR", "INVERSE", "LEVERAGED", "2X", "3X",
}

// shareClassSuffixes are single trailing characters that denote a share
// class or unit of the same issuer.
const shareClassSuffixes = "ABCKUWR"

// IntentionalFilter classifies whether a pair's similarity is structural
// (a legitimately related product) rather than a plausible typo. It is
// conservative: false negatives leave noise in the candidate set, false
// positives silently drop real typo risk, so ambiguity resolves to "keep".
type IntentionalFilter struct {
	wordRe map[string]*regexp.Regexp
}

func NewIntentionalFilter() *IntentionalFilter {
	return &IntentionalFilter{wordRe: make(map[string]*regexp.Regexp)}
}

// Classify returns whether the candidate is intentionally related to the
// target and, if so, why.
func (f *IntentionalFilter) Classify(target, candidate models.Ticker) (bool, string) {
	targetSym := strings.ToUpper(target.Symbol)
	candSym := strings.ToUpper(candidate.Symbol)
	candName := strings.ToUpper(candidate.Name)

	// Leveraged/inverse twins and trackers carry the target's symbol in
	// their security name. Short symbols need a whole-word match so that
	// "M" inside "MGM" does not trigger.
	if len(targetSym) > 3 {
		if strings.Contains(candName, targetSym) {
			return true, ReasonNameReference
		}
	} else if targetSym != "" && f.wordMatch(targetSym, candName) {
		return true, ReasonNameReference
	}

	// Fund/trust products whose symbol starts like the target's are a
	// product relation, not a typo.
	if len(targetSym) >= 2 && len(candSym) >= 2 && targetSym[:2] == candSym[:2] {
		for _, kw := range fundKeywords {
			if f.wordMatch(kw, candName) {
				return true, ReasonFundFamily
			}
		}
	}

	// Same root with one trailing share-class character.
	if isShareClassVariant(targetSym, candSym) {
		return true, ReasonShareClass
	}

	return false, ""
}

func (f *IntentionalFilter) wordMatch(word, text string) bool {
	re, ok := f.wordRe[word]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
		f.wordRe[word] = re
	}
	return re.MatchString(text)
}

func isShareClassVariant(a, b string) bool {
	if len(a) == len(b) {
		return false
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(long)-len(short) != 1 || len(short) < 3 {
		return false
	}
	if !strings.HasPrefix(long, short) {
		return false
	}
	return strings.ContainsRune(shareClassSuffixes, rune(long[len(long)-1]))
}
