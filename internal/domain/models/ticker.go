package models

import "strings"

// Ticker is one listed security. Identity is the symbol.
type Ticker struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Universe is a read-only snapshot of all known tickers for one run.
type Universe struct {
	tickers []Ticker
	bySym   map[string]int
}

// NewUniverse builds a snapshot. Symbols are uppercased; duplicates keep
// the first occurrence.
func NewUniverse(tickers []Ticker) *Universe {
	u := &Universe{
		tickers: make([]Ticker, 0, len(tickers)),
		bySym:   make(map[string]int, len(tickers)),
	}
	for _, t := range tickers {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if sym == "" {
			continue
		}
		if _, ok := u.bySym[sym]; ok {
			continue
		}
		t.Symbol = sym
		u.bySym[sym] = len(u.tickers)
		u.tickers = append(u.tickers, t)
	}
	return u
}

// Tickers returns the snapshot contents. Callers must not mutate.
func (u *Universe) Tickers() []Ticker { return u.tickers }

// Lookup returns the ticker for a symbol.
func (u *Universe) Lookup(symbol string) (Ticker, bool) {
	i, ok := u.bySym[strings.ToUpper(symbol)]
	if !ok {
		return Ticker{}, false
	}
	return u.tickers[i], true
}

// Len returns the universe size.
func (u *Universe) Len() int { return len(u.tickers) }

// CandidatePair links a high-volume target ticker to a confusable
// candidate within the configured edit distance.
type CandidatePair struct {
	Target            Ticker `json:"target"`
	Candidate         Ticker `json:"candidate"`
	Distance          int    `json:"distance"`
	KeyboardProximate bool   `json:"keyboard_proximate"`
	Excluded          bool   `json:"excluded"`
	ExclusionReason   string `json:"exclusion_reason,omitempty"`
}

// Key returns a stable identifier for the pair.
func (p CandidatePair) Key() string {
	return p.Target.Symbol + ":" + p.Candidate.Symbol
}
