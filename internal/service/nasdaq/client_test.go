package nasdaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const nasdaqListed = `Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares
AAPL|Apple Inc. - Common Stock|Q|N|N|100|N|N
TSLA|Tesla, Inc. - Common Stock|Q|N|N|100|N|N
ZAZZT|Tick Pilot Test Stock|G|Y|N|100|N|N
File Creation Time: 0310202521:30|||||||
`

const otherListed = `ACT Symbol|Security Name|Exchange|CUSIP|ETF|Round Lot Size|Test Issue|NASDAQ Symbol
TSLL|Direxion Daily TSLA Bull 2X Shares|P|25461A101|Y|100|N|TSLL
ATEST|NYSE Test Issue|N||N|100|Y|ATEST
File Creation Time: 0310202521:30|||||||
`

func TestParseDirectoryNasdaqListed(t *testing.T) {
	tickers, err := ParseDirectory(nasdaqListed, "NASDAQ")
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2 (test issue skipped)", len(tickers))
	}
	if tickers[0].Symbol != "AAPL" || tickers[0].Exchange != "NASDAQ" {
		t.Fatalf("first ticker = %+v", tickers[0])
	}
	if tickers[1].Name != "Tesla, Inc. - Common Stock" {
		t.Fatalf("name = %q", tickers[1].Name)
	}
}

func TestParseDirectoryOtherListed(t *testing.T) {
	tickers, err := ParseDirectory(otherListed, "")
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	if len(tickers) != 1 {
		t.Fatalf("got %d tickers, want 1", len(tickers))
	}
	if tickers[0].Symbol != "TSLL" || tickers[0].Exchange != "P" {
		t.Fatalf("ticker = %+v", tickers[0])
	}
}

func TestParseDirectoryBadHeader(t *testing.T) {
	if _, err := ParseDirectory("Foo|Bar\nA|B\n", ""); err == nil {
		t.Fatalf("expected error on unrecognized header")
	}
}

func TestLoadUniverseMergesDirectories(t *testing.T) {
	listed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(nasdaqListed))
	}))
	defer listed.Close()
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(otherListed))
	}))
	defer other.Close()

	c := NewClient(WithListingURLs(listed.URL, other.URL))
	u, err := c.LoadUniverse(context.Background())
	if err != nil {
		t.Fatalf("LoadUniverse: %v", err)
	}
	if u.Len() != 3 {
		t.Fatalf("universe size = %d, want 3", u.Len())
	}
	if _, ok := u.Lookup("TSLL"); !ok {
		t.Fatalf("TSLL missing from merged universe")
	}
	if _, ok := u.Lookup("ZAZZT"); ok {
		t.Fatalf("test issue leaked into universe")
	}
}

func TestPricedIPOs(t *testing.T) {
	var gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("date")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"priced":{"rows":[
			{"proposedTickerSymbol":"rddt","companyName":"Reddit, Inc.","pricedDate":"03/21/2024"},
			{"proposedTickerSymbol":"","companyName":"No Symbol Corp","pricedDate":"03/05/2024"},
			{"proposedTickerSymbol":"BAD","companyName":"Bad Date Inc","pricedDate":"not-a-date"}
		]}}}`))
	}))
	defer srv.Close()

	c := NewClient(WithCalendarURL(srv.URL), WithRequestDelay(time.Millisecond))
	listings, err := c.PricedIPOs(context.Background(), 2024, time.March)
	if err != nil {
		t.Fatalf("PricedIPOs: %v", err)
	}
	if gotDate != "2024-03" {
		t.Fatalf("date param = %q, want 2024-03", gotDate)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	l := listings[0]
	if l.Symbol != "RDDT" || l.Name != "Reddit, Inc." {
		t.Fatalf("listing = %+v", l)
	}
	if !l.Priced.Equal(time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("priced date = %v", l.Priced)
	}
}
