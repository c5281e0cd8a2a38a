package nasdaq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TypoTrade/internal/domain/models"
	"TypoTrade/internal/domain/repository"
	"TypoTrade/internal/service/ratelimit"
	xhttp "TypoTrade/pkg/http"
)

const (
	DefaultListingURL      = "https://www.nasdaqtrader.com/dynamic/symdir/nasdaqlisted.txt"
	DefaultOtherListingURL = "https://www.nasdaqtrader.com/dynamic/symdir/otherlisted.txt"
	DefaultCalendarURL     = "https://api.nasdaq.com/api/ipo/calendar"
	DefaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client fetches the listed-symbol directory files and the IPO calendar.
// Calendar requests are throttled through a token bucket so monthly
// back-scans stay polite.
type Client struct {
	http            *xhttp.Client
	limiter         *ratelimit.Limiter
	listingURL      string
	otherListingURL string
	calendarURL     string
	userAgent       string
	requestDelay    time.Duration
}

// NewClient creates a NASDAQ directory and calendar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:            xhttp.NewClient(),
		limiter:         ratelimit.New(),
		listingURL:      DefaultListingURL,
		otherListingURL: DefaultOtherListingURL,
		calendarURL:     DefaultCalendarURL,
		userAgent:       DefaultUserAgent,
		requestDelay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithListingURLs overrides the symbol directory file URLs.
func WithListingURLs(listed, other string) ClientOption {
	return func(c *Client) {
		c.listingURL = listed
		c.otherListingURL = other
	}
}

// WithCalendarURL overrides the IPO calendar endpoint.
func WithCalendarURL(u string) ClientOption {
	return func(c *Client) { c.calendarURL = u }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithRequestDelay sets the minimum spacing between calendar requests.
func WithRequestDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.requestDelay = d
		}
	}
}

// LoadUniverse downloads both directory files and merges them into a
// single symbol universe. Test issues are skipped.
func (c *Client) LoadUniverse(ctx context.Context) (*models.Universe, error) {
	var tickers []models.Ticker

	listed, err := c.fetchDirectory(ctx, c.listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch nasdaq listing: %w", err)
	}
	parsed, err := ParseDirectory(listed, "NASDAQ")
	if err != nil {
		return nil, fmt.Errorf("parse nasdaq listing: %w", err)
	}
	tickers = append(tickers, parsed...)

	other, err := c.fetchDirectory(ctx, c.otherListingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch other listing: %w", err)
	}
	parsed, err = ParseDirectory(other, "")
	if err != nil {
		return nil, fmt.Errorf("parse other listing: %w", err)
	}
	tickers = append(tickers, parsed...)

	if len(tickers) == 0 {
		return nil, fmt.Errorf("symbol directory is empty")
	}
	return models.NewUniverse(tickers), nil
}

// PricedIPOs returns the IPOs priced in the given month.
func (c *Client) PricedIPOs(ctx context.Context, year int, month time.Month) ([]repository.IPOListing, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var payload calendarResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.calendarURL,
		Headers: map[string]string{
			"User-Agent": c.userAgent,
			"Accept":     "application/json",
		},
		QueryParams: map[string][]string{
			"date": {fmt.Sprintf("%04d-%02d", year, month)},
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch ipo calendar %04d-%02d: %w", year, month, err)
	}

	var out []repository.IPOListing
	for _, row := range payload.Data.Priced.Rows {
		sym := strings.ToUpper(strings.TrimSpace(row.ProposedTickerSymbol))
		if sym == "" {
			continue
		}
		priced, err := time.Parse("01/02/2006", row.PricedDate)
		if err != nil {
			continue
		}
		out = append(out, repository.IPOListing{
			Symbol: sym,
			Name:   row.CompanyName,
			Priced: priced,
		})
	}
	return out, nil
}

func (c *Client) fetchDirectory(ctx context.Context, url string) (string, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     url,
		Headers: map[string]string{"User-Agent": c.userAgent},
	}, &body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// wait blocks until the calendar token bucket yields a token.
func (c *Client) wait(ctx context.Context) error {
	rate := 1.0 / c.requestDelay.Seconds()
	for !c.limiter.Allow("nasdaq_calendar", 1, rate) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.requestDelay / 4):
		}
	}
	return nil
}

// ParseDirectory parses a pipe-delimited symbol directory file. The
// nasdaqlisted.txt file keys on "Symbol", otherlisted.txt on
// "ACT Symbol"; both carry a "Security Name" and a trailing
// "File Creation Time" row that is not data. When defaultExchange is
// empty the per-row "Exchange" column is used instead.
func ParseDirectory(body, defaultExchange string) ([]models.Ticker, error) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("directory file too short")
	}

	header := strings.Split(lines[0], "|")
	symIdx, nameIdx, exchIdx, testIdx := -1, -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Symbol", "ACT Symbol":
			symIdx = i
		case "Security Name":
			nameIdx = i
		case "Exchange":
			exchIdx = i
		case "Test Issue":
			testIdx = i
		}
	}
	if symIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("unrecognized directory header: %q", lines[0])
	}

	var out []models.Ticker
	for _, line := range lines[1:] {
		if line == "" || strings.HasPrefix(line, "File Creation Time") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) <= symIdx || len(fields) <= nameIdx {
			continue
		}
		sym := strings.TrimSpace(fields[symIdx])
		if sym == "" {
			continue
		}
		if testIdx >= 0 && testIdx < len(fields) && fields[testIdx] == "Y" {
			continue
		}
		exch := defaultExchange
		if exch == "" && exchIdx >= 0 && exchIdx < len(fields) {
			exch = strings.TrimSpace(fields[exchIdx])
		}
		out = append(out, models.Ticker{
			Symbol:   strings.ToUpper(sym),
			Name:     strings.TrimSpace(fields[nameIdx]),
			Exchange: exch,
		})
	}
	return out, nil
}

type calendarResponse struct {
	Data struct {
		Priced struct {
			Rows []calendarRow `json:"rows"`
		} `json:"priced"`
	} `json:"data"`
}

type calendarRow struct {
	ProposedTickerSymbol string `json:"proposedTickerSymbol"`
	CompanyName          string `json:"companyName"`
	PricedDate           string `json:"pricedDate"`
}
