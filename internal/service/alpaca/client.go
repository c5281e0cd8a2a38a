package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"TypoTrade/internal/domain/models"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client adapts the Alpaca market data API to the BarSource interface.
type Client struct {
	md   *marketdata.Client
	feed marketdata.Feed
}

// NewClient creates an Alpaca market data client. The free IEX feed is
// the default; paid keys can switch to SIP.
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{feed: marketdata.IEX}
	for _, opt := range opts {
		opt(c)
	}
	if c.md == nil {
		c.md = marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		})
	}
	return c
}

// WithFeed selects the market data feed.
func WithFeed(feed string) ClientOption {
	return func(c *Client) {
		if feed != "" {
			c.feed = marketdata.Feed(feed)
		}
	}
}

// WithMarketDataClient injects a preconfigured marketdata client.
func WithMarketDataClient(md *marketdata.Client) ClientOption {
	return func(c *Client) { c.md = md }
}

// DailyBars returns daily OHLCV bars for one symbol.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	return c.bars(ctx, symbol, marketdata.OneDay, from, to)
}

// MinuteBars returns 1-minute OHLCV bars for one symbol.
func (c *Client) MinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	return c.bars(ctx, symbol, marketdata.OneMin, from, to)
}

// AverageVolumes returns the mean daily volume over the last `days`
// sessions for each symbol. Symbols with no bars are omitted.
func (c *Client) AverageVolumes(ctx context.Context, symbols []string, days int) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	// Calendar padding so `days` trading sessions fit in the range.
	from := time.Now().AddDate(0, 0, -(days*2 + 5))
	multi, err := c.md.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     from,
		Feed:      c.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("get multi bars: %w", err)
	}

	out := make(map[string]float64, len(multi))
	for sym, bars := range multi {
		if len(bars) == 0 {
			continue
		}
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		var total float64
		for _, b := range bars {
			total += float64(b.Volume)
		}
		out[sym] = total / float64(len(bars))
	}
	return out, nil
}

func (c *Client) bars(ctx context.Context, symbol string, tf marketdata.TimeFrame, from, to time.Time) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := c.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     from,
		End:       to,
		Feed:      c.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}

	out := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		out[i] = models.PriceBar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		}
	}
	return out, nil
}
