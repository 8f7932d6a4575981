package polygon

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	icache "Tradia/internal/service/cache"
	xhttp "Tradia/pkg/http"
	applogger "Tradia/pkg/logger"
)

const (
	companyNameTTL = 7 * 24 * time.Hour
	barsCacheTTL   = 10 * time.Minute
)

// Client implements MarketData backed by the Polygon REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	cache   icache.BytesCache
	logger  *applogger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithCache sets a byte cache for bars and company names.
func WithCache(c icache.BytesCache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http = xhttp.NewClient(xhttp.WithTimeout(d))
	}
}

// NewClient creates a Polygon REST client.
func NewClient(apiKey, baseURL string, opts ...Option) drepo.MarketData {
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		cache:   icache.NewTTLCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type aggsResponse struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
		T int64   `json:"t"` // ms
	} `json:"results"`
	Status string `json:"status"`
}

// GetOHLCV fetches daily bars for the last N calendar days, oldest first.
func (c *Client) GetOHLCV(ctx context.Context, ticker string, days int) ([]models.Bar, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	return c.fetchAggs(ctx, ticker, 1, "day", from, to)
}

// GetIntraday fetches intraday bars, e.g. multiplier=15 timespan=minute.
func (c *Client) GetIntraday(ctx context.Context, ticker string, multiplier int, timespan string, lookbackDays int) ([]models.Bar, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)
	return c.fetchAggs(ctx, ticker, multiplier, timespan, from, to)
}

func (c *Client) fetchAggs(ctx context.Context, ticker string, multiplier int, timespan string, from, to time.Time) ([]models.Bar, error) {
	cacheKey := fmt.Sprintf("bars:%s:%d:%s:%s:%s",
		ticker, multiplier, timespan, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if bars, ok := c.cachedBars(cacheKey); ok {
		return bars, nil
	}

	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		c.baseURL, ticker, multiplier, timespan,
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	var resp aggsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"50000"},
			"apiKey":   {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon aggs %s: %w", ticker, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("polygon aggs %s: no results", ticker)
	}

	bars := make([]models.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, models.Bar{
			TS:     time.UnixMilli(r.T).UTC(),
			Symbol: ticker,
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })

	c.storeBars(cacheKey, bars)
	return bars, nil
}

type groupedResponse struct {
	Results []struct {
		T  string  `json:"T"`
		O  float64 `json:"o"`
		H  float64 `json:"h"`
		L  float64 `json:"l"`
		C  float64 `json:"c"`
		V  float64 `json:"v"`
		VW float64 `json:"vw"`
	} `json:"results"`
	Status string `json:"status"`
}

// GetGroupedDaily fetches the whole market's daily bars for one trading day
// (YYYY-MM-DD). Non-trading days return an empty slice, not an error.
func (c *Client) GetGroupedDaily(ctx context.Context, day string) ([]models.GroupedBar, error) {
	url := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s", c.baseURL, day)

	var resp groupedResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"apiKey":   {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon grouped %s: %w", day, err)
	}

	grouped := make([]models.GroupedBar, 0, len(resp.Results))
	for _, r := range resp.Results {
		grouped = append(grouped, models.GroupedBar{
			Ticker: r.T,
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
			VWAP:   r.VW,
		})
	}
	return grouped, nil
}

type snapshotResponse struct {
	Tickers []struct {
		Ticker           string  `json:"ticker"`
		TodaysChangePerc float64 `json:"todaysChangePerc"`
		Day              struct {
			C float64 `json:"c"`
			V float64 `json:"v"`
		} `json:"day"`
	} `json:"tickers"`
}

// GetTopMovers returns the day's biggest gainers, strongest first.
func (c *Client) GetTopMovers(ctx context.Context, limit int) ([]models.Mover, error) {
	url := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/gainers", c.baseURL)

	var resp snapshotResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: map[string][]string{"apiKey": {c.apiKey}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon gainers: %w", err)
	}

	movers := make([]models.Mover, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		movers = append(movers, models.Mover{
			Ticker:    t.Ticker,
			Price:     t.Day.C,
			ChangePct: t.TodaysChangePerc,
			Volume:    t.Day.V,
		})
	}
	sort.Slice(movers, func(i, j int) bool { return movers[i].ChangePct > movers[j].ChangePct })
	if limit > 0 && len(movers) > limit {
		movers = movers[:limit]
	}
	return movers, nil
}

type tickerDetailsResponse struct {
	Results struct {
		Name string `json:"name"`
	} `json:"results"`
}

// GetCompanyName resolves the company name for a ticker, cached for a week.
func (c *Client) GetCompanyName(ctx context.Context, ticker string) (string, error) {
	cacheKey := "company:" + ticker
	if b, ok, err := c.cache.GetBytes(cacheKey); err == nil && ok {
		return string(b), nil
	}

	url := fmt.Sprintf("%s/v3/reference/tickers/%s", c.baseURL, ticker)

	var resp tickerDetailsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: map[string][]string{"apiKey": {c.apiKey}},
	}, &resp)
	if err != nil {
		// fall back to the ticker itself rather than failing the scan
		if c.logger != nil {
			c.logger.Warn("company name lookup failed",
				applogger.String("ticker", ticker), applogger.Error(err))
		}
		return ticker, nil
	}

	name := resp.Results.Name
	if name == "" {
		name = ticker
	}
	_ = c.cache.SetBytes(cacheKey, []byte(name), companyNameTTL)
	return name, nil
}

func (c *Client) cachedBars(key string) ([]models.Bar, bool) {
	b, ok, err := c.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	bars, err := decodeBars(b)
	if err != nil {
		return nil, false
	}
	return bars, true
}

func (c *Client) storeBars(key string, bars []models.Bar) {
	b, err := encodeBars(bars)
	if err != nil {
		return
	}
	_ = c.cache.SetBytes(key, b, barsCacheTTL)
}
