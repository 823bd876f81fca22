package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/service/cache"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	"FXBias/pkg/logger"

	"golang.org/x/time/rate"
)

var (
	ErrNoAPIKey = errors.New("alpha vantage api key not configured")
	ErrNoSeries = errors.New("alpha vantage response has no series")
)

// Client implements MarketData against the Alpha Vantage query API. Series
// are memoized in process and optionally in a shared bytes cache.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	mem     *cache.TTLCache[[]models.IndicatorDataPoint]
	shared  cache.BytesCache
	log     *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithHTTPClient(hc)) }
}

// WithSharedCache adds a second cache level shared between instances.
func WithSharedCache(bc cache.BytesCache) Option {
	return func(c *Client) { c.shared = bc }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithLimiter overrides the requests-per-minute throttle.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func New(cfg *config.Config, opts ...Option) *Client {
	md := cfg.MarketData
	rpm := md.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	c := &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(md.Timeout)),
		baseURL: md.BaseURL,
		apiKey:  md.APIKey,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		mem:     cache.NewTTLCache[[]models.IndicatorDataPoint](cache.WithTTL(cfg.Analysis.CacheTTL)),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DailyStock returns daily closes for symbol, oldest first.
func (c *Client) DailyStock(ctx context.Context, symbol string) ([]models.IndicatorDataPoint, error) {
	return c.series(ctx, "stock:"+symbol, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": "compact",
	}, func(raw map[string]json.RawMessage) ([]models.IndicatorDataPoint, error) {
		return parseDaily(raw, "Time Series (Daily)")
	})
}

// DailyFX returns daily closes for the from/to pair, oldest first.
func (c *Client) DailyFX(ctx context.Context, from, to string) ([]models.IndicatorDataPoint, error) {
	return c.series(ctx, "fx:"+from+to, map[string]string{
		"function":    "FX_DAILY",
		"from_symbol": from,
		"to_symbol":   to,
		"outputsize":  "compact",
	}, func(raw map[string]json.RawMessage) ([]models.IndicatorDataPoint, error) {
		return parseDaily(raw, "Time Series FX (Daily)")
	})
}

// TreasuryYield returns the daily US treasury yield for maturity, oldest first.
func (c *Client) TreasuryYield(ctx context.Context, maturity string) ([]models.IndicatorDataPoint, error) {
	return c.series(ctx, "yield:"+maturity, map[string]string{
		"function": "TREASURY_YIELD",
		"interval": "daily",
		"maturity": maturity,
	}, parseYield)
}

func (c *Client) series(ctx context.Context, name string, params map[string]string, parse func(map[string]json.RawMessage) ([]models.IndicatorDataPoint, error)) ([]models.IndicatorDataPoint, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	key := name + "-" + keySuffix(c.apiKey)
	if pts, ok := c.mem.Get(key); ok {
		return pts, nil
	}
	if pts, ok := c.fromShared(ctx, key); ok {
		c.mem.Set(key, pts)
		return pts, nil
	}

	raw, err := c.query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	pts, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.mem.Set(key, pts)
	c.toShared(ctx, key, pts)
	c.log.Debug("market series fetched", logger.String("series", name), logger.Int("points", len(pts)))
	return pts, nil
}

func (c *Client) query(ctx context.Context, params map[string]string) (map[string]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	q := make(url.Values, len(params)+1)
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("apikey", c.apiKey)

	var raw map[string]json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL,
		Query:  q,
	}, &raw)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"Error Message", "Information", "Note"} {
		if msg, ok := raw[field]; ok {
			var s string
			_ = json.Unmarshal(msg, &s)
			return nil, fmt.Errorf("alpha vantage api error: %s", s)
		}
	}
	return raw, nil
}

func (c *Client) fromShared(ctx context.Context, key string) ([]models.IndicatorDataPoint, bool) {
	if c.shared == nil {
		return nil, false
	}
	b, ok, err := c.shared.GetBytes(ctx, key)
	if err != nil {
		c.log.Warn("shared cache read failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var pts []models.IndicatorDataPoint
	if err := json.Unmarshal(b, &pts); err != nil {
		return nil, false
	}
	return pts, true
}

func (c *Client) toShared(ctx context.Context, key string, pts []models.IndicatorDataPoint) {
	if c.shared == nil {
		return
	}
	b, err := json.Marshal(pts)
	if err != nil {
		return
	}
	if err := c.shared.SetBytes(ctx, key, b, c.mem.TTL()); err != nil {
		c.log.Warn("shared cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func parseDaily(raw map[string]json.RawMessage, field string) ([]models.IndicatorDataPoint, error) {
	body, ok := raw[field]
	if !ok {
		return nil, ErrNoSeries
	}
	var ts map[string]map[string]string
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	pts := make([]models.IndicatorDataPoint, 0, len(ts))
	for date, values := range ts {
		v, err := strconv.ParseFloat(values["4. close"], 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		pts = append(pts, models.IndicatorDataPoint{Date: date, Value: v})
	}
	sortByDate(pts)
	return pts, nil
}

func parseYield(raw map[string]json.RawMessage) ([]models.IndicatorDataPoint, error) {
	body, ok := raw["data"]
	if !ok {
		return nil, ErrNoSeries
	}
	var rows []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	pts := make([]models.IndicatorDataPoint, 0, len(rows))
	for _, r := range rows {
		// missing days are reported as "."
		v, err := strconv.ParseFloat(r.Value, 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		pts = append(pts, models.IndicatorDataPoint{Date: r.Date, Value: v})
	}
	sortByDate(pts)
	return pts, nil
}

// ISO dates sort lexically.
func sortByDate(pts []models.IndicatorDataPoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Date < pts[j].Date })
}

func keySuffix(apiKey string) string {
	if len(apiKey) <= 4 {
		return apiKey
	}
	return apiKey[len(apiKey)-4:]
}

var _ domsvc.MarketData = (*Client)(nil)
