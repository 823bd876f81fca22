package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FXBias/internal/domain/models"
	"FXBias/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type memBytes struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (m *memBytes) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.m[key]
	return b, ok, nil
}

func (m *memBytes) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "secret-key", r.URL.Query().Get("apikey"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.MarketData.APIKey = "secret-key"
	cfg.MarketData.BaseURL = srv.URL
	cfg.MarketData.RequestsPerMinute = 5
	cfg.Analysis.CacheTTL = time.Minute
	opts = append([]Option{WithHTTPClient(srv.Client()), WithLimiter(rate.NewLimiter(rate.Inf, 1))}, opts...)
	return New(cfg, opts...), &calls
}

func TestClient_DailyStock(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		assert.Equal(t, "SPY", q.Get("symbol"))
		_, _ = w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "SPY"},
			"Time Series (Daily)": {
				"2024-01-03": {"4. close": "470.50"},
				"2024-01-02": {"4. close": "472.65"},
				"2024-01-04": {"4. close": "467.28"}
			}
		}`))
	})

	pts, err := c.DailyStock(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, []models.IndicatorDataPoint{
		{Date: "2024-01-02", Value: 472.65},
		{Date: "2024-01-03", Value: 470.50},
		{Date: "2024-01-04", Value: 467.28},
	}, pts)

	// memoized
	_, err = c.DailyStock(context.Background(), "SPY")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestClient_DailyFX(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "FX_DAILY", q.Get("function"))
		assert.Equal(t, "AUD", q.Get("from_symbol"))
		assert.Equal(t, "JPY", q.Get("to_symbol"))
		_, _ = w.Write([]byte(`{"Time Series FX (Daily)": {"2024-01-02": {"4. close": "96.10"}, "2024-01-01": {"4. close": "95.90"}}}`))
	})

	pts, err := c.DailyFX(context.Background(), "AUD", "JPY")
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "2024-01-01", pts[0].Date)
}

func TestClient_TreasuryYieldDropsMissingValues(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TREASURY_YIELD", r.URL.Query().Get("function"))
		assert.Equal(t, "10year", r.URL.Query().Get("maturity"))
		_, _ = w.Write([]byte(`{"name":"10-Year","data":[
			{"date":"2024-01-03","value":"3.91"},
			{"date":"2024-01-02","value":"."},
			{"date":"2024-01-01","value":"3.88"}
		]}`))
	})

	pts, err := c.TreasuryYield(context.Background(), "10year")
	require.NoError(t, err)
	assert.Equal(t, []models.IndicatorDataPoint{
		{Date: "2024-01-01", Value: 3.88},
		{Date: "2024-01-03", Value: 3.91},
	}, pts)
}

func TestClient_APIErrorFields(t *testing.T) {
	for _, body := range []string{
		`{"Error Message": "Invalid API call."}`,
		`{"Information": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`,
	} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := c.DailyStock(context.Background(), "SPY")
		assert.ErrorContains(t, err, "alpha vantage api error")
	}
}

func TestClient_MissingSeries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Meta Data": {}}`))
	})
	_, err := c.DailyStock(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrNoSeries)
}

func TestClient_NoAPIKey(t *testing.T) {
	c := New(&config.Config{})
	_, err := c.DailyStock(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestClient_SharedCache(t *testing.T) {
	shared := &memBytes{m: map[string][]byte{}}
	handler := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Time Series (Daily)": {"2024-01-02": {"4. close": "1.5"}}}`))
	}

	first, calls1 := newTestClient(t, handler, WithSharedCache(shared))
	_, err := first.DailyStock(context.Background(), "SPY")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls1))
	assert.Contains(t, shared.m, "stock:SPY--key")

	second, calls2 := newTestClient(t, handler, WithSharedCache(shared))
	pts, err := second.DailyStock(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, []models.IndicatorDataPoint{{Date: "2024-01-02", Value: 1.5}}, pts)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls2))
}
