package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/services/scoring"
	"FXBias/internal/usecase"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
)

const apiConfigYAML = `
scoring_service:
  url: http://scoring.local
currencies:
  - code: USD
  - code: EUR
sources:
  defaults:
    CPI: ["https://example.com/cpi"]
`

type stubScorer struct{}

func (stubScorer) Score(_ context.Context, in domsvc.ScoreInput) (models.Score, error) {
	if in.Indicator == models.IndicatorCentralBank {
		return models.Score{Score: 1, Rationale: "hawkish", RawData: "statement"}, nil
	}
	return models.Score{Score: 2, Rationale: "hot print"}, nil
}

type stubRecaps struct{}

func (stubRecaps) Generate(context.Context, domsvc.RecapInput) (models.EconomicRecap, error) {
	return models.EconomicRecap{}, nil
}

type stubMarket struct{ err error }

func (m stubMarket) DailyStock(context.Context, string) ([]models.IndicatorDataPoint, error) {
	return nil, m.err
}

func (m stubMarket) DailyFX(context.Context, string, string) ([]models.IndicatorDataPoint, error) {
	return nil, m.err
}

func (m stubMarket) TreasuryYield(context.Context, string) ([]models.IndicatorDataPoint, error) {
	return nil, m.err
}

type testAPI struct {
	e       *echo.Echo
	session *usecase.Session
	stream  *StreamHandler
}

func newTestAPI(t *testing.T, market stubMarket) *testAPI {
	t.Helper()
	cfg, err := config.Parse([]byte(apiConfigYAML))
	require.NoError(t, err)

	session := usecase.NewSession(cfg)
	analysis := usecase.NewAnalysisUseCase(session, stubScorer{}, stubRecaps{}, cfg, nil)
	risk := usecase.NewRiskSentimentUseCase(session, market, cfg, nil)

	e := echo.New()
	NewBiasEchoHandler(nil, session, analysis, risk).RegisterRoutes(e)
	stream := NewStreamHandler(nil, session)
	stream.RegisterRoutes(e)
	t.Cleanup(func() { _ = stream.Close() })
	return &testAPI{e: e, session: session, stream: stream}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var resp struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, dest))
}

func TestAnalysis_Empty(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	rec := a.do(http.MethodGet, "/api/analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v analysisView
	decodeData(t, rec, &v)
	assert.Empty(t, v.AnalysisData)
	assert.Nil(t, v.Overview.Median)
	assert.False(t, v.UseRiskModifier)
	assert.False(t, v.UseScoreModifier)
	assert.Equal(t, "default", v.RecapStyle)
}

func TestUpdateScore(t *testing.T) {
	a := newTestAPI(t, stubMarket{})

	rec := a.do(http.MethodPut, "/api/scores", `{"currency":"usd","indicator":"CPI","score":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v analysisView
	decodeData(t, rec, &v)
	assert.Equal(t, 2, v.AnalysisData["USD"].Scores[models.IndicatorCPI].Score)
	assert.Equal(t, models.ManualRationale, v.AnalysisData["USD"].Scores[models.IndicatorCPI].Rationale)
	require.Len(t, v.Overview.Currencies, 1)

	rec = a.do(http.MethodPut, "/api/scores", `{"currency":"USD","indicator":"CPI","score":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/scores", `{"currency":"XYZ","indicator":"CPI","score":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/scores", `{"currency":"USD","indicator":"GDP","score":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventModifier(t *testing.T) {
	a := newTestAPI(t, stubMarket{})

	rec := a.do(http.MethodPut, "/api/event-modifier/rationale", `{"currency":"EUR","rationale":"ECB surprise"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPut, "/api/event-modifier", `{"currency":"EUR","value":-1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v analysisView
	decodeData(t, rec, &v)
	assert.Equal(t, -1, v.AnalysisData["EUR"].EventModifierScore)

	rec = a.do(http.MethodPut, "/api/event-modifier/rationale", `{"currency":"EUR","rationale":"ECB surprise"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPut, "/api/event-modifier", `{"currency":"EUR","value":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysis(t *testing.T) {
	a := newTestAPI(t, stubMarket{})

	rec := a.do(http.MethodPost, "/api/analysis/run", `{"currencies":["USD"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.AnalysisReport
	decodeData(t, rec, &report)
	assert.Equal(t, []string{"USD"}, report.Analyzed)

	st := a.session.Snapshot()
	assert.Equal(t, 2, st.AnalysisData["USD"].Scores[models.IndicatorCPI].Score)

	rec = a.do(http.MethodGet, "/api/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list xhttp.ListDataResponse
	decodeData(t, rec, &list)
	assert.EqualValues(t, 1, list.Total)

	rec = a.do(http.MethodPost, "/api/analysis/run", `{"indicators":["GDP"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysis_RateLimited(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	codes := make([]int, 0, expensiveBurst+1)
	var last string
	for i := 0; i < expensiveBurst+1; i++ {
		rec := a.do(http.MethodPost, "/api/analysis/run", `{"currencies":["EUR"],"fetchOnly":true}`)
		codes = append(codes, rec.Code)
		last = rec.Header().Get("Retry-After")
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[expensiveBurst])
	assert.Equal(t, "10", last)
}

func TestCentralBank(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	rec := a.do(http.MethodPost, "/api/scores/central-bank", `{"currency":"USD","text":"The committee decided to raise the target range."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sc models.Score
	decodeData(t, rec, &sc)
	assert.Equal(t, 1, sc.Score)
	assert.Equal(t, 1, a.session.Snapshot().AnalysisData["USD"].Scores[models.IndicatorCentralBank].Score)
}

func TestRisk(t *testing.T) {
	a := newTestAPI(t, stubMarket{err: errors.New("quota exceeded")})

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/risk", "").Code)
	assert.Equal(t, http.StatusBadGateway, a.do(http.MethodPost, "/api/risk/refresh", "").Code)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPut, "/api/risk/override", `{"signal":"Risk-On"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/risk/indicator-override", `{"instrument":"dxy"}`).Code)
}

func TestSettingsAndState(t *testing.T) {
	a := newTestAPI(t, stubMarket{})

	rec := a.do(http.MethodPut, "/api/settings", `{
		"useRiskModifier": true,
		"recapStyle": "simplified",
		"retrySettings": {"analyzeAll": {"enabled": true, "attempts": 4}, "generateRecap": {"enabled": false, "attempts": 2}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v analysisView
	decodeData(t, rec, &v)
	assert.True(t, v.UseRiskModifier)
	assert.False(t, v.UseScoreModifier)
	assert.Equal(t, "simplified", v.RecapStyle)
	require.NotNil(t, v.RetrySettings)
	assert.Equal(t, 4, v.RetrySettings.AnalyzeAll.Attempts)
	analyze, recap := a.session.RetryAttempts()
	assert.Equal(t, 4, analyze)
	assert.Equal(t, 1, recap)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/settings", `{"recapStyle":"verbose"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/settings",
		`{"retrySettings":{"analyzeAll":{"enabled":true,"attempts":0},"generateRecap":{"enabled":true,"attempts":2}}}`).Code)
	assert.Equal(t, "simplified", a.session.Snapshot().RecapStyle)

	in := models.NewSessionState()
	in.AnalysisData["EUR"] = models.NewCurrencyAnalysis()
	in.AnalysisData["EUR"].Scores[models.IndicatorCPI] = models.Score{Score: -2, Rationale: "cooling"}
	body, err := json.Marshal(in)
	require.NoError(t, err)

	rec = a.do(http.MethodPut, "/api/state", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fxbias-state.json")
	var st models.SessionState
	decodeData(t, rec, &st)
	assert.Equal(t, -2.0, st.AnalysisData["EUR"].SigmaScore)

	rec = a.do(http.MethodPut, "/api/state", `{"analysisData":{"GBP":{"scores":{}}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportState_RejectsInvalidInputs(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	docs := map[string]string{
		"score out of range":  `{"analysisData":{"USD":{"scores":{"CPI":{"score":9,"rationale":"hot"}}}}}`,
		"empty rationale":     `{"analysisData":{"USD":{"scores":{"CPI":{"score":1,"rationale":""}}}}}`,
		"unknown indicator":   `{"analysisData":{"USD":{"scores":{"Bogus":{"score":-40,"rationale":"x"}}}}}`,
		"event modifier":      `{"analysisData":{"USD":{"scores":{},"eventModifierScore":5}}}`,
		"risk override":       `{"riskSentiment":{"spx":{"signal":"Neutral"},"vix":{"signal":"Neutral"},"audjpy":{"signal":"Neutral"},"us10y":{"signal":"Neutral"},"userOverrideSignal":"Sideways"}}`,
		"risk conviction":     `{"riskSentiment":{"spx":{"signal":"Neutral"},"vix":{"signal":"Neutral"},"audjpy":{"signal":"Neutral"},"us10y":{"signal":"Neutral"},"userOverrideConviction":"Total"}}`,
		"trade without price": `{"trades":[{"id":"t1","pair":"EURUSD","direction":"Long","status":"Open","entryDate":"2024-05-01"}]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			rec := a.do(http.MethodPut, "/api/state", doc)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, a.session.Snapshot().AnalysisData)
	assert.Nil(t, a.session.Snapshot().RiskSentiment)
}

func TestTrades(t *testing.T) {
	a := newTestAPI(t, stubMarket{})

	rec := a.do(http.MethodPut, "/api/trades", `{"entryDate":"2024-05-01T09:30","pair":"eur/usd","direction":"Long","entryPrice":1.0712,"stopLoss":1.065}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created models.Trade
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "EURUSD", created.Pair)
	assert.Equal(t, models.TradeOpen, created.Status)

	body := `{"id":"` + created.ID + `","entryDate":"2024-05-01T09:30","pair":"EURUSD","direction":"Long","status":"Closed","entryPrice":1.0712,"exitPrice":1.08,"pnl":88}`
	rec = a.do(http.MethodPut, "/api/trades", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.Trade `json:"rows"`
		Total int64          `json:"total"`
	}
	decodeData(t, rec, &list)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, models.TradeClosed, list.Rows[0].Status)
	require.NotNil(t, list.Rows[0].PnL)
	assert.Equal(t, 88.0, *list.Rows[0].PnL)

	rec = a.do(http.MethodGet, "/api/state", "")
	var st models.SessionState
	decodeData(t, rec, &st)
	require.Len(t, st.Trades, 1)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/trades", `{"entryDate":"2024-05-01","pair":"EURUSD","direction":"Sideways","entryPrice":1}`).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/trades/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/trades/"+created.ID, "").Code)
	assert.Empty(t, a.session.Trades())
}

func TestPairs(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	_, err := a.session.Update(context.Background(), "seed", func(st *models.SessionState) error {
		usd := models.NewCurrencyAnalysis()
		usd.Scores[models.IndicatorCPI] = models.Score{Score: 2, Rationale: "x"}
		eur := models.NewCurrencyAnalysis()
		eur.Scores[models.IndicatorCPI] = models.Score{Score: -2, Rationale: "y"}
		st.AnalysisData["USD"], st.AnalysisData["EUR"] = usd, eur
		return nil
	})
	require.NoError(t, err)

	rec := a.do(http.MethodGet, "/api/pairs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.PairBias `json:"rows"`
		Total int64             `json:"total"`
	}
	decodeData(t, rec, &list)
	require.Len(t, list.Rows, 2)
	assert.EqualValues(t, 2, list.Total)
	assert.Equal(t, "USD/EUR", list.Rows[0].Pair)
	assert.Equal(t, 4.0, list.Rows[0].Spread)
	assert.Equal(t, models.DirectionBullish, list.Rows[0].Bias)
	assert.Equal(t, "EUR/USD", list.Rows[1].Pair)
	assert.Equal(t, -4.0, list.Rows[1].Spread)
	assert.Equal(t, models.DirectionBearish, list.Rows[1].Bias)
	assert.Equal(t, scoring.PairBiases(a.session.Snapshot().AnalysisData, a.session.Currencies()), list.Rows)
}

func TestStream(t *testing.T) {
	a := newTestAPI(t, stubMarket{})
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first struct {
		Type    string       `json:"type"`
		Payload statePayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)
	assert.Empty(t, first.Payload.AnalysisData)

	_, err = a.session.SetSettings(context.Background(), models.SettingsRequest{UseScoreModifier: boolPtr(true)})
	require.NoError(t, err)

	var msg struct {
		Type    string       `json:"type"`
		Payload statePayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state", msg.Type)
	assert.True(t, msg.Payload.UseScoreModifier)
}

func boolPtr(b bool) *bool { return &b }
