package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"FXBias/internal/domain/models"
	"FXBias/internal/service/metrics"
	"FXBias/internal/service/ratelimit"
	"FXBias/internal/services/scoring"
	"FXBias/internal/usecase"
	xhttp "FXBias/pkg/http"
	xlogger "FXBias/pkg/logger"
)

// Token bucket for endpoints that call the scoring service or market data.
const (
	expensiveBurst  = 3
	expensiveRefill = 0.1
)

// BiasEchoHandler serves the currency bias API.
type BiasEchoHandler struct {
	logger   *xlogger.Logger
	session  *usecase.Session
	analysis *usecase.AnalysisUseCase
	risk     *usecase.RiskSentimentUseCase
	rl       *ratelimit.Limiter
}

func NewBiasEchoHandler(logger *xlogger.Logger, session *usecase.Session, analysis *usecase.AnalysisUseCase, risk *usecase.RiskSentimentUseCase) *BiasEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &BiasEchoHandler{
		logger:   logger,
		session:  session,
		analysis: analysis,
		risk:     risk,
		rl:       ratelimit.New(),
	}
}

func (h *BiasEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/analysis", h.timed("analysis", h.Analysis))
	g.GET("/pairs", h.timed("pairs", h.Pairs))
	g.POST("/analysis/run", h.timed("analysis_run", h.limited("analysis_run", h.RunAnalysis)))
	g.POST("/analysis/retry-missing", h.timed("retry_missing", h.limited("retry_missing", h.RetryMissing)))
	g.GET("/analysis/missing", h.timed("missing", h.Missing))
	g.PUT("/scores", h.timed("score", h.UpdateScore))
	g.POST("/scores/central-bank", h.timed("central_bank", h.limited("central_bank", h.CentralBank)))
	g.PUT("/event-modifier", h.timed("event_modifier", h.UpdateEventModifier))
	g.PUT("/event-modifier/rationale", h.timed("event_modifier_rationale", h.SaveRationale))
	g.POST("/recap", h.timed("recap", h.limited("recap", h.GenerateRecap)))
	g.GET("/risk", h.timed("risk", h.Risk))
	g.POST("/risk/refresh", h.timed("risk_refresh", h.limited("risk_refresh", h.RefreshRisk)))
	g.PUT("/risk/indicator-override", h.timed("risk_indicator_override", h.SetIndicatorOverride))
	g.PUT("/risk/override", h.timed("risk_override", h.SetOverallOverride))
	g.PUT("/settings", h.timed("settings", h.UpdateSettings))
	g.GET("/history", h.timed("history", h.History))
	g.GET("/trades", h.timed("trades", h.Trades))
	g.PUT("/trades", h.timed("trade_save", h.SaveTrade))
	g.DELETE("/trades/:id", h.timed("trade_delete", h.DeleteTrade))
	g.GET("/state", h.timed("state_export", h.ExportState))
	g.PUT("/state", h.timed("state_import", h.ImportState))
}

func (h *BiasEchoHandler) timed(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()
		return next(c)
	}
}

func (h *BiasEchoHandler) limited(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP()+":"+endpoint, expensiveBurst, expensiveRefill) {
			metrics.RateLimited.WithLabelValues(endpoint).Inc()
			h.logger.Warn("rate limited", xlogger.String("endpoint", endpoint), xlogger.String("remote", c.RealIP()))
			return xhttp.TooManyRequestsResponse(c, time.Duration(float64(time.Second)/expensiveRefill))
		}
		return next(c)
	}
}

// analysisView is the session analysis together with the derived overview.
type analysisView struct {
	AnalysisData     models.AnalysisData   `json:"analysisData"`
	Overview         models.Overview       `json:"overview"`
	UseScoreModifier bool                  `json:"useScoreModifier"`
	UseRiskModifier  bool                  `json:"useRiskModifier"`
	RecapStyle       string                `json:"recapStyle,omitempty"`
	RetrySettings    *models.RetrySettings `json:"retrySettings,omitempty"`
}

func (h *BiasEchoHandler) view(st models.SessionState) analysisView {
	return analysisView{
		AnalysisData:     st.AnalysisData,
		Overview:         scoring.BuildOverview(st.AnalysisData, h.session.Currencies()),
		UseScoreModifier: st.UseScoreModifier,
		UseRiskModifier:  st.UseRiskModifier,
		RecapStyle:       st.RecapStyle,
		RetrySettings:    st.RetrySettings,
	}
}

func (h *BiasEchoHandler) Analysis(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.view(h.session.Snapshot()))
}

func (h *BiasEchoHandler) Pairs(c echo.Context) error {
	pairs := h.session.Pairs()
	return xhttp.ListResponse(c, pairs, int64(len(pairs)))
}

func (h *BiasEchoHandler) RunAnalysis(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.analysis.ParamsFromRequest(*req)
	if err != nil {
		return h.fail(c, "analysis_run", err, false)
	}
	report, err := h.analysis.Analyze(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "analysis_run", err, true)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *BiasEchoHandler) RetryMissing(c echo.Context) error {
	report, err := h.analysis.RetryMissing(c.Request().Context())
	if err != nil {
		return h.fail(c, "retry_missing", err, true)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *BiasEchoHandler) Missing(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.analysis.Missing())
}

func (h *BiasEchoHandler) UpdateScore(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.analysis.UpdateScore(c.Request().Context(), currencyCode(req.Currency), models.Indicator(req.Indicator), *req.Score)
	if err != nil {
		return h.fail(c, "score", err, false)
	}
	return xhttp.SuccessResponse(c, h.view(st))
}

func (h *BiasEchoHandler) CentralBank(c echo.Context) error {
	req := &models.CentralBankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sc, err := h.analysis.ScoreCentralBank(c.Request().Context(), currencyCode(req.Currency), req.Text)
	if err != nil {
		return h.fail(c, "central_bank", err, true)
	}
	return xhttp.SuccessResponse(c, sc)
}

func (h *BiasEchoHandler) UpdateEventModifier(c echo.Context) error {
	req := &models.EventModifierRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.analysis.UpdateEventModifier(c.Request().Context(), currencyCode(req.Currency), *req.Value)
	if err != nil {
		return h.fail(c, "event_modifier", err, false)
	}
	return xhttp.SuccessResponse(c, h.view(st))
}

func (h *BiasEchoHandler) SaveRationale(c echo.Context) error {
	req := &models.RationaleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.analysis.SaveEventModifierRationale(c.Request().Context(), currencyCode(req.Currency), req.Rationale)
	if err != nil {
		return h.fail(c, "event_modifier_rationale", err, false)
	}
	return xhttp.SuccessResponse(c, h.view(st))
}

func (h *BiasEchoHandler) GenerateRecap(c echo.Context) error {
	req := &models.RecapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	recap, err := h.analysis.GenerateRecap(c.Request().Context(), currencyCode(req.Currency), req.Style)
	if err != nil {
		return h.fail(c, "recap", err, true)
	}
	return xhttp.SuccessResponse(c, recap)
}

func (h *BiasEchoHandler) Risk(c echo.Context) error {
	rs := h.risk.Current()
	if rs == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s", usecase.ErrNoRiskSentiment.Error()))
	}
	return xhttp.SuccessResponse(c, rs)
}

func (h *BiasEchoHandler) RefreshRisk(c echo.Context) error {
	rs, err := h.risk.Refresh(c.Request().Context())
	if err != nil {
		return h.fail(c, "risk_refresh", err, true)
	}
	return xhttp.SuccessResponse(c, rs)
}

func (h *BiasEchoHandler) SetIndicatorOverride(c echo.Context) error {
	req := &models.IndicatorOverrideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var sig *models.RiskSignal
	if req.Signal != nil {
		s := models.RiskSignal(*req.Signal)
		sig = &s
	}
	rs, err := h.risk.SetIndicatorOverride(c.Request().Context(), models.Instrument(req.Instrument), sig)
	if err != nil {
		return h.fail(c, "risk_indicator_override", err, false)
	}
	return xhttp.SuccessResponse(c, rs)
}

func (h *BiasEchoHandler) SetOverallOverride(c echo.Context) error {
	req := &models.OverallOverrideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var (
		sig  *models.RiskSignal
		conv *models.RiskConviction
	)
	if req.Signal != nil {
		s := models.RiskSignal(*req.Signal)
		sig = &s
	}
	if req.Conviction != nil {
		cv := models.RiskConviction(*req.Conviction)
		conv = &cv
	}
	rs, err := h.risk.SetOverallOverride(c.Request().Context(), sig, conv)
	if err != nil {
		return h.fail(c, "risk_override", err, false)
	}
	return xhttp.SuccessResponse(c, rs)
}

func (h *BiasEchoHandler) UpdateSettings(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.session.SetSettings(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "settings", err, false)
	}
	h.logger.Info("settings updated", xlogger.Any("settings", req))
	return xhttp.SuccessResponse(c, h.view(st))
}

func (h *BiasEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hist, err := h.session.History(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "history", err, false)
	}
	return xhttp.ListResponse(c, hist, int64(len(hist)))
}

func (h *BiasEchoHandler) ExportState(c echo.Context) error {
	c.Response().Header().Set("Content-Disposition", `attachment; filename="fxbias-state.json"`)
	return xhttp.SuccessResponse(c, h.session.Snapshot())
}

func (h *BiasEchoHandler) ImportState(c echo.Context) error {
	in := models.NewSessionState()
	if err := c.Bind(&in); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("invalid state document"))
	}
	st, err := h.session.Import(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "state_import", err, false)
	}
	return xhttp.SuccessResponse(c, h.view(st))
}

func (h *BiasEchoHandler) Trades(c echo.Context) error {
	trades := h.session.Trades()
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

func (h *BiasEchoHandler) SaveTrade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	t, err := h.session.SaveTrade(c.Request().Context(), models.Trade{
		ID:           strings.TrimSpace(req.ID),
		EntryDate:    req.EntryDate,
		Pair:         req.Pair,
		Direction:    models.TradeDirection(req.Direction),
		Status:       models.TradeStatus(req.Status),
		EntryPrice:   req.EntryPrice,
		ExitPrice:    req.ExitPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		PositionSize: req.PositionSize,
		PnL:          req.PnL,
		Notes:        req.Notes,
	})
	if err != nil {
		return h.fail(c, "trade_save", err, false)
	}
	return xhttp.SuccessResponse(c, t)
}

func (h *BiasEchoHandler) DeleteTrade(c echo.Context) error {
	if err := h.session.DeleteTrade(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "trade_delete", err, false)
	}
	return c.NoContent(http.StatusNoContent)
}

func currencyCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
