package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/services/risk"
	"FXBias/pkg/config"
	"FXBias/pkg/logger"
)

var ErrNoRiskSentiment = errors.New("risk sentiment has not been analyzed")

// RiskSentimentUseCase refreshes the risk sentiment from market data and
// manages its overrides.
type RiskSentimentUseCase struct {
	session *Session
	market  domsvc.MarketData
	cfg     *config.Config
	log     *logger.Logger
	timeout time.Duration
}

func NewRiskSentimentUseCase(session *Session, market domsvc.MarketData, cfg *config.Config, l *logger.Logger) *RiskSentimentUseCase {
	if l == nil {
		l = logger.Nop()
	}
	timeout := cfg.MarketData.Timeout * 4
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &RiskSentimentUseCase{session: session, market: market, cfg: cfg, log: l, timeout: timeout}
}

// Current returns the stored sentiment or nil.
func (uc *RiskSentimentUseCase) Current() *models.RiskSentimentAnalysis {
	return uc.session.Snapshot().RiskSentiment
}

// Refresh fetches the four instrument series concurrently and replaces the
// sentiment, carrying the user's overrides over. When any series cannot be
// fetched the sentiment is cleared and the error returned.
func (uc *RiskSentimentUseCase) Refresh(ctx context.Context) (*models.RiskSentimentAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	sym := uc.cfg.MarketData.Symbols
	type item struct {
		inst models.Instrument
		pts  []models.IndicatorDataPoint
		err  error
	}
	ch := make(chan item, len(models.Instruments))
	var wg sync.WaitGroup
	fetch := func(inst models.Instrument, fn func() ([]models.IndicatorDataPoint, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pts, err := fn()
			ch <- item{inst, pts, err}
		}()
	}
	fetch(models.InstrumentSPX, func() ([]models.IndicatorDataPoint, error) { return uc.market.DailyStock(ctx, sym.SPX) })
	fetch(models.InstrumentVIX, func() ([]models.IndicatorDataPoint, error) { return uc.market.DailyStock(ctx, sym.VIX) })
	fetch(models.InstrumentAUDJPY, func() ([]models.IndicatorDataPoint, error) {
		return uc.market.DailyFX(ctx, sym.AUDJPYBase, sym.AUDJPYQuote)
	})
	fetch(models.InstrumentUS10Y, func() ([]models.IndicatorDataPoint, error) { return uc.market.TreasuryYield(ctx, sym.US10Y) })
	go func() { wg.Wait(); close(ch) }()

	var (
		in   risk.Series
		errs []error
	)
	for it := range ch {
		if it.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.inst, it.err))
			continue
		}
		switch it.inst {
		case models.InstrumentSPX:
			in.SPX = it.pts
		case models.InstrumentVIX:
			in.VIX = it.pts
		case models.InstrumentAUDJPY:
			in.AUDJPY = it.pts
		case models.InstrumentUS10Y:
			in.US10Y = it.pts
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		uc.session.metrics.RecordError("risk_refresh")
		uc.log.Error("risk sentiment refresh failed", logger.Error(err))
		if _, uerr := uc.session.Update(ctx, "risk_clear", func(st *models.SessionState) error {
			st.RiskSentiment = nil
			return nil
		}); uerr != nil {
			return nil, uerr
		}
		return nil, fmt.Errorf("refresh risk sentiment: %w", err)
	}

	next := risk.Analyze(in)
	st, err := uc.session.Update(ctx, "risk_refresh", func(st *models.SessionState) error {
		risk.PreserveOverrides(st.RiskSentiment, next)
		st.RiskSentiment = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info("risk sentiment refreshed",
		logger.String("signal", string(st.RiskSentiment.OverallSignal)),
		logger.String("conviction", string(st.RiskSentiment.Conviction)),
	)
	return st.RiskSentiment, nil
}

// SetIndicatorOverride sets or, with a nil signal, clears the override of one
// instrument.
func (uc *RiskSentimentUseCase) SetIndicatorOverride(ctx context.Context, inst models.Instrument, signal *models.RiskSignal) (*models.RiskSentimentAnalysis, error) {
	st, err := uc.session.Update(ctx, "risk_indicator_override", func(st *models.SessionState) error {
		if st.RiskSentiment == nil {
			return ErrNoRiskSentiment
		}
		return risk.SetIndicatorOverride(st.RiskSentiment, inst, signal)
	})
	if err != nil {
		return nil, err
	}
	return st.RiskSentiment, nil
}

// SetOverallOverride sets or clears the overall signal and conviction overrides.
func (uc *RiskSentimentUseCase) SetOverallOverride(ctx context.Context, signal *models.RiskSignal, conviction *models.RiskConviction) (*models.RiskSentimentAnalysis, error) {
	st, err := uc.session.Update(ctx, "risk_override", func(st *models.SessionState) error {
		if st.RiskSentiment == nil {
			return ErrNoRiskSentiment
		}
		return risk.SetOverallOverride(st.RiskSentiment, signal, conviction)
	})
	if err != nil {
		return nil, err
	}
	return st.RiskSentiment, nil
}
