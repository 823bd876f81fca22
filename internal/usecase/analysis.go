package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/service/cache"
	"FXBias/internal/services/scoring"
	"FXBias/pkg/config"
	"FXBias/pkg/logger"
	"FXBias/pkg/util"
)

var ErrNoContent = errors.New("central bank analysis needs text or configured sources")

// AnalyzeParams selects what one analysis run covers. A nil indicator list
// for a currency means every indicator that has sources configured.
type AnalyzeParams struct {
	Currencies map[string][]models.Indicator
	FetchOnly  bool
	Force      bool
}

// AnalysisUseCase scores indicators through the scoring service and applies
// manual edits to the session.
type AnalysisUseCase struct {
	session *Session
	scorer  domsvc.IndicatorScorer
	recaps  domsvc.RecapGenerator
	cfg     *config.Config
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	missing models.MissingData
}

func NewAnalysisUseCase(session *Session, scorer domsvc.IndicatorScorer, recaps domsvc.RecapGenerator, cfg *config.Config, l *logger.Logger) *AnalysisUseCase {
	if l == nil {
		l = logger.Nop()
	}
	timeout := cfg.Analysis.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AnalysisUseCase{
		session: session,
		scorer:  scorer,
		recaps:  recaps,
		cfg:     cfg,
		log:     l,
		timeout: timeout,
	}
}

// ParamsFromRequest expands an API request into per-currency indicator lists.
// No currencies means all configured ones.
func (uc *AnalysisUseCase) ParamsFromRequest(req models.AnalyzeRequest) (AnalyzeParams, error) {
	codes := req.Currencies
	if len(codes) == 0 {
		codes = uc.session.Currencies()
	}
	var inds []models.Indicator
	for _, name := range req.Indicators {
		ind := models.Indicator(name)
		if !models.IsKnownIndicator(ind) {
			return AnalyzeParams{}, fmt.Errorf("%w: %q", scoring.ErrUnknownIndicator, name)
		}
		inds = append(inds, ind)
	}
	p := AnalyzeParams{
		Currencies: make(map[string][]models.Indicator, len(codes)),
		FetchOnly:  req.FetchOnly,
		Force:      req.Force,
	}
	for _, code := range codes {
		code = strings.ToUpper(code)
		if err := uc.session.CheckCurrency(code); err != nil {
			return AnalyzeParams{}, err
		}
		p.Currencies[code] = inds
	}
	return p, nil
}

type currencyResult struct {
	code     string
	scores   map[models.Indicator]models.Score
	failures []string
}

// Analyze runs one analysis. Currencies are processed concurrently; each
// finished currency is merged into the session on its own, so a failure in
// one does not hold back the others. After a scoring run today's snapshot is
// saved and the missing-data report is rebuilt.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, p AnalyzeParams) (*models.AnalysisReport, error) {
	if len(p.Currencies) == 0 {
		return nil, fmt.Errorf("analyze: no currencies selected")
	}
	for code := range p.Currencies {
		if err := uc.session.CheckCurrency(code); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	existing := uc.session.Snapshot().AnalysisData
	uc.log.Info("analysis started",
		logger.Int("currencies", len(p.Currencies)),
		logger.Bool("fetch_only", p.FetchOnly),
		logger.Bool("force", p.Force),
	)

	ch := make(chan currencyResult, len(p.Currencies))
	var wg sync.WaitGroup
	for code, inds := range p.Currencies {
		var prev map[models.Indicator]models.Score
		if a, ok := existing[code]; ok {
			prev = a.Scores
		}
		wg.Add(1)
		go func(code string, inds []models.Indicator, prev map[models.Indicator]models.Score) {
			defer wg.Done()
			ch <- uc.analyzeCurrency(ctx, code, inds, prev, p)
		}(code, inds, prev)
	}
	go func() { wg.Wait(); close(ch) }()

	report := &models.AnalysisReport{Date: util.Day(uc.session.now()), Failures: map[string]string{}}
	for res := range ch {
		report.Analyzed = append(report.Analyzed, res.code)
		if len(res.failures) > 0 {
			report.Failures[res.code] = strings.Join(res.failures, "; ")
		}
		if len(res.scores) == 0 {
			continue
		}
		_, err := uc.session.Update(ctx, "analysis", func(st *models.SessionState) error {
			a, ok := st.AnalysisData[res.code]
			if !ok {
				a = models.NewCurrencyAnalysis()
				st.AnalysisData[res.code] = a
			}
			for ind, sc := range res.scores {
				a.Scores[ind] = sc
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", res.code, err)
		}
	}
	sort.Strings(report.Analyzed)
	if len(report.Failures) == 0 {
		report.Failures = nil
	}

	if !p.FetchOnly {
		if _, err := uc.session.SaveSnapshot(ctx); err != nil {
			uc.log.Error("snapshot failed", logger.Error(err))
		}
		report.Missing = uc.checkMissing(report.Analyzed)
	}

	uc.log.Info("analysis finished",
		logger.Strings("currencies", report.Analyzed),
		logger.Int("failures", len(report.Failures)),
		logger.Int("missing", len(report.Missing)),
	)
	return report, nil
}

func (uc *AnalysisUseCase) analyzeCurrency(ctx context.Context, code string, inds []models.Indicator, prev map[models.Indicator]models.Score, p AnalyzeParams) currencyResult {
	res := currencyResult{code: code, scores: make(map[models.Indicator]models.Score)}
	if len(inds) == 0 {
		inds = uc.configuredIndicators(code)
	}

	for _, ind := range inds {
		if ind == models.IndicatorCentralBank {
			continue
		}
		key, err := cache.CreateKey("indicator", map[string]string{"currency": code, "indicator": string(ind)})
		if err != nil {
			res.failures = append(res.failures, fmt.Sprintf("%s: %v", ind, err))
			continue
		}

		if !p.Force {
			if sc, ok := uc.session.CachedScore(key); ok {
				res.scores[ind] = sc
				uc.session.metrics.RecordAnalysis(code, "cached")
				continue
			}
		}

		if p.FetchOnly {
			if sc, ok := prev[ind]; ok {
				res.scores[ind] = sc
			}
			continue
		}

		sources := uc.cfg.SourcesFor(code, ind)
		if len(sources) == 0 {
			continue
		}

		attempts, _ := uc.session.RetryAttempts()
		sc, err := uc.scorer.Score(ctx, domsvc.ScoreInput{Currency: code, Indicator: ind, Sources: sources, Attempts: attempts})
		if err == nil {
			err = scoring.ValidateScore(ind, sc)
		}
		if err != nil {
			uc.session.metrics.RecordAnalysis(code, "error")
			uc.log.Warn("indicator analysis failed",
				logger.String("currency", code),
				logger.String("indicator", string(ind)),
				logger.Error(err),
			)
			res.failures = append(res.failures, fmt.Sprintf("%s: %v", ind, err))
			continue
		}
		res.scores[ind] = sc
		uc.session.CacheScore(key, sc)
		uc.session.metrics.RecordAnalysis(code, "ok")
	}
	return res
}

// configuredIndicators lists indicators with at least one source, in the
// canonical indicator order.
func (uc *AnalysisUseCase) configuredIndicators(code string) []models.Indicator {
	var out []models.Indicator
	for _, ind := range models.Indicators {
		if len(uc.cfg.SourcesFor(code, ind)) > 0 {
			out = append(out, ind)
		}
	}
	return out
}

func (uc *AnalysisUseCase) checkMissing(analyzed []string) models.MissingData {
	st := uc.session.Snapshot()
	missing := models.MissingData{}
	for _, code := range analyzed {
		var scores map[models.Indicator]models.Score
		if a, ok := st.AnalysisData[code]; ok {
			scores = a.Scores
		}
		for _, ind := range uc.configuredIndicators(code) {
			if _, ok := scores[ind]; !ok {
				missing[code] = append(missing[code], ind)
			}
		}
	}
	if len(missing) == 0 {
		missing = nil
	}
	uc.mu.Lock()
	uc.missing = missing
	uc.mu.Unlock()
	return missing
}

// Missing returns the report of the last scoring run.
func (uc *AnalysisUseCase) Missing() models.MissingData {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	out := make(models.MissingData, len(uc.missing))
	for k, v := range uc.missing {
		out[k] = append([]models.Indicator(nil), v...)
	}
	return out
}

// RetryMissing scores again whatever the last run left without a score.
func (uc *AnalysisUseCase) RetryMissing(ctx context.Context) (*models.AnalysisReport, error) {
	missing := uc.Missing()
	if len(missing) == 0 {
		return &models.AnalysisReport{Date: util.Day(uc.session.now())}, nil
	}
	return uc.Analyze(ctx, AnalyzeParams{Currencies: missing})
}

// UpdateScore replaces one indicator score with a manual value.
func (uc *AnalysisUseCase) UpdateScore(ctx context.Context, code string, ind models.Indicator, value int) (models.SessionState, error) {
	if err := uc.session.CheckCurrency(code); err != nil {
		return models.SessionState{}, err
	}
	sc := models.Score{Score: value, Rationale: models.ManualRationale}
	if err := scoring.ValidateScore(ind, sc); err != nil {
		return models.SessionState{}, err
	}
	return uc.session.Update(ctx, "score", func(st *models.SessionState) error {
		a, ok := st.AnalysisData[code]
		if !ok {
			a = models.NewCurrencyAnalysis()
			st.AnalysisData[code] = a
		}
		a.Scores[ind] = sc
		return nil
	})
}

// ScoreCentralBank grades central bank communication from pasted text and
// the configured sources.
func (uc *AnalysisUseCase) ScoreCentralBank(ctx context.Context, code, text string) (models.Score, error) {
	if err := uc.session.CheckCurrency(code); err != nil {
		return models.Score{}, err
	}
	sources := uc.cfg.SourcesFor(code, models.IndicatorCentralBank)
	if strings.TrimSpace(text) == "" && len(sources) == 0 {
		return models.Score{}, ErrNoContent
	}
	attempts, _ := uc.session.RetryAttempts()
	sc, err := uc.scorer.Score(ctx, domsvc.ScoreInput{
		Currency:  code,
		Indicator: models.IndicatorCentralBank,
		Sources:   sources,
		Text:      text,
		Attempts:  attempts,
	})
	if err != nil {
		uc.session.metrics.RecordAnalysis(code, "error")
		return models.Score{}, fmt.Errorf("central bank %s: %w", code, err)
	}
	if err := scoring.ValidateScore(models.IndicatorCentralBank, sc); err != nil {
		return models.Score{}, err
	}
	if sc.RawData == "" {
		return models.Score{}, fmt.Errorf("central bank %s: response has no raw data", code)
	}
	_, err = uc.session.Update(ctx, "central_bank", func(st *models.SessionState) error {
		a, ok := st.AnalysisData[code]
		if !ok {
			a = models.NewCurrencyAnalysis()
			st.AnalysisData[code] = a
		}
		a.Scores[models.IndicatorCentralBank] = sc
		return nil
	})
	if err != nil {
		return models.Score{}, err
	}
	uc.session.metrics.RecordAnalysis(code, "ok")
	return sc, nil
}

// UpdateEventModifier sets the event modifier of a currency.
func (uc *AnalysisUseCase) UpdateEventModifier(ctx context.Context, code string, value int) (models.SessionState, error) {
	if err := uc.session.CheckCurrency(code); err != nil {
		return models.SessionState{}, err
	}
	return uc.session.Update(ctx, "event_modifier", func(st *models.SessionState) error {
		data, err := scoring.ApplyEventModifier(st.AnalysisData, code, value)
		if err != nil {
			return err
		}
		st.AnalysisData = data
		return nil
	})
}

// SaveEventModifierRationale stores the reason for a manual event modifier.
func (uc *AnalysisUseCase) SaveEventModifierRationale(ctx context.Context, code, rationale string) (models.SessionState, error) {
	if err := uc.session.CheckCurrency(code); err != nil {
		return models.SessionState{}, err
	}
	return uc.session.Update(ctx, "event_modifier_rationale", func(st *models.SessionState) error {
		a, ok := st.AnalysisData[code]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotAnalyzed, code)
		}
		r := strings.TrimSpace(rationale)
		if r == "" {
			return scoring.ErrEmptyRationale
		}
		a.EventModifierRationale = &r
		return nil
	})
}

// GenerateRecap asks for a recap of the currency's current scores and
// attaches it.
func (uc *AnalysisUseCase) GenerateRecap(ctx context.Context, code, style string) (models.EconomicRecap, error) {
	if err := uc.session.CheckCurrency(code); err != nil {
		return models.EconomicRecap{}, err
	}
	st := uc.session.Snapshot()
	a, ok := st.AnalysisData[code]
	if !ok || len(a.Scores) == 0 {
		return models.EconomicRecap{}, fmt.Errorf("%w: %s", ErrNotAnalyzed, code)
	}
	if style == "" {
		style = st.RecapStyle
	}
	if style == "" {
		style = uc.cfg.Analysis.RecapStyle
	}
	_, attempts := uc.session.RetryAttempts()
	recap, err := uc.recaps.Generate(ctx, domsvc.RecapInput{Currency: code, Style: style, Scores: a.Scores, Attempts: attempts})
	if err != nil {
		uc.session.metrics.RecordError("recap")
		return models.EconomicRecap{}, err
	}
	if _, err := uc.UpdateRecap(ctx, code, recap); err != nil {
		return models.EconomicRecap{}, err
	}
	return recap, nil
}

// UpdateRecap attaches recap to an analyzed currency. With the score
// modifier enabled a non-zero recommendation becomes the event modifier.
func (uc *AnalysisUseCase) UpdateRecap(ctx context.Context, code string, recap models.EconomicRecap) (models.SessionState, error) {
	if err := scoring.ValidateEventModifier(recap.ScoreModifier); err != nil {
		return models.SessionState{}, err
	}
	return uc.session.Update(ctx, "recap", func(st *models.SessionState) error {
		a, ok := st.AnalysisData[code]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotAnalyzed, code)
		}
		a.Recap = recap.Clone()
		if st.UseScoreModifier && recap.ScoreModifier != 0 {
			a.EventModifierScore = recap.ScoreModifier
		}
		return nil
	})
}
