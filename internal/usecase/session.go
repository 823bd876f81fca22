package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FXBias/internal/domain/models"
	drepo "FXBias/internal/domain/repository"
	"FXBias/internal/service/cache"
	"FXBias/internal/services/scoring"
	"FXBias/pkg/config"
	"FXBias/pkg/logger"
	"FXBias/pkg/util"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrNotAnalyzed     = errors.New("currency has not been analyzed")
	ErrTradeNotFound   = errors.New("trade not found")
)

// Listener is called with a copy of the state after every committed update.
type Listener func(models.SessionState)

// Session owns the analysis state of one process together with the
// indicator score cache. Every mutation goes through Update, which
// recomputes all derived fields before the new state becomes visible.
type Session struct {
	mu    sync.Mutex
	state models.SessionState
	cache *cache.TTLCache[models.Score]

	currencies []string
	known      map[string]bool

	states  drepo.StateRepository
	history drepo.HistoryRepository
	pub     drepo.Publisher
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time

	version uint64
	saveMu  sync.Mutex
	saved   uint64

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// SessionOption configures Session.
type SessionOption func(*Session)

func WithStateRepository(r drepo.StateRepository) SessionOption {
	return func(s *Session) { s.states = r }
}

func WithHistoryRepository(r drepo.HistoryRepository) SessionOption {
	return func(s *Session) { s.history = r }
}

func WithPublisher(p drepo.Publisher) SessionOption {
	return func(s *Session) { s.pub = p }
}

func WithMetrics(m drepo.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func WithLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithClock replaces time.Now for the session and its cache.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(cfg *config.Config, opts ...SessionOption) *Session {
	s := &Session{
		state:      models.NewSessionState(),
		currencies: cfg.CurrencyCodes(),
		known:      make(map[string]bool, len(cfg.Currencies)),
		metrics:    nopMetrics{},
		log:        logger.Nop(),
		now:        time.Now,
		listeners:  make(map[int]Listener),
	}
	for _, code := range s.currencies {
		s.known[code] = true
	}
	s.state.UseRiskModifier = cfg.Analysis.UseRiskModifier
	s.state.UseScoreModifier = cfg.Analysis.UseScoreModifier
	s.state.RecapStyle = cfg.Analysis.RecapStyle
	for _, opt := range opts {
		opt(s)
	}
	s.cache = cache.NewTTLCache[models.Score](cache.WithTTL(cfg.Analysis.CacheTTL), cache.WithClock(s.now))
	return s
}

// Restore loads the persisted state, if any, and recomputes it.
func (s *Session) Restore(ctx context.Context) error {
	if s.states == nil {
		return nil
	}
	loaded, err := s.states.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if loaded == nil {
		return nil
	}
	if err := scoring.ValidateState(*loaded); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.state = scoring.Recompute(*loaded)
	s.version++
	s.mu.Unlock()
	s.log.Info("session restored", logger.Int("currencies", len(loaded.AnalysisData)))
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Currencies returns the configured currency codes in display order.
func (s *Session) Currencies() []string {
	return append([]string(nil), s.currencies...)
}

// CheckCurrency returns ErrUnknownCurrency for codes outside the config.
func (s *Session) CheckCurrency(code string) error {
	if !s.known[code] {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return nil
}

// Update applies fn to a copy of the state, recomputes it and commits the
// result. When fn fails nothing changes. The committed state is persisted,
// published and pushed to listeners after the lock is released.
func (s *Session) Update(ctx context.Context, op string, fn func(st *models.SessionState) error) (models.SessionState, error) {
	start := time.Now()
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return models.SessionState{}, err
	}
	next = scoring.Recompute(next)
	s.state = next
	s.version++
	version := s.version
	out := next.Clone()
	s.mu.Unlock()

	s.metrics.RecordRecompute()
	for code, a := range out.AnalysisData {
		s.metrics.RecordFinalScore(code, a.FinalScore())
	}
	s.persist(ctx, version, out)
	s.notify(out)
	s.metrics.RecordLatency(op, time.Since(start).Seconds())
	return out, nil
}

func (s *Session) persist(ctx context.Context, version uint64, st models.SessionState) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	// a newer state has already been written
	if version <= s.saved {
		return
	}
	s.saved = version

	if s.states != nil {
		if err := s.states.Save(ctx, st); err != nil {
			s.metrics.RecordError("state_save")
			s.log.Error("save session state failed", logger.Error(err))
		}
	}
	if s.pub != nil && len(st.AnalysisData) > 0 {
		if err := s.pub.PublishAnalysis(ctx, st.AnalysisData); err != nil {
			s.metrics.RecordError("publish")
			s.log.Error("publish analysis failed", logger.Error(err))
		}
	}
}

// Subscribe registers fn for state changes. The returned func removes it.
func (s *Session) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Session) notify(st models.SessionState) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	for _, fn := range s.listeners {
		fn(st)
	}
}

// CachedScore returns a fresh cached score for key.
func (s *Session) CachedScore(key string) (models.Score, bool) {
	sc, ok := s.cache.Get(key)
	if ok {
		s.metrics.RecordCacheRequest("indicator", "hit")
	} else {
		s.metrics.RecordCacheRequest("indicator", "miss")
	}
	return sc, ok
}

func (s *Session) CacheScore(key string, sc models.Score) {
	s.cache.Set(key, sc)
}

// SaveSnapshot records today's analysis in the session history and, when
// configured, in the history repository.
func (s *Session) SaveSnapshot(ctx context.Context) (models.HistoricalSnapshot, error) {
	var snap models.HistoricalSnapshot
	_, err := s.Update(ctx, "snapshot", func(st *models.SessionState) error {
		snap = models.HistoricalSnapshot{Date: util.Day(s.now()), Data: st.AnalysisData.Clone()}
		st.HistoricalData = st.HistoricalData.Upsert(snap)
		return nil
	})
	if err != nil {
		return snap, err
	}
	if s.history != nil {
		if err := s.history.SaveSnapshot(ctx, snap); err != nil {
			s.metrics.RecordError("history_save")
			return snap, fmt.Errorf("save snapshot: %w", err)
		}
	}
	return snap, nil
}

// History returns up to limit snapshots, newest first. The repository is
// preferred; the session history is the fallback.
func (s *Session) History(ctx context.Context, limit int) (models.HistoricalData, error) {
	if s.history != nil {
		h, err := s.history.ListSnapshots(ctx, limit)
		if err == nil {
			return h, nil
		}
		s.metrics.RecordError("history_list")
		s.log.Warn("list snapshots failed, using session history", logger.Error(err))
	}
	st := s.Snapshot()
	out := make(models.HistoricalData, 0, len(st.HistoricalData))
	for i := len(st.HistoricalData) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, st.HistoricalData[i])
	}
	return out, nil
}

// Import replaces the whole state with an exported one. The document is
// rejected as a whole when any of its inputs is invalid.
func (s *Session) Import(ctx context.Context, in models.SessionState) (models.SessionState, error) {
	for code := range in.AnalysisData {
		if err := s.CheckCurrency(code); err != nil {
			return models.SessionState{}, err
		}
	}
	if err := scoring.ValidateState(in); err != nil {
		return models.SessionState{}, err
	}
	return s.Update(ctx, "import", func(st *models.SessionState) error {
		*st = in.Clone()
		if st.AnalysisData == nil {
			st.AnalysisData = make(models.AnalysisData)
		}
		if st.HistoricalData == nil {
			st.HistoricalData = models.HistoricalData{}
		}
		if st.Trades == nil {
			st.Trades = models.Trades{}
		}
		return nil
	})
}

// Pairs returns every pair bias ordered by spread magnitude.
func (s *Session) Pairs() []models.PairBias {
	st := s.Snapshot()
	return scoring.PairBiases(st.AnalysisData, s.currencies)
}

// SetSettings changes the runtime settings. Nil fields are left as they are.
func (s *Session) SetSettings(ctx context.Context, req models.SettingsRequest) (models.SessionState, error) {
	style := ""
	if req.RecapStyle != nil {
		style = *req.RecapStyle
	}
	if err := scoring.ValidateSettings(style, req.RetrySettings); err != nil {
		return models.SessionState{}, err
	}
	return s.Update(ctx, "settings", func(st *models.SessionState) error {
		if req.UseRiskModifier != nil {
			st.UseRiskModifier = *req.UseRiskModifier
		}
		if req.UseScoreModifier != nil {
			st.UseScoreModifier = *req.UseScoreModifier
		}
		if req.RecapStyle != nil {
			st.RecapStyle = *req.RecapStyle
		}
		if req.RetrySettings != nil {
			r := *req.RetrySettings
			st.RetrySettings = &r
		}
		return nil
	})
}

// RetryAttempts returns the runtime attempt overrides for analysis and recap
// calls, zero when the configured policies apply.
func (s *Session) RetryAttempts() (analyze, recap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.state.RetrySettings; r != nil {
		return r.AnalyzeAll.EffectiveAttempts(), r.GenerateRecap.EffectiveAttempts()
	}
	return 0, 0
}

// Trades returns a copy of the trade journal.
func (s *Session) Trades() models.Trades {
	st := s.Snapshot()
	if st.Trades == nil {
		return models.Trades{}
	}
	return st.Trades
}

// SaveTrade inserts t, or replaces the trade with the same id. A trade
// without an id gets a new one.
func (s *Session) SaveTrade(ctx context.Context, t models.Trade) (models.Trade, error) {
	t = t.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Pair = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(t.Pair), "/", ""))
	if err := scoring.ValidateTrade(t); err != nil {
		return models.Trade{}, err
	}
	_, err := s.Update(ctx, "trade_save", func(st *models.SessionState) error {
		st.Trades = st.Trades.Upsert(t)
		return nil
	})
	if err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// DeleteTrade removes the trade with the given id.
func (s *Session) DeleteTrade(ctx context.Context, id string) error {
	_, err := s.Update(ctx, "trade_delete", func(st *models.SessionState) error {
		rest, ok := st.Trades.Remove(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
		}
		st.Trades = rest
		return nil
	})
	return err
}

type nopMetrics struct{}

func (nopMetrics) RecordRecompute() {}
func (nopMetrics) RecordAnalysis(string, string) {}
func (nopMetrics) RecordCacheRequest(string, string) {}
func (nopMetrics) RecordFinalScore(string, float64) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
