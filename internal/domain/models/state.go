package models

// SessionState is the persisted and exported subset of a session.
type SessionState struct {
	AnalysisData     AnalysisData           `json:"analysisData"`
	HistoricalData   HistoricalData         `json:"historicalData"`
	RiskSentiment    *RiskSentimentAnalysis `json:"riskSentiment,omitempty"`
	Trades           Trades                 `json:"trades"`
	UseScoreModifier bool                   `json:"useScoreModifier"`
	UseRiskModifier  bool                   `json:"useRiskModifier"`
	RecapStyle       string                 `json:"recapStyle,omitempty"`
	RetrySettings    *RetrySettings         `json:"retrySettings,omitempty"`
}

// NewSessionState returns an empty state with both modifiers disabled.
func NewSessionState() SessionState {
	return SessionState{
		AnalysisData:   make(AnalysisData),
		HistoricalData: HistoricalData{},
		Trades:         Trades{},
	}
}

// Clone returns a deep copy.
func (s SessionState) Clone() SessionState {
	out := s
	out.AnalysisData = s.AnalysisData.Clone()
	out.HistoricalData = s.HistoricalData.Clone()
	out.RiskSentiment = s.RiskSentiment.Clone()
	out.Trades = s.Trades.Clone()
	if s.RetrySettings != nil {
		r := *s.RetrySettings
		out.RetrySettings = &r
	}
	return out
}

// PairBias is the relative strength of Base against Quote.
type PairBias struct {
	Pair   string    `json:"pair"`
	Base   string    `json:"base"`
	Quote  string    `json:"quote"`
	Spread float64   `json:"spread"`
	Bias   Direction `json:"bias"`
}

// CurrencyStanding is one currency's position relative to the median.
type CurrencyStanding struct {
	Code       string    `json:"code"`
	SigmaScore float64   `json:"sigmaScore"`
	FinalScore float64   `json:"finalScore"`
	Deviation  float64   `json:"deviation"`
	Direction  Direction `json:"direction"`
}

// Overview is the cross-currency view served to clients. Median is nil when
// no currency has data.
type Overview struct {
	Median     *float64           `json:"median"`
	Currencies []CurrencyStanding `json:"currencies"`
}

// MissingData lists indicators that have sources configured but no score.
type MissingData map[string][]Indicator

// AnalysisReport summarizes one analysis run.
type AnalysisReport struct {
	Date     string            `json:"date"`
	Analyzed []string          `json:"analyzed"`
	Failures map[string]string `json:"failures,omitempty"`
	Missing  MissingData       `json:"missing,omitempty"`
}
