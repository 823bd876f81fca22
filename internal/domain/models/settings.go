package models

// RetrySetting controls how often one kind of scoring service call is
// attempted. A disabled setting means a single attempt.
type RetrySetting struct {
	Enabled  bool `json:"enabled"`
	Attempts int  `json:"attempts" validate:"gte=1,lte=10"`
}

// EffectiveAttempts returns the number of calls to make.
func (r RetrySetting) EffectiveAttempts() int {
	if !r.Enabled || r.Attempts < 1 {
		return 1
	}
	return r.Attempts
}

// RetrySettings overrides the configured retry policies at runtime.
type RetrySettings struct {
	AnalyzeAll    RetrySetting `json:"analyzeAll"`
	GenerateRecap RetrySetting `json:"generateRecap"`
}

const (
	RecapStyleDefault    = "default"
	RecapStyleSimplified = "simplified"
)

// ValidRecapStyle reports whether s names a known recap style.
func ValidRecapStyle(s string) bool {
	return s == RecapStyleDefault || s == RecapStyleSimplified
}
