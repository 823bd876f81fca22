package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Currencies []string `json:"currencies" validate:"omitempty,dive,len=3"`
	Indicators []string `json:"indicators" validate:"omitempty,dive,required"`
	FetchOnly  bool     `json:"fetchOnly"`
	Force      bool     `json:"force"`
}

type ScoreRequest struct {
	Currency  string `json:"currency" validate:"required,len=3"`
	Indicator string `json:"indicator" validate:"required"`
	Score     *int   `json:"score" validate:"required,gte=-2,lte=2"`
}

type CentralBankRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
	Text     string `json:"text" validate:"required,min=20"`
}

type EventModifierRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
	Value    *int   `json:"value" validate:"required,gte=-1,lte=1"`
}

type RationaleRequest struct {
	Currency  string `json:"currency" validate:"required,len=3"`
	Rationale string `json:"rationale" validate:"required"`
}

type RecapRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
	Style    string `json:"style" validate:"omitempty,oneof=default simplified"`
}

// IndicatorOverrideRequest sets or, with a nil Signal, clears an instrument override.
type IndicatorOverrideRequest struct {
	Instrument string  `json:"instrument" validate:"required,oneof=spx vix audjpy us10y"`
	Signal     *string `json:"signal" validate:"omitempty,oneof=Risk-On Risk-Off Neutral"`
}

// OverallOverrideRequest sets or clears the top-level risk overrides.
type OverallOverrideRequest struct {
	Signal     *string `json:"signal" validate:"omitempty,oneof=Risk-On Risk-Off Neutral"`
	Conviction *string `json:"conviction" validate:"omitempty,oneof=High Medium Uncertain"`
}

// SettingsRequest changes runtime settings. Nil fields are left as they are.
type SettingsRequest struct {
	UseRiskModifier  *bool          `json:"useRiskModifier"`
	UseScoreModifier *bool          `json:"useScoreModifier"`
	RecapStyle       *string        `json:"recapStyle" validate:"omitempty,oneof=default simplified"`
	RetrySettings    *RetrySettings `json:"retrySettings"`
}

// TradeRequest creates a trade, or replaces the one with ID when set.
type TradeRequest struct {
	ID           string   `json:"id"`
	EntryDate    string   `json:"entryDate" validate:"required"`
	Pair         string   `json:"pair" validate:"required,min=6,max=7"`
	Direction    string   `json:"direction" validate:"required,oneof=Long Short"`
	Status       string   `json:"status" default:"Open" validate:"oneof=Open Closed"`
	EntryPrice   float64  `json:"entryPrice" validate:"gt=0"`
	ExitPrice    *float64 `json:"exitPrice" validate:"omitempty,gt=0"`
	StopLoss     *float64 `json:"stopLoss" validate:"omitempty,gt=0"`
	TakeProfit   *float64 `json:"takeProfit" validate:"omitempty,gt=0"`
	PositionSize *float64 `json:"positionSize" validate:"omitempty,gt=0"`
	PnL          *float64 `json:"pnl"`
	Notes        string   `json:"notes" validate:"max=2000"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=365"`
}
