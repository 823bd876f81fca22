package models

// EventFlag grades a recap event by its impact on the currency.
type EventFlag string

const (
	FlagGreen  EventFlag = "Green Flag"
	FlagYellow EventFlag = "Yellow Flag"
	FlagRed    EventFlag = "Red Flag"
)

type DataPoint struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type EventModifier struct {
	ID          string    `json:"id,omitempty"`
	Heading     string    `json:"heading"`
	Date        string    `json:"date,omitempty"`
	Flag        EventFlag `json:"flag"`
	Description string    `json:"description"`
}

type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EconomicRecap is the generated narrative for a currency, including the
// event modifier it recommends.
type EconomicRecap struct {
	ScoreModifier          int                    `json:"scoreModifier"`
	Bias                   string                 `json:"bias"`
	NarrativeReasoning     string                 `json:"narrativeReasoning"`
	RawData                map[string][]DataPoint `json:"rawData"`
	EventModifiers         []EventModifier        `json:"eventModifiers"`
	ModifierRecommendation string                 `json:"modifierRecommendation"`
	Sources                []Source               `json:"sources"`
}

func (r *EconomicRecap) Clone() *EconomicRecap {
	if r == nil {
		return nil
	}
	out := *r
	if r.RawData != nil {
		out.RawData = make(map[string][]DataPoint, len(r.RawData))
		for k, v := range r.RawData {
			out.RawData[k] = append([]DataPoint(nil), v...)
		}
	}
	out.EventModifiers = append([]EventModifier(nil), r.EventModifiers...)
	out.Sources = append([]Source(nil), r.Sources...)
	return &out
}
