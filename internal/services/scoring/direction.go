package scoring

import (
	"math"
	"sort"

	"FXBias/internal/domain/models"
	"FXBias/internal/services/stats"
)

// Direction thresholds applied to a deviation or a pair spread.
const (
	strongThreshold = 8
	weakThreshold   = 4
)

// ClassifyDirection maps a deviation from the median to a label.
func ClassifyDirection(deviation float64) models.Direction {
	switch {
	case deviation > strongThreshold:
		return models.DirectionVeryBullish
	case deviation >= weakThreshold:
		return models.DirectionBullish
	case deviation < -strongThreshold:
		return models.DirectionVeryBearish
	case deviation <= -weakThreshold:
		return models.DirectionBearish
	default:
		return models.DirectionNeutral
	}
}

// MedianSigma is the median sigma score of every currency with data.
func MedianSigma(data models.AnalysisData) (float64, bool) {
	sigmas := make([]float64, 0, len(data))
	for _, a := range data {
		if a == nil {
			continue
		}
		sigmas = append(sigmas, a.SigmaScore)
	}
	return stats.Median(sigmas)
}

// RecomputeAllDirections returns a copy of data with every direction derived
// from its final score relative to the median sigma. Data without any
// analyzed currency is returned as is.
func RecomputeAllDirections(data models.AnalysisData) models.AnalysisData {
	median, ok := MedianSigma(data)
	if !ok {
		return data.Clone()
	}
	out := data.Clone()
	for _, a := range out {
		a.Direction = ClassifyDirection(a.FinalScore() - median)
	}
	return out
}

// BuildOverview lists each currency's final score and deviation, ordered as
// in order. Codes outside order follow alphabetically.
func BuildOverview(data models.AnalysisData, order []string) models.Overview {
	ov := models.Overview{Currencies: []models.CurrencyStanding{}}
	median, ok := MedianSigma(data)
	if !ok {
		return ov
	}
	ov.Median = &median
	for _, code := range orderedCodes(data, order) {
		a := data[code]
		dev := a.FinalScore() - median
		ov.Currencies = append(ov.Currencies, models.CurrencyStanding{
			Code:       code,
			SigmaScore: a.SigmaScore,
			FinalScore: a.FinalScore(),
			Deviation:  dev,
			Direction:  ClassifyDirection(dev),
		})
	}
	return ov
}

// ComputePairBias classifies base against quote by their deviation spread.
func ComputePairBias(baseDeviation, quoteDeviation float64) (float64, models.Direction) {
	spread := baseDeviation - quoteDeviation
	return spread, ClassifyDirection(spread)
}

// PairBiases builds every ordered pair of distinct analyzed currencies,
// strongest spread first. Equal spreads keep generation order.
func PairBiases(data models.AnalysisData, order []string) []models.PairBias {
	ov := BuildOverview(data, order)
	pairs := make([]models.PairBias, 0, len(ov.Currencies)*(len(ov.Currencies)-1))
	for _, base := range ov.Currencies {
		for _, quote := range ov.Currencies {
			if base.Code == quote.Code {
				continue
			}
			spread, bias := ComputePairBias(base.Deviation, quote.Deviation)
			pairs = append(pairs, models.PairBias{
				Pair:   base.Code + "/" + quote.Code,
				Base:   base.Code,
				Quote:  quote.Code,
				Spread: spread,
				Bias:   bias,
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Spread) > math.Abs(pairs[j].Spread)
	})
	return pairs
}

func orderedCodes(data models.AnalysisData, order []string) []string {
	seen := make(map[string]bool, len(order))
	codes := make([]string, 0, len(data))
	for _, code := range order {
		if a, ok := data[code]; ok && a != nil && !seen[code] {
			codes = append(codes, code)
			seen[code] = true
		}
	}
	var rest []string
	for code, a := range data {
		if a != nil && !seen[code] {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	return append(codes, rest...)
}
