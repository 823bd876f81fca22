package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/services/scoring"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	"FXBias/pkg/retry"
)

// HTTPIndicatorScorer asks the scoring service to grade one indicator.
type HTTPIndicatorScorer struct {
	base   *HTTPServiceBase
	policy retry.Policy
}

type scoreResponse struct {
	Score     *int   `json:"score"`
	Rationale string `json:"rationale"`
	RawData   string `json:"rawData"`
}

func NewHTTPIndicatorScorer(cfg *config.Config, opts ...xhttp.ClientOption) *HTTPIndicatorScorer {
	return &HTTPIndicatorScorer{
		base:   NewHTTPServiceBase(cfg, opts...),
		policy: cfg.Analysis.AnalyzeRetry,
	}
}

func (s *HTTPIndicatorScorer) Score(ctx context.Context, in domsvc.ScoreInput) (models.Score, error) {
	var (
		sr  scoreResponse
		out models.Score
	)
	accept := func() error {
		defer func() { sr = scoreResponse{} }()
		if sr.Score == nil {
			return errors.New("response has no score")
		}
		out = models.Score{
			Score:     *sr.Score,
			Rationale: strings.TrimSpace(sr.Rationale),
			RawData:   sr.RawData,
		}
		return scoring.ValidateScore(in.Indicator, out)
	}
	if err := s.base.PostJSONWithRetry(ctx, "/score", in, &sr, withAttempts(s.policy, in.Attempts), accept); err != nil {
		return models.Score{}, fmt.Errorf("score %s %s: %w", in.Currency, in.Indicator, err)
	}
	return out, nil
}

var _ domsvc.IndicatorScorer = (*HTTPIndicatorScorer)(nil)
