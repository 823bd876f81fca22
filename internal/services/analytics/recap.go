package analytics

import (
	"context"
	"fmt"

	"FXBias/internal/domain/models"
	domsvc "FXBias/internal/domain/service"
	"FXBias/internal/services/scoring"
	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	"FXBias/pkg/retry"

	"github.com/google/uuid"
)

// HTTPRecapGenerator requests an economic recap from the scoring service.
type HTTPRecapGenerator struct {
	base   *HTTPServiceBase
	policy retry.Policy
}

func NewHTTPRecapGenerator(cfg *config.Config, opts ...xhttp.ClientOption) *HTTPRecapGenerator {
	return &HTTPRecapGenerator{
		base:   NewHTTPServiceBase(cfg, opts...),
		policy: cfg.Analysis.RecapRetry,
	}
}

func (g *HTTPRecapGenerator) Generate(ctx context.Context, in domsvc.RecapInput) (models.EconomicRecap, error) {
	var recap models.EconomicRecap
	accept := func() error {
		if err := scoring.ValidateEventModifier(recap.ScoreModifier); err != nil {
			recap = models.EconomicRecap{}
			return err
		}
		return nil
	}
	if err := g.base.PostJSONWithRetry(ctx, "/recap", in, &recap, withAttempts(g.policy, in.Attempts), accept); err != nil {
		return models.EconomicRecap{}, fmt.Errorf("recap %s: %w", in.Currency, err)
	}
	for i := range recap.EventModifiers {
		if recap.EventModifiers[i].ID == "" {
			recap.EventModifiers[i].ID = uuid.NewString()
		}
	}
	return recap, nil
}

var _ domsvc.RecapGenerator = (*HTTPRecapGenerator)(nil)
