package analytics

import (
	"context"
	"fmt"
	"strings"

	"FXBias/pkg/config"
	xhttp "FXBias/pkg/http"
	"FXBias/pkg/retry"
)

// HTTPServiceBase holds the client and base URL shared by the scoring-service
// clients.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config, opts ...xhttp.ClientOption) *HTTPServiceBase {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.ScoringService.Timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.ScoringService.URL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("scoring service client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON under the given policy. Client errors other
// than 429 are not retried. A non-nil accept checks every decoded response;
// its error fails the attempt and is retried like a transient one.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, policy retry.Policy, accept func() error) error {
	return policy.Do(ctx, func(ctx context.Context, _ int) error {
		err := b.PostJSON(ctx, path, payload, dest)
		if err != nil && !xhttp.IsTemporary(err) {
			return retry.Permanent(err)
		}
		if err == nil && accept != nil {
			err = accept()
		}
		return err
	})
}

// withAttempts applies a positive attempts override to policy.
func withAttempts(policy retry.Policy, attempts int) retry.Policy {
	if attempts > 0 {
		policy.Attempts = attempts
	}
	return policy
}
