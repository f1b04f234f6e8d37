package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/vzahanych/weather-api/internal/weather"
)

const defaultTimeoutSeconds = 10

// upstreamDoor is the shared outbound HTTP path for all providers: one
// bounded client plus a circuit breaker per upstream. Transport errors,
// timeouts, open circuits and 5xx responses all surface as
// ErrProviderUnavailable; everything else is returned to the provider for
// status mapping.
type upstreamDoor struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type upstreamResponse struct {
	status int
	body   []byte
}

func newUpstreamDoor(name string, timeoutSeconds int) *upstreamDoor {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &upstreamDoor{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

func (d *upstreamDoor) get(ctx context.Context, rawURL string) (upstreamResponse, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}

		return upstreamResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return upstreamResponse{}, fmt.Errorf("%w: circuit open: %v", weather.ErrProviderUnavailable, err)
		}
		return upstreamResponse{}, fmt.Errorf("%w: %v", weather.ErrProviderUnavailable, err)
	}

	return result.(upstreamResponse), nil
}
