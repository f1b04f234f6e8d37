package provider

import (
	"context"
	"fmt"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"github.com/vzahanych/weather-api/pkg/telemetry"
	"go.uber.org/zap"
)

// Known provider identifiers. The set is closed: adding a provider means
// adding an implementation and one registry entry, nothing else changes.
const (
	OpenWeatherMap = "openweathermap"
	WeatherAPI     = "weatherapi"
)

// Provider fetches weather data from one upstream API and normalizes it
// into canonical forecast records. Implementations own timezone conversion
// to the city's local offset and country-name canonicalization, so callers
// see one uniform shape regardless of the upstream JSON.
type Provider interface {
	Name() string

	// Current returns today's weather as a single-element slice.
	Current(ctx context.Context, city, countryCode string) ([]weather.ForecastRecord, error)

	// Forecast returns up to days+1 records in upstream (chronological) order.
	Forecast(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error)
}

// Registry holds the configured provider instances. Providers are built
// once at construction, pulling credentials from the config; Get is a cheap
// lookup with no side effects.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg *config.WeatherConfig, logger *zap.Logger, tele *telemetry.Telemetry) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	if pc, ok := cfg.Providers[OpenWeatherMap]; ok {
		r.providers[OpenWeatherMap] = NewOpenWeatherProvider(pc, cfg.TimeoutSeconds, logger, tele)
	}
	if pc, ok := cfg.Providers[WeatherAPI]; ok {
		r.providers[WeatherAPI] = NewWeatherAPIProvider(pc, cfg.TimeoutSeconds, logger, tele)
	}

	for name := range r.providers {
		logger.Info("Registered weather provider", zap.String("provider", name))
	}

	return r
}

// Get resolves a provider by identifier. Unknown identifiers fail with
// ErrInvalidProvider carrying the offending identifier.
func (r *Registry) Get(identifier string) (Provider, error) {
	p, ok := r.providers[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", weather.ErrInvalidProvider, identifier)
	}
	return p, nil
}
