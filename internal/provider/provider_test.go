package provider

import (
	"errors"
	"testing"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

func TestRegistryGet(t *testing.T) {
	cfg := &config.WeatherConfig{
		TimeoutSeconds: 5,
		Providers: map[string]config.ProviderConfig{
			OpenWeatherMap: {BaseURL: "http://localhost", APIKey: "k"},
			WeatherAPI:     {BaseURL: "http://localhost", APIKey: "k"},
		},
	}
	r := NewRegistry(cfg, zap.NewNop(), nil)

	for _, name := range []string{OpenWeatherMap, WeatherAPI} {
		p, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name() = %q, want %q", p.Name(), name)
		}
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(&config.WeatherConfig{}, zap.NewNop(), nil)

	_, err := r.Get("acmeweather")
	if !errors.Is(err, weather.ErrInvalidProvider) {
		t.Fatalf("Get error = %v, want %v", err, weather.ErrInvalidProvider)
	}
}
