package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"github.com/vzahanych/weather-api/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OpenWeatherProvider normalizes data from the OpenWeatherMap API.
// Upstream reports timestamps as Unix epoch plus a UTC offset in seconds
// and the country as an alpha-2 code.
type OpenWeatherProvider struct {
	baseURL string
	apiKey  string
	units   string
	door    *upstreamDoor
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewOpenWeatherProvider(cfg config.ProviderConfig, timeoutSeconds int, logger *zap.Logger, tele *telemetry.Telemetry) *OpenWeatherProvider {
	units := cfg.Units
	if units == "" {
		units = "metric"
	}

	return &OpenWeatherProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		units:   units,
		door:    newUpstreamDoor(OpenWeatherMap, timeoutSeconds),
		logger:  logger,
		tele:    tele,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return OpenWeatherMap
}

// openWeatherDay mirrors the per-observation part of both upstream payloads
// once the forecast entries are reshaped into the current-weather layout.
type openWeatherDay struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []openWeatherConditions `json:"weather"`
}

type openWeatherConditions struct {
	Description string `json:"description"`
}

func (d openWeatherDay) toRecord(offsetSeconds int, cityName, country string) weather.ForecastRecord {
	conditions := ""
	if len(d.Weather) > 0 {
		conditions = d.Weather[0].Description
	}

	local := time.Unix(d.Dt, 0).In(time.FixedZone("", offsetSeconds))

	return weather.ForecastRecord{
		Date:              local,
		WeatherConditions: conditions,
		Temperature:       d.Main.Temp,
		WindSpeed:         d.Wind.Speed,
		Humidity:          d.Main.Humidity,
		CityName:          cityName,
		Country:           country,
	}
}

func (p *OpenWeatherProvider) Current(ctx context.Context, city, countryCode string) ([]weather.ForecastRecord, error) {
	tracer := p.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "openweathermap.Current")
	defer span.End()
	span.SetAttributes(attribute.String("city", city), attribute.String("country_code", countryCode))

	body, err := p.fetch(ctx, "weather", city, countryCode)
	if err != nil {
		return nil, err
	}

	var payload struct {
		openWeatherDay
		Timezone int    `json:"timezone"`
		Name     string `json:"name"`
		Sys      struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", weather.ErrProviderUnavailable, err)
	}

	country, err := weather.ResolveCountry(payload.Sys.Country)
	if err != nil {
		return nil, err
	}

	record := payload.openWeatherDay.toRecord(payload.Timezone, payload.Name, country)
	return []weather.ForecastRecord{record}, nil
}

func (p *OpenWeatherProvider) Forecast(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	tracer := p.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "openweathermap.Forecast")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", city),
		attribute.String("country_code", countryCode),
		attribute.Int("days", days),
	)

	body, err := p.fetch(ctx, "forecast/daily", city, countryCode)
	if err != nil {
		return nil, err
	}

	var payload struct {
		City struct {
			Name     string `json:"name"`
			Country  string `json:"country"`
			Timezone int    `json:"timezone"`
		} `json:"city"`
		List []struct {
			Dt   int64 `json:"dt"`
			Temp struct {
				Day float64 `json:"day"`
			} `json:"temp"`
			Speed    float64 `json:"speed"`
			Humidity float64 `json:"humidity"`
			Weather  []openWeatherConditions `json:"weather"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", weather.ErrProviderUnavailable, err)
	}

	country, err := weather.ResolveCountry(payload.City.Country)
	if err != nil {
		return nil, err
	}

	records := make([]weather.ForecastRecord, 0, len(payload.List))
	for i, entry := range payload.List {
		if i > days {
			break
		}

		day := openWeatherDay{Dt: entry.Dt, Weather: entry.Weather}
		day.Main.Temp = entry.Temp.Day
		day.Main.Humidity = entry.Humidity
		day.Wind.Speed = entry.Speed

		records = append(records, day.toRecord(payload.City.Timezone, payload.City.Name, country))
	}

	return records, nil
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, endpoint, city, countryCode string) ([]byte, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s,%s", city, countryCode))
	q.Set("units", p.units)
	q.Set("appid", p.apiKey)

	resp, err := p.door.get(ctx, fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, q.Encode()))
	if err != nil {
		p.logger.Warn("OpenWeatherMap request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}

	switch {
	case resp.status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: location %s,%s is not found", weather.ErrCityNotFound, city, countryCode)
	case resp.status == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: openweathermap", weather.ErrProviderAuthFailure)
	case resp.status < 200 || resp.status >= 300:
		return nil, fmt.Errorf("%w: unexpected status %d", weather.ErrProviderUnavailable, resp.status)
	}

	return resp.body, nil
}
