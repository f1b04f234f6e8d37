package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"github.com/vzahanych/weather-api/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WeatherAPIProvider normalizes data from weatherapi.com. Upstream reports
// the city's IANA timezone name and epoch timestamps that are already
// local; the country arrives as a full name, no code resolution needed.
// Unknown locations come back as HTTP 400, not 404.
type WeatherAPIProvider struct {
	baseURL string
	apiKey  string
	door    *upstreamDoor
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewWeatherAPIProvider(cfg config.ProviderConfig, timeoutSeconds int, logger *zap.Logger, tele *telemetry.Telemetry) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		door:    newUpstreamDoor(WeatherAPI, timeoutSeconds),
		logger:  logger,
		tele:    tele,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return WeatherAPI
}

type weatherAPILocation struct {
	Name           string `json:"name"`
	Country        string `json:"country"`
	TzID           string `json:"tz_id"`
	LocaltimeEpoch int64  `json:"localtime_epoch"`
}

// zone resolves the city's IANA timezone into a fixed offset so that
// persisted dates carry the city's UTC offset rather than a zone name.
func (l weatherAPILocation) zone() (*time.Location, error) {
	loc, err := time.LoadLocation(l.TzID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", weather.ErrProviderUnavailable, l.TzID)
	}
	_, offset := time.Unix(l.LocaltimeEpoch, 0).In(loc).Zone()
	return time.FixedZone("", offset), nil
}

func (p *WeatherAPIProvider) Current(ctx context.Context, city, countryCode string) ([]weather.ForecastRecord, error) {
	tracer := p.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "weatherapi.Current")
	defer span.End()
	span.SetAttributes(attribute.String("city", city), attribute.String("country_code", countryCode))

	body, err := p.fetch(ctx, "current.json", city, countryCode, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Location weatherAPILocation `json:"location"`
		Current  struct {
			TempC     float64 `json:"temp_c"`
			WindKph   float64 `json:"wind_kph"`
			Humidity  float64 `json:"humidity"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", weather.ErrProviderUnavailable, err)
	}

	zone, err := payload.Location.zone()
	if err != nil {
		return nil, err
	}

	record := weather.ForecastRecord{
		Date:              time.Unix(payload.Location.LocaltimeEpoch, 0).In(zone),
		WeatherConditions: payload.Current.Condition.Text,
		Temperature:       payload.Current.TempC,
		WindSpeed:         payload.Current.WindKph,
		Humidity:          payload.Current.Humidity,
		CityName:          payload.Location.Name,
		Country:           payload.Location.Country,
	}
	return []weather.ForecastRecord{record}, nil
}

func (p *WeatherAPIProvider) Forecast(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	tracer := p.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "weatherapi.Forecast")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", city),
		attribute.String("country_code", countryCode),
		attribute.Int("days", days),
	)

	body, err := p.fetch(ctx, "forecast.json", city, countryCode, url.Values{"days": []string{strconv.Itoa(days)}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Location weatherAPILocation `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				DateEpoch int64 `json:"date_epoch"`
				Day       struct {
					AvgTempC    float64 `json:"avgtemp_c"`
					MaxWindKph  float64 `json:"maxwind_kph"`
					AvgHumidity float64 `json:"avghumidity"`
					Condition   struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", weather.ErrProviderUnavailable, err)
	}

	zone, err := payload.Location.zone()
	if err != nil {
		return nil, err
	}

	records := make([]weather.ForecastRecord, 0, len(payload.Forecast.ForecastDay))
	for i, day := range payload.Forecast.ForecastDay {
		if i > days {
			break
		}

		records = append(records, weather.ForecastRecord{
			Date:              time.Unix(day.DateEpoch, 0).In(zone),
			WeatherConditions: day.Day.Condition.Text,
			Temperature:       day.Day.AvgTempC,
			WindSpeed:         day.Day.MaxWindKph,
			Humidity:          day.Day.AvgHumidity,
			CityName:          payload.Location.Name,
			Country:           payload.Location.Country,
		})
	}

	return records, nil
}

func (p *WeatherAPIProvider) fetch(ctx context.Context, endpoint, city, countryCode string, extra url.Values) ([]byte, error) {
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", fmt.Sprintf("%s,%s", city, countryCode))
	for key, values := range extra {
		for _, value := range values {
			q.Add(key, value)
		}
	}

	resp, err := p.door.get(ctx, fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, q.Encode()))
	if err != nil {
		p.logger.Warn("WeatherAPI request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}

	switch {
	case resp.status == http.StatusBadRequest || resp.status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s,%s does not match any location", weather.ErrCityNotFound, city, countryCode)
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: weatherapi", weather.ErrProviderAuthFailure)
	case resp.status < 200 || resp.status >= 300:
		return nil, fmt.Errorf("%w: unexpected status %d", weather.ErrProviderUnavailable, resp.status)
	}

	return resp.body, nil
}
