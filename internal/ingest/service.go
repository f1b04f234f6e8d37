package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vzahanych/weather-api/internal/provider"
	"github.com/vzahanych/weather-api/internal/storage"
	"github.com/vzahanych/weather-api/internal/weather"
	"github.com/vzahanych/weather-api/pkg/metrics"
	"github.com/vzahanych/weather-api/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service orchestrates one weather lookup end to end: validate the country,
// fetch from the selected provider, reconcile the city row, persist the
// batch and hand the normalized records back in upstream order. The service
// is stateless across calls; the provider and backend carry the long-lived
// resources.
type Service struct {
	provider provider.Provider
	backend  storage.Backend
	logger   *zap.Logger
	tele     *telemetry.Telemetry
	metrics  *metrics.Collector
}

func NewService(p provider.Provider, backend storage.Backend, logger *zap.Logger, tele *telemetry.Telemetry) *Service {
	return &Service{
		provider: p,
		backend:  backend,
		logger:   logger,
		tele:     tele,
	}
}

// SetMetricsCollector wires the prometheus collector. Optional; the service
// works without one.
func (s *Service) SetMetricsCollector(collector *metrics.Collector) {
	s.metrics = collector
}

// Fetch runs the pipeline for one city. days <= 0 requests current weather
// (exactly one record); days > 0 requests a multi-day forecast. The country
// code is validated before any network call is made.
func (s *Service) Fetch(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "ingest.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", city),
		attribute.String("country_code", countryCode),
		attribute.Int("days", days),
		attribute.String("provider", s.provider.Name()),
	)

	if _, err := weather.ResolveCountry(countryCode); err != nil {
		s.countError("invalid_country")
		return nil, err
	}

	records, err := s.fetchFromProvider(ctx, city, countryCode, days)
	if err != nil {
		s.countError("provider")
		if s.metrics != nil {
			s.metrics.ProviderErrorsTotal.WithLabelValues(s.provider.Name(), providerErrorKind(err)).Inc()
		}
		s.logger.Warn("Provider fetch failed",
			zap.String("provider", s.provider.Name()),
			zap.String("city", city),
			zap.String("country_code", countryCode),
			zap.Error(err))
		return nil, err
	}

	if len(records) == 0 {
		s.countError("no_forecast")
		return nil, fmt.Errorf("%w: %s,%s", weather.ErrNoForecastAvailable, city, countryCode)
	}

	if err := s.persist(ctx, records); err != nil {
		s.countError("storage")
		s.logger.Error("Persisting forecast records failed",
			zap.String("city", records[0].CityName),
			zap.String("country", records[0].Country),
			zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IngestRecordsTotal.Add(float64(len(records)))
	}

	s.logger.Info("Weather lookup persisted",
		zap.String("provider", s.provider.Name()),
		zap.String("city", records[0].CityName),
		zap.String("country", records[0].Country),
		zap.Int("records", len(records)))

	return records, nil
}

func (s *Service) fetchFromProvider(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	mode := "current"
	if days > 0 {
		mode = "forecast"
	}
	if s.metrics != nil {
		s.metrics.ProviderCallsTotal.WithLabelValues(s.provider.Name(), mode).Inc()
	}

	if days > 0 {
		return s.provider.Forecast(ctx, city, countryCode, days)
	}
	return s.provider.Current(ctx, city, countryCode)
}

// persist reconciles the City row for the batch and saves everything in one
// call. All records of one call belong to a single city by construction, so
// the first record determines the (city_name, country) pair.
func (s *Service) persist(ctx context.Context, records []weather.ForecastRecord) error {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "ingest.persist")
	defer span.End()

	city, created, err := s.reconcileCity(ctx, records[0].CityName, records[0].Country)
	if err != nil {
		return err
	}

	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].CityID = city.ID
	}

	batch := weather.Batch{Records: records}
	if created {
		batch.Cities = []weather.City{city}
	}

	err = s.saveBatch(ctx, batch)
	if errors.Is(err, weather.ErrCityExists) {
		// Lost the race against a concurrent identical request: the city
		// row is there now, reuse its identity and save the records alone.
		existing, readErr := s.lookupCity(ctx, city.CityName, city.Country)
		if readErr != nil {
			return readErr
		}
		if existing == nil {
			return err
		}

		for i := range records {
			records[i].CityID = existing.ID
		}
		span.SetAttributes(attribute.Bool("city_race_recovered", true))
		return s.saveBatch(ctx, weather.Batch{Records: records})
	}
	if err != nil {
		return err
	}

	if created && s.metrics != nil {
		s.metrics.CitiesCreatedTotal.Inc()
	}

	return nil
}

func (s *Service) saveBatch(ctx context.Context, batch weather.Batch) error {
	start := time.Now()
	err := s.backend.SaveBatch(ctx, batch)
	if s.metrics != nil {
		s.metrics.StorageSaveDuration.WithLabelValues(s.backend.Name()).Observe(time.Since(start).Seconds())
	}
	return err
}

// reconcileCity returns the existing City row for (cityName, country), or a
// fresh one with a new identifier when none is stored yet. The returned
// bool reports whether the city still needs to be inserted.
func (s *Service) reconcileCity(ctx context.Context, cityName, country string) (weather.City, bool, error) {
	existing, err := s.lookupCity(ctx, cityName, country)
	if err != nil {
		return weather.City{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	city := weather.City{
		ID:       uuid.NewString(),
		CityName: cityName,
		Country:  country,
	}
	return city, true, nil
}

func (s *Service) lookupCity(ctx context.Context, cityName, country string) (*weather.City, error) {
	cities, err := s.backend.ReadCities(ctx, storage.Filter{
		"city_name": cityName,
		"country":   country,
	})
	if err != nil {
		return nil, fmt.Errorf("reading city: %w", err)
	}
	if len(cities) == 0 {
		return nil, nil
	}
	return &cities[0], nil
}

func providerErrorKind(err error) string {
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		return "city_not_found"
	case errors.Is(err, weather.ErrProviderAuthFailure):
		return "auth"
	case errors.Is(err, weather.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

func (s *Service) countError(kind string) {
	if s.metrics != nil {
		s.metrics.IngestErrorsTotal.WithLabelValues(kind).Inc()
	}
}
