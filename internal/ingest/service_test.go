package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/storage"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

// fakeProvider hands out copies of its canned records so the service can
// mutate the slice it receives without bleeding between calls.
type fakeProvider struct {
	records       []weather.ForecastRecord
	err           error
	currentCalls  int
	forecastCalls int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Current(ctx context.Context, city, countryCode string) ([]weather.ForecastRecord, error) {
	p.currentCalls++
	return p.emit()
}

func (p *fakeProvider) Forecast(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	p.forecastCalls++
	return p.emit()
}

func (p *fakeProvider) emit() ([]weather.ForecastRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]weather.ForecastRecord, len(p.records))
	copy(out, p.records)
	return out, nil
}

func cannedRecords() []weather.ForecastRecord {
	zone := time.FixedZone("", 3600)
	return []weather.ForecastRecord{
		{
			Date:              time.Date(2023, 11, 14, 23, 13, 20, 0, zone),
			WeatherConditions: "clear sky",
			Temperature:       15.2,
			WindSpeed:         2.5,
			Humidity:          80,
			CityName:          "Camposampiero",
			Country:           "Italy",
		},
		{
			Date:              time.Date(2023, 11, 15, 23, 13, 20, 0, zone),
			WeatherConditions: "light rain",
			Temperature:       12.0,
			WindSpeed:         4.0,
			Humidity:          70,
			CityName:          "Camposampiero",
			Country:           "Italy",
		},
	}
}

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "weather.db"),
	}
	b, err := storage.NewDatabaseBackend(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDatabaseBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestFetchCurrentPersistsCityAndRecords(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{records: cannedRecords()[:1]}
	svc := NewService(p, backend, zap.NewNop(), nil)
	ctx := context.Background()

	records, err := svc.Fetch(ctx, "camposampiero", "IT", 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.currentCalls != 1 || p.forecastCalls != 0 {
		t.Errorf("calls = %d current / %d forecast, want 1 / 0", p.currentCalls, p.forecastCalls)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID == "" || records[0].CityID == "" {
		t.Errorf("record identifiers not assigned: %+v", records[0])
	}

	cities, err := backend.ReadCities(ctx, nil)
	if err != nil {
		t.Fatalf("ReadCities: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 city, got %d", len(cities))
	}
	if cities[0].CityName != "Camposampiero" || cities[0].Country != "Italy" {
		t.Errorf("city = %+v", cities[0])
	}

	stored, err := backend.ReadRecords(ctx, nil)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(stored))
	}
	if stored[0].CityID != cities[0].ID {
		t.Errorf("stored city_id = %q, want %q", stored[0].CityID, cities[0].ID)
	}
}

func TestFetchForecastRoutesToForecast(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{records: cannedRecords()}
	svc := NewService(p, backend, zap.NewNop(), nil)

	records, err := svc.Fetch(context.Background(), "camposampiero", "IT", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.forecastCalls != 1 || p.currentCalls != 0 {
		t.Errorf("calls = %d current / %d forecast, want 0 / 1", p.currentCalls, p.forecastCalls)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestFetchReusesExistingCity(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{records: cannedRecords()}
	svc := NewService(p, backend, zap.NewNop(), nil)
	ctx := context.Background()

	if _, err := svc.Fetch(ctx, "camposampiero", "IT", 3); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := svc.Fetch(ctx, "camposampiero", "IT", 3); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}

	cities, err := backend.ReadCities(ctx, nil)
	if err != nil {
		t.Fatalf("ReadCities: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 city after two fetches, got %d", len(cities))
	}

	records, err := backend.ReadRecords(ctx, nil)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 records after two fetches, got %d", len(records))
	}
	for _, rec := range records {
		if rec.CityID != cities[0].ID {
			t.Errorf("record %s city_id = %q, want %q", rec.ID, rec.CityID, cities[0].ID)
		}
	}
}

func TestFetchInvalidCountrySkipsProvider(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{records: cannedRecords()}
	svc := NewService(p, backend, zap.NewNop(), nil)

	_, err := svc.Fetch(context.Background(), "camposampiero", "ZZ", 0)
	if !errors.Is(err, weather.ErrInvalidCountry) {
		t.Fatalf("Fetch error = %v, want %v", err, weather.ErrInvalidCountry)
	}
	if p.currentCalls != 0 || p.forecastCalls != 0 {
		t.Errorf("provider was called for an invalid country: %d current / %d forecast", p.currentCalls, p.forecastCalls)
	}
}

func TestFetchProviderErrorPersistsNothing(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{err: weather.ErrCityNotFound}
	svc := NewService(p, backend, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := svc.Fetch(ctx, "doesnotexist", "IT", 0)
	if !errors.Is(err, weather.ErrCityNotFound) {
		t.Fatalf("Fetch error = %v, want %v", err, weather.ErrCityNotFound)
	}

	cities, err := backend.ReadCities(ctx, nil)
	if err != nil {
		t.Fatalf("ReadCities: %v", err)
	}
	if len(cities) != 0 {
		t.Errorf("expected no cities, got %+v", cities)
	}
}

func TestFetchEmptyForecast(t *testing.T) {
	backend := newTestBackend(t)
	p := &fakeProvider{}
	svc := NewService(p, backend, zap.NewNop(), nil)

	_, err := svc.Fetch(context.Background(), "camposampiero", "IT", 5)
	if !errors.Is(err, weather.ErrNoForecastAvailable) {
		t.Fatalf("Fetch error = %v, want %v", err, weather.ErrNoForecastAvailable)
	}
}

// racingBackend slips a conflicting city row into the store right before the
// first batch that carries a city, reproducing a concurrent request winning
// the insert between the service's read and its save.
type racingBackend struct {
	storage.Backend
	raced  bool
	winner weather.City
}

func (b *racingBackend) SaveBatch(ctx context.Context, batch weather.Batch) error {
	if len(batch.Cities) > 0 && !b.raced {
		b.raced = true
		b.winner = weather.City{
			ID:       uuid.NewString(),
			CityName: batch.Cities[0].CityName,
			Country:  batch.Cities[0].Country,
		}
		if err := b.Backend.SaveBatch(ctx, weather.Batch{Cities: []weather.City{b.winner}}); err != nil {
			return err
		}
	}
	return b.Backend.SaveBatch(ctx, batch)
}

func TestFetchRecoversLostCityRace(t *testing.T) {
	inner := newTestBackend(t)
	backend := &racingBackend{Backend: inner}
	p := &fakeProvider{records: cannedRecords()}
	svc := NewService(p, backend, zap.NewNop(), nil)
	ctx := context.Background()

	records, err := svc.Fetch(ctx, "camposampiero", "IT", 3)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !backend.raced {
		t.Fatal("race was not injected")
	}

	cities, err := inner.ReadCities(ctx, nil)
	if err != nil {
		t.Fatalf("ReadCities: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 city after race recovery, got %d", len(cities))
	}
	if cities[0].ID != backend.winner.ID {
		t.Errorf("surviving city = %q, want the winner %q", cities[0].ID, backend.winner.ID)
	}

	for _, rec := range records {
		if rec.CityID != backend.winner.ID {
			t.Errorf("record city_id = %q, want %q", rec.CityID, backend.winner.ID)
		}
	}

	stored, err := inner.ReadRecords(ctx, nil)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(stored) != len(records) {
		t.Errorf("expected %d stored records, got %d", len(records), len(stored))
	}
}
