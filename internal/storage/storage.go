package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

// Known backend identifiers.
const (
	Database = "database"
	CSV      = "csv"
)

// Filter selects entities whose fields equal the given values, ANDed over
// all keys. Keys are field names as persisted (city_name, country, date,
// weather_conditions, temperature, wind_speed, humidity, city_id, id). An
// empty filter matches everything; a filter matching nothing yields an
// empty result, never an error.
type Filter map[string]any

// Backend persists and reads City and ForecastRecord entities. SaveBatch is
// atomic per call and a no-op for an empty batch. A batch that would insert
// a City violating the (city_name, country) uniqueness fails with
// ErrCityExists and persists nothing.
type Backend interface {
	Name() string
	SaveBatch(ctx context.Context, batch weather.Batch) error
	ReadCities(ctx context.Context, filter Filter) ([]weather.City, error)
	ReadRecords(ctx context.Context, filter Filter) ([]weather.ForecastRecord, error)
	Close() error
}

// Registry resolves storage backends by identifier. Backends are built on
// first use and cached, so repeated Get calls share one connection pool or
// file handle set for the process lifetime.
type Registry struct {
	cfg    *config.StorageConfig
	logger *zap.Logger

	mu       sync.Mutex
	backends map[string]Backend
}

func NewRegistry(cfg *config.StorageConfig, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		backends: make(map[string]Backend),
	}
}

// Get resolves a backend by identifier. Unknown identifiers fail with
// ErrInvalidStorageType carrying the offending identifier.
func (r *Registry) Get(identifier string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[identifier]; ok {
		return b, nil
	}

	var (
		b   Backend
		err error
	)
	switch identifier {
	case Database:
		b, err = NewDatabaseBackend(r.cfg.Database, r.logger)
	case CSV:
		b, err = NewCSVBackend(r.cfg.CSV, r.logger)
	default:
		return nil, fmt.Errorf("%w: %q", weather.ErrInvalidStorageType, identifier)
	}
	if err != nil {
		return nil, err
	}

	r.backends[identifier] = b
	return b, nil
}

// Close closes every backend the registry has built.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, b := range r.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s backend: %w", name, err)
		}
		delete(r.backends, name)
	}
	return firstErr
}
