package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// dateFormat keeps the city's UTC offset in the persisted value so a
// round-tripped record carries the same local timestamp it was saved with.
const dateFormat = time.RFC3339

var cityColumns = map[string]bool{
	"id":        true,
	"city_name": true,
	"country":   true,
}

var recordColumns = map[string]bool{
	"id":                 true,
	"date":               true,
	"weather_conditions": true,
	"temperature":        true,
	"wind_speed":         true,
	"humidity":           true,
	"city_id":            true,
}

// DatabaseBackend persists cities and forecast records in a relational
// database, sqlite or postgres depending on the configured driver. The
// UNIQUE(city_name, country) constraint is the authoritative guard against
// duplicate cities; concurrent identical inserts surface as ErrCityExists.
type DatabaseBackend struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDatabaseBackend(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBackend, error) {
	var driverName, gooseDialect string
	switch cfg.Driver {
	case "sqlite":
		driverName, gooseDialect = "sqlite", "sqlite3"
	case "postgres":
		driverName, gooseDialect = "postgres", "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(gooseDialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("Database backend ready", zap.String("driver", cfg.Driver))

	return &DatabaseBackend{db: db, logger: logger}, nil
}

func (b *DatabaseBackend) Name() string {
	return Database
}

// DB exposes the underlying handle for migration tooling.
func (b *DatabaseBackend) DB() *sqlx.DB {
	return b.db
}

func (b *DatabaseBackend) SaveBatch(ctx context.Context, batch weather.Batch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cityInsert := tx.Rebind(`INSERT INTO cities (id, city_name, country) VALUES (?, ?, ?)`)
	for _, city := range batch.Cities {
		if _, err := tx.ExecContext(ctx, cityInsert, city.ID, city.CityName, city.Country); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s, %s", weather.ErrCityExists, city.CityName, city.Country)
			}
			return fmt.Errorf("inserting city: %w", err)
		}
	}

	recordInsert := tx.Rebind(`
		INSERT INTO weather_requests (id, date, weather_conditions, temperature, wind_speed, humidity, city_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, record := range batch.Records {
		_, err := tx.ExecContext(ctx, recordInsert,
			record.ID,
			record.Date.Format(dateFormat),
			record.WeatherConditions,
			record.Temperature,
			record.WindSpeed,
			record.Humidity,
			record.CityID,
		)
		if err != nil {
			return fmt.Errorf("inserting forecast record: %w", err)
		}
	}

	return tx.Commit()
}

func (b *DatabaseBackend) ReadCities(ctx context.Context, filter Filter) ([]weather.City, error) {
	query, args, err := buildSelect("SELECT id, city_name, country FROM cities", cityColumns, filter)
	if err != nil {
		return nil, err
	}

	cities := []weather.City{}
	if err := b.db.SelectContext(ctx, &cities, b.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("reading cities: %w", err)
	}
	return cities, nil
}

type forecastRow struct {
	ID                string  `db:"id"`
	Date              string  `db:"date"`
	WeatherConditions string  `db:"weather_conditions"`
	Temperature       float64 `db:"temperature"`
	WindSpeed         float64 `db:"wind_speed"`
	Humidity          float64 `db:"humidity"`
	CityID            string  `db:"city_id"`
}

func (b *DatabaseBackend) ReadRecords(ctx context.Context, filter Filter) ([]weather.ForecastRecord, error) {
	query, args, err := buildSelect(
		"SELECT id, date, weather_conditions, temperature, wind_speed, humidity, city_id FROM weather_requests",
		recordColumns, filter)
	if err != nil {
		return nil, err
	}

	rows := []forecastRow{}
	if err := b.db.SelectContext(ctx, &rows, b.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("reading forecast records: %w", err)
	}

	records := make([]weather.ForecastRecord, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateFormat, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", row.Date, err)
		}
		records = append(records, weather.ForecastRecord{
			ID:                row.ID,
			Date:              date,
			WeatherConditions: row.WeatherConditions,
			Temperature:       row.Temperature,
			WindSpeed:         row.WindSpeed,
			Humidity:          row.Humidity,
			CityID:            row.CityID,
		})
	}
	return records, nil
}

func (b *DatabaseBackend) Close() error {
	return b.db.Close()
}

// buildSelect appends an equality predicate per filter key. Keys are
// validated against the table's column set before touching the query.
func buildSelect(base string, columns map[string]bool, filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return base, nil, nil
	}

	clauses := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for key, value := range filter {
		if !columns[key] {
			return "", nil, fmt.Errorf("unknown filter field %q", key)
		}
		clauses = append(clauses, key+" = ?")
		if t, ok := value.(time.Time); ok {
			value = t.Format(dateFormat)
		}
		args = append(args, value)
	}

	return base + " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// SQLITE_CONSTRAINT_UNIQUE and SQLITE_CONSTRAINT_PRIMARYKEY
		return sqliteErr.Code() == 2067 || sqliteErr.Code() == 1555
	}

	return false
}
