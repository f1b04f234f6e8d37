package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

var (
	cityHeader   = []string{"id", "city_name", "country"}
	recordHeader = []string{"id", "date", "weather_conditions", "temperature", "wind_speed", "humidity", "city_id"}
)

// CSVBackend persists each entity kind in one flat file under a configured
// directory, creating the file with a header row on first write. A mutex
// serializes writers within the process; concurrent multi-process writers
// are a deployment concern, not handled here.
type CSVBackend struct {
	citiesPath  string
	recordsPath string
	mu          sync.Mutex
	logger      *zap.Logger
}

func NewCSVBackend(cfg config.CSVConfig, logger *zap.Logger) (*CSVBackend, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating csv directory: %w", err)
	}

	logger.Info("CSV backend ready", zap.String("directory", cfg.Directory))

	return &CSVBackend{
		citiesPath:  filepath.Join(cfg.Directory, cfg.CitiesFile),
		recordsPath: filepath.Join(cfg.Directory, cfg.RecordsFile),
		logger:      logger,
	}, nil
}

func (b *CSVBackend) Name() string {
	return CSV
}

func (b *CSVBackend) SaveBatch(ctx context.Context, batch weather.Batch) error {
	if batch.Empty() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The uniqueness invariant on (city_name, country) has no constraint
	// to lean on here, so enforce it by scanning before appending.
	for _, city := range batch.Cities {
		existing, err := b.readFile(b.citiesPath, cityHeader, Filter{
			"city_name": city.CityName,
			"country":   city.Country,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s, %s", weather.ErrCityExists, city.CityName, city.Country)
		}
	}

	cityRows := make([][]string, 0, len(batch.Cities))
	for _, city := range batch.Cities {
		cityRows = append(cityRows, []string{city.ID, city.CityName, city.Country})
	}

	recordRows := make([][]string, 0, len(batch.Records))
	for _, record := range batch.Records {
		recordRows = append(recordRows, []string{
			record.ID,
			record.Date.Format(dateFormat),
			record.WeatherConditions,
			formatFloat(record.Temperature),
			formatFloat(record.WindSpeed),
			formatFloat(record.Humidity),
			record.CityID,
		})
	}

	undoCities, err := b.appendRows(b.citiesPath, cityHeader, cityRows)
	if err != nil {
		return err
	}
	if _, err := b.appendRows(b.recordsPath, recordHeader, recordRows); err != nil {
		// Keep the call atomic: roll the cities file back to its size
		// before this batch.
		undoCities()
		return err
	}

	return nil
}

func (b *CSVBackend) ReadCities(ctx context.Context, filter Filter) ([]weather.City, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.readFile(b.citiesPath, cityHeader, filter)
	if err != nil {
		return nil, err
	}

	cities := make([]weather.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, weather.City{ID: row[0], CityName: row[1], Country: row[2]})
	}
	return cities, nil
}

func (b *CSVBackend) ReadRecords(ctx context.Context, filter Filter) ([]weather.ForecastRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.readFile(b.recordsPath, recordHeader, filter)
	if err != nil {
		return nil, err
	}

	records := make([]weather.ForecastRecord, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateFormat, row[1])
		if err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", row[1], err)
		}
		temperature, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing temperature %q: %w", row[3], err)
		}
		windSpeed, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing wind speed %q: %w", row[4], err)
		}
		humidity, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing humidity %q: %w", row[5], err)
		}

		records = append(records, weather.ForecastRecord{
			ID:                row[0],
			Date:              date,
			WeatherConditions: row[2],
			Temperature:       temperature,
			WindSpeed:         windSpeed,
			Humidity:          humidity,
			CityID:            row[6],
		})
	}
	return records, nil
}

func (b *CSVBackend) Close() error {
	return nil
}

// appendRows appends rows to path, writing the header first if the file is
// new. It returns an undo func that truncates the file back to its size
// before the append.
func (b *CSVBackend) appendRows(path string, header []string, rows [][]string) (func(), error) {
	if len(rows) == 0 {
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	sizeBefore := info.Size()

	w := csv.NewWriter(f)
	if sizeBefore == 0 {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("writing header to %s: %w", path, err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		_ = os.Truncate(path, sizeBefore)
		return nil, fmt.Errorf("appending to %s: %w", path, err)
	}

	undo := func() { _ = os.Truncate(path, sizeBefore) }
	return undo, nil
}

// readFile scans a csv file and returns the rows matching the filter. A
// missing file reads as empty, never as an error.
func (b *CSVBackend) readFile(path string, header []string, filter Filter) ([][]string, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for key := range filter {
		if _, ok := index[key]; !ok {
			return nil, fmt.Errorf("unknown filter field %q", key)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	var matched [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		match := true
		for key, value := range filter {
			if row[index[key]] != formatValue(value) {
				match = false
				break
			}
		}
		if match {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(dateFormat)
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
