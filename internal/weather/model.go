package weather

import "time"

// City is the deduplicated city/country identity that forecast records
// reference. The (CityName, Country) pair is unique; the backing store
// enforces this with a constraint.
type City struct {
	ID       string `json:"id" db:"id"`
	CityName string `json:"city_name" db:"city_name"`
	Country  string `json:"country" db:"country"`
}

// ForecastRecord is the canonical normalized unit of weather data for one
// city at one timestamp. Date carries the city's UTC offset, not the
// caller's. Records are append-only: once persisted they are never updated
// or deleted.
type ForecastRecord struct {
	ID                string    `json:"id" db:"id"`
	Date              time.Time `json:"date" db:"date"`
	WeatherConditions string    `json:"weather_conditions" db:"weather_conditions"`
	Temperature       float64   `json:"temperature" db:"temperature"`
	WindSpeed         float64   `json:"wind_speed" db:"wind_speed"`
	Humidity          float64   `json:"humidity" db:"humidity"`
	CityName          string    `json:"city_name" db:"-"`
	Country           string    `json:"country" db:"-"`
	CityID            string    `json:"-" db:"city_id"`
}

// Batch is one atomic unit of persistence: zero or one new City plus the
// forecast records that reference it. Storage backends persist the whole
// batch or none of it.
type Batch struct {
	Cities  []City
	Records []ForecastRecord
}

// Empty reports whether the batch carries nothing to persist.
func (b Batch) Empty() bool {
	return len(b.Cities) == 0 && len(b.Records) == 0
}
