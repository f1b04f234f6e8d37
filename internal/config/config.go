package config

import (
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	return configValue.Load().(*Config)
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Service     string          `mapstructure:"service"`
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Weather     WeatherConfig   `mapstructure:"weather"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

type WeatherConfig struct {
	// NowProvider and ForecastProvider select which registered provider
	// serves each lookup mode. Both must name a key of Providers.
	NowProvider      string                    `mapstructure:"now_provider"`
	ForecastProvider string                    `mapstructure:"forecast_provider"`
	TimeoutSeconds   int                       `mapstructure:"timeout_seconds"`
	Providers        map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig carries one upstream provider's credentials and tuning.
// It is a value object: the provider instance owns it for its lifetime.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Units   string `mapstructure:"units"`
}

type StorageConfig struct {
	// Type selects the storage backend: "database" or "csv".
	Type     string         `mapstructure:"type"`
	Database DatabaseConfig `mapstructure:"database"`
	CSV      CSVConfig      `mapstructure:"csv"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type CSVConfig struct {
	Directory   string `mapstructure:"directory"`
	CitiesFile  string `mapstructure:"cities_file"`
	RecordsFile string `mapstructure:"records_file"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Service:     "weather-api",
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Weather: WeatherConfig{
			NowProvider:      "openweathermap",
			ForecastProvider: "openweathermap",
			TimeoutSeconds:   10,
			Providers: map[string]ProviderConfig{
				"openweathermap": {
					BaseURL: "https://api.openweathermap.org/data/2.5",
					APIKey:  "",
					Units:   "metric",
				},
				"weatherapi": {
					BaseURL: "http://api.weatherapi.com/v1",
					APIKey:  "",
				},
			},
		},
		Storage: StorageConfig{
			Type: "database",
			Database: DatabaseConfig{
				Driver: "sqlite",
				DSN:    "weather.db",
			},
			CSV: CSVConfig{
				Directory:   "data",
				CitiesFile:  "cities.csv",
				RecordsFile: "weather_records.csv",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}
