package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vzahanych/weather-api/internal/config"
	"github.com/vzahanych/weather-api/internal/ingest"
	"github.com/vzahanych/weather-api/internal/provider"
	"github.com/vzahanych/weather-api/internal/server/handlers"
	"github.com/vzahanych/weather-api/internal/server/middlewares"
	"github.com/vzahanych/weather-api/internal/storage"
	"github.com/vzahanych/weather-api/pkg/metrics"
	"github.com/vzahanych/weather-api/pkg/telemetry"
	"go.uber.org/zap"
)

type Server struct {
	engine   *gin.Engine
	server   *http.Server
	storage  *storage.Registry
	logger   *zap.Logger
	tele     *telemetry.Telemetry
	metrics  *metrics.Collector
	cfg      *config.Config
}

// New wires the whole pipeline: provider and storage registries are
// resolved here, at startup, so a misconfigured provider or storage
// identifier fails before the server accepts traffic.
func New(cfg *config.Config, logger *zap.Logger, tele *telemetry.Telemetry) (*Server, error) {
	providers := provider.NewRegistry(&cfg.Weather, logger, tele)
	storageRegistry := storage.NewRegistry(&cfg.Storage, logger)
	collector := metrics.NewCollector("weather_api")

	nowProvider, err := providers.Get(cfg.Weather.NowProvider)
	if err != nil {
		return nil, err
	}
	forecastProvider, err := providers.Get(cfg.Weather.ForecastProvider)
	if err != nil {
		return nil, err
	}
	backend, err := storageRegistry.Get(cfg.Storage.Type)
	if err != nil {
		return nil, err
	}

	nowService := ingest.NewService(nowProvider, backend, logger, tele)
	nowService.SetMetricsCollector(collector)
	forecastService := ingest.NewService(forecastProvider, backend, logger, tele)
	forecastService.SetMetricsCollector(collector)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger))
	engine.Use(middlewares.RecoveryMiddleware(logger))
	engine.Use(middlewares.TelemetryMiddleware(tele))
	engine.Use(middlewares.MetricsMiddleware(collector))

	s := &Server{
		engine:  engine,
		storage: storageRegistry,
		logger:  logger,
		tele:    tele,
		metrics: collector,
		cfg:     cfg,
	}

	weatherHandler := handlers.NewWeatherHandler(nowService, forecastService, logger)
	healthHandler := handlers.NewHealthHandler(cfg.Service, cfg.Version, logger)

	engine.GET("/weather-now/:country_code/:city_name", weatherHandler.WeatherNow)
	engine.GET("/weather-forecast/:country_code/:city_name", weatherHandler.WeatherForecast)

	engine.GET("/healthcheck", healthHandler.Health)
	engine.GET("/health/live", healthHandler.Liveness)
	engine.GET("/health/ready", healthHandler.Readiness)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s, nil
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.storage.Close()
}
