package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-api/internal/server/utils"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

// WeatherFetcher is the slice of the ingestion service the handlers need.
type WeatherFetcher interface {
	Fetch(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error)
}

type WeatherHandler struct {
	now      WeatherFetcher
	forecast WeatherFetcher
	logger   *zap.Logger
}

func NewWeatherHandler(now, forecast WeatherFetcher, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		now:      now,
		forecast: forecast,
		logger:   logger,
	}
}

// WeatherNow handles GET /weather-now/:country_code/:city_name.
func (h *WeatherHandler) WeatherNow(c *gin.Context) {
	h.handle(c, h.now, 0)
}

// WeatherForecast handles GET /weather-forecast/:country_code/:city_name.
func (h *WeatherHandler) WeatherForecast(c *gin.Context) {
	var query ForecastQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
		})
		return
	}

	h.handle(c, h.forecast, query.Days)
}

func (h *WeatherHandler) handle(c *gin.Context, fetcher WeatherFetcher, days int) {
	ctx := utils.GetContextFromGinContext(c)
	reqLogger := h.logger.With(zap.String("request_id", utils.GetRequestIDFromGinContext(c)))

	var params WeatherParams
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
		})
		return
	}

	records, err := fetcher.Fetch(ctx, params.CityName, params.CountryCode, days)
	if err != nil {
		status, resp := mapError(err, params)
		if status >= http.StatusInternalServerError {
			reqLogger.Error("Weather lookup failed", zap.Error(err))
		} else {
			reqLogger.Warn("Weather lookup rejected", zap.Error(err))
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, records)
}

// mapError translates the pipeline's failure taxonomy into HTTP status
// codes. Provider credential failures are server-side and never surfaced
// verbatim.
func mapError(err error, params WeatherParams) (int, ErrorResponse) {
	switch {
	case errors.Is(err, weather.ErrInvalidCountry):
		return http.StatusNotFound, ErrorResponse{
			Error:   params.CountryCode + " is not a valid country code.",
			Code:    "INVALID_COUNTRY",
			Details: "Please refer to ISO 3166-1 alpha-2.",
		}
	case errors.Is(err, weather.ErrCityNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "CITY_NOT_FOUND",
		}
	case errors.Is(err, weather.ErrNoForecastAvailable):
		return http.StatusNotFound, ErrorResponse{
			Error: "No forecast available for " + params.CityName + "," + params.CountryCode + ".",
			Code:  "NO_FORECAST",
		}
	case errors.Is(err, weather.ErrInvalidProvider), errors.Is(err, weather.ErrInvalidStorageType):
		return http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_CONFIGURATION",
		}
	case errors.Is(err, weather.ErrProviderAuthFailure):
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Internal error.",
			Code:  "INTERNAL",
		}
	case errors.Is(err, weather.ErrProviderUnavailable):
		return http.StatusBadGateway, ErrorResponse{
			Error: "Weather provider is unavailable.",
			Code:  "PROVIDER_UNAVAILABLE",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Internal error.",
			Code:  "INTERNAL",
		}
	}
}
