package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-api/internal/weather"
	"go.uber.org/zap"
)

type stubFetcher struct {
	records  []weather.ForecastRecord
	err      error
	lastCity string
	lastCode string
	lastDays int
}

func (s *stubFetcher) Fetch(ctx context.Context, city, countryCode string, days int) ([]weather.ForecastRecord, error) {
	s.lastCity, s.lastCode, s.lastDays = city, countryCode, days
	return s.records, s.err
}

func newTestRouter(fetcher *stubFetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWeatherHandler(fetcher, fetcher, zap.NewNop())

	router := gin.New()
	router.GET("/weather-now/:country_code/:city_name", h.WeatherNow)
	router.GET("/weather-forecast/:country_code/:city_name", h.WeatherForecast)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWeatherNow(t *testing.T) {
	fetcher := &stubFetcher{records: []weather.ForecastRecord{{
		ID:                "r1",
		Date:              time.Date(2023, 11, 14, 23, 13, 20, 0, time.FixedZone("", 3600)),
		WeatherConditions: "clear sky",
		Temperature:       15.2,
		WindSpeed:         2.5,
		Humidity:          80,
		CityName:          "Camposampiero",
		Country:           "Italy",
	}}}
	router := newTestRouter(fetcher)

	w := doRequest(t, router, "/weather-now/IT/camposampiero")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camposampiero", fetcher.lastCity)
	assert.Equal(t, "IT", fetcher.lastCode)
	assert.Equal(t, 0, fetcher.lastDays)

	var records []weather.ForecastRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Camposampiero", records[0].CityName)
	assert.Equal(t, 15.2, records[0].Temperature)
}

func TestWeatherForecastDays(t *testing.T) {
	fetcher := &stubFetcher{records: []weather.ForecastRecord{{CityName: "Camposampiero"}}}
	router := newTestRouter(fetcher)

	w := doRequest(t, router, "/weather-forecast/IT/camposampiero?days=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, fetcher.lastDays)
}

func TestWeatherForecastDefaultDays(t *testing.T) {
	fetcher := &stubFetcher{records: []weather.ForecastRecord{{CityName: "Camposampiero"}}}
	router := newTestRouter(fetcher)

	w := doRequest(t, router, "/weather-forecast/IT/camposampiero")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, fetcher.lastDays)
}

func TestWeatherForecastDaysOutOfRange(t *testing.T) {
	fetcher := &stubFetcher{}
	router := newTestRouter(fetcher)

	for _, path := range []string{
		"/weather-forecast/IT/camposampiero?days=0",
		"/weather-forecast/IT/camposampiero?days=17",
		"/weather-forecast/IT/camposampiero?days=abc",
	} {
		w := doRequest(t, router, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestWeatherInvalidCountryCodeParam(t *testing.T) {
	fetcher := &stubFetcher{}
	router := newTestRouter(fetcher)

	for _, path := range []string{
		"/weather-now/ITA/camposampiero",
		"/weather-now/1T/camposampiero",
	} {
		w := doRequest(t, router, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestWeatherErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid country", weather.ErrInvalidCountry, http.StatusNotFound, "INVALID_COUNTRY"},
		{"city not found", weather.ErrCityNotFound, http.StatusNotFound, "CITY_NOT_FOUND"},
		{"no forecast", weather.ErrNoForecastAvailable, http.StatusNotFound, "NO_FORECAST"},
		{"invalid provider", weather.ErrInvalidProvider, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"invalid storage", weather.ErrInvalidStorageType, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"auth failure stays internal", weather.ErrProviderAuthFailure, http.StatusInternalServerError, "INTERNAL"},
		{"provider unavailable", weather.ErrProviderUnavailable, http.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubFetcher{err: tt.err})

			w := doRequest(t, router, "/weather-now/ZZ/somewhere")
			require.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestWeatherAuthFailureNotLeaked(t *testing.T) {
	router := newTestRouter(&stubFetcher{err: weather.ErrProviderAuthFailure})

	w := doRequest(t, router, "/weather-now/IT/camposampiero")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "auth")
	assert.NotContains(t, w.Body.String(), "key")
}
