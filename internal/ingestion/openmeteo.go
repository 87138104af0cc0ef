package ingestion

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

type forecastResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		RainSum []*float64 `json:"rain_sum"`
	} `json:"daily"`
}

type airQualityResponse struct {
	Current struct {
		USAQI *float64 `json:"us_aqi"`
	} `json:"current"`
}

// OpenMeteoClient fetches current weather and air quality for a coordinate.
type OpenMeteoClient struct {
	weatherURL    string
	airQualityURL string
	httpClient    *http.Client
	clock         clockwork.Clock
	logger        *slog.Logger
}

// NewOpenMeteoClient stamps readings with clock. An empty airQualityURL
// disables the AQI request.
func NewOpenMeteoClient(weatherURL, airQualityURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *OpenMeteoClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoClient{
		weatherURL:    weatherURL,
		airQualityURL: airQualityURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:  clock,
		logger: logger,
	}
}

func coordParams(lat, lon float64) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', 4, 64)},
		"timezone":  {"auto"},
	}
}

// FetchWeather returns the continuous signals at (lat, lon). A failed
// air-quality request leaves AQI nil; a failed forecast request fails the call.
func (c *OpenMeteoClient) FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherReading, error) {
	params := coordParams(lat, lon)
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	params.Set("daily", "rain_sum")
	params.Set("forecast_days", "1")

	var forecast forecastResponse
	if err := getJSON(ctx, c.httpClient, "weather", c.weatherURL+"?"+params.Encode(), &forecast); err != nil {
		return nil, err
	}

	reading := &models.WeatherReading{
		Temperature: forecast.Current.Temperature,
		Humidity:    forecast.Current.Humidity,
		WindSpeed:   forecast.Current.WindSpeed,
		FetchedAt:   c.clock.Now().UTC(),
	}
	if len(forecast.Daily.RainSum) > 0 {
		reading.RainSum = forecast.Daily.RainSum[0]
	}

	if c.airQualityURL == "" {
		return reading, nil
	}
	aqParams := coordParams(lat, lon)
	aqParams.Set("current", "us_aqi")

	var aq airQualityResponse
	if err := getJSON(ctx, c.httpClient, "air_quality", c.airQualityURL+"?"+aqParams.Encode(), &aq); err != nil {
		c.logger.Warn("air quality fetch failed", "lat", lat, "lon", lon, "error", err)
		return reading, nil
	}
	reading.AQI = aq.Current.USAQI

	return reading, nil
}
