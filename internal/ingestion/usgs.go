package ingestion

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}
type usgsProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // unix millis
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// USGSClient reads the USGS GeoJSON summary feed.
type USGSClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewUSGSClient(url string, timeout time.Duration, logger *slog.Logger) *USGSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &USGSClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchQuakes returns every usable event of the feed. Features without an id,
// a magnitude or at least two coordinates are skipped.
func (c *USGSClient) FetchQuakes(ctx context.Context) ([]models.Quake, error) {
	var data usgsResponse
	if err := getJSON(ctx, c.httpClient, "usgs", c.url, &data); err != nil {
		return nil, err
	}

	quakes := make([]models.Quake, 0, len(data.Features))
	skipped := 0
	for _, f := range data.Features {
		if f.ID == "" || f.Properties.Mag == nil || len(f.Geometry.Coordinates) < 2 {
			skipped++
			continue
		}
		q := models.Quake{
			ID:        f.ID,
			Magnitude: *f.Properties.Mag,
			Longitude: f.Geometry.Coordinates[0],
			Latitude:  f.Geometry.Coordinates[1],
			Place:     f.Properties.Place,
			Time:      time.UnixMilli(f.Properties.Time).UTC(),
		}
		if len(f.Geometry.Coordinates) > 2 {
			q.Depth = f.Geometry.Coordinates[2]
		}
		quakes = append(quakes, q)
	}

	if skipped > 0 {
		c.logger.Debug("skipped unusable usgs features", "count", skipped)
	}
	return quakes, nil
}
