package api

import (
	"time"

	"github.com/mr1hm/hazard-monitor/internal/engine"
)

type FeatureCollection struct {
	Type      string     `json:"type"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Features  []Feature  `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders a cached feed. A nil snapshot yields an empty collection.
func toGeoJSON(snap *engine.FeedSnapshot) FeatureCollection {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
	if snap == nil {
		return fc
	}

	at := snap.FetchedAt
	fc.FetchedAt = &at
	fc.Features = make([]Feature, 0, len(snap.Quakes))

	for _, q := range snap.Quakes {
		f := Feature{
			Type: "Feature",
			ID:   q.ID,
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{q.Longitude, q.Latitude, q.Depth},
			},
			Properties: map[string]any{
				"magnitude": q.Magnitude,
				"place":     q.Place,
				"time":      q.Time,
				"manual":    q.Manual,
			},
		}
		fc.Features = append(fc.Features, f)
	}

	return fc
}
