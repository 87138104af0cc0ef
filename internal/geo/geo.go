// Package geo matches point events (earthquakes) to monitored locations.
package geo

import (
	"math"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by HaversineKm.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h slightly past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Match is the representative quake for a location and its distance from it.
type Match struct {
	Quake      models.Quake
	DistanceKm float64
}

// FindNearestEvent returns the strongest quake within radiusKm of the target.
// Magnitude wins over distance; equal magnitudes prefer the closer event.
// It does not modify events and is safe to call concurrently on a shared feed.
func FindNearestEvent(events []models.Quake, lat, lon, radiusKm float64) (Match, bool) {
	target := models.Coordinates{Latitude: lat, Longitude: lon}

	var (
		best  Match
		found bool
	)
	for _, q := range events {
		d := HaversineKm(target, q.Coordinates())
		if d > radiusKm {
			continue
		}
		if !found ||
			q.Magnitude > best.Quake.Magnitude ||
			(q.Magnitude == best.Quake.Magnitude && d < best.DistanceKm) {
			best = Match{Quake: q, DistanceKm: d}
			found = true
		}
	}

	return best, found
}
