package models

import "time"

type Quake struct {
	ID        string // globally unique id from the feed (e.g. USGS "us7000abcd")
	Magnitude float64
	Latitude  float64
	Longitude float64
	Depth     float64
	Place     string
	Time      time.Time
	Manual    bool // operator-simulated event
}

func (q *Quake) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
	}
}

// QuakeLog records the strongest nearby quake observed for a location.
// (LocationID, EventID) is unique.
type QuakeLog struct {
	ID         int64
	LocationID int64
	EventID    string
	Magnitude  float64
	Place      string
	DistanceKm float64
	Manual     bool
	FetchedAt  time.Time
}
