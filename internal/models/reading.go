package models

import "time"

// WeatherReading holds the continuous signals for one location at fetch time.
// A nil field means the provider did not report that value.
type WeatherReading struct {
	Temperature *float64
	Humidity    *float64
	RainSum     *float64
	WindSpeed   *float64
	AQI         *float64
	FetchedAt   time.Time
}

// ReadingSnapshot is the append-only record written by the reading logger.
type ReadingSnapshot struct {
	ID             string
	LocationID     int64
	Temperature    *float64
	Humidity       *float64
	RainSum        *float64
	WindSpeed      *float64
	AQI            *float64
	QuakeEventID   string
	QuakeMagnitude *float64
	RecordedAt     time.Time
}

func Float(v float64) *float64 {
	return &v
}
