package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/hazard-monitor/internal/geo"
	"github.com/mr1hm/hazard-monitor/internal/models"
)

type ReadingStore interface {
	AddReading(ctx context.Context, r *models.ReadingSnapshot) error
	LatestReadingTime(ctx context.Context, locationID int64) (time.Time, bool, error)
}

// ReadingLogger appends reading snapshots, skipping a location whose last
// snapshot is younger than the dedup window.
type ReadingLogger struct {
	store  ReadingStore
	clock  clockwork.Clock
	window time.Duration
}

func NewReadingLogger(store ReadingStore, clock clockwork.Clock, window time.Duration) *ReadingLogger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReadingLogger{store: store, clock: clock, window: window}
}

// Log reports whether a snapshot was written.
func (l *ReadingLogger) Log(ctx context.Context, loc models.Location, w *models.WeatherReading, quake *geo.Match) (bool, error) {
	now := l.clock.Now().UTC()

	if l.window > 0 {
		last, ok, err := l.store.LatestReadingTime(ctx, loc.ID)
		if err != nil {
			return false, err
		}
		if ok && now.Sub(last) < l.window {
			return false, nil
		}
	}

	snap := &models.ReadingSnapshot{
		ID:         uuid.NewString(),
		LocationID: loc.ID,
		RecordedAt: now,
	}
	if w != nil {
		snap.Temperature = w.Temperature
		snap.Humidity = w.Humidity
		snap.RainSum = w.RainSum
		snap.WindSpeed = w.WindSpeed
		snap.AQI = w.AQI
	}
	if quake != nil {
		snap.QuakeEventID = quake.Quake.ID
		snap.QuakeMagnitude = models.Float(quake.Quake.Magnitude)
	}

	if err := l.store.AddReading(ctx, snap); err != nil {
		return false, err
	}
	return true, nil
}
