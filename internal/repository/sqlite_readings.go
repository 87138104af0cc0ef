package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

func (s *SQLiteDB) AddReading(ctx context.Context, r *models.ReadingSnapshot) error {
	query := `
		INSERT INTO weather_readings (id, location_id, temperature, humidity, rain_sum, wind_speed, aqi,
			quake_event_id, quake_magnitude, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.LocationID, nullFloat(r.Temperature), nullFloat(r.Humidity), nullFloat(r.RainSum),
		nullFloat(r.WindSpeed), nullFloat(r.AQI), nullString(r.QuakeEventID), nullFloat(r.QuakeMagnitude),
		r.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("add reading: %w", err)
	}
	return nil
}

func (s *SQLiteDB) LatestReadingTime(ctx context.Context, locationID int64) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT recorded_at FROM weather_readings
		WHERE location_id = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT 1
	`, locationID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest reading: %w", err)
	}
	return at, true, nil
}

// ListReadings returns a location's snapshots, newest first.
func (s *SQLiteDB) ListReadings(ctx context.Context, locationID int64, limit int) ([]models.ReadingSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_id, temperature, humidity, rain_sum, wind_speed, aqi,
			quake_event_id, quake_magnitude, recorded_at
		FROM weather_readings
		WHERE location_id = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?
	`, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.ReadingSnapshot
	for rows.Next() {
		var (
			r                                    models.ReadingSnapshot
			temp, hum, rain, wind, aqi, quakeMag sql.NullFloat64
			quakeID                              sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.LocationID, &temp, &hum, &rain, &wind, &aqi,
			&quakeID, &quakeMag, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Temperature = floatPtr(temp)
		r.Humidity = floatPtr(hum)
		r.RainSum = floatPtr(rain)
		r.WindSpeed = floatPtr(wind)
		r.AQI = floatPtr(aqi)
		r.QuakeEventID = quakeID.String
		r.QuakeMagnitude = floatPtr(quakeMag)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLiteDB) AddQuakeLog(ctx context.Context, q *models.QuakeLog) (bool, error) {
	query := `
		INSERT INTO quake_logs (location_id, event_id, magnitude, place, distance_km, manual, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, event_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		q.LocationID, q.EventID, q.Magnitude, q.Place, q.DistanceKm, q.Manual, q.FetchedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("add quake log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add quake log: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		q.ID = id
	}
	return true, nil
}
