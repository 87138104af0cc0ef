package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

// AddLocation inserts l or updates the location with the same name, and sets l.ID.
func (s *SQLiteDB) AddLocation(ctx context.Context, l *models.Location) error {
	query := `
		INSERT INTO locations (name, latitude, longitude, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			active = excluded.active
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, l.Name, l.Latitude, l.Longitude, l.Active).Scan(&l.ID); err != nil {
		return fmt.Errorf("add location: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var l models.Location
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, latitude, longitude, active FROM locations WHERE id = ?", id,
	).Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

func (s *SQLiteDB) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, latitude, longitude, active FROM locations WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Active); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// AddDisaster inserts d or updates the disaster with the same name, and sets d.ID.
func (s *SQLiteDB) AddDisaster(ctx context.Context, d *models.Disaster) error {
	query := `
		INSERT INTO disasters (name, active) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET active = excluded.active
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, d.Name, d.Active).Scan(&d.ID); err != nil {
		return fmt.Errorf("add disaster: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetDisasterByName(ctx context.Context, name string) (*models.Disaster, error) {
	var d models.Disaster
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, active FROM disasters WHERE name = ?", name,
	).Scan(&d.ID, &d.Name, &d.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("disaster %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get disaster: %w", err)
	}
	return &d, nil
}
