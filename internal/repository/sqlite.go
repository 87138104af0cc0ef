package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS disasters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER,
			disaster_id INTEGER NOT NULL,
			condition_name TEXT NOT NULL,
			operator TEXT NOT NULL,
			threshold REAL NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (location_id) REFERENCES locations(id),
			FOREIGN KEY (disaster_id) REFERENCES disasters(id)
		);

		CREATE TABLE IF NOT EXISTS weather_readings (
			id TEXT PRIMARY KEY,
			location_id INTEGER NOT NULL,
			temperature REAL,
			humidity REAL,
			rain_sum REAL,
			wind_speed REAL,
			aqi REAL,
			quake_event_id TEXT,
			quake_magnitude REAL,
			recorded_at DATETIME NOT NULL,
			FOREIGN KEY (location_id) REFERENCES locations(id)
		);

		CREATE TABLE IF NOT EXISTS quake_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			magnitude REAL NOT NULL,
			place TEXT NOT NULL DEFAULT '',
			distance_km REAL NOT NULL,
			manual INTEGER NOT NULL DEFAULT 0,
			fetched_at DATETIME NOT NULL,
			UNIQUE (location_id, event_id),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			disaster_id INTEGER NOT NULL,
			location_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			source TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			event_id TEXT,
			created_at DATETIME NOT NULL,
			expires_at DATETIME,
			deactivated_at DATETIME,
			FOREIGN KEY (disaster_id) REFERENCES disasters(id),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rules_location_id ON rules(location_id);
		CREATE INDEX IF NOT EXISTS idx_weather_readings_location ON weather_readings(location_id, recorded_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_pair ON alerts(disaster_id, location_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_event ON alerts(location_id, event_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_active ON alerts(disaster_id, location_id) WHERE active = 1;
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// isConstraintViolation matches every SQLITE_CONSTRAINT variant (unique,
// primary key, foreign key, check).
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
