package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

const alertColumns = `id, disaster_id, location_id, title, description, severity, source, active,
	event_id, created_at, expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a        models.Alert
		severity string
		source   string
		eventID  sql.NullString
		expires  sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.DisasterID, &a.LocationID, &a.Title, &a.Description,
		&severity, &source, &a.Active, &eventID, &a.CreatedAt, &expires); err != nil {
		return nil, err
	}
	a.Severity = models.Severity(severity)
	a.Source = models.AlertSource(source)
	a.EventID = eventID.String
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

func (s *SQLiteDB) AlertExistsForEvent(ctx context.Context, locationID int64, eventID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM alerts WHERE location_id = ? AND event_id = ?)",
		locationID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check alert for event: %w", err)
	}
	return exists, nil
}

func (s *SQLiteDB) ReplaceActiveAlert(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace alert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	prev, err := deactivate(ctx, tx, a.DisasterID, a.LocationID, a.CreatedAt, "")
	if err != nil {
		return nil, err
	}

	var expires sql.NullTime
	if a.ExpiresAt != nil {
		expires = sql.NullTime{Time: a.ExpiresAt.UTC(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO alerts (id, disaster_id, location_id, title, description, severity, source, active,
			event_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	`, a.ID, a.DisasterID, a.LocationID, a.Title, a.Description, string(a.Severity), string(a.Source),
		nullString(a.EventID), a.CreatedAt.UTC(), expires,
	)
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("insert alert %s: %w: %w", a.ID, ErrDuplicate, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace alert: %w", err)
	}
	a.Active = true
	return prev, nil
}

func (s *SQLiteDB) ClearActiveAlert(ctx context.Context, disasterID, locationID int64, at time.Time) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clear alert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	filter := "AND event_id IS NULL AND source = '" + string(models.AlertSourceSystem) + "'"
	prev, err := deactivate(ctx, tx, disasterID, locationID, at, filter)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear alert: %w", err)
	}
	return prev, nil
}

// deactivate marks the active alert of a pair inactive and returns it as it
// was before the update, or nil when no active row matched.
func deactivate(ctx context.Context, tx *sql.Tx, disasterID, locationID int64, at time.Time, filter string) (*models.Alert, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE disaster_id = ? AND location_id = ? AND active = 1 `+filter,
		disasterID, locationID,
	)
	prev, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active alert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE alerts SET active = 0, deactivated_at = ? WHERE id = ?", at.UTC(), prev.ID,
	); err != nil {
		return nil, fmt.Errorf("deactivate alert: %w", err)
	}
	return prev, nil
}

func (s *SQLiteDB) ActiveAlerts(ctx context.Context, locationID int64) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE location_id = ? AND active = 1
		ORDER BY disaster_id
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// AlertHistory returns every row for the pair in creation order.
func (s *SQLiteDB) AlertHistory(ctx context.Context, disasterID, locationID int64) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE disaster_id = ? AND location_id = ?
		ORDER BY created_at, rowid
	`, disasterID, locationID)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func collectAlerts(rows *sql.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}
