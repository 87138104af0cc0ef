package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

func (s *SQLiteDB) AddRule(ctx context.Context, r *models.Rule) error {
	query := `
		INSERT INTO rules (location_id, disaster_id, condition_name, operator, threshold, severity, message, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var locationID sql.NullInt64
	if r.LocationID != nil {
		locationID = sql.NullInt64{Int64: *r.LocationID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query,
		locationID, r.DisasterID, string(r.Condition), string(r.Operator),
		r.Threshold, string(r.Severity), r.Message, r.Active,
	)
	if err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	r.ID = id
	return nil
}

// ActiveRulesForLocation returns active rules of active disasters that target
// the location or every location, ordered by disaster, threshold and id.
func (s *SQLiteDB) ActiveRulesForLocation(ctx context.Context, locationID int64) ([]models.Rule, error) {
	query := `
		SELECT r.id, r.location_id, r.disaster_id, d.name, r.condition_name, r.operator,
			r.threshold, r.severity, r.message, r.active
		FROM rules r
		JOIN disasters d ON d.id = r.disaster_id
		WHERE r.active = 1 AND d.active = 1
			AND (r.location_id = ? OR r.location_id IS NULL)
		ORDER BY r.disaster_id, r.threshold, r.id
	`
	rows, err := s.db.QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var (
			r         models.Rule
			loc       sql.NullInt64
			condition string
			operator  string
			severity  string
		)
		if err := rows.Scan(&r.ID, &loc, &r.DisasterID, &r.DisasterName, &condition, &operator,
			&r.Threshold, &severity, &r.Message, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if loc.Valid {
			id := loc.Int64
			r.LocationID = &id
		}
		r.Condition = models.Condition(condition)
		r.Operator = models.Operator(operator)
		r.Severity = models.Severity(severity)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
