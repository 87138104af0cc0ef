package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type LocationRepository interface {
	AddLocation(ctx context.Context, l *models.Location) error
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
}

type DisasterRepository interface {
	AddDisaster(ctx context.Context, d *models.Disaster) error
	GetDisasterByName(ctx context.Context, name string) (*models.Disaster, error)
}

type RuleRepository interface {
	AddRule(ctx context.Context, r *models.Rule) error
	ActiveRulesForLocation(ctx context.Context, locationID int64) ([]models.Rule, error)
}

type ReadingRepository interface {
	AddReading(ctx context.Context, r *models.ReadingSnapshot) error
	LatestReadingTime(ctx context.Context, locationID int64) (time.Time, bool, error)
}

type QuakeLogRepository interface {
	// AddQuakeLog reports false when (location, event id) was already logged.
	AddQuakeLog(ctx context.Context, q *models.QuakeLog) (bool, error)
}

type AlertRepository interface {
	AlertExistsForEvent(ctx context.Context, locationID int64, eventID string) (bool, error)
	// ReplaceActiveAlert deactivates the pair's active alert, if any, and
	// inserts a as the new active row in one transaction.
	ReplaceActiveAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
	// ClearActiveAlert deactivates the pair's active alert only when it is a
	// system-generated continuous-signal alert. It returns nil when nothing was cleared.
	ClearActiveAlert(ctx context.Context, disasterID, locationID int64, at time.Time) (*models.Alert, error)
	ActiveAlerts(ctx context.Context, locationID int64) ([]models.Alert, error)
	AlertHistory(ctx context.Context, disasterID, locationID int64) ([]models.Alert, error)
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
