// Package alerting owns the alert state machine for (disaster, location) pairs.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/rules"
)

type Store interface {
	AlertExistsForEvent(ctx context.Context, locationID int64, eventID string) (bool, error)
	ReplaceActiveAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
	ClearActiveAlert(ctx context.Context, disasterID, locationID int64, at time.Time) (*models.Alert, error)
}

// Notifier receives every lifecycle transition after it is persisted.
type Notifier interface {
	Notify(ctx context.Context, event models.AlertEvent) error
}

type Opened struct {
	Alert      models.Alert
	Category   models.Category
	Superseded *models.Alert
}

// Report lists the transitions applied for one location. Events holds the
// notifications for those transitions, in order, until Publish sends them.
type Report struct {
	Opened     []Opened
	Cleared    []models.Alert
	Duplicates int
	Events     []models.AlertEvent
}

type Manager struct {
	store    Store
	notifier Notifier
	clock    clockwork.Clock
	quakeTTL time.Duration
	logger   *slog.Logger
}

func NewManager(store Store, notifier Notifier, clock clockwork.Clock, quakeTTL time.Duration, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		clock:    clock,
		quakeTTL: quakeTTL,
		logger:   logger,
	}
}

// winners picks one triggered outcome per disaster: the highest severity,
// then the lowest rule id.
func winners(res rules.Result) []rules.Outcome {
	best := make(map[int64]rules.Outcome)
	for _, o := range res.Triggered() {
		cur, ok := best[o.DisasterID]
		if !ok ||
			o.Severity.Rank() > cur.Severity.Rank() ||
			(o.Severity.Rank() == cur.Severity.Rank() && o.RuleID < cur.RuleID) {
			best[o.DisasterID] = o
		}
	}

	out := make([]rules.Outcome, 0, len(best))
	for _, o := range best {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisasterID < out[j].DisasterID })
	return out
}

// Apply moves every pair of loc to the state implied by res and records the
// resulting events in the report without sending them. Errors on one
// disaster do not stop the others and are returned joined.
func (m *Manager) Apply(ctx context.Context, loc models.Location, res rules.Result, in rules.Inputs) (Report, error) {
	var (
		report Report
		errs   []error
	)

	fired := make(map[int64]struct{})
	for _, o := range winners(res) {
		fired[o.DisasterID] = struct{}{}

		var err error
		switch o.Category {
		case models.CategoryPointEvent:
			err = m.openPointEvent(ctx, loc, o, in.Quake, &report)
		default:
			err = m.open(ctx, loc, o, nil, &report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("disaster %d at location %d: %w", o.DisasterID, loc.ID, err))
		}
	}

	// No weather this cycle means no evidence the condition cleared.
	if in.Weather == nil {
		return report, errors.Join(errs...)
	}

	// A disaster with any rule left unresolved (e.g. AQI missing after an
	// air-quality outage) is not cleared.
	var pending []int64
	for _, id := range res.Resolved(models.CategoryContinuous) {
		if _, ok := fired[id]; !ok {
			pending = append(pending, id)
		}
	}

	for _, disasterID := range pending {
		if err := m.clear(ctx, loc, disasterID, &report); err != nil {
			errs = append(errs, fmt.Errorf("clear disaster %d at location %d: %w", disasterID, loc.ID, err))
		}
	}

	return report, errors.Join(errs...)
}

func (m *Manager) openPointEvent(ctx context.Context, loc models.Location, o rules.Outcome, quake *models.Quake, report *Report) error {
	if quake == nil || quake.ID == "" {
		return errors.New("point-event outcome without an event id")
	}

	exists, err := m.store.AlertExistsForEvent(ctx, loc.ID, quake.ID)
	if err != nil {
		return err
	}
	if exists {
		report.Duplicates++
		m.logger.Debug("point event already alerted", "location", loc.Name, "event_id", quake.ID)
		return nil
	}
	return m.open(ctx, loc, o, quake, report)
}

func (m *Manager) open(ctx context.Context, loc models.Location, o rules.Outcome, quake *models.Quake, report *Report) error {
	now := m.clock.Now().UTC()
	a := &models.Alert{
		ID:          uuid.NewString(),
		DisasterID:  o.DisasterID,
		LocationID:  loc.ID,
		Title:       renderTitle(o.Severity, o.DisasterName, loc),
		Description: renderMessage(o.Message, loc, o, quake),
		Severity:    o.Severity,
		Source:      models.AlertSourceSystem,
		CreatedAt:   now,
	}
	if quake != nil {
		a.EventID = quake.ID
		if m.quakeTTL > 0 {
			exp := now.Add(m.quakeTTL)
			a.ExpiresAt = &exp
		}
	}

	prev, err := m.store.ReplaceActiveAlert(ctx, a)
	if err != nil {
		return err
	}
	report.Opened = append(report.Opened, Opened{Alert: *a, Category: o.Category, Superseded: prev})

	m.logger.Info("alert opened",
		"alert_id", a.ID,
		"location", loc.Name,
		"disaster", o.DisasterName,
		"severity", a.Severity,
		"rule_id", o.RuleID,
		"event_id", a.EventID,
	)

	ev := models.AlertEvent{
		Kind:        models.AlertEventOpened,
		AlertID:     a.ID,
		DisasterID:  a.DisasterID,
		LocationID:  a.LocationID,
		Title:       a.Title,
		Description: a.Description,
		Severity:    a.Severity,
		EventID:     a.EventID,
		At:          now,
	}
	if prev != nil {
		ev.SupersededID = prev.ID
	}
	report.Events = append(report.Events, ev)
	return nil
}

func (m *Manager) clear(ctx context.Context, loc models.Location, disasterID int64, report *Report) error {
	now := m.clock.Now().UTC()
	cleared, err := m.store.ClearActiveAlert(ctx, disasterID, loc.ID, now)
	if err != nil {
		return err
	}
	if cleared == nil {
		return nil
	}
	cleared.Active = false
	report.Cleared = append(report.Cleared, *cleared)

	m.logger.Info("alert cleared", "alert_id", cleared.ID, "location", loc.Name, "disaster_id", disasterID)
	report.Events = append(report.Events, models.AlertEvent{
		Kind:        models.AlertEventCleared,
		AlertID:     cleared.ID,
		DisasterID:  cleared.DisasterID,
		LocationID:  cleared.LocationID,
		Title:       cleared.Title,
		Description: cleared.Description,
		Severity:    cleared.Severity,
		At:          now,
	})
	return nil
}

// Publish sends the events collected by Apply. The transitions are already
// committed, so failures are logged and never returned. Call it outside any
// lock held around Apply: a notifier may block on a remote broker.
func (m *Manager) Publish(ctx context.Context, events []models.AlertEvent) {
	if m.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := m.notifier.Notify(ctx, ev); err != nil {
			m.logger.Warn("alert notification failed", "alert_id", ev.AlertID, "kind", ev.Kind, "error", err)
		}
	}
}
