package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func seedPair(t *testing.T, db *SQLiteDB) (models.Location, models.Disaster) {
	t.Helper()
	ctx := context.Background()

	loc := models.Location{Name: "Dhaka", Latitude: 23.81, Longitude: 90.41, Active: true}
	if err := db.AddLocation(ctx, &loc); err != nil {
		t.Fatalf("AddLocation failed: %v", err)
	}
	dis := models.Disaster{Name: "Flash Flood", Active: true}
	if err := db.AddDisaster(ctx, &dis); err != nil {
		t.Fatalf("AddDisaster failed: %v", err)
	}
	return loc, dis
}

func newAlert(id string, dis models.Disaster, loc models.Location, sev models.Severity, at time.Time) *models.Alert {
	return &models.Alert{
		ID:         id,
		DisasterID: dis.ID,
		LocationID: loc.ID,
		Title:      string(sev) + " Flash Flood alert: Dhaka",
		Severity:   sev,
		Source:     models.AlertSourceSystem,
		CreatedAt:  at,
	}
}

func TestSQLiteDB_LocationUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	loc := models.Location{Name: "Sylhet", Latitude: 24.89, Longitude: 91.87, Active: true}
	if err := db.AddLocation(ctx, &loc); err != nil {
		t.Fatalf("AddLocation failed: %v", err)
	}
	firstID := loc.ID

	again := models.Location{Name: "Sylhet", Latitude: 24.9, Longitude: 91.9, Active: false}
	if err := db.AddLocation(ctx, &again); err != nil {
		t.Fatalf("AddLocation upsert failed: %v", err)
	}
	if again.ID != firstID {
		t.Errorf("expected upsert to keep id %d, got %d", firstID, again.ID)
	}

	got, err := db.GetLocation(ctx, firstID)
	if err != nil {
		t.Fatalf("GetLocation failed: %v", err)
	}
	if got.Latitude != 24.9 || got.Active {
		t.Errorf("expected updated location, got %+v", got)
	}

	active, err := db.ListActiveLocations(ctx)
	if err != nil {
		t.Fatalf("ListActiveLocations failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active locations, got %d", len(active))
	}

	_, err = db.GetLocation(ctx, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteDB_ActiveRulesForLocation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	loc, flood := seedPair(t, db)
	other := models.Location{Name: "Chittagong", Latitude: 22.35, Longitude: 91.78, Active: true}
	db.AddLocation(ctx, &other)
	retired := models.Disaster{Name: "Retired", Active: false}
	db.AddDisaster(ctx, &retired)

	rules := []models.Rule{
		{LocationID: &loc.ID, DisasterID: flood.ID, Condition: models.ConditionRainSum, Operator: ">=", Threshold: 50, Severity: models.SeverityHigh, Active: true},
		{LocationID: &loc.ID, DisasterID: flood.ID, Condition: models.ConditionRainSum, Operator: ">=", Threshold: 25, Severity: models.SeverityMedium, Active: true},
		{DisasterID: flood.ID, Condition: models.ConditionWindSpeed, Operator: ">", Threshold: 80, Severity: models.SeverityLow, Active: true},
		{LocationID: &other.ID, DisasterID: flood.ID, Condition: models.ConditionRainSum, Operator: ">=", Threshold: 10, Severity: models.SeverityLow, Active: true},
		{LocationID: &loc.ID, DisasterID: flood.ID, Condition: models.ConditionRainSum, Operator: ">=", Threshold: 5, Severity: models.SeverityLow, Active: false},
		{LocationID: &loc.ID, DisasterID: retired.ID, Condition: models.ConditionRainSum, Operator: ">=", Threshold: 5, Severity: models.SeverityLow, Active: true},
	}
	for i := range rules {
		if err := db.AddRule(ctx, &rules[i]); err != nil {
			t.Fatalf("AddRule failed: %v", err)
		}
	}

	got, err := db.ActiveRulesForLocation(ctx, loc.ID)
	if err != nil {
		t.Fatalf("ActiveRulesForLocation failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rules (2 local + 1 global), got %d", len(got))
	}
	if got[0].Threshold != 25 || got[1].Threshold != 50 {
		t.Errorf("expected rules ordered by threshold, got %v then %v", got[0].Threshold, got[1].Threshold)
	}
	if got[2].LocationID != nil {
		t.Errorf("expected wind rule to be global")
	}
	if got[0].DisasterName != "Flash Flood" {
		t.Errorf("expected disaster name joined, got %q", got[0].DisasterName)
	}
}

func TestSQLiteDB_ReplaceActiveAlert_KeepsOneActive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, dis := seedPair(t, db)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	prev, err := db.ReplaceActiveAlert(ctx, newAlert("a1", dis, loc, models.SeverityMedium, now))
	if err != nil {
		t.Fatalf("ReplaceActiveAlert failed: %v", err)
	}
	if prev != nil {
		t.Errorf("expected no superseded alert, got %+v", prev)
	}

	prev, err = db.ReplaceActiveAlert(ctx, newAlert("a2", dis, loc, models.SeverityMedium, now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("ReplaceActiveAlert failed: %v", err)
	}
	if prev == nil || prev.ID != "a1" {
		t.Fatalf("expected a1 superseded, got %+v", prev)
	}

	history, err := db.AlertHistory(ctx, dis.ID, loc.ID)
	if err != nil {
		t.Fatalf("AlertHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if history[0].ID != "a1" || history[0].Active {
		t.Errorf("expected a1 first and inactive, got %+v", history[0])
	}
	if history[1].ID != "a2" || !history[1].Active {
		t.Errorf("expected a2 active, got %+v", history[1])
	}
}

func TestSQLiteDB_OneActiveIndex(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, dis := seedPair(t, db)

	_, err := db.db.ExecContext(ctx, `
		INSERT INTO alerts (id, disaster_id, location_id, title, severity, source, active, created_at)
		VALUES ('x1', ?, ?, 't', 'Low', 'system', 1, ?), ('x2', ?, ?, 't', 'Low', 'system', 1, ?)
	`, dis.ID, loc.ID, time.Now().UTC(), dis.ID, loc.ID, time.Now().UTC())
	if err == nil {
		t.Error("expected unique index to reject a second active alert")
	}
}

func TestSQLiteDB_ReplaceActiveAlert_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, dis := seedPair(t, db)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	a := &models.Alert{ID: "dup", DisasterID: dis.ID, LocationID: loc.ID, Title: "t",
		Severity: models.SeverityLow, Source: models.AlertSourceSystem, CreatedAt: now}
	if _, err := db.ReplaceActiveAlert(ctx, a); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	again := *a
	again.CreatedAt = now.Add(time.Minute)
	_, err := db.ReplaceActiveAlert(ctx, &again)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// the failed replace rolled back, so the original row is still active
	active, err := db.ActiveAlerts(ctx, loc.ID)
	if err != nil {
		t.Fatalf("ActiveAlerts: %v", err)
	}
	if len(active) != 1 || active[0].ID != "dup" {
		t.Errorf("expected the original alert to stay active, got %+v", active)
	}
}

func TestSQLiteDB_ClearActiveAlert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, dis := seedPair(t, db)
	quakeDis := models.Disaster{Name: "Earthquake", Active: true}
	db.AddDisaster(ctx, &quakeDis)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	db.ReplaceActiveAlert(ctx, newAlert("flood", dis, loc, models.SeverityMedium, now))
	quake := newAlert("quake", quakeDis, loc, models.SeverityCritical, now)
	quake.EventID = "us7000abcd"
	expires := now.Add(24 * time.Hour)
	quake.ExpiresAt = &expires
	db.ReplaceActiveAlert(ctx, quake)

	cleared, err := db.ClearActiveAlert(ctx, dis.ID, loc.ID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ClearActiveAlert failed: %v", err)
	}
	if cleared == nil || cleared.ID != "flood" {
		t.Fatalf("expected flood alert cleared, got %+v", cleared)
	}

	// point-event alerts are never auto-cleared
	cleared, err = db.ClearActiveAlert(ctx, quakeDis.ID, loc.ID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ClearActiveAlert failed: %v", err)
	}
	if cleared != nil {
		t.Errorf("expected quake alert untouched, got %+v", cleared)
	}

	active, err := db.ActiveAlerts(ctx, loc.ID)
	if err != nil {
		t.Fatalf("ActiveAlerts failed: %v", err)
	}
	if len(active) != 1 || active[0].EventID != "us7000abcd" {
		t.Fatalf("expected only the quake alert active, got %+v", active)
	}
	if active[0].ExpiresAt == nil || !active[0].ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, active[0].ExpiresAt)
	}

	exists, err := db.AlertExistsForEvent(ctx, loc.ID, "us7000abcd")
	if err != nil || !exists {
		t.Errorf("expected alert for event to exist, got %v (err %v)", exists, err)
	}
}

func TestSQLiteDB_ClearActiveAlert_LeavesManualAlerts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, dis := seedPair(t, db)

	manual := newAlert("m1", dis, loc, models.SeverityHigh, time.Now())
	manual.Source = models.AlertSourceManual
	db.ReplaceActiveAlert(ctx, manual)

	cleared, err := db.ClearActiveAlert(ctx, dis.ID, loc.ID, time.Now())
	if err != nil {
		t.Fatalf("ClearActiveAlert failed: %v", err)
	}
	if cleared != nil {
		t.Errorf("expected manual alert untouched, got %+v", cleared)
	}
}

func TestSQLiteDB_QuakeLogDedup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, _ := seedPair(t, db)

	entry := &models.QuakeLog{LocationID: loc.ID, EventID: "us1", Magnitude: 6.8, DistanceKm: 120, FetchedAt: time.Now()}
	inserted, err := db.AddQuakeLog(ctx, entry)
	if err != nil || !inserted {
		t.Fatalf("expected first insert, got %v (err %v)", inserted, err)
	}

	inserted, err = db.AddQuakeLog(ctx, &models.QuakeLog{LocationID: loc.ID, EventID: "us1", Magnitude: 6.8, FetchedAt: time.Now()})
	if err != nil {
		t.Fatalf("duplicate AddQuakeLog should not error: %v", err)
	}
	if inserted {
		t.Error("expected duplicate to be ignored")
	}
}

func TestSQLiteDB_Readings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	loc, _ := seedPair(t, db)

	_, ok, err := db.LatestReadingTime(ctx, loc.ID)
	if err != nil || ok {
		t.Fatalf("expected no readings, got ok=%v err=%v", ok, err)
	}

	first := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	db.AddReading(ctx, &models.ReadingSnapshot{ID: "r1", LocationID: loc.ID, RainSum: models.Float(3), RecordedAt: first})
	db.AddReading(ctx, &models.ReadingSnapshot{
		ID: "r2", LocationID: loc.ID, AQI: models.Float(155), QuakeEventID: "us1",
		QuakeMagnitude: models.Float(5.1), RecordedAt: first.Add(time.Minute),
	})

	latest, ok, err := db.LatestReadingTime(ctx, loc.ID)
	if err != nil || !ok {
		t.Fatalf("LatestReadingTime failed: ok=%v err=%v", ok, err)
	}
	if !latest.Equal(first.Add(time.Minute)) {
		t.Errorf("expected latest %v, got %v", first.Add(time.Minute), latest)
	}

	readings, err := db.ListReadings(ctx, loc.ID, 10)
	if err != nil {
		t.Fatalf("ListReadings failed: %v", err)
	}
	if len(readings) != 2 || readings[0].ID != "r2" {
		t.Fatalf("expected r2 first, got %+v", readings)
	}
	if readings[0].RainSum != nil || readings[0].AQI == nil || *readings[0].AQI != 155 {
		t.Errorf("unexpected nullable values: %+v", readings[0])
	}
}

func TestSQLiteDB_Settings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, ok, err := db.GetSetting(ctx, models.SettingWeatherPollInterval)
	if err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}

	db.SetSetting(ctx, models.SettingWeatherPollInterval, "600")
	db.SetSetting(ctx, models.SettingWeatherPollInterval, "900")

	val, ok, err := db.GetSetting(ctx, models.SettingWeatherPollInterval)
	if err != nil || !ok || val != "900" {
		t.Errorf("expected 900, got %q ok=%v err=%v", val, ok, err)
	}
}
