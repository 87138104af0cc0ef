package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/repository"
)

// execute runs the root command with args and returns its error.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func TestValidateQuake(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, mag float64
		wantErr       string
	}{
		{"valid", 23.9, 90.5, 7.1, ""},
		{"bounds inclusive", -90, 180, 10, ""},
		{"latitude too high", 90.1, 0, 5, "coordinates out of range"},
		{"longitude too low", 0, -180.5, 5, "coordinates out of range"},
		{"negative magnitude", 0, 0, -0.1, "magnitude must be between 0 and 10"},
		{"magnitude too high", 0, 0, 10.5, "magnitude must be between 0 and 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuake(tt.lat, tt.lon, tt.mag)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSimulateQuake_RejectsOutOfRange(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "never-created", "hazard.db"))

	err := execute(t, "simulate", "quake", "--lat", "95", "--lon", "10", "--mag", "6")
	if err == nil || !strings.Contains(err.Error(), "coordinates out of range") {
		t.Fatalf("expected coordinate error, got %v", err)
	}

	err = execute(t, "simulate", "quake", "--lat", "10", "--lon", "10", "--mag", "12")
	if err == nil || !strings.Contains(err.Error(), "magnitude") {
		t.Fatalf("expected magnitude error, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Dir(os.Getenv("DB_PATH"))); !os.IsNotExist(statErr) {
		t.Error("invalid arguments must be rejected before the database is opened")
	}
}

func TestCycle_RejectsUnknownLoop(t *testing.T) {
	err := execute(t, "cycle", "tsunami")
	if err == nil || !strings.Contains(err.Error(), "invalid argument") {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
}

func TestSettings_Validation(t *testing.T) {
	if err := execute(t, "settings", "get", "theme"); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Fatalf("expected unknown setting error, got %v", err)
	}
	if err := execute(t, "settings", "set", models.SettingWeatherPollInterval, "soon"); err == nil ||
		!strings.Contains(err.Error(), "positive number of seconds") {
		t.Fatalf("expected invalid value error, got %v", err)
	}
}

func TestSettings_SetWritesStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hazard.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("KAFKA_BROKERS", "")

	if err := execute(t, "settings", "set", models.SettingSeismicPollInterval, " 90 "); err != nil {
		t.Fatalf("settings set: %v", err)
	}

	db, err := repository.NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	val, ok, err := db.GetSetting(context.Background(), models.SettingSeismicPollInterval)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if !ok || val != "90" {
		t.Errorf("expected stored value 90, got %q (set=%v)", val, ok)
	}
}

func TestSeed_DryRunValidatesOnly(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "seed.yaml")
	content := "disasters:\n  - name: Flash Flood\nrules:\n  - disaster: Tsunami\n    condition: rain_sum\n    operator: '>'\n    severity: Low\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	err := execute(t, "seed", "--dry-run", file)
	if err == nil || !strings.Contains(err.Error(), "unknown disaster") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
