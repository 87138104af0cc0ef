package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/repository"
)

const sample = `
settings:
  weather_poll_interval: "900"
  seismic_poll_interval: "120"
disasters:
  - name: Flash Flood
  - name: Earthquake
  - name: Retired
    active: false
locations:
  - name: Dhaka
    latitude: 23.81
    longitude: 90.41
  - name: Chittagong
    latitude: 22.35
    longitude: 91.78
rules:
  - disaster: Flash Flood
    location: Dhaka
    condition: rain_sum
    operator: ">="
    threshold: 25
    severity: medium
    message: "{value}mm of rain at {location}"
  - disaster: Earthquake
    condition: earthquake_magnitude
    operator: ">="
    threshold: 6.5
    severity: Critical
`

func TestLoadAndApply(t *testing.T) {
	f, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	sum, err := Apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{Settings: 2, Disasters: 3, Locations: 2, Rules: 2}, sum)

	locs, err := db.ListActiveLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 2)

	dhakaRules, err := db.ActiveRulesForLocation(ctx, locs[0].ID)
	require.NoError(t, err)
	require.Len(t, dhakaRules, 2)
	assert.Equal(t, models.SeverityMedium, dhakaRules[0].Severity)

	ctgRules, err := db.ActiveRulesForLocation(ctx, locs[1].ID)
	require.NoError(t, err)
	require.Len(t, ctgRules, 1)
	assert.Nil(t, ctgRules[0].LocationID, "only the global rule applies")

	v, ok, err := db.GetSetting(ctx, models.SettingSeismicPollInterval)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "120", v)

	retired, err := db.GetDisasterByName(ctx, "Retired")
	require.NoError(t, err)
	assert.False(t, retired.Active)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad setting",
			yaml:    "settings:\n  weather_poll_interval: soon\n",
			wantErr: "positive number of seconds",
		},
		{
			name:    "unknown disaster",
			yaml:    "rules:\n  - disaster: Tsunami\n    condition: rain_sum\n    operator: '>'\n    severity: Low\n",
			wantErr: "unknown disaster",
		},
		{
			name: "unknown condition",
			yaml: `disasters: [{name: Storm}]
rules:
  - disaster: Storm
    condition: snow_depth
    operator: ">"
    severity: Low
`,
			wantErr: "unknown condition",
		},
		{
			name:    "coordinates",
			yaml:    "locations:\n  - name: Nowhere\n    latitude: 91\n    longitude: 0\n",
			wantErr: "out of range",
		},
		{
			name:    "unknown field",
			yaml:    "locatoins: []\n",
			wantErr: "parse seed YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
