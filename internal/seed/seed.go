// Package seed bootstraps locations, disasters, rules and settings from YAML.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/rules"
)

type File struct {
	Settings  map[string]string `yaml:"settings"`
	Disasters []Disaster        `yaml:"disasters"`
	Locations []Location        `yaml:"locations"`
	Rules     []Rule            `yaml:"rules"`
}

type Disaster struct {
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"`
}

type Location struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Active    *bool   `yaml:"active"`
}

// Rule references its disaster and location by name. An empty location makes it global.
type Rule struct {
	Disaster  string  `yaml:"disaster"`
	Location  string  `yaml:"location"`
	Condition string  `yaml:"condition"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
	Severity  string  `yaml:"severity"`
	Message   string  `yaml:"message"`
	Active    *bool   `yaml:"active"`
}

type Store interface {
	AddLocation(ctx context.Context, l *models.Location) error
	AddDisaster(ctx context.Context, d *models.Disaster) error
	AddRule(ctx context.Context, r *models.Rule) error
	SetSetting(ctx context.Context, key, value string) error
}

// Summary counts what Apply wrote.
type Summary struct {
	Settings  int `json:"settings"`
	Disasters int `json:"disasters"`
	Locations int `json:"locations"`
	Rules     int `json:"rules"`
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

func Load(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse seed YAML: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) Validate() error {
	for key, val := range f.Settings {
		if _, err := models.NormalizeSetting(key, val); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}

	disasters := make(map[string]bool, len(f.Disasters))
	for i, d := range f.Disasters {
		if d.Name == "" {
			return fmt.Errorf("disaster at index %d: name is required", i)
		}
		disasters[d.Name] = true
	}

	locations := make(map[string]bool, len(f.Locations))
	for i, l := range f.Locations {
		if l.Name == "" {
			return fmt.Errorf("location at index %d: name is required", i)
		}
		if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
			return fmt.Errorf("location %s: coordinates out of range", l.Name)
		}
		locations[l.Name] = true
	}

	for i, r := range f.Rules {
		if !disasters[r.Disaster] {
			return fmt.Errorf("rule at index %d: unknown disaster %q", i, r.Disaster)
		}
		if r.Location != "" && !locations[r.Location] {
			return fmt.Errorf("rule at index %d: unknown location %q", i, r.Location)
		}
		if err := rules.ValidateRule(r.model(0, nil)); err != nil {
			return fmt.Errorf("rule at index %d: %w", i, err)
		}
	}
	return nil
}

func (r Rule) model(disasterID int64, locationID *int64) models.Rule {
	sev, ok := models.ParseSeverity(r.Severity)
	if !ok {
		sev = models.Severity(r.Severity)
	}
	return models.Rule{
		LocationID: locationID,
		DisasterID: disasterID,
		Condition:  models.Condition(r.Condition),
		Operator:   models.Operator(r.Operator),
		Threshold:  r.Threshold,
		Severity:   sev,
		Message:    r.Message,
		Active:     enabled(r.Active),
	}
}

// Apply writes the file in dependency order. Locations and disasters are
// upserted by name; rules are appended.
func Apply(ctx context.Context, store Store, f *File) (Summary, error) {
	var sum Summary

	keys := make([]string, 0, len(f.Settings))
	for k := range f.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := store.SetSetting(ctx, k, f.Settings[k]); err != nil {
			return sum, err
		}
		sum.Settings++
	}

	disasterIDs := make(map[string]int64, len(f.Disasters))
	for _, d := range f.Disasters {
		m := models.Disaster{Name: d.Name, Active: enabled(d.Active)}
		if err := store.AddDisaster(ctx, &m); err != nil {
			return sum, err
		}
		disasterIDs[d.Name] = m.ID
		sum.Disasters++
	}

	locationIDs := make(map[string]int64, len(f.Locations))
	for _, l := range f.Locations {
		m := models.Location{Name: l.Name, Latitude: l.Latitude, Longitude: l.Longitude, Active: enabled(l.Active)}
		if err := store.AddLocation(ctx, &m); err != nil {
			return sum, err
		}
		locationIDs[l.Name] = m.ID
		sum.Locations++
	}

	for _, r := range f.Rules {
		var locationID *int64
		if r.Location != "" {
			id := locationIDs[r.Location]
			locationID = &id
		}
		m := r.model(disasterIDs[r.Disaster], locationID)
		if err := store.AddRule(ctx, &m); err != nil {
			return sum, err
		}
		sum.Rules++
	}

	return sum, nil
}
