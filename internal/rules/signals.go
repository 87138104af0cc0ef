package rules

import (
	"math"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

// Inputs are the signals available to a single evaluation. Either may be nil
// when that source was not fetched this cycle.
type Inputs struct {
	Weather *models.WeatherReading
	Quake   *models.Quake
}

// Signal binds a condition to its category and the function that reads its value.
type Signal struct {
	Category models.Category
	extract  func(Inputs) (float64, bool)
}

func (s Signal) available(in Inputs) bool {
	switch s.Category {
	case models.CategoryContinuous:
		return in.Weather != nil
	case models.CategoryPointEvent:
		return in.Quake != nil
	}
	return false
}

func weatherField(get func(*models.WeatherReading) *float64) func(Inputs) (float64, bool) {
	return func(in Inputs) (float64, bool) {
		v := get(in.Weather)
		if v == nil || math.IsNaN(*v) {
			return 0, false
		}
		return *v, true
	}
}

// New hazard types are added here.
var signals = map[models.Condition]Signal{
	models.ConditionRainSum: {
		Category: models.CategoryContinuous,
		extract:  weatherField(func(w *models.WeatherReading) *float64 { return w.RainSum }),
	},
	models.ConditionWindSpeed: {
		Category: models.CategoryContinuous,
		extract:  weatherField(func(w *models.WeatherReading) *float64 { return w.WindSpeed }),
	},
	models.ConditionTemperature: {
		Category: models.CategoryContinuous,
		extract:  weatherField(func(w *models.WeatherReading) *float64 { return w.Temperature }),
	},
	models.ConditionHumidity: {
		Category: models.CategoryContinuous,
		extract:  weatherField(func(w *models.WeatherReading) *float64 { return w.Humidity }),
	},
	models.ConditionAQI: {
		Category: models.CategoryContinuous,
		extract:  weatherField(func(w *models.WeatherReading) *float64 { return w.AQI }),
	},
	models.ConditionMagnitude: {
		Category: models.CategoryPointEvent,
		extract: func(in Inputs) (float64, bool) {
			if math.IsNaN(in.Quake.Magnitude) {
				return 0, false
			}
			return in.Quake.Magnitude, true
		},
	},
}

// Lookup returns the signal bound to a condition name.
func Lookup(c models.Condition) (Signal, bool) {
	s, ok := signals[c]
	return s, ok
}

var operators = map[models.Operator]func(value, threshold float64) bool{
	models.OperatorGreater:      func(v, t float64) bool { return v > t },
	models.OperatorLess:         func(v, t float64) bool { return v < t },
	models.OperatorGreaterEqual: func(v, t float64) bool { return v >= t },
	models.OperatorLessEqual:    func(v, t float64) bool { return v <= t },
}

// Compare applies op exactly, without tolerance. ok is false for unknown operators.
func Compare(op models.Operator, value, threshold float64) (triggered, ok bool) {
	fn, ok := operators[op]
	if !ok {
		return false, false
	}
	return fn(value, threshold), true
}

// ValidateRule reports why a rule can never be evaluated, or nil.
func ValidateRule(r models.Rule) error {
	if _, ok := Lookup(r.Condition); !ok {
		return &MalformedRuleError{RuleID: r.ID, Reason: "unknown condition " + string(r.Condition)}
	}
	if _, ok := operators[r.Operator]; !ok {
		return &MalformedRuleError{RuleID: r.ID, Reason: "unknown operator " + string(r.Operator)}
	}
	if _, ok := models.ParseSeverity(string(r.Severity)); !ok {
		return &MalformedRuleError{RuleID: r.ID, Reason: "unknown severity " + string(r.Severity)}
	}
	if math.IsNaN(r.Threshold) {
		return &MalformedRuleError{RuleID: r.ID, Reason: "threshold is NaN"}
	}
	return nil
}
