package models

import "strings"

// Category is the signal source a rule condition reads from.
type Category string

const (
	CategoryContinuous Category = "continuous"
	CategoryPointEvent Category = "point_event"
)

type Condition string

const (
	ConditionRainSum     Condition = "rain_sum"
	ConditionWindSpeed   Condition = "wind_speed"
	ConditionTemperature Condition = "temperature"
	ConditionHumidity    Condition = "humidity"
	ConditionAQI         Condition = "aqi"
	ConditionMagnitude   Condition = "earthquake_magnitude"
)

type Operator string

const (
	OperatorGreater      Operator = ">"
	OperatorLess         Operator = "<"
	OperatorGreaterEqual Operator = ">="
	OperatorLessEqual    Operator = "<="
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// ParseSeverity matches s case-insensitively against the known tiers.
func ParseSeverity(s string) (Severity, bool) {
	s = strings.TrimSpace(s)
	for sev := range severityRank {
		if strings.EqualFold(string(sev), s) {
			return sev, true
		}
	}
	return "", false
}

// Rank orders severities from Low (1) to Critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	return severityRank[s]
}

type Rule struct {
	ID           int64
	LocationID   *int64 // nil applies the rule to every location
	DisasterID   int64
	DisasterName string
	Condition    Condition
	Operator     Operator
	Threshold    float64
	Severity     Severity
	Message      string
	Active       bool
}
