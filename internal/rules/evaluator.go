// Package rules evaluates threshold rules against fetched hazard signals.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

type MalformedRuleError struct {
	RuleID int64
	Reason string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("rule %d: %s", e.RuleID, e.Reason)
}

// Outcome is the result of one rule against this cycle's signals.
type Outcome struct {
	RuleID       int64
	DisasterID   int64
	DisasterName string
	Triggered    bool
	Severity     models.Severity
	Message      string
	Condition    models.Condition
	Operator     models.Operator
	Observed     float64
	Threshold    float64
	Category     models.Category
}

// Result is the full evaluation of a location.
type Result struct {
	Outcomes []Outcome

	// Seen lists, per category, every disaster with at least one rule for the
	// location, including rules skipped because their input was missing.
	Seen map[models.Category]map[int64]struct{}

	// Unresolved lists the disasters with at least one rule whose input was
	// missing or whose value was undefined this cycle.
	Unresolved map[models.Category]map[int64]struct{}
}

func (r Result) Triggered() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Triggered {
			out = append(out, o)
		}
	}
	return out
}

// SeenDisasters returns the disaster ids recorded for category.
func (r Result) SeenDisasters(c models.Category) map[int64]struct{} {
	return r.Seen[c]
}

// Resolved returns the disasters of category c whose every rule produced an
// outcome. Only these carry evidence that a condition no longer holds.
func (r Result) Resolved(c models.Category) []int64 {
	var out []int64
	for id := range r.Seen[c] {
		if _, skipped := r.Unresolved[c][id]; !skipped {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mark(set map[models.Category]map[int64]struct{}, c models.Category, id int64) {
	if set[c] == nil {
		set[c] = make(map[int64]struct{})
	}
	set[c][id] = struct{}{}
}

// EvaluateRules is the pure evaluation step. Malformed rules, rules whose
// input is missing and rules whose value is undefined produce no outcome.
func EvaluateRules(rules []models.Rule, in Inputs) Result {
	res := Result{
		Seen:       make(map[models.Category]map[int64]struct{}),
		Unresolved: make(map[models.Category]map[int64]struct{}),
	}

	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			slog.Debug("skipping malformed rule", "rule_id", r.ID, "error", err)
			continue
		}
		sig, _ := Lookup(r.Condition)

		mark(res.Seen, sig.Category, r.DisasterID)

		if !sig.available(in) {
			mark(res.Unresolved, sig.Category, r.DisasterID)
			continue
		}
		value, ok := sig.extract(in)
		if !ok {
			mark(res.Unresolved, sig.Category, r.DisasterID)
			continue
		}

		triggered, _ := Compare(r.Operator, value, r.Threshold)
		severity, _ := models.ParseSeverity(string(r.Severity))

		res.Outcomes = append(res.Outcomes, Outcome{
			RuleID:       r.ID,
			DisasterID:   r.DisasterID,
			DisasterName: r.DisasterName,
			Triggered:    triggered,
			Severity:     severity,
			Message:      r.Message,
			Condition:    r.Condition,
			Operator:     r.Operator,
			Observed:     value,
			Threshold:    r.Threshold,
			Category:     sig.Category,
		})
	}

	return res
}

// RuleSource returns the active rules of active disasters that apply to a
// location: its own rules plus global ones.
type RuleSource interface {
	ActiveRulesForLocation(ctx context.Context, locationID int64) ([]models.Rule, error)
}

type Evaluator struct {
	source RuleSource
}

func NewEvaluator(source RuleSource) *Evaluator {
	return &Evaluator{source: source}
}

func (e *Evaluator) Evaluate(ctx context.Context, loc models.Location, in Inputs) (Result, error) {
	rules, err := e.source.ActiveRulesForLocation(ctx, loc.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load rules for location %d: %w", loc.ID, err)
	}
	return EvaluateRules(rules, in), nil
}
