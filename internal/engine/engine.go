// Package engine runs the poll, evaluate and persist passes over all active
// locations and exposes them for the scheduler, the ops API and the CLI.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/hazard-monitor/internal/alerting"
	"github.com/mr1hm/hazard-monitor/internal/geo"
	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/observability"
	"github.com/mr1hm/hazard-monitor/internal/rules"
	"github.com/mr1hm/hazard-monitor/internal/worker"
)

const (
	LoopWeather = "weather"
	LoopSeismic = "seismic"
)

type Store interface {
	ReadingStore
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
	AddQuakeLog(ctx context.Context, q *models.QuakeLog) (bool, error)
}

type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherReading, error)
}

type QuakeFetcher interface {
	FetchQuakes(ctx context.Context) ([]models.Quake, error)
}

type Options struct {
	QuakeRadiusKm      float64
	FeedCacheMaxAge    time.Duration
	ReadingDedupWindow time.Duration
	FetchWorkers       int
}

type Deps struct {
	Store     Store
	Weather   WeatherFetcher
	Quakes    QuakeFetcher
	Evaluator *rules.Evaluator
	Alerts    *alerting.Manager
	Feed      *FeedCache
	Clock     clockwork.Clock
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

type Engine struct {
	store     Store
	weather   WeatherFetcher
	quakes    QuakeFetcher
	evaluator *rules.Evaluator
	alerts    *alerting.Manager
	feed      *FeedCache
	readings  *ReadingLogger
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
	opts      Options

	// one evaluate-and-persist unit at a time, across both loops
	mu sync.Mutex
}

func New(d Deps, opts Options) *Engine {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetricsForTesting()
	}
	if d.Feed == nil {
		d.Feed = NewFeedCache()
	}
	if opts.FetchWorkers < 1 {
		opts.FetchWorkers = 1
	}
	return &Engine{
		store:     d.Store,
		weather:   d.Weather,
		quakes:    d.Quakes,
		evaluator: d.Evaluator,
		alerts:    d.Alerts,
		feed:      d.Feed,
		readings:  NewReadingLogger(d.Store, d.Clock, opts.ReadingDedupWindow),
		clock:     d.Clock,
		metrics:   d.Metrics,
		logger:    d.Logger,
		opts:      opts,
	}
}

// CycleReport summarises one pass over the active locations.
type CycleReport struct {
	Locations  int `json:"locations"`
	Evaluated  int `json:"evaluated"`
	Opened     int `json:"opened"`
	Cleared    int `json:"cleared"`
	Duplicates int `json:"duplicates"`
	Failures   int `json:"failures"`
}

func (r *CycleReport) add(rep alerting.Report) {
	r.Evaluated++
	r.Opened += len(rep.Opened)
	r.Cleared += len(rep.Cleared)
	r.Duplicates += rep.Duplicates
}

// Feed returns the cached point-event feed, or nil before the first seismic poll.
func (e *Engine) Feed() *FeedSnapshot {
	return e.feed.Load()
}

// MatchNearestPointEvent is the matcher used by the cycles, exposed for simulation tooling.
func MatchNearestPointEvent(feed []models.Quake, lat, lon, radiusKm float64) (geo.Match, bool) {
	return geo.FindNearestEvent(feed, lat, lon, radiusKm)
}

// EvaluateLocation runs rule evaluation and the alert transitions for one
// location. A nil weather reading suppresses auto-clear. Notifications go out
// after the evaluate-and-persist unit has released the engine lock.
func (e *Engine) EvaluateLocation(ctx context.Context, loc models.Location, weather *models.WeatherReading, quake *models.Quake) (alerting.Report, error) {
	report, err := e.evaluateAndPersist(ctx, loc, weather, quake)
	e.alerts.Publish(ctx, report.Events)
	return report, err
}

func (e *Engine) evaluateAndPersist(ctx context.Context, loc models.Location, weather *models.WeatherReading, quake *models.Quake) (alerting.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in := rules.Inputs{Weather: weather, Quake: quake}
	res, err := e.evaluator.Evaluate(ctx, loc, in)
	if err != nil {
		e.metrics.PersistenceErrors.WithLabelValues("load_rules").Inc()
		return alerting.Report{}, err
	}

	report, err := e.alerts.Apply(ctx, loc, res, in)
	e.recordTransitions(report)
	if err != nil {
		e.metrics.PersistenceErrors.WithLabelValues("alert_transition").Inc()
	}
	return report, err
}

func (e *Engine) recordTransitions(rep alerting.Report) {
	for _, o := range rep.Opened {
		e.metrics.AlertsOpened.WithLabelValues(string(o.Category)).Inc()
		if o.Superseded != nil {
			e.metrics.AlertsCleared.WithLabelValues("superseded").Inc()
		}
	}
	if n := len(rep.Cleared); n > 0 {
		e.metrics.AlertsCleared.WithLabelValues("auto_clear").Add(float64(n))
	}
}

func (e *Engine) finishCycle(loop string, start time.Time, report CycleReport, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.Cycles.WithLabelValues(loop, outcome).Inc()
	e.metrics.CycleDuration.WithLabelValues(loop).Observe(e.clock.Since(start).Seconds())

	e.logger.Info("cycle complete",
		"loop", loop,
		"locations", report.Locations,
		"evaluated", report.Evaluated,
		"opened", report.Opened,
		"cleared", report.Cleared,
		"duplicates", report.Duplicates,
		"failures", report.Failures,
		"duration", e.clock.Since(start),
	)
}

// RunContinuousSignalCycle fetches weather for every active location and
// evaluates it, together with the cached feed when it is fresh enough.
// Failures are local to their location and returned joined.
func (e *Engine) RunContinuousSignalCycle(ctx context.Context) (report CycleReport, err error) {
	start := e.clock.Now()
	defer func() { e.finishCycle(LoopWeather, start, report, err) }()

	locations, err := e.store.ListActiveLocations(ctx)
	if err != nil {
		e.metrics.PersistenceErrors.WithLabelValues("list_locations").Inc()
		return report, fmt.Errorf("list locations: %w", err)
	}
	report.Locations = len(locations)

	feed := e.feed.Fresh(e.clock.Now(), e.opts.FeedCacheMaxAge)

	var mu sync.Mutex
	err = worker.Run(ctx, e.opts.FetchWorkers, locations, func(ctx context.Context, loc models.Location) error {
		rep, err := e.continuousForLocation(ctx, loc, feed)

		mu.Lock()
		defer mu.Unlock()
		if rep != nil {
			report.add(*rep)
		}
		if err != nil {
			report.Failures++
		}
		return err
	})
	return report, err
}

func (e *Engine) continuousForLocation(ctx context.Context, loc models.Location, feed *FeedSnapshot) (*alerting.Report, error) {
	reading, err := e.weather.FetchWeather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		e.metrics.FetchErrors.WithLabelValues(LoopWeather).Inc()
		e.logger.Warn("weather fetch failed, skipping location", "location", loc.Name, "error", err)
		return nil, fmt.Errorf("location %s: %w", loc.Name, err)
	}

	var (
		match *geo.Match
		quake *models.Quake
	)
	if feed != nil {
		if m, ok := geo.FindNearestEvent(feed.Quakes, loc.Latitude, loc.Longitude, e.opts.QuakeRadiusKm); ok {
			match = &m
			quake = &m.Quake
		}
	}

	var errs []error
	logged, err := e.readings.Log(ctx, loc, reading, match)
	if err != nil {
		e.metrics.PersistenceErrors.WithLabelValues("reading").Inc()
		e.logger.Error("failed to log reading", "location", loc.Name, "error", err)
		errs = append(errs, err)
	} else if logged {
		e.metrics.ReadingsLogged.Inc()
	}

	rep, err := e.EvaluateLocation(ctx, loc, reading, quake)
	if err != nil {
		e.logger.Error("evaluation failed", "location", loc.Name, "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &rep, fmt.Errorf("location %s: %w", loc.Name, errors.Join(errs...))
	}
	return &rep, nil
}

// RunPointEventCycle fetches the seismic feed, refreshes the feed cache and
// evaluates every active location against its strongest nearby event.
func (e *Engine) RunPointEventCycle(ctx context.Context) (report CycleReport, err error) {
	start := e.clock.Now()
	defer func() { e.finishCycle(LoopSeismic, start, report, err) }()

	quakes, err := e.quakes.FetchQuakes(ctx)
	if err != nil {
		e.metrics.FetchErrors.WithLabelValues("usgs").Inc()
		return report, fmt.Errorf("fetch quakes: %w", err)
	}
	e.feed.Store(quakes, e.clock.Now().UTC())

	locations, err := e.store.ListActiveLocations(ctx)
	if err != nil {
		e.metrics.PersistenceErrors.WithLabelValues("list_locations").Inc()
		return report, fmt.Errorf("list locations: %w", err)
	}
	report.Locations = len(locations)

	var errs []error
	for _, loc := range locations {
		m, ok := geo.FindNearestEvent(quakes, loc.Latitude, loc.Longitude, e.opts.QuakeRadiusKm)
		if !ok {
			continue
		}
		rep, err := e.pointEventForLocation(ctx, loc, m)
		report.add(rep)
		if err != nil {
			report.Failures++
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

func (e *Engine) pointEventForLocation(ctx context.Context, loc models.Location, m geo.Match) (alerting.Report, error) {
	var errs []error

	inserted, err := e.store.AddQuakeLog(ctx, &models.QuakeLog{
		LocationID: loc.ID,
		EventID:    m.Quake.ID,
		Magnitude:  m.Quake.Magnitude,
		Place:      m.Quake.Place,
		DistanceKm: m.DistanceKm,
		Manual:     m.Quake.Manual,
		FetchedAt:  e.clock.Now().UTC(),
	})
	switch {
	case err != nil:
		e.metrics.PersistenceErrors.WithLabelValues("quake_log").Inc()
		e.logger.Error("failed to log quake", "location", loc.Name, "event_id", m.Quake.ID, "error", err)
		errs = append(errs, err)
	case inserted:
		e.logger.Info("quake logged",
			"location", loc.Name,
			"event_id", m.Quake.ID,
			"magnitude", m.Quake.Magnitude,
			"distance_km", m.DistanceKm,
			"manual", m.Quake.Manual,
		)
	}

	quake := m.Quake
	rep, err := e.EvaluateLocation(ctx, loc, nil, &quake)
	if err != nil {
		e.logger.Error("evaluation failed", "location", loc.Name, "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return rep, fmt.Errorf("location %s: %w", loc.Name, errors.Join(errs...))
	}
	return rep, nil
}

// SimulationResult is the effect of a simulated quake on one location in range.
type SimulationResult struct {
	Location   models.Location
	DistanceKm float64
	Report     alerting.Report
}

// SimulateQuake injects an operator-defined quake and runs it through the
// same matching, logging and evaluation as a fetched one. The feed cache is
// left untouched.
func (e *Engine) SimulateQuake(ctx context.Context, lat, lon, magnitude float64, place string) (models.Quake, []SimulationResult, error) {
	q := models.Quake{
		ID:        "manual-" + uuid.NewString(),
		Magnitude: magnitude,
		Latitude:  lat,
		Longitude: lon,
		Place:     place,
		Time:      e.clock.Now().UTC(),
		Manual:    true,
	}

	locations, err := e.store.ListActiveLocations(ctx)
	if err != nil {
		return q, nil, fmt.Errorf("list locations: %w", err)
	}

	var (
		results []SimulationResult
		errs    []error
	)
	feed := []models.Quake{q}
	for _, loc := range locations {
		m, ok := MatchNearestPointEvent(feed, loc.Latitude, loc.Longitude, e.opts.QuakeRadiusKm)
		if !ok {
			continue
		}
		rep, err := e.pointEventForLocation(ctx, loc, m)
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, SimulationResult{Location: loc, DistanceKm: m.DistanceKm, Report: rep})
	}

	e.logger.Info("simulated quake", "event_id", q.ID, "magnitude", magnitude, "locations_in_range", len(results))
	return q, results, errors.Join(errs...)
}
