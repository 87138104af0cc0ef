// Package scheduler runs the self-rearming polling loops. Each loop re-reads
// its interval from the settings store after every cycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/hazard-monitor/internal/observability"
)

type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

type CycleFunc func(ctx context.Context) error

// Loop is one polling cadence.
type Loop struct {
	Name       string
	SettingKey string
	Default    time.Duration
	Run        CycleFunc
}

type Scheduler struct {
	settings SettingsReader
	floor    time.Duration
	loops    []Loop
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func New(settings SettingsReader, floor time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger, loops ...Loop) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		settings: settings,
		floor:    floor,
		loops:    loops,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, l := range s.loops {
		s.wg.Add(1)
		go s.runLoop(ctx, l)
	}
}

// Stop waits for every loop to return. Cancel the Start context first.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, l Loop) {
	defer s.wg.Done()
	s.logger.Info("starting loop", "loop", l.Name, "default_interval", l.Default)

	for {
		s.runOnce(ctx, l)

		interval := ResolveInterval(ctx, s.settings, l.SettingKey, l.Default, s.floor, s.logger)
		if s.metrics != nil {
			s.metrics.PollInterval.WithLabelValues(l.Name).Set(interval.Seconds())
		}
		s.logger.Debug("loop re-armed", "loop", l.Name, "interval", interval)

		timer := s.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("loop shutting down", "loop", l.Name)
			return
		case <-timer.Chan():
		}
	}
}

// runOnce confines a failed or panicking cycle to its own iteration.
func (s *Scheduler) runOnce(ctx context.Context, l Loop) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", "loop", l.Name, "panic", fmt.Sprint(r))
		}
	}()

	if ctx.Err() != nil {
		return
	}
	if err := l.Run(ctx); err != nil {
		s.logger.Error("cycle failed", "loop", l.Name, "error", err)
	}
}

// ResolveInterval reads key as whole seconds. A missing, unreadable or
// non-positive value falls back to def; the result is never below floor.
func ResolveInterval(ctx context.Context, settings SettingsReader, key string, def, floor time.Duration, logger *slog.Logger) time.Duration {
	interval := def

	if settings != nil && key != "" {
		raw, ok, err := settings.GetSetting(ctx, key)
		switch {
		case err != nil:
			if logger != nil {
				logger.Warn("failed to read interval setting, using default", "key", key, "error", err)
			}
		case ok:
			secs, perr := strconv.Atoi(strings.TrimSpace(raw))
			if perr != nil || secs <= 0 {
				if logger != nil {
					logger.Warn("invalid interval setting, using default", "key", key, "value", raw)
				}
			} else {
				interval = time.Duration(secs) * time.Second
			}
		}
	}

	if interval < floor {
		interval = floor
	}
	return interval
}
