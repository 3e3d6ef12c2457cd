// Package scheduler runs the collector's time-driven maintenance jobs: the
// day-boundary reset of the yield counters and the offline data sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/domain"
)

// Scheduler periodically walks the fleet and applies the configured value
// housekeeping. All jobs run from a single goroutine; the parsers do their
// own locking.
type Scheduler struct {
	config    *config.Config
	fleet     *domain.Fleet
	publisher domain.MessagePublisher
	logger    zerolog.Logger
	location  *time.Location

	now func() time.Time

	ticker    *time.Ticker
	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mutex     sync.Mutex

	// Day tracking and sweep state, guarded separately from the lifecycle
	// mutex because Tick runs while Stop may be waiting.
	stateMutex sync.Mutex
	lastYear   int
	lastYDay   int
	swept      map[uint64]bool

	// Metrics
	dayRollovers  int64
	dailyZeroed   int64
	runtimeSweeps int64
}

// NewScheduler creates a scheduler for the given fleet. The publisher may be
// a noop; it is used to push zeroed values out immediately instead of
// waiting for a frame that will not come.
func NewScheduler(cfg *config.Config, fleet *domain.Fleet, publisher domain.MessagePublisher) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.TimeZone).Msg("Unknown timezone, falling back to UTC")
		location = time.UTC
	}

	s := &Scheduler{
		config:    cfg,
		fleet:     fleet,
		publisher: publisher,
		logger:    logger,
		location:  location,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		swept:     make(map[uint64]bool),
	}

	anchor := s.now().In(location)
	s.lastYear, s.lastYDay = anchor.Year(), anchor.YearDay()

	return s
}

// SetTimeSource replaces the scheduler's clock and re-anchors the day
// tracking. Used by tests with a synthetic clock.
func (s *Scheduler) SetTimeSource(now func() time.Time) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	s.now = now
	anchor := now().In(s.location)
	s.lastYear, s.lastYDay = anchor.Year(), anchor.YearDay()
}

// Start begins the maintenance loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	interval := time.Duration(s.config.Polling.IntervalSeconds) * time.Second
	if interval < time.Second {
		interval = time.Second
	}

	s.ticker = time.NewTicker(interval)
	s.isRunning = true

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info().
		Dur("interval", interval).
		Str("timezone", s.location.String()).
		Msg("Scheduler started")

	return nil
}

// Stop shuts down the maintenance loop.
func (s *Scheduler) Stop() error {
	s.mutex.Lock()
	if !s.isRunning {
		s.mutex.Unlock()
		return fmt.Errorf("scheduler is not running")
	}

	close(s.stopChan)
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.mutex.Unlock()

	s.wg.Wait()

	s.mutex.Lock()
	s.isRunning = false
	s.mutex.Unlock()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// run handles the periodic maintenance passes.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one maintenance pass. The run loop calls it on every interval;
// tests drive it directly with a synthetic clock.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.location)

	if s.rolledOver(now) {
		s.runDayBoundary(ctx, now)
	}
	s.runOfflineSweep(ctx, now)
}

// rolledOver reports whether now falls on a later calendar day than the
// previous pass, and advances the day tracking when it does.
func (s *Scheduler) rolledOver(now time.Time) bool {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if now.Year() == s.lastYear && now.YearDay() == s.lastYDay {
		return false
	}
	s.lastYear, s.lastYDay = now.Year(), now.YearDay()
	return true
}

// runDayBoundary releases every inverter's yield-day hold so the first frame
// of the new day is accepted verbatim, and zeroes the daily counters of
// inverters too long offline to report their own rollover.
func (s *Scheduler) runDayBoundary(ctx context.Context, now time.Time) {
	atomic.AddInt64(&s.dayRollovers, 1)
	s.logger.Info().Str("day", now.Format("2006-01-02")).Msg("Day boundary reached")

	threshold := s.offlineThreshold()
	for _, inv := range s.fleet.GetAllInverters() {
		inv.Statistics.ResetYieldDayCorrection()

		if !s.config.ZeroYieldAtMidnight || inv.IsReachable(now, threshold) {
			continue
		}
		if inv.Statistics.GetLastUpdate().IsZero() {
			continue
		}

		inv.Statistics.ZeroDailyData()
		atomic.AddInt64(&s.dailyZeroed, 1)
		s.publish(ctx, inv)

		s.logger.Info().
			Str("serial", inv.SerialString()).
			Msg("Zeroed daily counters of offline inverter")
	}
}

// runOfflineSweep zeroes the instantaneous readings of inverters that went
// silent, once per offline episode.
func (s *Scheduler) runOfflineSweep(ctx context.Context, now time.Time) {
	if !s.config.ZeroRuntimeWhenOffline {
		return
	}

	threshold := s.offlineThreshold()
	for _, inv := range s.fleet.GetAllInverters() {
		if inv.IsReachable(now, threshold) {
			s.stateMutex.Lock()
			delete(s.swept, inv.Serial)
			s.stateMutex.Unlock()
			continue
		}
		if inv.Statistics.GetLastUpdate().IsZero() {
			continue
		}

		s.stateMutex.Lock()
		already := s.swept[inv.Serial]
		if !already {
			s.swept[inv.Serial] = true
		}
		s.stateMutex.Unlock()
		if already {
			continue
		}

		inv.Statistics.ZeroRuntimeData()
		atomic.AddInt64(&s.runtimeSweeps, 1)
		s.publish(ctx, inv)

		s.logger.Info().
			Str("serial", inv.SerialString()).
			Time("last_update", inv.Statistics.GetLastUpdate()).
			Msg("Zeroed runtime data of unreachable inverter")
	}
}

// publish pushes an inverter's freshly zeroed values to the consumers.
func (s *Scheduler) publish(ctx context.Context, inv *domain.Inverter) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInverter(ctx, inv); err != nil {
		s.logger.Warn().
			Err(err).
			Str("serial", inv.SerialString()).
			Msg("Failed to publish zeroed values")
	}
}

func (s *Scheduler) offlineThreshold() time.Duration {
	return time.Duration(s.config.Polling.OfflineAfterSeconds) * time.Second
}

// GetMetrics returns current scheduler metrics.
func (s *Scheduler) GetMetrics() map[string]interface{} {
	s.mutex.Lock()
	isRunning := s.isRunning
	s.mutex.Unlock()

	return map[string]interface{}{
		"is_running":     isRunning,
		"day_rollovers":  atomic.LoadInt64(&s.dayRollovers),
		"daily_zeroed":   atomic.LoadInt64(&s.dailyZeroed),
		"runtime_sweeps": atomic.LoadInt64(&s.runtimeSweeps),
	}
}
