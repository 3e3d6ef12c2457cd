// Package api provides the HTTP monitoring and control API of the collector.
package api

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shibida/go-dtu/internal/profile"
)

// PollTracker pairs on-demand poll requests with the statistics frames that
// answer them. A handler registers a waiter before its request goes out to
// the bridge; the collector completes all waiters for a serial once the next
// full frame from that inverter has been decoded.
type PollTracker struct {
	waiters map[uint64][]chan time.Time
	mutex   sync.Mutex
	logger  zerolog.Logger
}

// NewPollTracker creates a new poll tracker.
func NewPollTracker(logger zerolog.Logger) *PollTracker {
	return &PollTracker{
		waiters: make(map[uint64][]chan time.Time),
		logger:  logger.With().Str("component", "poll_tracker").Logger(),
	}
}

// Track registers a waiter for the next completed frame from a serial.
// The returned channel receives the completion time exactly once.
func (pt *PollTracker) Track(serial uint64) chan time.Time {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	// Buffer of one so Complete never blocks on a waiter whose handler
	// already gave up.
	waiter := make(chan time.Time, 1)
	pt.waiters[serial] = append(pt.waiters[serial], waiter)

	return waiter
}

// Cancel removes a waiter whose request failed or timed out.
func (pt *PollTracker) Cancel(serial uint64, waiter chan time.Time) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	remaining := pt.waiters[serial][:0]
	for _, w := range pt.waiters[serial] {
		if w != waiter {
			remaining = append(remaining, w)
		}
	}

	if len(remaining) == 0 {
		delete(pt.waiters, serial)
	} else {
		pt.waiters[serial] = remaining
	}
}

// Complete resolves every waiter registered for a serial.
func (pt *PollTracker) Complete(serial uint64) {
	pt.mutex.Lock()
	waiters := pt.waiters[serial]
	delete(pt.waiters, serial)
	pt.mutex.Unlock()

	if len(waiters) == 0 {
		return
	}

	now := time.Now()
	for _, waiter := range waiters {
		waiter <- now
	}

	pt.logger.Debug().
		Str("serial", profile.FormatSerial(serial)).
		Int("waiters", len(waiters)).
		Msg("Completed poll waiters")
}

// PendingCount returns the number of serials with outstanding waiters.
func (pt *PollTracker) PendingCount() int {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	return len(pt.waiters)
}
