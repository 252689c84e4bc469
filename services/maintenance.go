package services

import (
	"sync"
	"time"

	"media-site-service/logging"
)

// MaintenanceService prunes aged error events on a fixed interval.
type MaintenanceService struct {
	tracker   *ErrorTracker
	retention time.Duration
	interval  time.Duration
	ticker    *time.Ticker
	done      chan struct{}
	stopOnce  sync.Once
}

func NewMaintenanceService(tracker *ErrorTracker, retention, interval time.Duration) *MaintenanceService {
	return &MaintenanceService{
		tracker:   tracker,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Start runs one prune immediately, then one every interval.
func (s *MaintenanceService) Start() {
	logging.Info().
		Dur("interval", s.interval).
		Dur("retention", s.retention).
		Msg("Maintenance service started")

	s.RunOnce()

	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.RunOnce()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop halts the ticker. Safe to call more than once.
func (s *MaintenanceService) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.done)
		logging.Info().Msg("Maintenance service stopped")
	})
}

// RunOnce prunes error events older than the retention window.
func (s *MaintenanceService) RunOnce() int {
	return s.tracker.PruneOlderThan(s.retention)
}
