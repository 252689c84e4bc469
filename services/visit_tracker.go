package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
	"media-site-service/ws"
)

// Visit is one request to be recorded in the visitor log.
type Visit struct {
	IP        string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// VisitTracker records visits off the request path. Track enqueues and
// returns at once; a single worker resolves geolocation, writes the visitor
// log and publishes the visitor:new event.
type VisitTracker struct {
	log     *VisitorLog
	geo     GeoLocator
	events  ws.EventPublisher
	timeout time.Duration

	queue   chan Visit
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

func NewVisitTracker(visitors *VisitorLog, geo GeoLocator, events ws.EventPublisher, queueSize int, timeout time.Duration) *VisitTracker {
	if events == nil {
		events = ws.NopPublisher{}
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &VisitTracker{
		log:     visitors,
		geo:     geo,
		events:  events,
		timeout: timeout,
		queue:   make(chan Visit, queueSize),
		logger:  logging.With("visit-tracker"),
	}
}

// Start launches the worker.
func (t *VisitTracker) Start() {
	t.wg.Add(1)
	go t.run()
}

// Track enqueues v. It never blocks: when the queue is full or the tracker
// has stopped, the visit is dropped and counted. Returns whether v was queued.
func (t *VisitTracker) Track(v Visit) bool {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stopped {
		metrics.VisitsDropped.Inc()
		return false
	}

	select {
	case t.queue <- v:
		return true
	default:
		metrics.VisitsDropped.Inc()
		t.logger.Warn().Str("ip", v.IP).Msg("Tracking queue full, dropping visit")
		return false
	}
}

// Stop closes the queue and waits for queued visits to be recorded.
func (t *VisitTracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info().Msg("Visit tracker stopped")
}

func (t *VisitTracker) run() {
	defer t.wg.Done()
	for v := range t.queue {
		t.record(v)
	}
}

func (t *VisitTracker) record(v Visit) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("Recovered while recording visit")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	location, err := t.geo.Locate(ctx, v.IP)
	cancel()
	if err != nil {
		t.logger.Debug().Err(err).Str("ip", v.IP).Msg("Geolocation failed")
		location = ErrorLocation
	}

	stored := t.log.LogVisit(models.Visitor{
		IP:        v.IP,
		UserAgent: v.UserAgent,
		Path:      v.Path,
		Location:  location,
		Timestamp: v.Timestamp,
	})
	t.events.Publish(ws.OpVisitorNew, stored)
}
