package services

import (
	"context"
	"sync"
	"time"

	"media-site-service/logging"
	"media-site-service/ws"
)

// ClientCounter reports how many realtime clients are connected.
type ClientCounter interface {
	ClientCount() int
}

// MetricsBroadcaster pushes quick stats to realtime clients on an interval.
// Nothing is sampled while no client is connected.
type MetricsBroadcaster struct {
	monitor  *SystemMonitor
	events   ws.EventPublisher
	clients  ClientCounter
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewMetricsBroadcaster(monitor *SystemMonitor, events ws.EventPublisher, clients ClientCounter, interval time.Duration) *MetricsBroadcaster {
	return &MetricsBroadcaster{
		monitor:  monitor,
		events:   events,
		clients:  clients,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (b *MetricsBroadcaster) Start() {
	logging.Info().Dur("interval", b.interval).Msg("Metrics broadcaster started")

	b.ticker = time.NewTicker(b.interval)
	go func() {
		for {
			select {
			case <-b.ticker.C:
				b.Broadcast()
			case <-b.done:
				return
			}
		}
	}()
}

func (b *MetricsBroadcaster) Stop() {
	b.stopOnce.Do(func() {
		if b.ticker != nil {
			b.ticker.Stop()
		}
		close(b.done)
	})
}

// Broadcast publishes one system:metrics event if anyone is listening and
// reports whether it did.
func (b *MetricsBroadcaster) Broadcast() bool {
	if b.clients.ClientCount() == 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.interval)
	defer cancel()
	b.events.Publish(ws.OpSystemMetrics, b.monitor.QuickStats(ctx))
	return true
}
