package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
	"media-site-service/storage"
)

const (
	maxVisitors = 1000
	topIPLimit  = 10
)

// VisitorLog holds at most one record per IP, oldest first, capped at
// maxVisitors.
type VisitorLog struct {
	mu       sync.RWMutex
	visitors []models.Visitor
	store    storage.DocumentStore
	now      func() time.Time
	log      zerolog.Logger
}

func NewVisitorLog(store storage.DocumentStore) *VisitorLog {
	l := &VisitorLog{
		store: store,
		now:   time.Now,
		log:   logging.With("visitor-log"),
	}
	if _, err := store.Load(storage.Analytics, &l.visitors); err != nil {
		l.log.Error().Err(err).Msg("Failed to load analytics")
		l.visitors = nil
	}
	return l
}

// LogVisit records a visit. A known IP has its record merged with v and
// moved to the most-recent position; otherwise a new record is appended.
// Returns the stored record.
func (l *VisitorLog) LogVisit(v models.Visitor) models.Visitor {
	if v.Timestamp.IsZero() {
		v.Timestamp = l.now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var stored models.Visitor
	if i := l.indexOf(v.IP); i >= 0 {
		stored = mergeVisitor(l.visitors[i], v)
		l.visitors = append(l.visitors[:i], l.visitors[i+1:]...)
	} else {
		stored = v
		stored.ID = uuid.NewString()
	}
	l.visitors = append(l.visitors, stored)

	if len(l.visitors) > maxVisitors {
		l.visitors = append([]models.Visitor(nil), l.visitors[len(l.visitors)-maxVisitors:]...)
	}

	metrics.VisitsLogged.Inc()
	if err := l.store.Save(storage.Analytics, l.visitors); err != nil {
		metrics.PersistFailures.WithLabelValues(storage.Analytics).Inc()
		l.log.Error().Err(err).Msg("Failed to save analytics")
	}
	return stored
}

func (l *VisitorLog) indexOf(ip string) int {
	for i := range l.visitors {
		if l.visitors[i].IP == ip {
			return i
		}
	}
	return -1
}

// mergeVisitor overlays the non-empty fields of in onto existing.
func mergeVisitor(existing, in models.Visitor) models.Visitor {
	out := existing
	if in.UserAgent != "" {
		out.UserAgent = in.UserAgent
	}
	if in.Path != "" {
		out.Path = in.Path
	}
	if !in.Location.IsZero() {
		out.Location = in.Location
	}
	out.Timestamp = in.Timestamp
	return out
}

// GetAnalytics summarises the retained log.
//
// Because the log keeps one record per IP, every TopIPs count is 1; the
// ordering therefore reflects log order, not frequency.
func (l *VisitorLog) GetAnalytics() models.Analytics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[string]int, len(l.visitors))
	var order []string
	for _, v := range l.visitors {
		if _, seen := counts[v.IP]; !seen {
			order = append(order, v.IP)
		}
		counts[v.IP]++
	}

	top := make([]models.IPCount, 0, len(order))
	for _, ip := range order {
		top = append(top, models.IPCount{IP: ip, Count: counts[ip]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topIPLimit {
		top = top[:topIPLimit]
	}

	recent := make([]models.Visitor, len(l.visitors))
	for i, v := range l.visitors {
		recent[len(l.visitors)-1-i] = v
	}

	return models.Analytics{
		TotalVisits:    len(l.visitors),
		UniqueVisitors: len(counts),
		Visitors:       recent,
		TopIPs:         top,
	}
}
