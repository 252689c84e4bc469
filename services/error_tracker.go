package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
)

const (
	maxTrackedErrors   = 100
	defaultErrorsLimit = 50
	recentErrorsCount  = 5
	hourBuckets        = 24
)

// JSErrorReport is a frontend JavaScript error.
type JSErrorReport struct {
	Message   string `json:"message"`
	Stack     string `json:"stack"`
	URL       string `json:"url"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	UserAgent string `json:"userAgent"`
}

// APIErrorReport is a failed API call, reported by the client or the server itself.
type APIErrorReport struct {
	Method     string `json:"method"`
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	IP         string `json:"-"`
}

// NotFoundReport is a request for a route that does not exist.
type NotFoundReport struct {
	Path      string `json:"path"`
	Method    string `json:"method"`
	Referrer  string `json:"referrer"`
	IP        string `json:"-"`
	UserAgent string `json:"userAgent"`
}

type hourBucket struct {
	hour   int64 // unix hour the counts belong to
	counts models.ErrorCounts
}

// ErrorTracker keeps the newest maxTrackedErrors events and running
// counters. Counters survive age-based pruning and reset only on ClearErrors.
type ErrorTracker struct {
	mu      sync.RWMutex
	errors  []models.ErrorEvent // newest first
	stats   models.ErrorStats
	buckets [hourBuckets]hourBucket
	now     func() time.Time
	log     zerolog.Logger
}

func NewErrorTracker() *ErrorTracker {
	t := &ErrorTracker{
		now: time.Now,
		log: logging.With("error-tracker"),
	}
	t.stats.LastReset = t.now().UTC()
	return t
}

// LogError stores event with a fresh id and timestamp and bumps the
// counters for its type. Unknown types are recorded as "unknown".
func (t *ErrorTracker) LogError(event models.ErrorEvent) models.ErrorEvent {
	switch event.Type {
	case models.ErrorTypeJavaScript, models.ErrorTypeAPI, models.ErrorTypeNotFound:
	default:
		event.Type = models.ErrorTypeUnknown
	}
	if !models.ValidSeverity(event.Severity) {
		event.Severity = models.SeverityError
	}
	event.ID = uuid.NewString()
	event.Timestamp = t.now().UTC()

	t.mu.Lock()
	t.errors = append([]models.ErrorEvent{event}, t.errors...)
	if len(t.errors) > maxTrackedErrors {
		t.errors = t.errors[:maxTrackedErrors]
	}
	t.stats.TotalErrors++
	switch event.Type {
	case models.ErrorTypeJavaScript:
		t.stats.JSErrors++
	case models.ErrorTypeAPI:
		t.stats.APIErrors++
	case models.ErrorTypeNotFound:
		t.stats.NotFoundErrors++
	}
	t.countInBucket(event)
	t.mu.Unlock()

	metrics.ErrorsTracked.WithLabelValues(event.Type).Inc()
	t.log.Warn().
		Str("type", event.Type).
		Str("severity", event.Severity).
		Msg(event.Message)

	return event
}

// countInBucket must be called with mu held.
func (t *ErrorTracker) countInBucket(event models.ErrorEvent) {
	hour := event.Timestamp.Unix() / 3600
	b := &t.buckets[hour%hourBuckets]
	if b.hour != hour {
		*b = hourBucket{hour: hour}
	}
	addToCounts(&b.counts, event.Type, 1)
}

func addToCounts(c *models.ErrorCounts, typ string, n int) {
	c.Total += n
	switch typ {
	case models.ErrorTypeJavaScript:
		c.JSErrors += n
	case models.ErrorTypeAPI:
		c.APIErrors += n
	case models.ErrorTypeNotFound:
		c.NotFoundErrors += n
	}
}

func (t *ErrorTracker) LogJavaScriptError(r JSErrorReport) models.ErrorEvent {
	return t.LogError(models.ErrorEvent{
		Type:      models.ErrorTypeJavaScript,
		Message:   r.Message,
		Stack:     r.Stack,
		URL:       r.URL,
		Line:      r.Line,
		Column:    r.Column,
		UserAgent: r.UserAgent,
		Severity:  models.SeverityError,
	})
}

// LogAPIError records a critical event for 5xx statuses and a warning otherwise.
func (t *ErrorTracker) LogAPIError(r APIErrorReport) models.ErrorEvent {
	severity := models.SeverityWarning
	if r.StatusCode >= 500 {
		severity = models.SeverityCritical
	}
	return t.LogError(models.ErrorEvent{
		Type:       models.ErrorTypeAPI,
		Message:    r.Message,
		Method:     r.Method,
		Endpoint:   r.Endpoint,
		StatusCode: r.StatusCode,
		IP:         r.IP,
		Severity:   severity,
	})
}

func (t *ErrorTracker) Log404Error(r NotFoundReport) models.ErrorEvent {
	return t.LogError(models.ErrorEvent{
		Type:      models.ErrorTypeNotFound,
		Message:   fmt.Sprintf("Page not found: %s", r.Path),
		Path:      r.Path,
		Method:    r.Method,
		Referrer:  r.Referrer,
		IP:        r.IP,
		UserAgent: r.UserAgent,
		Severity:  models.SeverityInfo,
	})
}

// GetErrors returns buffered events matching every set field of f, newest
// first. The limit is applied after filtering; non-positive means 50.
func (t *ErrorTracker) GetErrors(f models.ErrorFilter) []models.ErrorEvent {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultErrorsLimit
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ErrorEvent, 0, min(limit, len(t.errors)))
	for _, e := range t.errors {
		if len(out) == limit {
			break
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Severity != "" && e.Severity != f.Severity {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// GetStats returns the running counters, the last-24h breakdowns and the
// newest five events.
func (t *ErrorTracker) GetStats() models.ErrorStats {
	now := t.now()
	cutoff := now.Add(-24 * time.Hour)
	currentHour := now.Unix() / 3600

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := t.stats
	stats.Last24h = models.ErrorCounts{}
	for _, e := range t.errors {
		if !e.Timestamp.Before(cutoff) {
			addToCounts(&stats.Last24h, e.Type, 1)
		}
	}

	stats.Last24hTracked = models.ErrorCounts{}
	for _, b := range t.buckets {
		if b.hour > currentHour-hourBuckets && b.hour <= currentHour {
			stats.Last24hTracked.Total += b.counts.Total
			stats.Last24hTracked.JSErrors += b.counts.JSErrors
			stats.Last24hTracked.APIErrors += b.counts.APIErrors
			stats.Last24hTracked.NotFoundErrors += b.counts.NotFoundErrors
		}
	}

	n := min(recentErrorsCount, len(t.errors))
	stats.RecentErrors = append([]models.ErrorEvent{}, t.errors[:n]...)
	return stats
}

// ClearErrors empties the buffer and resets every counter.
func (t *ErrorTracker) ClearErrors() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.errors = nil
	t.stats = models.ErrorStats{LastReset: t.now().UTC()}
	t.buckets = [hourBuckets]hourBucket{}
}

// PruneOlderThan drops buffered events older than age and returns how many
// were removed. Counters are left untouched.
func (t *ErrorTracker) PruneOlderThan(age time.Duration) int {
	cutoff := t.now().Add(-age)

	t.mu.Lock()
	kept := t.errors[:0]
	for _, e := range t.errors {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(t.errors) - len(kept)
	t.errors = kept
	t.mu.Unlock()

	t.log.Info().Int("removed", removed).Msg("Pruned old errors")
	return removed
}
