package models

import "time"

// Error event types
const (
	ErrorTypeJavaScript = "javascript"
	ErrorTypeAPI        = "api"
	ErrorTypeNotFound   = "404"
	ErrorTypeUnknown    = "unknown"
)

// Severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// ErrorEvent is a tracked client or server error. Only the fields relevant to
// its Type are populated.
type ErrorEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`

	// javascript
	Stack  string `json:"stack,omitempty"`
	URL    string `json:"url,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`

	// api
	Method     string `json:"method,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`

	// 404
	Path     string `json:"path,omitempty"`
	Referrer string `json:"referrer,omitempty"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ErrorFilter narrows GetErrors results; zero values mean "any".
type ErrorFilter struct {
	Type     string
	Severity string
	Since    time.Time
	Limit    int
}

// ErrorCounts is a per-type breakdown.
type ErrorCounts struct {
	Total          int `json:"total"`
	JSErrors       int `json:"jsErrors"`
	APIErrors      int `json:"apiErrors"`
	NotFoundErrors int `json:"notFoundErrors"`
}

// ErrorStats are the running counters plus derived windows.
type ErrorStats struct {
	TotalErrors    int       `json:"totalErrors"`
	JSErrors       int       `json:"jsErrors"`
	APIErrors      int       `json:"apiErrors"`
	NotFoundErrors int       `json:"notFoundErrors"`
	LastReset      time.Time `json:"lastReset"`

	// Last24h is derived from the retained buffer, so it undercounts once
	// the buffer has evicted events younger than a day.
	Last24h ErrorCounts `json:"last24h"`
	// Last24hTracked comes from hourly counters that survive buffer eviction.
	Last24hTracked ErrorCounts  `json:"last24hTracked"`
	RecentErrors   []ErrorEvent `json:"recentErrors"`
}
