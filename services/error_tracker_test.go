package services

import (
	"fmt"
	"testing"
	"time"

	"media-site-service/models"
)

func newTestErrorTracker() (*ErrorTracker, *fakeClock) {
	clock := newFakeClock()
	tr := NewErrorTracker()
	tr.now = clock.Now
	return tr, clock
}

func TestErrorTracker_SeverityRules(t *testing.T) {
	tr, _ := newTestErrorTracker()

	tests := []struct {
		name string
		log  func() models.ErrorEvent
		want string
	}{
		{"javascript", func() models.ErrorEvent { return tr.LogJavaScriptError(JSErrorReport{Message: "x"}) }, models.SeverityError},
		{"api 500", func() models.ErrorEvent { return tr.LogAPIError(APIErrorReport{StatusCode: 500}) }, models.SeverityCritical},
		{"api 503", func() models.ErrorEvent { return tr.LogAPIError(APIErrorReport{StatusCode: 503}) }, models.SeverityCritical},
		{"api 400", func() models.ErrorEvent { return tr.LogAPIError(APIErrorReport{StatusCode: 400}) }, models.SeverityWarning},
		{"404", func() models.ErrorEvent { return tr.Log404Error(NotFoundReport{Path: "/nope"}) }, models.SeverityInfo},
		{"unknown with severity", func() models.ErrorEvent {
			return tr.LogError(models.ErrorEvent{Type: "weird", Severity: models.SeverityWarning})
		}, models.SeverityWarning},
		{"unknown without severity", func() models.ErrorEvent {
			return tr.LogError(models.ErrorEvent{Type: "weird"})
		}, models.SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.log()
			if e.Severity != tt.want {
				t.Errorf("Severity = %q, want %q", e.Severity, tt.want)
			}
			if e.ID == "" || e.Timestamp.IsZero() {
				t.Error("expected id and timestamp to be assigned")
			}
		})
	}

	if got := tr.LogError(models.ErrorEvent{Type: "weird"}).Type; got != models.ErrorTypeUnknown {
		t.Errorf("Type = %q, want unknown", got)
	}
	if got := tr.Log404Error(NotFoundReport{Path: "/x"}).Message; got != "Page not found: /x" {
		t.Errorf("404 message = %q", got)
	}
}

func TestErrorTracker_BufferIsBounded(t *testing.T) {
	tr, _ := newTestErrorTracker()

	for i := 0; i < 250; i++ {
		tr.LogJavaScriptError(JSErrorReport{Message: fmt.Sprintf("e%d", i)})
	}

	all := tr.GetErrors(models.ErrorFilter{Limit: 1000})
	if len(all) != maxTrackedErrors {
		t.Fatalf("buffer size = %d, want %d", len(all), maxTrackedErrors)
	}
	if all[0].Message != "e249" {
		t.Errorf("newest = %q, want e249", all[0].Message)
	}

	stats := tr.GetStats()
	if stats.TotalErrors != 250 || stats.JSErrors != 250 {
		t.Errorf("counters = %d/%d, want 250/250", stats.TotalErrors, stats.JSErrors)
	}
	if stats.Last24h.Total != maxTrackedErrors {
		t.Errorf("Last24h.Total = %d, want %d", stats.Last24h.Total, maxTrackedErrors)
	}
	if stats.Last24hTracked.Total != 250 {
		t.Errorf("Last24hTracked.Total = %d, want 250", stats.Last24hTracked.Total)
	}
	if len(stats.RecentErrors) != recentErrorsCount {
		t.Errorf("len(RecentErrors) = %d, want %d", len(stats.RecentErrors), recentErrorsCount)
	}
}

func TestErrorTracker_GetErrorsFilters(t *testing.T) {
	tr, clock := newTestErrorTracker()

	tr.LogAPIError(APIErrorReport{Message: "a1", StatusCode: 500})
	clock.Advance(time.Second)
	tr.LogJavaScriptError(JSErrorReport{Message: "js"})
	clock.Advance(time.Second)
	tr.LogAPIError(APIErrorReport{Message: "a2", StatusCode: 404})
	clock.Advance(time.Second)
	tr.LogAPIError(APIErrorReport{Message: "a3", StatusCode: 502})

	got := tr.GetErrors(models.ErrorFilter{Type: models.ErrorTypeAPI, Limit: 2})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Message != "a3" || got[1].Message != "a2" {
		t.Errorf("order = %s,%s; want a3,a2", got[0].Message, got[1].Message)
	}
	for _, e := range got {
		if e.Type != models.ErrorTypeAPI {
			t.Errorf("unexpected type %q", e.Type)
		}
	}

	critical := tr.GetErrors(models.ErrorFilter{Type: models.ErrorTypeAPI, Severity: models.SeverityCritical})
	if len(critical) != 2 {
		t.Errorf("critical api errors = %d, want 2", len(critical))
	}

	since := tr.GetErrors(models.ErrorFilter{Since: clock.Now().Add(-time.Second)})
	if len(since) != 2 {
		t.Errorf("errors since 1s ago = %d, want 2", len(since))
	}

	if got := tr.GetErrors(models.ErrorFilter{}); len(got) != 4 {
		t.Errorf("default limit returned %d, want 4", len(got))
	}
}

func TestErrorTracker_DefaultLimit(t *testing.T) {
	tr, _ := newTestErrorTracker()
	for i := 0; i < 80; i++ {
		tr.Log404Error(NotFoundReport{Path: "/x"})
	}
	if got := len(tr.GetErrors(models.ErrorFilter{})); got != defaultErrorsLimit {
		t.Errorf("len = %d, want %d", got, defaultErrorsLimit)
	}
}

func TestErrorTracker_PruneKeepsCounters(t *testing.T) {
	tr, clock := newTestErrorTracker()

	tr.LogJavaScriptError(JSErrorReport{Message: "old"})
	clock.Advance(8 * 24 * time.Hour)
	tr.LogJavaScriptError(JSErrorReport{Message: "new"})

	if removed := tr.PruneOlderThan(7 * 24 * time.Hour); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := tr.GetErrors(models.ErrorFilter{}); len(got) != 1 || got[0].Message != "new" {
		t.Fatalf("remaining = %+v", got)
	}
	if stats := tr.GetStats(); stats.TotalErrors != 2 {
		t.Errorf("TotalErrors = %d after prune, want 2", stats.TotalErrors)
	}
}

func TestErrorTracker_ClearResetsEverything(t *testing.T) {
	tr, clock := newTestErrorTracker()
	tr.LogAPIError(APIErrorReport{StatusCode: 500})
	tr.Log404Error(NotFoundReport{Path: "/"})

	clock.Advance(time.Minute)
	tr.ClearErrors()

	stats := tr.GetStats()
	if stats.TotalErrors != 0 || stats.APIErrors != 0 || stats.NotFoundErrors != 0 {
		t.Errorf("counters not reset: %+v", stats)
	}
	if stats.Last24hTracked.Total != 0 || len(stats.RecentErrors) != 0 {
		t.Errorf("windows not reset: %+v", stats)
	}
	if !stats.LastReset.Equal(clock.Now()) {
		t.Errorf("LastReset = %v, want %v", stats.LastReset, clock.Now())
	}
}

func TestErrorTracker_TrackedWindowExpires(t *testing.T) {
	tr, clock := newTestErrorTracker()
	tr.LogJavaScriptError(JSErrorReport{})

	clock.Advance(25 * time.Hour)
	stats := tr.GetStats()
	if stats.Last24h.Total != 0 || stats.Last24hTracked.Total != 0 {
		t.Errorf("events older than a day still counted: %+v / %+v", stats.Last24h, stats.Last24hTracked)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", stats.TotalErrors)
	}
}

func TestMaintenanceService_RunOnce(t *testing.T) {
	tr, clock := newTestErrorTracker()
	tr.LogJavaScriptError(JSErrorReport{})
	clock.Advance(48 * time.Hour)

	m := NewMaintenanceService(tr, 24*time.Hour, time.Hour)
	if removed := m.RunOnce(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	m.Start()
	m.Stop()
	m.Stop()
}
