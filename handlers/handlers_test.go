package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"media-site-service/logging"
	"media-site-service/middleware"
	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/storage"
	"media-site-service/utils"
	"media-site-service/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVideos struct{}

func (fakeVideos) LatestVideos(context.Context) []models.Video {
	return []models.Video{{ID: "v1", Snippet: models.VideoSnippet{Title: "T"}}}
}

type fakeProvider struct{}

func (fakeProvider) CPUPercent(context.Context) (float64, error) { return 12, nil }
func (fakeProvider) CPUInfo(context.Context) (int, string, error) {
	return 4, "Test", nil
}
func (fakeProvider) Memory(context.Context) (services.MemorySample, error) {
	return services.MemorySample{Total: 8 << 30, Used: 2 << 30, Free: 6 << 30}, nil
}
func (fakeProvider) Disk(context.Context) (services.DiskSample, error) {
	return services.DiskSample{Total: 100 << 30, Used: 50 << 30, UsedPercent: 50, Mount: "/"}, nil
}
func (fakeProvider) HostUptime(context.Context) (time.Duration, error) { return time.Hour, nil }

type visitQueue struct {
	mu     sync.Mutex
	visits []services.Visit
}

func (q *visitQueue) Track(v services.Visit) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.visits = append(q.visits, v)
	return true
}

func (q *visitQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.visits)
}

type testServer struct {
	router   *gin.Engine
	visitors *services.VisitorLog
	errors   *services.ErrorTracker
	queue    *visitQueue
	login    *middleware.RateLimiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cred, err := utils.NewCredential("admin", "correct horse")
	if err != nil {
		t.Fatal(err)
	}

	ts := &testServer{
		visitors: services.NewVisitorLog(store),
		errors:   services.NewErrorTracker(),
		queue:    &visitQueue{},
		login:    middleware.NewRateLimiter("login", 5, 15*time.Minute, "Too many login attempts, please try again later."),
	}
	t.Cleanup(ts.login.Close)

	hub := ws.NewHub(middleware.AllowOrigin(""))
	t.Cleanup(hub.Close)

	ts.router = NewRouter(Dependencies{
		ExposeErrors:  true,
		Credential:    cred,
		Sessions:      services.NewSessionStore(store, []byte(strings.Repeat("k", 32))),
		Visitors:      ts.visitors,
		Notifications: services.NewNotificationStore(store, nil),
		Errors:        ts.errors,
		Monitor:       services.NewSystemMonitor(fakeProvider{}),
		Videos:        fakeVideos{},
		Tracker:       ts.queue,
		LoginLimiter:  ts.login,
		Hub:           hub,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) loginToken(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Username: "admin", Password: "correct horse"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("login response = %+v", resp)
	}
	return resp.Token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return e
}

func TestAdminSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.visitors.LogVisit(models.Visitor{IP: "203.0.113.1", Path: "/"})

	token := ts.loginToken(t)

	w := ts.do(t, http.MethodGet, "/api/admin/analytics", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analytics status = %d", w.Code)
	}
	var analytics models.Analytics
	if err := json.Unmarshal(decode(t, w).Data, &analytics); err != nil {
		t.Fatal(err)
	}
	if analytics.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", analytics.TotalVisits)
	}

	if w := ts.do(t, http.MethodPost, "/api/admin/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/api/admin/analytics", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("analytics after logout = %d, want 401", w.Code)
	}
	if e := decode(t, w); e.Success || e.Message != "Unauthorized" {
		t.Errorf("body = %+v", e)
	}
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Username: "admin", Password: "nope"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want 400", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 5; i++ {
		ts.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	}
	w := ts.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Username: "admin", Password: "correct horse"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if e := decode(t, w); e.Success || !strings.Contains(e.Message, "Too many login attempts") {
		t.Errorf("body = %+v", e)
	}
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	ts := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		body, err := json.Marshal(LoginRequest{Username: "admin", Password: "wrong"})
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		last = httptest.NewRecorder()
		ts.router.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth login status = %d, want 429", last.Code)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.loginToken(t)

	if w := ts.do(t, http.MethodPost, "/api/notifications", "", map[string]string{"title": "A", "message": "B"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d, want 401", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/api/notifications", token, map[string]string{"title": "A", "message": "B"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created models.Notification
	if err := json.Unmarshal(decode(t, w).Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || !created.IsActive {
		t.Fatalf("created = %+v", created)
	}

	listActive := func() []models.Notification {
		w := ts.do(t, http.MethodGet, "/api/notifications", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list status = %d", w.Code)
		}
		var out []models.Notification
		if err := json.Unmarshal(decode(t, w).Data, &out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	if got := listActive(); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("public list = %+v", got)
	}

	w = ts.do(t, http.MethodPut, "/api/notifications/"+created.ID, token, map[string]any{"title": "A2"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/api/notifications/missing", token, map[string]any{"title": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/api/notifications/"+created.ID, token, map[string]any{"title": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank title update status = %d, want 400", w.Code)
	}

	if w := ts.do(t, http.MethodDelete, "/api/notifications/"+created.ID, token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if got := listActive(); len(got) != 0 {
		t.Fatalf("public list after delete = %+v", got)
	}
	if w := ts.do(t, http.MethodDelete, "/api/notifications/"+created.ID, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateNotificationValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.loginToken(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing message", map[string]string{"title": "A"}},
		{"bad type", map[string]string{"title": "A", "message": "B", "type": "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := ts.do(t, http.MethodPost, "/api/notifications", token, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSystemErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.loginToken(t)

	for i := 0; i < 3; i++ {
		w := ts.do(t, http.MethodPost, "/api/system/errors", "", ErrorReport{Type: "api", Message: "fail", StatusCode: 500})
		if w.Code != http.StatusOK {
			t.Fatalf("report status = %d", w.Code)
		}
	}
	ts.do(t, http.MethodPost, "/api/system/errors", "", ErrorReport{Type: "javascript", Message: "js"})

	w := ts.do(t, http.MethodGet, "/api/system/errors?type=api&limit=2", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get errors status = %d", w.Code)
	}
	var resp ErrorsResponse
	if err := json.Unmarshal(decode(t, w).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("len(errors) = %d, want 2", len(resp.Errors))
	}
	for _, e := range resp.Errors {
		if e.Type != models.ErrorTypeAPI || e.Severity != models.SeverityCritical {
			t.Errorf("unexpected event %+v", e)
		}
	}
	if resp.Stats.TotalErrors != 4 {
		t.Errorf("TotalErrors = %d, want 4", resp.Stats.TotalErrors)
	}

	if w := ts.do(t, http.MethodGet, "/api/system/errors?since=yesterday", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/system/errors", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous get errors = %d, want 401", w.Code)
	}

	if w := ts.do(t, http.MethodDelete, "/api/system/errors", token, nil); w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	if stats := ts.errors.GetStats(); stats.TotalErrors != 0 {
		t.Errorf("TotalErrors after clear = %d", stats.TotalErrors)
	}
}

func TestSystemHealthAndQuickStats(t *testing.T) {
	ts := newTestServer(t)
	token := ts.loginToken(t)

	w := ts.do(t, http.MethodGet, "/api/system/health", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var health models.SystemHealth
	if err := json.Unmarshal(decode(t, w).Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.CPU.Usage != 12 || health.Memory.UsagePercent != 25 || health.Disk.Mount != "/" {
		t.Errorf("health = %+v", health)
	}

	w = ts.do(t, http.MethodGet, "/api/system/quick-stats", token, nil)
	var quick models.QuickStats
	if err := json.Unmarshal(decode(t, w).Data, &quick); err != nil {
		t.Fatal(err)
	}
	if quick.CPU != 12 || quick.MemoryPercent != 25 {
		t.Errorf("quick = %+v", quick)
	}
}

func TestVisitEndpointEnqueues(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/system/visit", "", VisitRequest{Path: "/about"})
	if w.Code != http.StatusOK || !decode(t, w).Success {
		t.Fatalf("visit = %d %s", w.Code, w.Body.String())
	}
	if ts.queue.len() != 1 || ts.queue.visits[0].Path != "/about" {
		t.Errorf("queued = %+v", ts.queue.visits)
	}
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/ping", "", nil); w.Body.String() != "Server is alive!" {
		t.Errorf("ping = %q", w.Body.String())
	}

	w := ts.do(t, http.MethodGet, "/api/health", "", nil)
	var health map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "OK" {
		t.Errorf("health = %+v", health)
	}

	w = ts.do(t, http.MethodGet, "/api/youtube/latest", "", nil)
	var feed struct {
		Items []models.Video `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Items) != 1 {
		t.Errorf("items = %+v", feed.Items)
	}

	if ts.queue.len() != 2 {
		t.Errorf("tracked visits = %d, want 2 (ping and health)", ts.queue.len())
	}
}

func TestUnknownRouteLogs404(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/does/not/exist", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if e := decode(t, w); e.Success || e.Message != "Route not found" {
		t.Errorf("body = %+v", e)
	}

	deadline := time.Now().Add(time.Second)
	for ts.errors.GetStats().NotFoundErrors == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := ts.errors.GetStats().NotFoundErrors; got != 1 {
		t.Errorf("NotFoundErrors = %d, want 1", got)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/ws?token=bogus", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/ws", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", w.Code)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPanicIsLoggedAsRequest(t *testing.T) {
	var buf lockedBuffer
	logging.Init(logging.Config{Level: "info", Output: &buf})
	defer logging.Init(logging.Config{Level: "info"})

	ts := newTestServer(t)
	ts.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := ts.do(t, http.MethodGet, "/boom", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var found bool
	out := buf.String()
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Contains(line, `"message":"request"`) && strings.Contains(line, `"path":"/boom"`) {
			found = true
			if !strings.Contains(line, `"status":500`) || !strings.Contains(line, `"request_id"`) {
				t.Errorf("request line = %s", line)
			}
		}
	}
	if !found {
		t.Fatalf("no request line for panicking request in:\n%s", out)
	}
}
