package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mtr002/job-system/internal/handlers"
	"github.com/mtr002/job-system/internal/jobs"
)

func newTestManager(t *testing.T, workers int) *jobs.Manager {
	t.Helper()
	registry := jobs.NewRegistry()
	handlers.Register(registry)
	m := jobs.NewManager(registry, jobs.WithDrainInterval(time.Millisecond))
	for i := 0; i < workers; i++ {
		if _, err := m.CreateWorker(); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateAndGetJob(t *testing.T) {
	m := newTestManager(t, 0)
	h := NewRouter(m, nil)

	rec := do(t, h, http.MethodPost, "/jobs/", `{"type":"echo","input":"hi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /jobs/ = %d: %s", rec.Code, rec.Body)
	}
	created := decode[JobResponse](t, rec)
	if created.ID == "" || created.Status != "queued" || created.StatusCode != 1 || created.Complete {
		t.Errorf("created = %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/jobs/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /jobs/{id} = %d", rec.Code)
	}
	if got := decode[JobResponse](t, rec); got.ID != created.ID || got.Result != nil {
		t.Errorf("GET = %+v", got)
	}
}

func TestGetUnknownJob(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)
	if rec := do(t, h, http.MethodGet, "/jobs/doesnotexist", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown job = %d, want 404", rec.Code)
	}
}

func TestCreateJobValidation(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)
	for name, body := range map[string]string{
		"bad json":     `{"type":`,
		"missing type": `{"input":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/jobs/", body); rec.Code != http.StatusBadRequest {
				t.Errorf("POST /jobs/ = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRunJob(t *testing.T) {
	m := newTestManager(t, 1)
	h := NewRouter(m, nil)

	rec := do(t, h, http.MethodPost, "/jobs/run", `{"type":"uppercase","input":"shout"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /jobs/run = %d: %s", rec.Code, rec.Body)
	}
	got := decode[RunResponse](t, rec)
	if got.Output != "SHOUT" || got.Error != "" {
		t.Errorf("run = %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/jobs/run", `{"type":"fail","input":"nope"}`)
	if got := decode[RunResponse](t, rec); got.Error != "nope" {
		t.Errorf("failed run = %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/jobs/run", `{"type":"unregistered"}`)
	if got := decode[RunResponse](t, rec); !strings.Contains(got.Error, "unknown job type") {
		t.Errorf("unknown type run = %+v", got)
	}
}

func TestRunJobTimesOut(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/jobs/run", strings.NewReader(`{"type":"echo"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("POST /jobs/run without workers = %d, want 504", rec.Code)
	}
}

func TestCancelJob(t *testing.T) {
	m := newTestManager(t, 0)
	h := NewRouter(m, nil)
	id := m.Enqueue("echo", "x")

	if rec := do(t, h, http.MethodDelete, "/jobs/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", rec.Code)
	}
	if m.Stats().Pending != 0 {
		t.Error("job still pending after DELETE")
	}
}

func TestListTypes(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)
	rec := do(t, h, http.MethodGet, "/jobs/types", "")
	got := decode[map[string][]string](t, rec)
	if s := strings.Join(got["types"], " "); s != "echo fail reverse slow uppercase" {
		t.Errorf("types = %v", got["types"])
	}
}

func TestWorkersAndReadiness(t *testing.T) {
	m := newTestManager(t, 0)
	h := NewRouter(m, nil)

	if rec := do(t, h, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready without workers = %d, want 503", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/workers", "")
	if rec.Code != http.StatusCreated || decode[map[string]string](t, rec)["id"] == "" {
		t.Fatalf("POST /workers = %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready with a worker = %d, want 200", rec.Code)
	}
	if got := decode[ReadinessResponse](t, rec); got.Workers != 1 || got.Status != "ready" {
		t.Errorf("readiness = %+v", got)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, h, http.MethodPost, "/workers", ""); rec.Code != http.StatusConflict {
		t.Errorf("POST /workers after shutdown = %d, want 409", rec.Code)
	}
}

func TestHistoryAndStats(t *testing.T) {
	m := newTestManager(t, 0)
	h := NewRouter(m, nil)
	id := m.Enqueue("echo", "x")

	rec := do(t, h, http.MethodGet, "/history", "")
	if want := "JobId: " + id + " JobStatus: 1\n"; rec.Body.String() != want {
		t.Errorf("history = %q, want %q", rec.Body.String(), want)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("history content type = %q", ct)
	}

	rec = do(t, h, http.MethodGet, "/stats", "")
	got := decode[struct {
		jobs.Stats
		Active bool `json:"active"`
	}](t, rec)
	if got.Pending != 1 || !got.Active || got.HistoryEntries != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestCorrelationID(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("correlation id = %q, want it echoed", got)
	}

	rec = do(t, h, http.MethodGet, "/health/live", "")
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("no correlation id generated")
	}
	if got := decode[HealthResponse](t, rec); got.Status != "alive" {
		t.Errorf("liveness = %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := newTestManager(t, 0)
	m.Enqueue("echo", "x")
	h := NewRouter(m, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "jobsystem_jobs_enqueued_total") {
		t.Errorf("/metrics = %d, missing job counters", rec.Code)
	}
}

func TestWebSocketRouteNeedsHub(t *testing.T) {
	h := NewRouter(newTestManager(t, 0), nil)
	if rec := do(t, h, http.MethodGet, "/ws", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/ws without a hub = %d, want 404", rec.Code)
	}
}
