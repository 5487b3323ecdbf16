package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
)

func newTestServer(t *testing.T) (*Server, *jobs.Manager) {
	t.Helper()
	m := jobs.NewManager(jobs.NewRegistry())
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return &Server{manager: m}, m
}

func TestSubmit(t *testing.T) {
	s, m := newTestServer(t)

	reply := s.submit([]byte(`{"type":"echo","input":"hi"}`))
	if reply.Error != "" || reply.JobID == "" || reply.Status != "queued" {
		t.Fatalf("submit() = %+v", reply)
	}
	if got := m.Status(reply.JobID); got != interfaces.StatusQueued {
		t.Errorf("Status() = %v, want queued", got)
	}
}

func TestSubmitRejects(t *testing.T) {
	s, m := newTestServer(t)

	for name, data := range map[string]string{
		"invalid json": `{"type":`,
		"missing type": `{"input":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			reply := s.submit([]byte(data))
			if reply.Error == "" || reply.JobID != "" {
				t.Errorf("submit(%s) = %+v", data, reply)
			}
		})
	}
	if n := m.Stats().Pending; n != 0 {
		t.Errorf("%d jobs queued from rejected submissions", n)
	}
}

func TestNewJobStatusMessage(t *testing.T) {
	running := NewJobStatusMessage(interfaces.HistoryEntry{JobID: "a", Status: interfaces.StatusRunning}, nil)
	if running.JobID != "a" || running.Status != "running" || running.StatusCode != 2 || running.Result != "" {
		t.Errorf("running message = %+v", running)
	}

	done := NewJobStatusMessage(
		interfaces.HistoryEntry{JobID: "a", Status: interfaces.StatusCompleted},
		&interfaces.Result{Output: "out"},
	)
	data, err := json.Marshal(done)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"job_id":"a","status":"completed","status_code":3,"result":"out"}`
	if string(data) != want {
		t.Errorf("completed message = %s, want %s", data, want)
	}
}

func TestPublishTransitionWithoutConnection(t *testing.T) {
	s, _ := newTestServer(t)
	if err := s.PublishTransition(interfaces.HistoryEntry{JobID: "a", Status: interfaces.StatusQueued}); err == nil {
		t.Error("PublishTransition() without a connection returned no error")
	}
}
