package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/mtr002/job-system/internal/jobs"
)

func newTestClient(t *testing.T, workers int) (*Client, *jobs.Manager) {
	t.Helper()

	registry := jobs.NewRegistry()
	registry.Register("echo", func(_ context.Context, input string) (string, error) {
		return "echo " + input, nil
	})
	manager := jobs.NewManager(registry)
	for i := 0; i < workers; i++ {
		if _, err := manager.CreateWorker(); err != nil {
			t.Fatal(err)
		}
	}

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterJobServiceServer(s, NewServer(manager))
	go s.Serve(lis)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		s.Stop()
		manager.Shutdown(context.Background())
	})
	return client, manager
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEnqueueAndStatus(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := testContext(t)

	id, err := client.Enqueue(ctx, "echo", "hi")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	state, err := client.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if state.ID != id || state.Status != "queued" || state.StatusCode != 1 || state.Complete || state.Result != nil {
		t.Errorf("Status() = %+v", state)
	}

	unknown, err := client.Status(ctx, "missing")
	if err != nil {
		t.Fatalf("Status(missing) error = %v", err)
	}
	if unknown.Status != "never_seen" || unknown.StatusCode != 0 {
		t.Errorf("Status(missing) = %+v", unknown)
	}
}

func TestRunSync(t *testing.T) {
	client, manager := newTestClient(t, 1)
	ctx := testContext(t)

	id, result, err := client.RunSync(ctx, "echo", "hi")
	if err != nil {
		t.Fatalf("RunSync() error = %v", err)
	}
	if result.Output != "echo hi" || result.Failed() {
		t.Errorf("RunSync() result = %+v", result)
	}

	if err := manager.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	state, err := client.Status(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Complete || state.Result == nil || state.Result.Output != "echo hi" {
		t.Errorf("Status() after run = %+v", state)
	}
}

func TestRunSyncDeadline(t *testing.T) {
	client, _ := newTestClient(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := client.RunSync(ctx, "echo", "hi")
	if status.Code(err) != codes.DeadlineExceeded {
		t.Errorf("RunSync() without workers error = %v, want DeadlineExceeded", err)
	}
}

func TestInvalidArguments(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := testContext(t)

	if _, err := client.Enqueue(ctx, "", "x"); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Enqueue(empty type) error = %v", err)
	}
	if _, err := client.Status(ctx, ""); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Status(empty id) error = %v", err)
	}
	if err := client.Cancel(ctx, ""); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Cancel(empty id) error = %v", err)
	}
}

func TestCancelAndStats(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := testContext(t)

	a, _ := client.Enqueue(ctx, "echo", "a")
	if _, err := client.Enqueue(ctx, "echo", "b"); err != nil {
		t.Fatal(err)
	}
	if err := client.Cancel(ctx, a); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	stats, active, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Pending != 1 || stats.HistoryEntries != 2 || stats.Workers != 0 || !active {
		t.Errorf("Stats() = %+v, active = %v", stats, active)
	}
}

func TestListTypesAndCreateWorker(t *testing.T) {
	client, manager := newTestClient(t, 0)
	ctx := testContext(t)

	types, err := client.ListTypes(ctx)
	if err != nil || len(types) != 1 || types[0] != "echo" {
		t.Errorf("ListTypes() = %v, %v", types, err)
	}

	id, err := client.CreateWorker(ctx)
	if err != nil || id == "" {
		t.Fatalf("CreateWorker() = %q, %v", id, err)
	}
	if n := manager.Stats().Workers; n != 1 {
		t.Errorf("workers = %d, want 1", n)
	}

	if err := manager.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.CreateWorker(ctx); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("CreateWorker() after shutdown error = %v, want FailedPrecondition", err)
	}
}
